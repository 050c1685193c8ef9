package models

// -----------------------------------------------------------------------------
// Push channel envelope
// -----------------------------------------------------------------------------

// Message types on the push channel.
const (
	MessageUpdate        = "update"
	MessageConfigChanged = "configChanged"
	MessageRequestUpdate = "requestUpdate"
	MessageError         = "error"
)

type MMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// MUpdatePayload is the data of an "update" message.
type MUpdatePayload struct {
	Stocks       []MStockSnapshot `json:"stocks"`
	Weather      MWeather         `json:"weather"`
	MarketStatus MMarketStatus    `json:"marketStatus"`
}

// MErrorPayload is the data of an "error" message.
type MErrorPayload struct {
	Message string `json:"message"`
}

// -----------------------------------------------------------------------------
// Inbound client command
// -----------------------------------------------------------------------------

type MClientCommand struct {
	Type string `json:"type"`
}

// -----------------------------------------------------------------------------
// HTTP response used by the network layer
// -----------------------------------------------------------------------------

type MHTTPResponse struct {
	StatusCode int
	Body       []byte
}
