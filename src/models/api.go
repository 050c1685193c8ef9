package models

// MStocksResponse is the body of GET /api/stocks.
type MStocksResponse struct {
	Stocks       []MStockSnapshot `json:"stocks"`
	MarketStatus MMarketStatus    `json:"marketStatus"`
	LastUpdate   int64            `json:"lastUpdate"` // unix ms of the last fresh fetch
	FromCache    bool             `json:"fromCache"`
}

// MSaveResponse is the body of a successful POST /api/config.
type MSaveResponse struct {
	Success bool             `json:"success"`
	Config  MDashboardConfig `json:"config"`
}

// MStatus summarises the running process for health checks and the
// control service.
type MStatus struct {
	Status       string        `json:"status"`
	Connections  int           `json:"connections"`
	MarketStatus MMarketStatus `json:"marketStatus"`
	LastUpdate   int64         `json:"lastUpdate"`
	ConfigHash   string        `json:"configHash"`
	Providers    []MProvider   `json:"providers"`
}

// MProvider reports one upstream provider and its circuit breaker state.
type MProvider struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	State      string `json:"state"`
}
