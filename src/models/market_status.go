package models

// MMarketStatus is recomputed on every request.
type MMarketStatus struct {
	IsOpen      bool   `json:"isOpen"`
	Message     string `json:"message"`
	CurrentTime string `json:"currentTime"`
	CurrentDate string `json:"currentDate"`
}
