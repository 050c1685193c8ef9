package models

// MStockSnapshot is the per-symbol batch entry pushed to clients. Once
// produced it is never mutated; caches replace whole batches.
type MStockSnapshot struct {
	Symbol        string    `json:"ticker"`
	Name          string    `json:"name"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"changePercent"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previousClose"`
	Volume        float64   `json:"volume"`
	Timestamp     int64     `json:"timestamp"` // unix ms
	History       *MHistory `json:"history"`
	Metrics       *MMetrics `json:"metrics"`
	Error         string    `json:"error,omitempty"`
}

// MHistory is a short daily price series used for sparklines.
type MHistory struct {
	Timestamps []int64   `json:"timestamps"` // unix ms
	Prices     []float64 `json:"prices"`
	Volumes    []float64 `json:"volumes"`
}

// MMetrics holds company fundamentals. Nil fields mean the provider had none.
type MMetrics struct {
	PERatio       *float64 `json:"peRatio"`
	MarketCap     *float64 `json:"marketCap"`
	DividendYield *float64 `json:"dividendYield"`
	EPS           *float64 `json:"eps"`
	Beta          *float64 `json:"beta"`
	YearHigh      *float64 `json:"yearHigh"`
	YearLow       *float64 `json:"yearLow"`
	Volume        *float64 `json:"volume"`
	AvgVolume     *float64 `json:"avgVolume"`
}

// Symbols lists the batch symbols in batch order.
func Symbols(batch []MStockSnapshot) []string {
	out := make([]string, 0, len(batch))
	for _, s := range batch {
		out = append(out, s.Symbol)
	}
	return out
}
