package finnhub

import "market-dashboard/src/models"

// quoteResponse is the /quote payload. Unknown symbols come back with all
// prices zero and change fields null.
type quoteResponse struct {
	Current       float64 `json:"c"`
	Change        float64 `json:"d"`
	ChangePercent float64 `json:"dp"`
	High          float64 `json:"h"`
	Low           float64 `json:"l"`
	Open          float64 `json:"o"`
	PreviousClose float64 `json:"pc"`
	Volume        float64 `json:"v"`
}

type profileResponse struct {
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
}

type candleResponse struct {
	Status string    `json:"s"`
	Close  []float64 `json:"c"`
	Time   []int64   `json:"t"`
	Volume []float64 `json:"v"`
}

type metricResponse struct {
	Metric *metricFields `json:"metric"`
}

type metricFields struct {
	PENormalizedAnnual           *float64 `json:"peNormalizedAnnual"`
	PEBasicExclExtraTTM          *float64 `json:"peBasicExclExtraTTM"`
	MarketCapitalization         *float64 `json:"marketCapitalization"`
	DividendYieldIndicatedAnnual *float64 `json:"dividendYieldIndicatedAnnual"`
	EPSNormalizedAnnual          *float64 `json:"epsNormalizedAnnual"`
	EPSBasicExclExtraTTM         *float64 `json:"epsBasicExclExtraTTM"`
	Beta                         *float64 `json:"beta"`
	WeekHigh52                   *float64 `json:"52WeekHigh"`
	WeekLow52                    *float64 `json:"52WeekLow"`
	Volume                       *float64 `json:"volume"`
	Volume10DayAverage           *float64 `json:"volume10DayAverage"`
}

// toModel picks the first usable value for each field. Zero counts as
// missing, the provider uses it for "not reported".
func (m *metricFields) toModel() models.MMetrics {
	return models.MMetrics{
		PERatio:       firstSet(m.PENormalizedAnnual, m.PEBasicExclExtraTTM),
		MarketCap:     firstSet(m.MarketCapitalization),
		DividendYield: firstSet(m.DividendYieldIndicatedAnnual),
		EPS:           firstSet(m.EPSNormalizedAnnual, m.EPSBasicExclExtraTTM),
		Beta:          firstSet(m.Beta),
		YearHigh:      firstSet(m.WeekHigh52),
		YearLow:       firstSet(m.WeekLow52),
		Volume:        firstSet(m.Volume),
		AvgVolume:     firstSet(m.Volume10DayAverage),
	}
}

func firstSet(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil && *v != 0 {
			out := *v
			return &out
		}
	}
	return nil
}
