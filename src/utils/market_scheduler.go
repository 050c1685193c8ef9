package utils

import (
	"time"

	"market-dashboard/src/models"
)

// MarketScheduler maps market state to refresh cadence and status blocks.
type MarketScheduler struct {
	Calendar      *TradingCalendar
	ClosedRefresh time.Duration
}

// -----------------------------------------------------------------------------

func NewMarketScheduler(cal *TradingCalendar, closedRefresh time.Duration) *MarketScheduler {
	return &MarketScheduler{Calendar: cal, ClosedRefresh: closedRefresh}
}

// -----------------------------------------------------------------------------

func (ms *MarketScheduler) IsMarketOpen(now time.Time) bool {
	return ms.Calendar.IsMarketOpen(now)
}

// -----------------------------------------------------------------------------

// IntervalFor returns the update period for a connection: the configured
// refresh interval while the market is open, otherwise the slow period that
// mainly keeps the weather current.
func (ms *MarketScheduler) IntervalFor(now time.Time, refreshIntervalMs int) time.Duration {
	if ms.Calendar.IsMarketOpen(now) {
		return time.Duration(refreshIntervalMs) * time.Millisecond
	}
	return ms.ClosedRefresh
}

// -----------------------------------------------------------------------------

// Status builds the market status block shown by clients.
func (ms *MarketScheduler) Status(now time.Time) models.MMarketStatus {
	local := now.In(ms.Calendar.Timezone)
	open := ms.Calendar.IsMarketOpen(now)

	message := "Market Closed"
	if open {
		message = "Market Open"
	}

	return models.MMarketStatus{
		IsOpen:      open,
		Message:     message,
		CurrentTime: local.Format("03:04 PM"),
		CurrentDate: local.Format("Monday, January 2, 2006"),
	}
}
