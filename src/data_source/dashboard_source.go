package datasource

import (
	"context"
	"time"

	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/utils"

	"github.com/jonboulle/clockwork"
)

// DashboardSource combines the quote and weather providers with the market
// calendar. Fresh stock batches are recorded to snapshot history when a
// database is attached.
type DashboardSource struct {
	Quotes    interfaces.IQuoteSource
	Weather   interfaces.IWeatherSource
	Scheduler *utils.MarketScheduler
	History   interfaces.IDatabase // optional
	Logger    *logger.Logger

	clock clockwork.Clock
}

// -----------------------------------------------------------------------------

func NewDashboardSource(
	quotes interfaces.IQuoteSource,
	weather interfaces.IWeatherSource,
	scheduler *utils.MarketScheduler,
	clock clockwork.Clock,
	log *logger.Logger,
) *DashboardSource {
	return &DashboardSource{
		Quotes:    quotes,
		Weather:   weather,
		Scheduler: scheduler,
		Logger:    log,
		clock:     clock,
	}
}

// -----------------------------------------------------------------------------

func (d *DashboardSource) Name() string {
	return "DashboardSource(" + d.Quotes.Name() + ")"
}

// -----------------------------------------------------------------------------

func (d *DashboardSource) Now() time.Time {
	return d.clock.Now()
}

// -----------------------------------------------------------------------------

func (d *DashboardSource) MarketOpen() bool {
	return d.Scheduler.IsMarketOpen(d.clock.Now())
}

// -----------------------------------------------------------------------------

func (d *DashboardSource) MarketStatus() models.MMarketStatus {
	return d.Scheduler.Status(d.clock.Now())
}

// -----------------------------------------------------------------------------

// Interval returns the update period for a connection right now.
func (d *DashboardSource) Interval(refreshIntervalMs int) time.Duration {
	return d.Scheduler.IntervalFor(d.clock.Now(), refreshIntervalMs)
}

// -----------------------------------------------------------------------------

// FetchStocks fetches a fresh batch. Price history is only requested while
// the market is open; fundamentals are requested in every state. A batch cut
// short by ctx is not recorded.
func (d *DashboardSource) FetchStocks(ctx context.Context, symbols []string) []models.MStockSnapshot {
	batch := d.Quotes.FetchBatch(ctx, symbols, d.MarketOpen())

	if d.History != nil && len(batch) > 0 && ctx.Err() == nil {
		if err := d.History.SaveSnapshots(ctx, batch); err != nil {
			d.Logger.Warning("Failed to record snapshot history: %v", err)
		}
	}
	return batch
}

// -----------------------------------------------------------------------------

func (d *DashboardSource) FetchWeather(ctx context.Context, location string) models.MWeather {
	return d.Weather.FetchWeather(ctx, location)
}
