package interfaces

import (
	"context"

	"market-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IQuoteSource fetches a batch of stock snapshots from an external provider.
// -----------------------------------------------------------------------------

type IQuoteSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchBatch fetches every symbol concurrently. It never returns an
	// error: failures are contained in the per-symbol snapshot.
	FetchBatch(ctx context.Context, symbols []string, marketOpen bool) []models.MStockSnapshot
}

// -----------------------------------------------------------------------------
// IWeatherSource fetches current conditions for a free-form location.
// -----------------------------------------------------------------------------

type IWeatherSource interface {

	// FetchWeather never returns an error; failures produce a weather block
	// with the Error marker set.
	FetchWeather(ctx context.Context, location string) models.MWeather
}

// -----------------------------------------------------------------------------
// IStockProvider is what a stock cache needs from the data layer.
// -----------------------------------------------------------------------------

type IStockProvider interface {

	// MarketOpen reports whether the market is open right now.
	MarketOpen() bool

	// -----------------------------------------------------------------------------

	// FetchStocks fetches a fresh batch for the given symbols.
	FetchStocks(ctx context.Context, symbols []string) []models.MStockSnapshot
}
