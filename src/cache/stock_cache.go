package cache

import (
	"context"
	"sync"

	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"github.com/jonboulle/clockwork"
)

// -----------------------------------------------------------------------------

// StockCache decides whether a stock batch must be fetched or can be served
// from the last batch. A cached batch is only ever served for the exact
// ticker multiset it was fetched for; batches are replaced, never edited.
type StockCache struct {
	Provider interfaces.IStockProvider
	Logger   *logger.Logger

	clock clockwork.Clock

	mu         sync.Mutex
	stocks     []models.MStockSnapshot
	lastUpdate int64 // unix ms of the last fresh fetch
}

// -----------------------------------------------------------------------------

func NewStockCache(provider interfaces.IStockProvider, clock clockwork.Clock, log *logger.Logger) *StockCache {
	return &StockCache{
		Provider: provider,
		Logger:   log,
		clock:    clock,
	}
}

// -----------------------------------------------------------------------------

// GetStocks returns the batch for cfg's tickers and whether it came from
// the cache:
//
//  1. forceFresh: fetch and replace.
//  2. market open: fetch and replace.
//  3. market closed: serve the cached batch if its tickers match the
//     configured ones, otherwise fetch and replace.
//
// A fetch whose ctx ended before it returned never replaces the cache.
func (c *StockCache) GetStocks(ctx context.Context, cfg models.MDashboardConfig, forceFresh bool) ([]models.MStockSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case forceFresh:
		metrics.StockCacheTotal.WithLabelValues("forced").Inc()
	case c.Provider.MarketOpen():
		metrics.StockCacheTotal.WithLabelValues("bypass").Inc()
	case c.stocks != nil && SameTickers(models.Symbols(c.stocks), cfg.Tickers):
		metrics.StockCacheTotal.WithLabelValues("hit").Inc()
		return c.stocks, true
	default:
		if c.stocks != nil {
			c.Logger.Info("Ticker set changed, refreshing cached stocks")
		}
		metrics.StockCacheTotal.WithLabelValues("miss").Inc()
	}

	batch := c.Provider.FetchStocks(ctx, cfg.Tickers)
	if ctx.Err() != nil {
		// A batch cut short by its caller is served once and never cached.
		c.Logger.Debug("Fetch cancelled, keeping the cached batch")
		return batch, false
	}
	c.stocks = batch
	c.lastUpdate = c.clock.Now().UnixMilli()
	return batch, false
}

// -----------------------------------------------------------------------------

// Warm seeds an empty cache, e.g. from snapshot history after a restart.
// The ticker match rule still applies on the next read.
func (c *StockCache) Warm(batch []models.MStockSnapshot, fetchedAt int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stocks != nil || len(batch) == 0 {
		return
	}
	c.stocks = batch
	c.lastUpdate = fetchedAt
}

// -----------------------------------------------------------------------------

// Reset drops the cached batch.
func (c *StockCache) Reset() {
	c.mu.Lock()
	c.stocks = nil
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// LastUpdate returns the unix ms time of the cached batch, 0 when empty.
func (c *StockCache) LastUpdate() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stocks == nil {
		return 0
	}
	return c.lastUpdate
}

// -----------------------------------------------------------------------------

// SameTickers compares two ticker lists as multisets.
func SameTickers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, s := range a {
		counts[s]++
	}
	for _, s := range b {
		if counts[s] == 0 {
			return false
		}
		counts[s]--
	}
	return true
}
