package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	datasource "market-dashboard/src/data_source"
	"market-dashboard/src/helpers"
	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const (
	ProviderName = "finnhub"

	// Error markers carried by degraded snapshots.
	ErrNotConfigured = "Quote provider not configured"
	ErrFetchFailed   = "Failed to fetch data"

	historyWindow = 7 * 24 * time.Hour
	tokenHeader   = "X-Finnhub-Token"
)

// -----------------------------------------------------------------------------

// Source builds stock snapshots from the Finnhub REST API. Every symbol is
// fetched independently; a failing symbol never affects the others and no
// error leaves the source.
type Source struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	clock    clockwork.Clock
	handlers *helpers.ErrorHandler
}

// -----------------------------------------------------------------------------

func NewSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger, clock clockwork.Clock) *Source {
	return &Source{
		Config:   cfg,
		Network:  netMgr,
		Logger:   log,
		clock:    clock,
		handlers: helpers.NewErrorHandler(log),
	}
}

// -----------------------------------------------------------------------------

func (s *Source) Name() string {
	return ProviderName
}

// -----------------------------------------------------------------------------

// FetchBatch fetches every symbol concurrently, bounded by the configured
// request concurrency. The result keeps the order of symbols.
func (s *Source) FetchBatch(ctx context.Context, symbols []string, marketOpen bool) []models.MStockSnapshot {
	out := make([]models.MStockSnapshot, len(symbols))
	if len(symbols) == 0 {
		return out
	}

	var g errgroup.Group
	if limit := s.Config.Network.ConcurrentRequests; limit > 0 {
		g.SetLimit(limit)
	}
	for i, symbol := range symbols {
		g.Go(func() error {
			out[i] = s.FetchSymbol(ctx, symbol, marketOpen)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, snap := range out {
		if snap.Error != "" {
			failed++
		}
	}
	s.Logger.Debug("Fetched %d/%d symbols (market open: %v)", len(out)-failed, len(out), marketOpen)
	return out
}

// -----------------------------------------------------------------------------

// FetchSymbol builds one snapshot. Quote and profile are fetched together;
// history and fundamentals follow only when the quote succeeded.
func (s *Source) FetchSymbol(ctx context.Context, symbol string, marketOpen bool) models.MStockSnapshot {
	if s.Config.Providers.FinnhubAPIKey == "" {
		s.observe("quote", datasource.StatusSkipped)
		return models.MStockSnapshot{
			Symbol:    symbol,
			Name:      symbol,
			Timestamp: s.clock.Now().UnixMilli(),
			Error:     ErrNotConfigured,
		}
	}

	var (
		quote   datasource.FetchResult[quoteResponse]
		profile datasource.FetchResult[profileResponse]
	)
	var g errgroup.Group
	g.Go(func() error { quote = s.fetchQuote(ctx, symbol); return nil })
	g.Go(func() error { profile = s.fetchProfile(ctx, symbol); return nil })
	_ = g.Wait()

	if quote.Status != datasource.StatusOK {
		s.handlers.Handle(quote.Err, "finnhub quote "+symbol)
		return models.MStockSnapshot{
			Symbol:    symbol,
			Name:      symbol,
			Timestamp: s.clock.Now().UnixMilli(),
			Error:     ErrFetchFailed,
		}
	}

	var (
		history datasource.FetchResult[models.MHistory]
		metric  datasource.FetchResult[models.MMetrics]
	)
	var extras errgroup.Group
	extras.Go(func() error { history = s.fetchHistory(ctx, symbol, marketOpen); return nil })
	extras.Go(func() error { metric = s.fetchMetrics(ctx, symbol); return nil })
	_ = extras.Wait()

	name := symbol
	if p := profile.ValueOrNil(); p != nil && p.Name != "" {
		name = p.Name
	} else if profile.Status == datasource.StatusFailed {
		s.Logger.Debug("Profile for %s unavailable: %v", symbol, profile.Err)
	}
	if history.Status == datasource.StatusFailed {
		s.Logger.Debug("History for %s unavailable: %v", symbol, history.Err)
	}
	if metric.Status == datasource.StatusFailed {
		s.Logger.Debug("Metrics for %s unavailable: %v", symbol, metric.Err)
	}

	q := quote.Value
	return models.MStockSnapshot{
		Symbol:        symbol,
		Name:          name,
		Price:         q.Current,
		Change:        q.Change,
		ChangePercent: q.ChangePercent,
		Open:          q.Open,
		High:          q.High,
		Low:           q.Low,
		PreviousClose: q.PreviousClose,
		Volume:        q.Volume,
		Timestamp:     s.clock.Now().UnixMilli(),
		History:       history.ValueOrNil(),
		Metrics:       metric.ValueOrNil(),
	}
}

// -----------------------------------------------------------------------------
// Endpoints
// -----------------------------------------------------------------------------

func (s *Source) fetchQuote(ctx context.Context, symbol string) (res datasource.FetchResult[quoteResponse]) {
	defer func() { s.observe("quote", res.Status) }()

	resp, err := s.get(ctx, "quote", map[string]string{"symbol": symbol})
	if err != nil {
		return datasource.Failed[quoteResponse](helpers.NewProviderError("quote "+symbol, err))
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Failed[quoteResponse](statusError("quote", symbol, resp.StatusCode))
	}

	var q quoteResponse
	if err := json.Unmarshal(resp.Body, &q); err != nil {
		return datasource.Failed[quoteResponse](helpers.NewProviderError("quote "+symbol+": bad body", err))
	}
	return datasource.OK(q)
}

// -----------------------------------------------------------------------------

func (s *Source) fetchProfile(ctx context.Context, symbol string) (res datasource.FetchResult[profileResponse]) {
	defer func() { s.observe("profile", res.Status) }()

	resp, err := s.get(ctx, "stock/profile2", map[string]string{"symbol": symbol})
	if err != nil {
		return datasource.Failed[profileResponse](helpers.NewProviderError("profile "+symbol, err))
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Failed[profileResponse](statusError("profile", symbol, resp.StatusCode))
	}

	var p profileResponse
	if err := json.Unmarshal(resp.Body, &p); err != nil {
		return datasource.Failed[profileResponse](helpers.NewProviderError("profile "+symbol+": bad body", err))
	}
	if p.Name == "" {
		return datasource.Empty[profileResponse]()
	}
	return datasource.OK(p)
}

// -----------------------------------------------------------------------------

// fetchHistory loads the last week of daily candles. It is not attempted
// while the market is closed. Free plans answer 403, which is reported as
// Empty rather than a failure.
func (s *Source) fetchHistory(ctx context.Context, symbol string, marketOpen bool) (res datasource.FetchResult[models.MHistory]) {
	defer func() { s.observe("candle", res.Status) }()

	if !marketOpen {
		return datasource.Skipped[models.MHistory]()
	}

	to := s.clock.Now()
	from := to.Add(-historyWindow)
	resp, err := s.get(ctx, "stock/candle", map[string]string{
		"symbol":     symbol,
		"resolution": "D",
		"from":       strconv.FormatInt(from.Unix(), 10),
		"to":         strconv.FormatInt(to.Unix(), 10),
	})
	if err != nil {
		return datasource.Failed[models.MHistory](helpers.NewProviderError("candle "+symbol, err))
	}
	if resp.StatusCode == http.StatusForbidden {
		s.Logger.Debug("Historical data not available for %s (requires paid plan)", symbol)
		return datasource.Empty[models.MHistory]()
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Failed[models.MHistory](statusError("candle", symbol, resp.StatusCode))
	}

	var c candleResponse
	if err := json.Unmarshal(resp.Body, &c); err != nil {
		return datasource.Failed[models.MHistory](helpers.NewProviderError("candle "+symbol+": bad body", err))
	}
	if c.Status != "ok" || len(c.Close) == 0 {
		return datasource.Empty[models.MHistory]()
	}

	timestamps := make([]int64, len(c.Time))
	for i, ts := range c.Time {
		timestamps[i] = ts * 1000
	}
	return datasource.OK(models.MHistory{
		Timestamps: timestamps,
		Prices:     c.Close,
		Volumes:    c.Volume,
	})
}

// -----------------------------------------------------------------------------

// fetchMetrics loads company fundamentals. 403 and 404 mean the plan or the
// symbol has none.
func (s *Source) fetchMetrics(ctx context.Context, symbol string) (res datasource.FetchResult[models.MMetrics]) {
	defer func() { s.observe("metric", res.Status) }()

	resp, err := s.get(ctx, "stock/metric", map[string]string{"symbol": symbol, "metric": "all"})
	if err != nil {
		return datasource.Failed[models.MMetrics](helpers.NewProviderError("metric "+symbol, err))
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound {
		return datasource.Empty[models.MMetrics]()
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Failed[models.MMetrics](statusError("metric", symbol, resp.StatusCode))
	}

	var m metricResponse
	if err := json.Unmarshal(resp.Body, &m); err != nil {
		return datasource.Failed[models.MMetrics](helpers.NewProviderError("metric "+symbol+": bad body", err))
	}
	if m.Metric == nil {
		return datasource.Empty[models.MMetrics]()
	}
	return datasource.OK(m.Metric.toModel())
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *Source) get(ctx context.Context, endpoint string, params map[string]string) (*models.MHTTPResponse, error) {
	return s.Network.Get(ctx, s.Config.Providers.FinnhubBaseURL+"/"+endpoint, params, map[string]string{
		tokenHeader: s.Config.Providers.FinnhubAPIKey,
	})
}

// -----------------------------------------------------------------------------

func (s *Source) observe(endpoint string, status datasource.FetchStatus) {
	metrics.ProviderFetchesTotal.WithLabelValues(ProviderName, endpoint, status.String()).Inc()
}

// -----------------------------------------------------------------------------

func statusError(endpoint, symbol string, status int) error {
	return helpers.NewProviderError(fmt.Sprintf("%s %s: unexpected status %d", endpoint, symbol, status), nil)
}
