package dashboard

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"market-dashboard/src/cache"
	"market-dashboard/src/configstore"
	datasource "market-dashboard/src/data_source"
	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"
	"market-dashboard/src/watcher"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// Config change origins.
const (
	OriginHTTP  = "http"
	OriginMusic = "music"
	OriginRPC   = "rpc"
)

// ProviderProbe describes an upstream provider for status reporting.
type ProviderProbe struct {
	Name       string
	Configured bool
	Breaker    interface{ State() string }
}

// -----------------------------------------------------------------------------

// Dashboard is the application context: it owns the config store, the data
// layer, the process-wide stock cache, change detection and the live
// connections. HTTP, WebSocket and RPC handlers all go through it.
type Dashboard struct {
	Config  *models.MConfig
	Store   interfaces.IConfigStore
	Source  *datasource.DashboardSource
	Stocks  *cache.StockCache
	History interfaces.IDatabase // optional

	Tracker    *watcher.HashTracker
	Poller     *watcher.PollingSource
	Trigger    *watcher.DirectTrigger
	Registry   *Registry
	Dispatcher *Dispatcher
	Providers  []ProviderProbe

	Clock  clockwork.Clock
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func New(cfg *models.MConfig, store interfaces.IConfigStore, source *datasource.DashboardSource, clock clockwork.Clock, log *logger.Logger) *Dashboard {
	d := &Dashboard{
		Config:   cfg,
		Store:    store,
		Source:   source,
		Clock:    clock,
		Logger:   log,
		Tracker:  &watcher.HashTracker{},
		Registry: NewRegistry(),
	}

	settle := time.Duration(cfg.Dashboard.SettleDelayMs) * time.Millisecond
	poll := time.Duration(cfg.Dashboard.PollIntervalMs) * time.Millisecond

	d.Stocks = cache.NewStockCache(source, clock, log.Named("stock-cache"))
	d.Dispatcher = NewDispatcher(d.Registry, settle, clock, log.Named("dispatcher"))
	d.Poller = watcher.NewPollingSource(cfg.Dashboard.ConfigFile, poll, d.Tracker, clock, log.Named("watcher"), d.Dispatcher.Dispatch)
	d.Trigger = watcher.NewDirectTrigger(d.Tracker, d.Dispatcher.Dispatch)
	return d
}

// -----------------------------------------------------------------------------

// Start makes sure the config file exists, warms the stock cache from
// history and starts change detection.
func (d *Dashboard) Start(ctx context.Context) error {
	cfg := d.Store.Load(ctx)
	d.Poller.Prime()
	d.warmCache(ctx, cfg)

	for _, src := range []watcher.ConfigChangeSource{d.Poller, d.Trigger} {
		if err := src.Start(ctx); err != nil {
			return err
		}
	}

	cal := d.Source.Scheduler.Calendar
	status := d.Source.MarketStatus()
	d.Logger.Info("Market hours: %s %s, Monday-Friday", cal.Hours(), cal.Timezone)
	d.Logger.Info("%s (%s %s)", status.Message, status.CurrentDate, status.CurrentTime)
	return nil
}

// -----------------------------------------------------------------------------

func (d *Dashboard) warmCache(ctx context.Context, cfg models.MDashboardConfig) {
	if d.History == nil {
		return
	}
	batch, err := d.History.LoadLatest(ctx, cfg.Tickers)
	if err != nil {
		d.Logger.Warning("Cannot warm stock cache: %v", err)
		return
	}
	var newest int64
	for _, s := range batch {
		if s.Timestamp > newest {
			newest = s.Timestamp
		}
	}
	d.Stocks.Warm(batch, newest)
	if len(batch) > 0 {
		d.Logger.Info("Warmed stock cache with %d/%d symbols from history", len(batch), len(cfg.Tickers))
	}
}

// -----------------------------------------------------------------------------

// Stop disconnects every connection.
func (d *Dashboard) Stop() {
	for _, c := range d.Registry.Snapshot() {
		d.Disconnect(c)
	}
}

// -----------------------------------------------------------------------------
// Connections
// -----------------------------------------------------------------------------

// Connect registers a client and starts its schedule with an immediate
// update.
func (d *Dashboard) Connect(sink Sink) *Connection {
	c := newConnection(d, sink)
	d.Registry.Add(c)
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsCurrent.Inc()

	c.Logger.Info("Client connected (%d live)", d.Registry.Len())
	c.start()
	return c
}

// -----------------------------------------------------------------------------

func (d *Dashboard) Disconnect(c *Connection) {
	c.Stop()
	if d.Registry.Remove(c.ID) {
		metrics.ConnectionsCurrent.Dec()
		c.Logger.Info("Client disconnected (%d live)", d.Registry.Len())
	}
}

// -----------------------------------------------------------------------------

// ForceRefreshAll forces an update on every connection and returns how many
// were asked.
func (d *Dashboard) ForceRefreshAll() int {
	conns := d.Registry.Snapshot()
	for _, c := range conns {
		c.ForceRefresh()
	}
	return len(conns)
}

// -----------------------------------------------------------------------------
// Updates
// -----------------------------------------------------------------------------

// BuildUpdate fetches stocks through stocks and the weather concurrently.
func (d *Dashboard) BuildUpdate(ctx context.Context, cfg models.MDashboardConfig, stocks *cache.StockCache, forced bool) (models.MUpdatePayload, bool) {
	var (
		payload   models.MUpdatePayload
		fromCache bool
	)

	// In-flight fetches run to completion even if the caller goes away; the
	// provider client timeout bounds them.
	ctx = context.WithoutCancel(ctx)

	var g errgroup.Group
	g.Go(func() (err error) {
		defer contain(&err)
		payload.Stocks, fromCache = stocks.GetStocks(ctx, cfg, forced)
		return nil
	})
	g.Go(func() (err error) {
		defer contain(&err)
		payload.Weather = d.Source.FetchWeather(ctx, cfg.WeatherLocation)
		return nil
	})
	if err := g.Wait(); err != nil {
		// Re-raised on the caller's goroutine, where it is recovered.
		panic(err)
	}

	payload.MarketStatus = d.Source.MarketStatus()
	return payload, fromCache
}

// -----------------------------------------------------------------------------

// contain turns a panic in a fetch goroutine into an error.
func contain(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("fetch panicked: %v\n%s", r, debug.Stack())
	}
}

// -----------------------------------------------------------------------------

// StockReport serves the process-wide stock view.
func (d *Dashboard) StockReport(ctx context.Context) models.MStocksResponse {
	cfg := d.Store.Load(ctx)
	stocks, fromCache := d.Stocks.GetStocks(context.WithoutCancel(ctx), cfg, false)
	return models.MStocksResponse{
		Stocks:       stocks,
		MarketStatus: d.Source.MarketStatus(),
		LastUpdate:   d.Stocks.LastUpdate(),
		FromCache:    fromCache,
	}
}

// -----------------------------------------------------------------------------

func (d *Dashboard) Weather(ctx context.Context) models.MWeather {
	cfg := d.Store.Load(ctx)
	return d.Source.FetchWeather(context.WithoutCancel(ctx), cfg.WeatherLocation)
}

// -----------------------------------------------------------------------------

func (d *Dashboard) MarketStatus() models.MMarketStatus {
	return d.Source.MarketStatus()
}

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

func (d *Dashboard) CurrentConfig(ctx context.Context) models.MDashboardConfig {
	return d.Store.Load(ctx)
}

// -----------------------------------------------------------------------------

// SaveConfig validates and stores a client-submitted document, then
// announces the change. Validation failures are helpers.ValidationError.
func (d *Dashboard) SaveConfig(ctx context.Context, cfg models.MDashboardConfig, origin string) (models.MDashboardConfig, error) {
	valid, err := configstore.Validate(cfg)
	if err != nil {
		return cfg, err
	}
	if err := d.persist(ctx, valid, origin); err != nil {
		return valid, err
	}
	return valid, nil
}

// -----------------------------------------------------------------------------

// UpdateConfig applies mutate to the current document and stores it.
func (d *Dashboard) UpdateConfig(ctx context.Context, origin string, mutate func(*models.MDashboardConfig)) (models.MDashboardConfig, error) {
	cfg := d.Store.Load(ctx)
	mutate(&cfg)
	if err := d.persist(ctx, cfg, origin); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------

func (d *Dashboard) persist(ctx context.Context, cfg models.MDashboardConfig, origin string) error {
	_, err := d.Trigger.Save(origin, func() (string, error) {
		return d.Store.Save(ctx, cfg)
	})
	return err
}

// -----------------------------------------------------------------------------

// ReloadConfig re-reads the config file and pushes it to every client even
// when its content did not change.
func (d *Dashboard) ReloadConfig(origin string) {
	d.Poller.Prime()
	d.Dispatcher.Dispatch(origin)
}

// -----------------------------------------------------------------------------

// RequestCheck asks change detection to look at the file now.
func (d *Dashboard) RequestCheck() {
	d.Poller.CheckNow()
}

// -----------------------------------------------------------------------------

func (d *Dashboard) Status() models.MStatus {
	providers := make([]models.MProvider, 0, len(d.Providers))
	for _, p := range d.Providers {
		state := "unknown"
		if p.Breaker != nil {
			state = p.Breaker.State()
		}
		providers = append(providers, models.MProvider{Name: p.Name, Configured: p.Configured, State: state})
	}

	return models.MStatus{
		Status:       "ok",
		Connections:  d.Registry.Len(),
		MarketStatus: d.Source.MarketStatus(),
		LastUpdate:   d.Stocks.LastUpdate(),
		ConfigHash:   d.Tracker.Last(),
		Providers:    providers,
	}
}
