package dashboard

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"market-dashboard/src/config"
	"market-dashboard/src/configstore"
	datasource "market-dashboard/src/data_source"
	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"
	"market-dashboard/src/utils"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday 2025-01-06 10:00 in New York.
var marketOpenAt = time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)

type fakeQuotes struct {
	mu        sync.Mutex
	calls     int
	block     chan struct{}
	panicNext bool
	ctxErrs   []error
}

func (f *fakeQuotes) Name() string { return "fake" }

func (f *fakeQuotes) FetchBatch(ctx context.Context, symbols []string, _ bool) []models.MStockSnapshot {
	f.mu.Lock()
	f.calls++
	block := f.block
	explode := f.panicNext
	f.panicNext = false
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	f.mu.Lock()
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.mu.Unlock()
	if explode {
		panic("quote decoder exploded")
	}
	out := make([]models.MStockSnapshot, len(symbols))
	for i, sym := range symbols {
		out[i] = models.MStockSnapshot{Symbol: sym, Name: sym, Price: 10}
	}
	return out
}

func (f *fakeQuotes) contextErrors() []error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]error(nil), f.ctxErrs...)
}

func (f *fakeQuotes) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeWeather struct{}

func (fakeWeather) FetchWeather(_ context.Context, location string) models.MWeather {
	return models.MWeather{Location: location, Condition: "Clear sky"}
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []models.MMessage
}

func (s *fakeSink) Send(msg models.MMessage) error {
	s.mu.Lock()
	s.msgs = append(s.msgs, msg)
	s.mu.Unlock()
	return nil
}

func (s *fakeSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.msgs))
	for _, m := range s.msgs {
		out = append(out, m.Type)
	}
	return out
}

func (s *fakeSink) count(msgType string) int {
	n := 0
	for _, t := range s.types() {
		if t == msgType {
			n++
		}
	}
	return n
}

func (s *fakeSink) last() models.MMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.msgs[len(s.msgs)-1]
}

func newTestDashboard(t *testing.T) (*Dashboard, *fakeQuotes, *clockwork.FakeClock) {
	t.Helper()
	log := logger.NewNop("test")
	clock := clockwork.NewFakeClockAt(marketOpenAt)

	cfg := config.Defaults()
	cfg.Dashboard.ConfigFile = filepath.Join(t.TempDir(), "config.json")

	cal, err := utils.NewTradingCalendar("America/New_York", 570, 960)
	require.NoError(t, err)
	quotes := &fakeQuotes{}
	source := datasource.NewDashboardSource(quotes, fakeWeather{}, utils.NewMarketScheduler(cal, 5*time.Minute), clock, log)

	d := New(cfg, configstore.NewStore(cfg.Dashboard.ConfigFile, log), source, clock, log)
	t.Cleanup(d.Stop)
	return d, quotes, clock
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func blockUntil(t *testing.T, clock *clockwork.FakeClock, waiters int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, waiters))
}

func TestConnect_SendsImmediateUpdate(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	before := testutil.ToFloat64(metrics.ConnectionsCurrent)

	sink := &fakeSink{}
	c := d.Connect(sink)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ConnectionsCurrent))

	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 1 })
	payload := sink.last().Data.(models.MUpdatePayload)
	assert.Equal(t, []string{"AAPL", "TSLA", "MSFT", "GOOGL"}, models.Symbols(payload.Stocks))
	assert.Equal(t, "New York", payload.Weather.Location)
	assert.True(t, payload.MarketStatus.IsOpen)
	assert.Equal(t, 15*time.Second, c.Period())

	d.Disconnect(c)
	d.Disconnect(c)
	assert.Equal(t, before, testutil.ToFloat64(metrics.ConnectionsCurrent))
	assert.Equal(t, 0, d.Registry.Len())
}

func TestConnection_IntervalChangeRecreatesTicker(t *testing.T) {
	d, _, clock := newTestDashboard(t)
	sink := &fakeSink{}
	c := d.Connect(sink)

	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 1 })
	blockUntil(t, clock, 1)

	cfg := d.Store.Load(context.Background())
	cfg.RefreshInterval = 30000
	_, err := d.Store.Save(context.Background(), cfg)
	require.NoError(t, err)

	// The 15s tick picks up the new interval.
	clock.Advance(15 * time.Second)
	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 2 })
	assert.Equal(t, 30*time.Second, c.Period())
	blockUntil(t, clock, 1)

	clock.Advance(15 * time.Second)
	assert.Never(t, func() bool { return sink.count(models.MessageUpdate) > 2 }, 100*time.Millisecond, 10*time.Millisecond)

	clock.Advance(15 * time.Second)
	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 3 })
}

func TestConnection_MarketCloseSlowsSchedule(t *testing.T) {
	d, _, clock := newTestDashboard(t)
	d.Source.Scheduler.Calendar.CloseMinute = 601 // 10:01

	sink := &fakeSink{}
	c := d.Connect(sink)
	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 1 })
	blockUntil(t, clock, 1)

	for i := 2; i <= 5; i++ {
		assert.Equal(t, 15*time.Second, c.Period())
		clock.Advance(15 * time.Second)
		waitFor(t, func() bool { return sink.count(models.MessageUpdate) == i })
	}
	// The fourth tick lands at 10:01, after the close.
	assert.Equal(t, 5*time.Minute, c.Period())
	assert.False(t, sink.last().Data.(models.MUpdatePayload).MarketStatus.IsOpen)
}

func TestDisconnect_NoSendAfterStop(t *testing.T) {
	d, quotes, _ := newTestDashboard(t)
	quotes.block = make(chan struct{})

	sink := &fakeSink{}
	c := d.Connect(sink)
	waitFor(t, func() bool { return quotes.fetches() == 1 })

	d.Disconnect(c)
	close(quotes.block)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("schedule did not exit")
	}
	assert.Equal(t, []error{nil}, quotes.contextErrors(), "the in-flight fetch runs to completion")
	assert.Empty(t, sink.types())
	assert.ErrorIs(t, c.Notify(models.MMessage{Type: models.MessageConfigChanged}), ErrConnectionClosed)
}

func TestDispatch_NotifiesThenRefreshesAfterSettle(t *testing.T) {
	d, quotes, clock := newTestDashboard(t)
	a, b := &fakeSink{}, &fakeSink{}
	d.Connect(a)
	d.Connect(b)
	waitFor(t, func() bool { return a.count(models.MessageUpdate) == 1 && b.count(models.MessageUpdate) == 1 })
	blockUntil(t, clock, 2)
	fetched := quotes.fetches()

	d.Dispatcher.Dispatch("test")
	assert.Equal(t, []string{models.MessageUpdate, models.MessageConfigChanged}, a.types())
	assert.Equal(t, []string{models.MessageUpdate, models.MessageConfigChanged}, b.types())

	blockUntil(t, clock, 3)
	clock.Advance(200 * time.Millisecond)
	waitFor(t, func() bool { return a.count(models.MessageUpdate) == 2 && b.count(models.MessageUpdate) == 2 })
	assert.Equal(t, fetched+2, quotes.fetches())
}

func TestSaveConfig(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	sink := &fakeSink{}
	d.Connect(sink)
	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 1 })

	_, err := d.SaveConfig(context.Background(), models.MDashboardConfig{
		Tickers: []string{"AAPL"}, WeatherLocation: "Paris", RefreshInterval: 1000,
	}, OriginHTTP)
	assert.True(t, helpers.IsValidation(err))
	assert.Equal(t, 0, sink.count(models.MessageConfigChanged))

	saved, err := d.SaveConfig(context.Background(), models.MDashboardConfig{
		Tickers: []string{" aapl", "msft", "AAPL"}, WeatherLocation: "Paris", RefreshInterval: 20000,
	}, OriginHTTP)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, saved.Tickers)
	assert.Equal(t, saved.Tickers, d.CurrentConfig(context.Background()).Tickers)
	assert.Equal(t, 1, sink.count(models.MessageConfigChanged))
	assert.NotEmpty(t, d.Tracker.Last())
}

func TestUpdateConfig_KeepsOtherFields(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	token := "access"

	cfg, err := d.UpdateConfig(context.Background(), OriginMusic, func(cfg *models.MDashboardConfig) {
		cfg.Spotify = &models.MMusicAuth{Enabled: true, AccessToken: &token}
	})
	require.NoError(t, err)
	assert.Equal(t, "New York", cfg.WeatherLocation)

	loaded := d.CurrentConfig(context.Background())
	require.NotNil(t, loaded.Spotify)
	assert.True(t, loaded.Spotify.Enabled)
	assert.Equal(t, "access", *loaded.Spotify.AccessToken)
}

func TestConnection_RequestUpdateIsRateLimited(t *testing.T) {
	d, _, clock := newTestDashboard(t)
	sink := &fakeSink{}
	c := d.Connect(sink)

	for i := 0; i < d.Config.Dashboard.RequestUpdateBurst; i++ {
		assert.True(t, c.RequestUpdate())
	}
	assert.False(t, c.RequestUpdate())

	clock.Advance(time.Second)
	assert.True(t, c.RequestUpdate())
}

func TestConnection_PanicIsContained(t *testing.T) {
	d, quotes, clock := newTestDashboard(t)
	quotes.panicNext = true
	before := testutil.ToFloat64(metrics.UpdatePanicsTotal)

	sink := &fakeSink{}
	d.Connect(sink)
	waitFor(t, func() bool { return sink.count(models.MessageError) == 1 })
	assert.Equal(t, models.MErrorPayload{Message: "Failed to fetch data"}, sink.last().Data)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.UpdatePanicsTotal))

	blockUntil(t, clock, 1)
	clock.Advance(15 * time.Second)
	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 1 })
}

func TestStockReport_UsesGlobalCache(t *testing.T) {
	d, quotes, clock := newTestDashboard(t)
	ctx := context.Background()

	report := d.StockReport(ctx)
	assert.False(t, report.FromCache)
	assert.Len(t, report.Stocks, 4)
	assert.Equal(t, marketOpenAt.UnixMilli(), report.LastUpdate)

	// Saturday: the cached batch is served.
	clock.Advance(5 * 24 * time.Hour)
	report = d.StockReport(ctx)
	assert.True(t, report.FromCache)
	assert.False(t, report.MarketStatus.IsOpen)
	assert.Equal(t, 1, quotes.fetches())
}

func TestReloadConfig_DispatchesWithoutChange(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	sink := &fakeSink{}
	d.Connect(sink)
	waitFor(t, func() bool { return sink.count(models.MessageUpdate) == 1 })

	d.ReloadConfig(OriginRPC)
	assert.Equal(t, 1, sink.count(models.MessageConfigChanged))
	assert.Equal(t, 1, d.ForceRefreshAll())
}

func TestStatus(t *testing.T) {
	d, _, _ := newTestDashboard(t)
	d.Providers = []ProviderProbe{{Name: "finnhub", Configured: false}}
	require.NoError(t, d.Start(context.Background()))

	status := d.Status()
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 0, status.Connections)
	assert.NotEmpty(t, status.ConfigHash)
	assert.Equal(t, []models.MProvider{{Name: "finnhub", Configured: false, State: "unknown"}}, status.Providers)
}
