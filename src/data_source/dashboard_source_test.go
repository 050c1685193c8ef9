package datasource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"market-dashboard/src/logger"
	"market-dashboard/src/models"
	"market-dashboard/src/utils"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuotes struct {
	mu         sync.Mutex
	marketOpen []bool
}

func (s *stubQuotes) Name() string { return "stub" }

func (s *stubQuotes) FetchBatch(_ context.Context, symbols []string, marketOpen bool) []models.MStockSnapshot {
	s.mu.Lock()
	s.marketOpen = append(s.marketOpen, marketOpen)
	s.mu.Unlock()
	out := make([]models.MStockSnapshot, len(symbols))
	for i, sym := range symbols {
		out[i] = models.MStockSnapshot{Symbol: sym, Name: sym, Price: 100}
	}
	return out
}

type stubWeather struct{}

func (stubWeather) FetchWeather(_ context.Context, location string) models.MWeather {
	return models.MWeather{Location: location, Condition: "Clear sky"}
}

type recordingDB struct {
	saved [][]models.MStockSnapshot
	err   error
}

func (r *recordingDB) Initialize() error { return nil }
func (r *recordingDB) SaveSnapshots(_ context.Context, batch []models.MStockSnapshot) error {
	r.saved = append(r.saved, batch)
	return r.err
}
func (r *recordingDB) LoadLatest(context.Context, []string) ([]models.MStockSnapshot, error) {
	return nil, nil
}
func (r *recordingDB) CleanupOldData(context.Context) error { return nil }
func (r *recordingDB) Close() error                         { return nil }

func newTestDashboardSource(t *testing.T, at time.Time) (*DashboardSource, *stubQuotes) {
	t.Helper()
	cal, err := utils.NewTradingCalendar("America/New_York", 570, 960)
	require.NoError(t, err)
	quotes := &stubQuotes{}
	src := NewDashboardSource(quotes, stubWeather{}, utils.NewMarketScheduler(cal, 5*time.Minute),
		clockwork.NewFakeClockAt(at), logger.NewNop("test"))
	return src, quotes
}

func TestDashboardSource_PassesMarketState(t *testing.T) {
	// Monday 10:00 New York
	open, quotes := newTestDashboardSource(t, time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC))
	open.FetchStocks(context.Background(), []string{"AAPL"})
	assert.True(t, open.MarketOpen())
	assert.Equal(t, []bool{true}, quotes.marketOpen)
	assert.Equal(t, 15*time.Second, open.Interval(15000))

	// Saturday
	closed, quotes := newTestDashboardSource(t, time.Date(2025, 1, 4, 15, 0, 0, 0, time.UTC))
	closed.FetchStocks(context.Background(), []string{"AAPL"})
	assert.False(t, closed.MarketOpen())
	assert.Equal(t, []bool{false}, quotes.marketOpen)
	assert.Equal(t, 5*time.Minute, closed.Interval(15000))
	assert.Equal(t, "Market Closed", closed.MarketStatus().Message)
}

func TestDashboardSource_RecordsHistory(t *testing.T) {
	src, _ := newTestDashboardSource(t, time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC))
	db := &recordingDB{err: errors.New("disk full")}
	src.History = db

	batch := src.FetchStocks(context.Background(), []string{"AAPL", "MSFT"})

	require.Len(t, db.saved, 1, "storage errors do not affect the batch")
	assert.Equal(t, []string{"AAPL", "MSFT"}, models.Symbols(batch))
	assert.Equal(t, "Clear sky", src.FetchWeather(context.Background(), "Paris").Condition)
}

func TestFetchResult(t *testing.T) {
	ok := OK(3)
	require.NotNil(t, ok.ValueOrNil())
	assert.Equal(t, 3, *ok.ValueOrNil())
	assert.Equal(t, "ok", ok.Status.String())

	assert.Nil(t, Empty[int]().ValueOrNil())
	assert.Nil(t, Skipped[int]().ValueOrNil())
	failed := Failed[int](errors.New("boom"))
	assert.Nil(t, failed.ValueOrNil())
	assert.EqualError(t, failed.Err, "boom")
	assert.Equal(t, "skipped", StatusSkipped.String())
}
