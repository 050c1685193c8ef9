package configstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "config.json"), logger.NewNop("store-test"))
}

func TestLoad_MissingFileCreatesDefaults(t *testing.T) {
	s := newTestStore(t)

	cfg := s.Load(context.Background())

	assert.Equal(t, models.DefaultDashboardConfig(), cfg)
	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)

	var onDisk models.MDashboardConfig
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, []string{"AAPL", "TSLA", "MSFT", "GOOGL"}, onDisk.Tickers)
	assert.Equal(t, "New York", onDisk.WeatherLocation)
	assert.Equal(t, 15000, onDisk.RefreshInterval)
}

func TestLoad_MalformedFileIsNotClobbered(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	good := models.DefaultDashboardConfig()
	good.Tickers = []string{"NVDA"}
	_, err := s.Save(ctx, good)
	require.NoError(t, err)
	require.Equal(t, []string{"NVDA"}, s.Load(ctx).Tickers)

	require.NoError(t, os.WriteFile(s.Path, []byte(`{"tickers": [`), 0o644))

	cfg := s.Load(ctx)
	assert.Equal(t, []string{"NVDA"}, cfg.Tickers, "last good document is served")

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	assert.Equal(t, `{"tickers": [`, string(data))
}

func TestLoad_MalformedWithoutHistoryUsesDefaults(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte(`not json`), 0o644))

	assert.Equal(t, models.DefaultDashboardConfig(), s.Load(context.Background()))
}

func TestLoad_SanitizesHandEdits(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte(`{"weatherLocation":"Oslo","refreshInterval":1000}`), 0o644))

	cfg := s.Load(context.Background())
	assert.NotNil(t, cfg.Tickers)
	assert.Empty(t, cfg.Tickers)
	assert.Equal(t, models.MinRefreshIntervalMs, cfg.RefreshInterval)
	assert.Equal(t, "Oslo", cfg.WeatherLocation)
}

func TestLoad_EmptyTickerListRoundTrips(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path, []byte(`{"tickers":[],"weatherLocation":"Oslo","refreshInterval":15000}`), 0o644))

	cfg := s.Load(context.Background())
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"tickers":[]`)

	var posted models.MDashboardConfig
	require.NoError(t, json.Unmarshal(data, &posted))
	valid, err := Validate(posted)
	require.NoError(t, err)
	assert.Empty(t, valid.Tickers)
}

func TestLoad_ReturnsIndependentCopies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := s.Load(ctx)
	a.Tickers[0] = "ZZZZ"
	require.NoError(t, os.WriteFile(s.Path, []byte(`oops`), 0o644))

	b := s.Load(ctx)
	assert.Equal(t, "AAPL", b.Tickers[0])
}

func TestSave_ReturnsCanonicalHash(t *testing.T) {
	s := newTestStore(t)

	hash, err := s.Save(context.Background(), models.DefaultDashboardConfig())
	require.NoError(t, err)

	data, err := os.ReadFile(s.Path)
	require.NoError(t, err)
	fromDisk, err := Hash(data)
	require.NoError(t, err)
	assert.Equal(t, fromDisk, hash)

	entries, err := os.ReadDir(filepath.Dir(s.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestHash_IgnoresFormatting(t *testing.T) {
	a, err := Hash([]byte(`{"a":1,"b":[1,2]}`))
	require.NoError(t, err)
	b, err := Hash([]byte("{\n  \"b\": [1, 2],\n  \"a\": 1\n}"))
	require.NoError(t, err)
	c, err := Hash([]byte(`{"a":1,"b":[2,1]}`))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = Hash([]byte(`{`))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.MDashboardConfig)
		wantErr bool
		check   func(t *testing.T, cfg models.MDashboardConfig)
	}{
		{
			name: "normalises tickers",
			mutate: func(c *models.MDashboardConfig) {
				c.Tickers = []string{" aapl", "MSFT", "Aapl ", "tsla"}
			},
			check: func(t *testing.T, cfg models.MDashboardConfig) {
				assert.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, cfg.Tickers)
			},
		},
		{
			name:   "empty ticker list is allowed",
			mutate: func(c *models.MDashboardConfig) { c.Tickers = []string{} },
			check: func(t *testing.T, cfg models.MDashboardConfig) {
				assert.Empty(t, cfg.Tickers)
			},
		},
		{name: "missing tickers", mutate: func(c *models.MDashboardConfig) { c.Tickers = nil }, wantErr: true},
		{name: "blank ticker", mutate: func(c *models.MDashboardConfig) { c.Tickers = []string{"AAPL", "  "} }, wantErr: true},
		{name: "missing location", mutate: func(c *models.MDashboardConfig) { c.WeatherLocation = " " }, wantErr: true},
		{name: "interval too small", mutate: func(c *models.MDashboardConfig) { c.RefreshInterval = 4999 }, wantErr: true},
		{name: "interval too large", mutate: func(c *models.MDashboardConfig) { c.RefreshInterval = 60001 }, wantErr: true},
		{name: "interval bounds", mutate: func(c *models.MDashboardConfig) { c.RefreshInterval = 60000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := models.DefaultDashboardConfig()
			tt.mutate(&cfg)

			out, err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, helpers.IsValidation(err))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, out)
			}
		})
	}
}
