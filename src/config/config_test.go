package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "FINNHUB_API_KEY", "SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIFY_REDIRECT_URI"} {
		t.Setenv(k, "")
	}
	// NewConfig loads .env from the working directory; run from a clean one.
	t.Chdir(t.TempDir())
}

func TestNewConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "America/New_York", cfg.Market.Timezone)
	assert.Equal(t, 300, cfg.Market.ClosedRefreshSeconds)
	assert.Equal(t, 200, cfg.Dashboard.SettleDelayMs)
	assert.Equal(t, "http://localhost:3000/config.html", cfg.Providers.SpotifyRedirectURI)
	assert.Empty(t, cfg.Providers.FinnhubAPIKey)
}

func TestNewConfig_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: test-dashboard
port: 4000
market:
  open: "10:00"
  holiday_calendar: xnys
storage:
  db_type: none
`), 0o644))

	t.Setenv("PORT", "5050")
	t.Setenv("FINNHUB_API_KEY", "abc")

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test-dashboard", cfg.Name)
	assert.Equal(t, 5050, cfg.Port)
	assert.Equal(t, "10:00", cfg.Market.Open)
	assert.Equal(t, "16:00", cfg.Market.Close, "unset keys keep defaults")
	assert.Equal(t, "xnys", cfg.Market.HolidayCalendar)
	assert.Equal(t, "none", cfg.Storage.DBType)
	assert.Equal(t, "abc", cfg.Providers.FinnhubAPIKey)
	assert.Equal(t, "http://localhost:5050/config.html", cfg.Providers.SpotifyRedirectURI)
}

func TestNewConfig_Invalid(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cases := map[string]string{
		"bad yaml":        "port: [",
		"bad port":        "port: 70000",
		"close <= open":   "market:\n  open: \"16:00\"\n  close: \"09:30\"",
		"bad clock":       "market:\n  open: \"9h30\"",
		"unknown db":      "storage:\n  db_type: mongo",
		"postgres no dsn": "storage:\n  db_type: postgres",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := NewConfig(path)
			assert.Error(t, err)
		})
	}

	t.Run("bad PORT env", func(t *testing.T) {
		t.Setenv("PORT", "http")
		_, err := NewConfig(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	m, err = ParseClock(" 16:00 ")
	require.NoError(t, err)
	assert.Equal(t, 960, m)

	for _, bad := range []string{"", "24:00", "12:60", "noon", "1:2:3"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "out.yaml")

	cfg := &Config{MConfig: Defaults()}
	cfg.Port = 8081
	cfg.Providers.FinnhubAPIKey = "secret"
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret", "secrets are never written")

	loaded, err := NewConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8081, loaded.Port)
}
