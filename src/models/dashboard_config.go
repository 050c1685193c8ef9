package models

import "encoding/json"

// Refresh interval bounds in milliseconds.
const (
	MinRefreshIntervalMs = 5000
	MaxRefreshIntervalMs = 60000
)

// MDashboardConfig is the persisted dashboard document. It is replaced
// wholesale on every save.
type MDashboardConfig struct {
	Tickers         []string    `json:"tickers"`
	WeatherLocation string      `json:"weatherLocation"`
	RefreshInterval int         `json:"refreshInterval"`
	Spotify         *MMusicAuth `json:"spotify,omitempty"`
}

// MMusicAuth holds the music provider authorisation state.
type MMusicAuth struct {
	Enabled        bool            `json:"enabled"`
	AccessToken    *string         `json:"accessToken"`
	RefreshToken   *string         `json:"refreshToken"`
	TokenExpiresAt *int64          `json:"tokenExpiresAt"`
	SelectedItem   json.RawMessage `json:"selectedItem,omitempty"`
}

// DefaultDashboardConfig returns the document written on first run.
func DefaultDashboardConfig() MDashboardConfig {
	return MDashboardConfig{
		Tickers:         []string{"AAPL", "TSLA", "MSFT", "GOOGL"},
		WeatherLocation: "New York",
		RefreshInterval: 15000,
		Spotify:         &MMusicAuth{Enabled: false},
	}
}

// Clone returns a deep copy so callers can mutate freely. Tickers is never
// nil in the copy, so an empty list stays [] on the wire.
func (c MDashboardConfig) Clone() MDashboardConfig {
	out := c
	out.Tickers = append(make([]string, 0, len(c.Tickers)), c.Tickers...)
	if c.Spotify != nil {
		sp := *c.Spotify
		sp.SelectedItem = append(json.RawMessage(nil), c.Spotify.SelectedItem...)
		out.Spotify = &sp
	}
	return out
}
