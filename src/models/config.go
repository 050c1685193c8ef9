package models

// MConfig Structure (process settings, YAML)
type MConfig struct {
	Name      string             `yaml:"name"`
	Host      string             `yaml:"host"`
	Port      int                `yaml:"port"`
	LogLevel  string             `yaml:"log_level"`
	GrpcHost  string             `yaml:"grpc_host"`
	GrpcPort  int                `yaml:"grpc_port"`
	PublicDir string             `yaml:"public_dir"`
	Storage   MStorageConfig     `yaml:"storage"`
	Network   MNetworkConfig     `yaml:"network"`
	Market    MMarketConfig      `yaml:"market"`
	Dashboard MDashboardSettings `yaml:"dashboard"`
	Providers MProvidersConfig   `yaml:"providers"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // sqlite, postgres or none
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MNetworkConfig struct {
	Proxy              string `yaml:"proxy"`
	RequestTimeout     int    `yaml:"timeout"`
	ConcurrentRequests int    `yaml:"concurrent_requests"`
	UserAgent          string `yaml:"user_agent"`
	BreakerFailures    int    `yaml:"breaker_failures"`
	BreakerCooldown    int    `yaml:"breaker_cooldown_seconds"`
}

type MMarketConfig struct {
	Timezone             string `yaml:"timezone"`
	Open                 string `yaml:"open"`  // "HH:MM"
	Close                string `yaml:"close"` // "HH:MM"
	ClosedRefreshSeconds int    `yaml:"closed_refresh_seconds"`
	HolidayCalendar      string `yaml:"holiday_calendar"` // MIC, empty disables
}

type MDashboardSettings struct {
	ConfigFile          string `yaml:"config_file"`
	PollIntervalMs      int    `yaml:"poll_interval_ms"`
	SettleDelayMs       int    `yaml:"settle_delay_ms"`
	RequestUpdateBurst  int    `yaml:"request_update_burst"`
	RequestUpdatePerSec int    `yaml:"request_update_per_sec"`
}

type MProvidersConfig struct {
	FinnhubBaseURL   string `yaml:"finnhub_base_url"`
	GeocodingBaseURL string `yaml:"geocoding_base_url"`
	ForecastBaseURL  string `yaml:"forecast_base_url"`
	SpotifyAuthURL   string `yaml:"spotify_auth_url"`
	SpotifyAPIURL    string `yaml:"spotify_api_url"`

	// Secrets come from the environment, never from YAML.
	FinnhubAPIKey       string `yaml:"-"`
	SpotifyClientID     string `yaml:"-"`
	SpotifyClientSecret string `yaml:"-"`
	SpotifyRedirectURI  string `yaml:"-"`
}
