package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"market-dashboard/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file. A missing file is
// not an error: the built-in defaults are used. Secrets and the port are
// read from the environment (optionally seeded from a .env file).
func NewConfig(configPath string) (*Config, error) {
	modelConfig := Defaults()

	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		// 2. Unmarshal data over the defaults
		if err := yaml.Unmarshal(data, modelConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	config := &Config{MConfig: modelConfig}

	// 3. Environment overrides
	_ = godotenv.Load()
	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the built-in process settings.
func Defaults() *models.MConfig {
	return &models.MConfig{
		Name:      "market-dashboard",
		Host:      "0.0.0.0",
		Port:      3000,
		LogLevel:  "INFO",
		GrpcHost:  "127.0.0.1",
		GrpcPort:  0,
		PublicDir: "public",
		Storage: models.MStorageConfig{
			DBType:        "sqlite",
			DBPath:        "data/snapshots.db",
			RetentionDays: 7,
		},
		Network: models.MNetworkConfig{
			RequestTimeout:     10,
			ConcurrentRequests: 8,
			UserAgent:          "market-dashboard/1.0",
			BreakerFailures:    5,
			BreakerCooldown:    30,
		},
		Market: models.MMarketConfig{
			Timezone:             "America/New_York",
			Open:                 "09:30",
			Close:                "16:00",
			ClosedRefreshSeconds: 300,
		},
		Dashboard: models.MDashboardSettings{
			ConfigFile:          "config.json",
			PollIntervalMs:      1000,
			SettleDelayMs:       200,
			RequestUpdateBurst:  3,
			RequestUpdatePerSec: 1,
		},
		Providers: models.MProvidersConfig{
			FinnhubBaseURL:   "https://finnhub.io/api/v1",
			GeocodingBaseURL: "https://geocoding-api.open-meteo.com/v1",
			ForecastBaseURL:  "https://api.open-meteo.com/v1",
			SpotifyAuthURL:   "https://accounts.spotify.com",
			SpotifyAPIURL:    "https://api.spotify.com/v1",
		},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		c.Port = p
	}

	c.Providers.FinnhubAPIKey = os.Getenv("FINNHUB_API_KEY")
	c.Providers.SpotifyClientID = os.Getenv("SPOTIFY_CLIENT_ID")
	c.Providers.SpotifyClientSecret = os.Getenv("SPOTIFY_CLIENT_SECRET")
	c.Providers.SpotifyRedirectURI = os.Getenv("SPOTIFY_REDIRECT_URI")
	if c.Providers.SpotifyRedirectURI == "" {
		c.Providers.SpotifyRedirectURI = fmt.Sprintf("http://localhost:%d/config.html", c.Port)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %q", c.Storage.DBType)
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be greater than 0")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Market hours
	open, err := ParseClock(c.Market.Open)
	if err != nil {
		return fmt.Errorf("market open: %w", err)
	}
	closing, err := ParseClock(c.Market.Close)
	if err != nil {
		return fmt.Errorf("market close: %w", err)
	}
	if closing <= open {
		return fmt.Errorf("market close %s must be after open %s", c.Market.Close, c.Market.Open)
	}
	if c.Market.ClosedRefreshSeconds <= 0 {
		return fmt.Errorf("closed refresh must be greater than 0")
	}

	// Dashboard
	if c.Dashboard.ConfigFile == "" {
		return fmt.Errorf("dashboard config file cannot be empty")
	}
	if c.Dashboard.PollIntervalMs <= 0 {
		return fmt.Errorf("poll interval must be greater than 0")
	}
	if c.Dashboard.SettleDelayMs < 0 {
		return fmt.Errorf("settle delay cannot be negative")
	}

	return nil
}

// -----------------------------------------------------------------------------

// ParseClock converts "HH:MM" to minutes after midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
