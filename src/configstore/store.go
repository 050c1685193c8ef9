package configstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"market-dashboard/src/helpers"
	"market-dashboard/src/logger"
	"market-dashboard/src/models"
)

// -----------------------------------------------------------------------------

// Store persists the dashboard document as a single JSON file. Writes go to a
// temporary file in the same directory and are renamed into place, so readers
// never observe a partial document.
type Store struct {
	Path   string
	Logger *logger.Logger

	mu       sync.Mutex
	lastGood *models.MDashboardConfig
}

// -----------------------------------------------------------------------------

func NewStore(path string, log *logger.Logger) *Store {
	return &Store{Path: path, Logger: log}
}

// -----------------------------------------------------------------------------

// Load returns the persisted document. A missing file is created with the
// defaults. An unreadable or malformed file is left untouched and the last
// good document (or the defaults) is returned instead.
func (s *Store) Load(ctx context.Context) models.MDashboardConfig {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		def := models.DefaultDashboardConfig()
		if _, err := s.Save(ctx, def); err != nil {
			s.Logger.Error("Failed to create default config at %s: %v", s.Path, err)
		} else {
			s.Logger.Info("Created default config at %s", s.Path)
		}
		return def
	}
	if err != nil {
		s.Logger.Warning("Failed to read config %s: %v", s.Path, err)
		return s.fallback()
	}

	var cfg models.MDashboardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		s.Logger.Warning("Config %s is not valid JSON, using last good config: %v", s.Path, err)
		return s.fallback()
	}

	cfg = Sanitize(cfg)
	s.remember(cfg)
	return cfg.Clone()
}

// -----------------------------------------------------------------------------

// Save replaces the whole document and returns its content hash.
func (s *Store) Save(_ context.Context, cfg models.MDashboardConfig) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", helpers.NewConfigurationError("failed to marshal config", err)
	}

	if err := writeAtomic(s.Path, data); err != nil {
		return "", helpers.NewConfigurationError(fmt.Sprintf("failed to write config %s", s.Path), err)
	}

	s.remember(cfg)
	return Hash(data)
}

// -----------------------------------------------------------------------------

func (s *Store) remember(cfg models.MDashboardConfig) {
	c := cfg.Clone()
	s.mu.Lock()
	s.lastGood = &c
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (s *Store) fallback() models.MDashboardConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastGood != nil {
		return s.lastGood.Clone()
	}
	return models.DefaultDashboardConfig()
}

// -----------------------------------------------------------------------------

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// -----------------------------------------------------------------------------

// Hash returns the content hash of a JSON document. Formatting and key order
// do not affect it.
func Hash(data []byte) (string, error) {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	canonical, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// -----------------------------------------------------------------------------

// Sanitize repairs fields a hand-edited document may lack so the rest of the
// system can rely on them.
func Sanitize(cfg models.MDashboardConfig) models.MDashboardConfig {
	def := models.DefaultDashboardConfig()
	if cfg.Tickers == nil {
		cfg.Tickers = []string{}
	}
	switch {
	case cfg.RefreshInterval == 0:
		cfg.RefreshInterval = def.RefreshInterval
	case cfg.RefreshInterval < models.MinRefreshIntervalMs:
		cfg.RefreshInterval = models.MinRefreshIntervalMs
	case cfg.RefreshInterval > models.MaxRefreshIntervalMs:
		cfg.RefreshInterval = models.MaxRefreshIntervalMs
	}
	return cfg
}

// -----------------------------------------------------------------------------

// Validate checks a document submitted by a client and returns it normalised:
// tickers trimmed, upper-cased and de-duplicated in order.
func Validate(cfg models.MDashboardConfig) (models.MDashboardConfig, error) {
	out := cfg.Clone()

	if cfg.Tickers == nil {
		return out, helpers.NewValidationError("tickers is required")
	}
	seen := make(map[string]struct{}, len(cfg.Tickers))
	tickers := make([]string, 0, len(cfg.Tickers))
	for i, t := range cfg.Tickers {
		sym := strings.ToUpper(strings.TrimSpace(t))
		if sym == "" {
			return out, helpers.NewValidationError("ticker %d is empty", i)
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		tickers = append(tickers, sym)
	}
	out.Tickers = tickers

	out.WeatherLocation = strings.TrimSpace(cfg.WeatherLocation)
	if out.WeatherLocation == "" {
		return out, helpers.NewValidationError("weatherLocation is required")
	}

	if cfg.RefreshInterval < models.MinRefreshIntervalMs || cfg.RefreshInterval > models.MaxRefreshIntervalMs {
		return out, helpers.NewValidationError("refreshInterval must be between %d and %d ms, got %d",
			models.MinRefreshIntervalMs, models.MaxRefreshIntervalMs, cfg.RefreshInterval)
	}

	return out, nil
}
