package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	datasource "market-dashboard/src/data_source"
	"market-dashboard/src/helpers"
	"market-dashboard/src/interfaces"
	"market-dashboard/src/logger"
	"market-dashboard/src/metrics"
	"market-dashboard/src/models"

	"golang.org/x/sync/singleflight"
)

const (
	ProviderName = "openmeteo"

	ErrWeatherFailed = "Failed to fetch weather"

	currentFields = "temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,wind_speed_10m,is_day"
)

// -----------------------------------------------------------------------------

type place struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Country   string  `json:"country"`
}

func (p place) label() string {
	if p.Country == "" {
		return p.Name
	}
	return p.Name + ", " + p.Country
}

type geocodeResponse struct {
	Results []place `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature  float64 `json:"temperature_2m"`
		Humidity     float64 `json:"relative_humidity_2m"`
		ApparentTemp float64 `json:"apparent_temperature"`
		WeatherCode  int     `json:"weather_code"`
		WindSpeed    float64 `json:"wind_speed_10m"`
		IsDay        int     `json:"is_day"`
	} `json:"current"`
}

// -----------------------------------------------------------------------------

// Source resolves a free-form location and reads its current conditions.
// Resolved coordinates are remembered per location and concurrent lookups
// of the same location share one request.
type Source struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger

	lookups singleflight.Group
	mu      sync.RWMutex
	places  map[string]place
}

// -----------------------------------------------------------------------------

func NewSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *Source {
	return &Source{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
		places:  make(map[string]place),
	}
}

// -----------------------------------------------------------------------------

// FetchWeather never fails: provider problems produce a weather block with
// the error marker set.
func (s *Source) FetchWeather(ctx context.Context, location string) models.MWeather {
	p, err := s.geocode(ctx, location)
	if err != nil {
		s.Logger.Warning("Weather for %q unavailable: %v", location, err)
		return failedWeather(location)
	}

	res := s.fetchForecast(ctx, p)
	if res.Status != datasource.StatusOK {
		s.Logger.Warning("Weather for %q unavailable: %v", location, res.Err)
		return failedWeather(location)
	}

	cur := res.Value.Current
	isDay := cur.IsDay == 1
	code := cur.WeatherCode
	humidity := cur.Humidity
	return models.MWeather{
		Location:    p.label(),
		Temperature: roundPtr(cur.Temperature),
		FeelsLike:   roundPtr(cur.ApparentTemp),
		Condition:   Describe(code),
		Description: Describe(code),
		Icon:        Icon(code, isDay),
		Humidity:    &humidity,
		WindSpeed:   roundPtr(cur.WindSpeed),
		WeatherCode: &code,
		IsDay:       isDay,
	}
}

// -----------------------------------------------------------------------------

func (s *Source) geocode(ctx context.Context, location string) (place, error) {
	key := strings.ToLower(strings.TrimSpace(location))
	if key == "" {
		return place{}, helpers.NewProviderError("empty location", nil)
	}

	s.mu.RLock()
	p, ok := s.places[key]
	s.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := s.lookups.Do(key, func() (interface{}, error) {
		res := s.fetchPlace(ctx, location)
		if res.Status != datasource.StatusOK {
			if res.Err != nil {
				return place{}, res.Err
			}
			return place{}, helpers.NewProviderError(fmt.Sprintf("location %q not found", location), nil)
		}
		s.mu.Lock()
		s.places[key] = *res.Value
		s.mu.Unlock()
		return *res.Value, nil
	})
	if err != nil {
		return place{}, err
	}
	return v.(place), nil
}

// -----------------------------------------------------------------------------

func (s *Source) fetchPlace(ctx context.Context, location string) (res datasource.FetchResult[place]) {
	defer func() { s.observe("geocode", res.Status) }()

	resp, err := s.Network.Get(ctx, s.Config.Providers.GeocodingBaseURL+"/search", map[string]string{
		"name":     strings.TrimSpace(location),
		"count":    "1",
		"language": "en",
		"format":   "json",
	}, nil)
	if err != nil {
		return datasource.Failed[place](helpers.NewProviderError("geocode", err))
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Failed[place](helpers.NewProviderError(fmt.Sprintf("geocode: unexpected status %d", resp.StatusCode), nil))
	}

	var g geocodeResponse
	if err := json.Unmarshal(resp.Body, &g); err != nil {
		return datasource.Failed[place](helpers.NewProviderError("geocode: bad body", err))
	}
	if len(g.Results) == 0 {
		return datasource.Empty[place]()
	}
	return datasource.OK(g.Results[0])
}

// -----------------------------------------------------------------------------

func (s *Source) fetchForecast(ctx context.Context, p place) (res datasource.FetchResult[forecastResponse]) {
	defer func() { s.observe("forecast", res.Status) }()

	resp, err := s.Network.Get(ctx, s.Config.Providers.ForecastBaseURL+"/forecast", map[string]string{
		"latitude":         strconv.FormatFloat(p.Latitude, 'f', -1, 64),
		"longitude":        strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		"current":          currentFields,
		"temperature_unit": "fahrenheit",
		"wind_speed_unit":  "mph",
		"timezone":         "auto",
	}, nil)
	if err != nil {
		return datasource.Failed[forecastResponse](helpers.NewProviderError("forecast", err))
	}
	if resp.StatusCode != http.StatusOK {
		return datasource.Failed[forecastResponse](helpers.NewProviderError(fmt.Sprintf("forecast: unexpected status %d", resp.StatusCode), nil))
	}

	var f forecastResponse
	if err := json.Unmarshal(resp.Body, &f); err != nil {
		return datasource.Failed[forecastResponse](helpers.NewProviderError("forecast: bad body", err))
	}
	return datasource.OK(f)
}

// -----------------------------------------------------------------------------

func (s *Source) observe(endpoint string, status datasource.FetchStatus) {
	metrics.ProviderFetchesTotal.WithLabelValues(ProviderName, endpoint, status.String()).Inc()
}

// -----------------------------------------------------------------------------

func failedWeather(location string) models.MWeather {
	return models.MWeather{
		Location:    location,
		Condition:   "Unknown",
		Description: "Unable to fetch weather",
		Icon:        defaultIcon,
		Error:       ErrWeatherFailed,
	}
}

func roundPtr(v float64) *int {
	r := int(math.Round(v))
	return &r
}
