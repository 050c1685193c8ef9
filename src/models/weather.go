package models

// MWeather is the current-conditions block of an update.
type MWeather struct {
	Location    string   `json:"location"`
	Temperature *int     `json:"temperature"`
	FeelsLike   *int     `json:"feelsLike"`
	Condition   string   `json:"condition"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Humidity    *float64 `json:"humidity"`
	WindSpeed   *int     `json:"windSpeed"`
	WeatherCode *int     `json:"weatherCode"`
	IsDay       bool     `json:"isDay"`
	Error       string   `json:"error,omitempty"`
}
