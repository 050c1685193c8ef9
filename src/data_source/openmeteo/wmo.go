package openmeteo

// WMO weather interpretation codes as used by Open-Meteo.
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Foggy",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Heavy drizzle",
	61: "Light rain",
	63: "Rain",
	65: "Heavy rain",
	71: "Light snow",
	73: "Snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Light showers",
	81: "Showers",
	82: "Heavy showers",
	85: "Light snow showers",
	86: "Snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with hail",
}

const defaultIcon = "🌡️"

// Describe maps a WMO code to a short description.
func Describe(code int) string {
	if d, ok := weatherDescriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// Icon maps a WMO code to an emoji. Clear and mostly clear skies differ
// between day and night.
func Icon(code int, isDay bool) string {
	switch {
	case code == 0:
		if isDay {
			return "☀️"
		}
		return "🌙"
	case code == 1 || code == 2:
		if isDay {
			return "🌤️"
		}
		return "🌙"
	case code == 3:
		return "☁️"
	case code == 45 || code == 48:
		return "🌫️"
	case code >= 51 && code <= 55:
		return "🌦️"
	case code >= 61 && code <= 65:
		return "🌧️"
	case code >= 71 && code <= 77:
		return "🌨️"
	case code >= 80 && code <= 82:
		return "🌧️"
	case code >= 85 && code <= 86:
		return "🌨️"
	case code >= 95:
		return "⛈️"
	default:
		return defaultIcon
	}
}
