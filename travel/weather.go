package travel

import (
	"context"
	"fmt"
	"strings"
)

// Weather is a current weather observation.
type Weather struct {
	City        string  `json:"city"`
	Country     string  `json:"country,omitempty"`
	Temperature float64 `json:"temperature"`
	Unit        string  `json:"temperature_unit"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
}

// WeatherProvider returns the current weather for a city.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, city string) (Weather, error)
}

type wmoCode struct {
	condition   string
	description string
}

var wmoCodes = map[int]wmoCode{
	0:  {"Clear", "Clear sky"},
	1:  {"Mostly Clear", "Mainly clear"},
	2:  {"Partly Cloudy", "Partly cloudy"},
	3:  {"Cloudy", "Overcast"},
	45: {"Foggy", "Fog"},
	48: {"Foggy", "Depositing rime fog"},
	51: {"Light Drizzle", "Light drizzle"},
	53: {"Drizzle", "Moderate drizzle"},
	55: {"Heavy Drizzle", "Dense drizzle"},
	61: {"Light Rain", "Slight rain"},
	63: {"Rain", "Moderate rain"},
	65: {"Heavy Rain", "Heavy rain"},
	71: {"Light Snow", "Slight snow"},
	73: {"Snow", "Moderate snow"},
	75: {"Heavy Snow", "Heavy snow"},
	80: {"Light Showers", "Slight rain showers"},
	81: {"Showers", "Moderate rain showers"},
	82: {"Heavy Showers", "Violent rain showers"},
	95: {"Thunderstorm", "Thunderstorm"},
	96: {"Thunderstorm", "Thunderstorm with slight hail"},
	99: {"Severe Thunderstorm", "Thunderstorm with heavy hail"},
}

// DescribeWMO converts a WMO weather interpretation code to a condition and
// a description.
func DescribeWMO(code int) (condition, description string) {
	if c, ok := wmoCodes[code]; ok {
		return c.condition, c.description
	}
	return "Unknown", "Unknown conditions"
}

// Observation is a raw reading: temperature in °C and a WMO code.
type Observation struct {
	Country     string
	Temperature float64
	Code        int
}

// StaticWeather serves fixed observations keyed by lower case city name.
// Unknown cities get the 20 °C "Unknown" fallback.
type StaticWeather map[string]Observation

// DefaultWeather is the observation table shipped with the assistant.
var DefaultWeather = StaticWeather{
	"paris":      {Country: "France", Temperature: 14, Code: 61},
	"casablanca": {Country: "Morocco", Temperature: 22, Code: 0},
	"rabat":      {Country: "Morocco", Temperature: 21, Code: 1},
	"marrakech":  {Country: "Morocco", Temperature: 28, Code: 0},
	"doha":       {Country: "Qatar", Temperature: 33, Code: 0},
	"london":     {Country: "United Kingdom", Temperature: 11, Code: 63},
	"berlin":     {Country: "Germany", Temperature: 9, Code: 3},
	"tokyo":      {Country: "Japan", Temperature: 18, Code: 2},
	"new york":   {Country: "United States", Temperature: 16, Code: 80},
	"oslo":       {Country: "Norway", Temperature: -2, Code: 73},
}

// CurrentWeather implements WeatherProvider.
func (w StaticWeather) CurrentWeather(ctx context.Context, city string) (Weather, error) {
	if err := ctx.Err(); err != nil {
		return Weather{}, err
	}

	obs, ok := w[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return Weather{
			City:        city,
			Temperature: 20,
			Unit:        "°C",
			Condition:   "Unknown",
			Description: fmt.Sprintf("No weather data for %s", city),
		}, nil
	}

	condition, description := DescribeWMO(obs.Code)

	return Weather{
		City:        titleCase(city),
		Country:     obs.Country,
		Temperature: obs.Temperature,
		Unit:        "°C",
		Condition:   condition,
		Description: description,
	}, nil
}

// ActivityKind groups activity suggestions.
type ActivityKind string

const (
	ActivitiesOutdoor ActivityKind = "outdoor"
	ActivitiesIndoor  ActivityKind = "indoor"
	ActivitiesMixed   ActivityKind = "mixed"
)

var activities = map[ActivityKind][]string{
	ActivitiesOutdoor: {"Walk through the old town", "Picnic in a park", "Rent a bike and explore"},
	ActivitiesIndoor:  {"Visit a museum", "Try a cooking class", "Explore a covered market"},
	ActivitiesMixed:   {"Take a guided walking tour", "Visit a gallery and a café", "Stroll along the river"},
}

var badWeather = []string{"rain", "snow", "drizzle", "showers", "thunderstorm"}

// ClassifyActivities picks the activity kind for w: outdoor above 20 °C with
// clear or sunny skies, indoor below 15 °C or in wet weather, mixed otherwise.
func ClassifyActivities(w Weather) ActivityKind {
	condition := strings.ToLower(w.Condition)

	if w.Temperature > 20 {
		switch condition {
		case "clear", "sunny", "mostly clear":
			return ActivitiesOutdoor
		}
	}

	if w.Temperature < 15 {
		return ActivitiesIndoor
	}

	for _, bad := range badWeather {
		if strings.Contains(condition, bad) {
			return ActivitiesIndoor
		}
	}

	return ActivitiesMixed
}

// SuggestActivities returns three activities matching the weather.
func SuggestActivities(w Weather) (ActivityKind, []string) {
	kind := ClassifyActivities(w)
	return kind, append([]string(nil), activities[kind]...)
}
