package task

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/phrazzld/tasker-api/internal/config"
)

// cityAllowList rejects characters that have no business in a city name.
// The city string is forwarded verbatim into an outbound request, so this
// doubles as injection defense.
var cityAllowList = regexp.MustCompile(`^[\p{L}\p{N}_\s\-\.,']+$`)

// validWeatherUnits is the closed set of accepted unit systems.
var validWeatherUnits = map[string]bool{
	"metric":   true,
	"imperial": true,
	"kelvin":   true,
}

// GeoLocation is a resolved city position.
type GeoLocation struct {
	Name      string
	Country   string
	Latitude  float64
	Longitude float64
}

// CurrentConditions is a current-weather observation. Pointer fields are
// absent when the upstream response omitted them.
type CurrentConditions struct {
	Temperature         *float64
	ApparentTemperature *float64
	Humidity            *float64
	Pressure            *float64
	WindSpeed           *float64
	WindDirection       *float64
	CloudCover          *float64
	WeatherCode         int
	Timezone            string
}

// WeatherClient defines the interface for the geocoding and forecast
// integration. Implementations classify their failures with ErrPermanent
// (e.g. no geocoding match) and ErrTransient (timeouts, upstream errors).
type WeatherClient interface {
	// Geocode resolves a city name to a location.
	Geocode(ctx context.Context, city string) (*GeoLocation, error)

	// CurrentWeather fetches current conditions for a location. units is
	// one of metric, imperial or kelvin.
	CurrentWeather(ctx context.Context, loc GeoLocation, units string) (*CurrentConditions, error)
}

// validateWeatherParams enforces the weather kind's input rules.
func validateWeatherParams(cfg config.TasksConfig) ValidateFunc {
	return func(params map[string]any) error {
		raw, present := params["city"]
		if !present {
			return fmt.Errorf("parameter 'city' is required for weather task")
		}

		city, ok := raw.(string)
		if !ok {
			return fmt.Errorf("parameter 'city' must be a string")
		}

		trimmed := strings.TrimSpace(city)
		if trimmed == "" {
			return fmt.Errorf("parameter 'city' must be a non-empty string")
		}

		if len(trimmed) > cfg.MaxCityLength {
			return fmt.Errorf("parameter 'city' exceeds maximum length of %d characters", cfg.MaxCityLength)
		}

		if !cityAllowList.MatchString(trimmed) {
			return fmt.Errorf("parameter 'city' contains invalid characters")
		}

		if _, present := params["units"]; present {
			units, ok := stringParam(params, "units")
			if !ok || !validWeatherUnits[units] {
				return fmt.Errorf("parameter 'units' must be 'metric', 'imperial', or 'kelvin'")
			}
		}

		return nil
	}
}

// executeWeather builds the weather kind's execution body around the given
// client. The body geocodes the city, fetches current conditions, and
// assembles the result payload.
func executeWeather(client WeatherClient) ExecuteFunc {
	return func(ctx context.Context, params map[string]any) (map[string]any, error) {
		city, ok := stringParam(params, "city")
		if !ok || strings.TrimSpace(city) == "" {
			return nil, Permanentf("parameter 'city' must be a non-empty string")
		}

		units := "metric"
		if u, ok := stringParam(params, "units"); ok && u != "" {
			if !validWeatherUnits[u] {
				return nil, Permanentf("parameter 'units' must be 'metric', 'imperial', or 'kelvin'")
			}
			units = u
		}

		location, err := client.Geocode(ctx, city)
		if err != nil {
			return nil, err
		}

		conditions, err := client.CurrentWeather(ctx, *location, units)
		if err != nil {
			return nil, err
		}

		main, description := describeWeatherCode(conditions.WeatherCode)

		temperature := conditions.Temperature
		feelsLike := conditions.ApparentTemperature
		if units == "kelvin" {
			// The upstream API has no kelvin mode; it serves celsius and we
			// convert here.
			temperature = celsiusToKelvin(temperature)
			feelsLike = celsiusToKelvin(feelsLike)
		}

		return map[string]any{
			"city":    location.Name,
			"country": location.Country,
			"coordinates": map[string]any{
				"latitude":  location.Latitude,
				"longitude": location.Longitude,
			},
			"weather": map[string]any{
				"main":        main,
				"description": description,
			},
			"temperature": map[string]any{
				"current":    temperature,
				"feels_like": feelsLike,
				"units":      units,
			},
			"humidity": conditions.Humidity,
			"pressure": conditions.Pressure,
			"wind": map[string]any{
				"speed":     conditions.WindSpeed,
				"direction": conditions.WindDirection,
			},
			"clouds":   conditions.CloudCover,
			"timezone": conditions.Timezone,
		}, nil
	}
}

// celsiusToKelvin converts a possibly-absent celsius reading.
func celsiusToKelvin(c *float64) *float64 {
	if c == nil {
		return nil
	}
	k := *c + 273.15
	return &k
}

// weatherCodeTable maps WMO weather codes to a short category and a
// description. See https://open-meteo.com/en/docs#weathervariables
var weatherCodeTable = map[int][2]string{
	0:  {"Clear", "Clear sky"},
	1:  {"Mainly Clear", "Mainly clear"},
	2:  {"Partly Cloudy", "Partly cloudy"},
	3:  {"Overcast", "Overcast"},
	45: {"Fog", "Fog"},
	48: {"Fog", "Depositing rime fog"},
	51: {"Drizzle", "Light drizzle"},
	53: {"Drizzle", "Moderate drizzle"},
	55: {"Drizzle", "Dense drizzle"},
	56: {"Freezing Drizzle", "Light freezing drizzle"},
	57: {"Freezing Drizzle", "Dense freezing drizzle"},
	61: {"Rain", "Slight rain"},
	63: {"Rain", "Moderate rain"},
	65: {"Rain", "Heavy rain"},
	66: {"Freezing Rain", "Light freezing rain"},
	67: {"Freezing Rain", "Heavy freezing rain"},
	71: {"Snow", "Slight snowfall"},
	73: {"Snow", "Moderate snowfall"},
	75: {"Snow", "Heavy snowfall"},
	77: {"Snow", "Snow grains"},
	80: {"Rain Showers", "Slight rain showers"},
	81: {"Rain Showers", "Moderate rain showers"},
	82: {"Rain Showers", "Violent rain showers"},
	85: {"Snow Showers", "Slight snow showers"},
	86: {"Snow Showers", "Heavy snow showers"},
	95: {"Thunderstorm", "Thunderstorm"},
	96: {"Thunderstorm", "Thunderstorm with slight hail"},
	99: {"Thunderstorm", "Thunderstorm with heavy hail"},
}

// describeWeatherCode resolves a WMO code to its category and description.
func describeWeatherCode(code int) (string, string) {
	if entry, ok := weatherCodeTable[code]; ok {
		return entry[0], entry[1]
	}
	return "Unknown", "Unknown"
}
