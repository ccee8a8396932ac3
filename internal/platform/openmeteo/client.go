// Package openmeteo implements the weather integration against the
// Open-Meteo geocoding and forecast APIs. Open-Meteo is keyless, so the
// client needs no credentials.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/phrazzld/tasker-api/internal/platform/metrics"
	"github.com/phrazzld/tasker-api/internal/task"
)

const (
	defaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com"
	defaultForecastBaseURL  = "https://api.open-meteo.com"

	apiName = "open-meteo"

	requestTimeout = 30 * time.Second
)

// Client implements task.WeatherClient over the Open-Meteo HTTP APIs.
// Retry policy lives in the task runner; the client makes one request per
// call and classifies failures.
type Client struct {
	httpClient       *http.Client
	geocodingBaseURL string
	forecastBaseURL  string
	logger           *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURLs overrides the geocoding and forecast endpoints. Used by
// tests to point the client at a local server.
func WithBaseURLs(geocoding, forecast string) Option {
	return func(c *Client) {
		c.geocodingBaseURL = geocoding
		c.forecastBaseURL = forecast
	}
}

// New creates an Open-Meteo client.
func New(logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient:       &http.Client{Timeout: requestTimeout},
		geocodingBaseURL: defaultGeocodingBaseURL,
		forecastBaseURL:  defaultForecastBaseURL,
		logger:           logger.With("component", "openmeteo_client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Timezone string `json:"timezone"`
	Current  struct {
		Temperature         *float64 `json:"temperature_2m"`
		ApparentTemperature *float64 `json:"apparent_temperature"`
		Humidity            *float64 `json:"relative_humidity_2m"`
		Pressure            *float64 `json:"surface_pressure"`
		WindSpeed           *float64 `json:"wind_speed_10m"`
		WindDirection       *float64 `json:"wind_direction_10m"`
		CloudCover          *float64 `json:"cloud_cover"`
		WeatherCode         int      `json:"weather_code"`
	} `json:"current"`
}

// Geocode resolves a city name to its best-matching location. An empty
// result set is a permanent failure: retrying cannot make a city exist.
func (c *Client) Geocode(ctx context.Context, city string) (*task.GeoLocation, error) {
	query := url.Values{}
	query.Set("name", city)
	query.Set("count", "1")

	endpoint := c.geocodingBaseURL + "/v1/search?" + query.Encode()

	var payload geocodingResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	if len(payload.Results) == 0 {
		return nil, task.Permanentf("city '%s' not found", city)
	}

	best := payload.Results[0]
	return &task.GeoLocation{
		Name:      best.Name,
		Country:   best.Country,
		Latitude:  best.Latitude,
		Longitude: best.Longitude,
	}, nil
}

// CurrentWeather fetches current conditions for a location. Kelvin requests
// are served in celsius; the conversion happens in the task body.
func (c *Client) CurrentWeather(ctx context.Context, loc task.GeoLocation, units string) (*task.CurrentConditions, error) {
	temperatureUnit, windSpeedUnit := unitsFor(units)

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%g", loc.Latitude))
	query.Set("longitude", fmt.Sprintf("%g", loc.Longitude))
	query.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,wind_speed_10m,wind_direction_10m,cloud_cover,weather_code")
	query.Set("temperature_unit", temperatureUnit)
	query.Set("wind_speed_unit", windSpeedUnit)
	query.Set("timezone", "auto")

	endpoint := c.forecastBaseURL + "/v1/forecast?" + query.Encode()

	var payload forecastResponse
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	return &task.CurrentConditions{
		Temperature:         payload.Current.Temperature,
		ApparentTemperature: payload.Current.ApparentTemperature,
		Humidity:            payload.Current.Humidity,
		Pressure:            payload.Current.Pressure,
		WindSpeed:           payload.Current.WindSpeed,
		WindDirection:       payload.Current.WindDirection,
		CloudCover:          payload.Current.CloudCover,
		WeatherCode:         payload.Current.WeatherCode,
		Timezone:            payload.Timezone,
	}, nil
}

// unitsFor maps the task-level unit system onto Open-Meteo query units.
func unitsFor(units string) (temperature, windSpeed string) {
	switch units {
	case "imperial":
		return "fahrenheit", "mph"
	case "kelvin":
		return "celsius", "ms"
	default:
		return "celsius", "kmh"
	}
}

// getJSON performs one GET and decodes the JSON body, classifying transport
// and status failures.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return task.PermanentWrap(err, "failed to build weather api request")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ExternalAPIDuration.WithLabelValues(apiName).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.ExternalAPIRequests.WithLabelValues(apiName, "error").Inc()
		return task.TransientWrap(err, "weather api request failed")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("failed to close weather api response body", "error", closeErr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusOK:
		metrics.ExternalAPIRequests.WithLabelValues(apiName, "success").Inc()
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		metrics.ExternalAPIRequests.WithLabelValues(apiName, "error").Inc()
		return task.Transientf("weather api returned status %d", resp.StatusCode)
	default:
		metrics.ExternalAPIRequests.WithLabelValues(apiName, "error").Inc()
		return task.Permanentf("weather api returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return task.TransientWrap(err, "failed to decode weather api response")
	}

	return nil
}

var _ task.WeatherClient = (*Client)(nil)
