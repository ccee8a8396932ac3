package openmeteo

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/tasker-api/internal/task"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(testLogger(), WithBaseURLs(server.URL, server.URL))
}

func TestGeocode(t *testing.T) {
	t.Parallel()

	t.Run("resolves the best match", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/search", r.URL.Path)
			assert.Equal(t, "Berlin", r.URL.Query().Get("name"))
			assert.Equal(t, "1", r.URL.Query().Get("count"))
			_, _ = w.Write([]byte(`{"results":[{"name":"Berlin","country":"Germany","latitude":52.52,"longitude":13.41}]}`))
		})

		loc, err := client.Geocode(context.Background(), "Berlin")
		require.NoError(t, err)
		assert.Equal(t, "Berlin", loc.Name)
		assert.Equal(t, "Germany", loc.Country)
		assert.InDelta(t, 52.52, loc.Latitude, 0.001)
	})

	t.Run("unknown city is a permanent failure", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		})

		_, err := client.Geocode(context.Background(), "Atlantis")
		require.Error(t, err)
		assert.True(t, task.IsPermanent(err))
		assert.Contains(t, err.Error(), "city 'Atlantis' not found")
	})

	t.Run("server error is transient", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.Geocode(context.Background(), "Berlin")
		require.Error(t, err)
		assert.False(t, task.IsPermanent(err))
	})

	t.Run("client error is permanent", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})

		_, err := client.Geocode(context.Background(), "Berlin")
		require.Error(t, err)
		assert.True(t, task.IsPermanent(err))
	})

	t.Run("unreachable host is transient", func(t *testing.T) {
		t.Parallel()
		client := New(testLogger(), WithBaseURLs("http://127.0.0.1:1", "http://127.0.0.1:1"))

		_, err := client.Geocode(context.Background(), "Berlin")
		require.Error(t, err)
		assert.False(t, task.IsPermanent(err))
	})
}

func TestCurrentWeather(t *testing.T) {
	t.Parallel()

	loc := task.GeoLocation{Name: "Berlin", Country: "Germany", Latitude: 52.52, Longitude: 13.41}

	t.Run("decodes current conditions", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/forecast", r.URL.Path)
			assert.Equal(t, "celsius", r.URL.Query().Get("temperature_unit"))
			assert.Equal(t, "kmh", r.URL.Query().Get("wind_speed_unit"))
			_, _ = w.Write([]byte(`{
				"timezone": "Europe/Berlin",
				"current": {
					"temperature_2m": 21.5,
					"apparent_temperature": 20.0,
					"relative_humidity_2m": 60,
					"surface_pressure": 1013.2,
					"wind_speed_10m": 12.5,
					"wind_direction_10m": 270,
					"cloud_cover": 40,
					"weather_code": 61
				}
			}`))
		})

		conditions, err := client.CurrentWeather(context.Background(), loc, "metric")
		require.NoError(t, err)
		require.NotNil(t, conditions.Temperature)
		assert.InDelta(t, 21.5, *conditions.Temperature, 0.001)
		assert.Equal(t, 61, conditions.WeatherCode)
		assert.Equal(t, "Europe/Berlin", conditions.Timezone)
	})

	t.Run("imperial units map to fahrenheit and mph", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "fahrenheit", r.URL.Query().Get("temperature_unit"))
			assert.Equal(t, "mph", r.URL.Query().Get("wind_speed_unit"))
			_, _ = w.Write([]byte(`{"timezone":"Europe/Berlin","current":{}}`))
		})

		_, err := client.CurrentWeather(context.Background(), loc, "imperial")
		require.NoError(t, err)
	})

	t.Run("kelvin requests celsius upstream", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "celsius", r.URL.Query().Get("temperature_unit"))
			_, _ = w.Write([]byte(`{"timezone":"Europe/Berlin","current":{}}`))
		})

		_, err := client.CurrentWeather(context.Background(), loc, "kelvin")
		require.NoError(t, err)
	})

	t.Run("absent readings stay nil", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"timezone":"Europe/Berlin","current":{"weather_code":3}}`))
		})

		conditions, err := client.CurrentWeather(context.Background(), loc, "metric")
		require.NoError(t, err)
		assert.Nil(t, conditions.Temperature)
		assert.Equal(t, 3, conditions.WeatherCode)
	})

	t.Run("malformed body is transient", func(t *testing.T) {
		t.Parallel()
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{not json`))
		})

		_, err := client.CurrentWeather(context.Background(), loc, "metric")
		require.Error(t, err)
		assert.False(t, task.IsPermanent(err))
	})
}
