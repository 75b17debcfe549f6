package providers

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-energy-forecast/internal/common"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

const hourlyPayload = `{
	"latitude": 52.52,
	"longitude": 13.41,
	"hourly": {
		"time": [1717200000, 1717203600, 1717207200],
		"temperature_2m": [20.5, null, 21.0],
		"wind_speed_100m": [3, 4, 5]
	}
}`

type fetchCall struct {
	endpoint string
	err      error
}

type recorderStub struct{ calls []fetchCall }

func (r *recorderStub) ObserveFetch(endpoint string, err error) {
	r.calls = append(r.calls, fetchCall{endpoint, err})
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*OpenMeteoProvider, *recorderStub, *[]url.URL) {
	t.Helper()
	var seen []url.URL
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, *r.URL)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	rec := &recorderStub{}
	p := NewOpenMeteoProvider(srv.Client(), OpenMeteoConfig{
		ForecastURL: srv.URL + "/forecast",
		ArchiveURL:  srv.URL + "/archive",
		Recorder:    rec,
	})
	return p, rec, &seen
}

func TestOpenMeteo_FetchForecast(t *testing.T) {
	p, rec, seen := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(hourlyPayload))
	})

	raw, err := p.Fetch(context.Background(), weather.FetchRequest{
		Coordinate: weather.GeoCoordinate{Latitude: 52.52, Longitude: 13.41},
		Timezone:   "Europe/Berlin",
		Forecast:   &weather.ForecastWindow{PastDays: 10, ForecastDays: 16},
		Variables:  weather.SolarVariables,
	})
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	u := (*seen)[0]
	assert.Equal(t, "/forecast", u.Path)
	q := u.Query()
	assert.Equal(t, "52.52", q.Get("latitude"))
	assert.Equal(t, "13.41", q.Get("longitude"))
	assert.Equal(t, "Europe/Berlin", q.Get("timezone"))
	assert.Equal(t, "unixtime", q.Get("timeformat"))
	assert.Equal(t, "fahrenheit", q.Get("temperature_unit"))
	assert.Equal(t, "10", q.Get("past_days"))
	assert.Equal(t, "16", q.Get("forecast_days"))
	assert.Equal(t, "temperature_2m,wind_speed_100m,relative_humidity_2m,visibility,cloud_cover", q.Get("hourly"))
	assert.Empty(t, q.Get("start_date"))

	assert.Equal(t, time.Hour, raw.Interval)
	assert.True(t, raw.Start.Equal(time.Unix(1717200000, 0)))
	assert.True(t, raw.End.Equal(time.Unix(1717210800, 0)))
	require.Len(t, raw.Variables, 2)
	assert.Equal(t, "temperature", raw.Variables[0].Kind)
	assert.Equal(t, 2, raw.Variables[0].Altitude)
	assert.True(t, math.IsNaN(raw.Variables[0].Values[1]))
	assert.Equal(t, []float64{3, 4, 5}, raw.Variables[1].Values)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, "forecast", rec.calls[0].endpoint)
	assert.NoError(t, rec.calls[0].err)
}

func TestOpenMeteo_FetchArchive(t *testing.T) {
	p, rec, seen := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(hourlyPayload))
	})

	_, err := p.Fetch(context.Background(), weather.FetchRequest{
		Timezone: "UTC",
		Archive: &weather.ArchiveRange{
			Start: civil.Date{Year: 2024, Month: time.May, Day: 1},
			End:   civil.Date{Year: 2024, Month: time.May, Day: 3},
		},
		Variables: weather.WindVariables,
	})
	require.NoError(t, err)

	u := (*seen)[0]
	assert.Equal(t, "/archive", u.Path)
	assert.Equal(t, "2024-05-01", u.Query().Get("start_date"))
	assert.Equal(t, "2024-05-03", u.Query().Get("end_date"))
	assert.Empty(t, u.Query().Get("temperature_unit"))
	assert.Empty(t, u.Query().Get("past_days"))
	assert.Equal(t, "archive", rec.calls[0].endpoint)
}

func TestOpenMeteo_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"server error", http.StatusBadGateway, "", weather.ErrProviderFetch},
		{"bad request", http.StatusBadRequest, `{"error":true,"reason":"bad"}`, weather.ErrProviderFetch},
		{"not json", http.StatusOK, "<html>", weather.ErrProviderFetch},
		{"no time array", http.StatusOK, `{"hourly":{"temperature_2m":[1]}}`, weather.ErrMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, rec, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := p.Fetch(context.Background(), weather.FetchRequest{
				Timezone:  "UTC",
				Forecast:  &weather.ForecastWindow{PastDays: 1, ForecastDays: 1},
				Variables: weather.WindVariables,
			})
			assert.ErrorIs(t, err, tt.wantErr)
			require.Len(t, rec.calls, 1)
			assert.Error(t, rec.calls[0].err)
		})
	}
}

func TestOpenMeteo_RejectsIncompleteRequest(t *testing.T) {
	p, _, seen := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {})

	_, err := p.Fetch(context.Background(), weather.FetchRequest{Variables: weather.WindVariables})
	assert.ErrorIs(t, err, weather.ErrProviderFetch)

	_, err = p.Fetch(context.Background(), weather.FetchRequest{Forecast: &weather.ForecastWindow{}})
	assert.ErrorIs(t, err, weather.ErrProviderFetch)
	assert.Empty(t, *seen)
}

func TestDecodeHourly_SingleRow(t *testing.T) {
	p, _, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"hourly":{"time":[1717200000],"visibility":[24140]}}`))
	})

	raw, err := p.Fetch(context.Background(), weather.FetchRequest{
		Forecast:  &weather.ForecastWindow{},
		Variables: weather.VariableSet{Hourly: []string{"visibility"}},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, raw.Interval)
	assert.Equal(t, time.Hour, raw.End.Sub(raw.Start))
}

func TestOpenMeteo_EndpointBreakersAreIndependent(t *testing.T) {
	p, _, seen := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/archive":
			if r.URL.Query().Get("start_date") == "1990-01-01" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":true,"reason":"Parameter 'start_date' is out of allowed range"}`))
				return
			}
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(hourlyPayload))
		}
	})

	archive := func(start civil.Date) weather.FetchRequest {
		return weather.FetchRequest{
			Timezone:  "UTC",
			Archive:   &weather.ArchiveRange{Start: start, End: start.AddDays(1)},
			Variables: weather.WindVariables,
		}
	}
	forecast := weather.FetchRequest{
		Timezone:  "UTC",
		Forecast:  &weather.ForecastWindow{PastDays: 1, ForecastDays: 1},
		Variables: weather.WindVariables,
	}

	// Rejected dates keep the archive breaker closed and carry the reason.
	for i := 0; i < 8; i++ {
		_, err := p.Fetch(context.Background(), archive(civil.Date{Year: 1990, Month: time.January, Day: 1}))
		require.ErrorIs(t, err, common.ErrClientError)
		assert.NotErrorIs(t, err, common.ErrCircuitOpen)
		assert.Contains(t, err.Error(), "out of allowed range")
	}
	assert.Len(t, *seen, 8)

	// An archive outage opens only the archive breaker.
	good := civil.Date{Year: 2024, Month: time.May, Day: 1}
	for i := 0; i < 6; i++ {
		_, err := p.Fetch(context.Background(), archive(good))
		require.ErrorIs(t, err, common.ErrServerError)
	}
	_, err := p.Fetch(context.Background(), archive(good))
	require.ErrorIs(t, err, common.ErrCircuitOpen)

	raw, err := p.Fetch(context.Background(), forecast)
	require.NoError(t, err)
	assert.NotEmpty(t, raw.Variables)
	last := (*seen)[len(*seen)-1]
	assert.Equal(t, "/forecast", last.Path)
}
