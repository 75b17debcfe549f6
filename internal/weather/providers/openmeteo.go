package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-energy-forecast/internal/common"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

const (
	DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"
	DefaultArchiveURL  = "https://historical-forecast-api.open-meteo.com/v1/forecast"

	endpointForecast = "forecast"
	endpointArchive  = "archive"
)

// FetchRecorder observes provider calls; the metrics recorder implements it.
type FetchRecorder interface {
	ObserveFetch(endpoint string, err error)
}

// OpenMeteoConfig configures an OpenMeteoProvider. Zero values fall back to
// the public endpoints and a single attempt per fetch.
type OpenMeteoConfig struct {
	ForecastURL string
	ArchiveURL  string
	MaxRetries  int
	Recorder    FetchRecorder
}

// OpenMeteoProvider implements weather.Fetcher against the Open-Meteo forecast
// and historical-forecast APIs.
type OpenMeteoProvider struct {
	name        string
	forecastURL string
	archiveURL  string
	httpCfg     common.HTTPClientConfig
	recorder    FetchRecorder

	// One breaker per endpoint so archive rejections never block forecasts.
	circuits map[string]*gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, cfg OpenMeteoConfig) *OpenMeteoProvider {
	p := &OpenMeteoProvider{
		name:        "openmeteo",
		forecastURL: cfg.ForecastURL,
		archiveURL:  cfg.ArchiveURL,
		httpCfg: common.HTTPClientConfig{
			Client: client,
			Backoff: common.BackoffConfig{
				MaxRetries:      max(cfg.MaxRetries, 0),
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		recorder: cfg.Recorder,
		circuits: map[string]*gobreaker.CircuitBreaker{
			endpointForecast: common.NewBreaker("openmeteo-" + endpointForecast),
			endpointArchive:  common.NewBreaker("openmeteo-" + endpointArchive),
		},
	}
	if p.forecastURL == "" {
		p.forecastURL = DefaultForecastURL
	}
	if p.archiveURL == "" {
		p.archiveURL = DefaultArchiveURL
	}
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch performs one hourly request. Archive requests go to the
// historical-forecast endpoint, forecast windows to the forecast endpoint.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, req weather.FetchRequest) (weather.RawHourly, error) {
	endpoint := endpointForecast
	if req.Archive != nil {
		endpoint = endpointArchive
	}

	raw, err := p.fetch(ctx, endpoint, req)
	if p.recorder != nil {
		p.recorder.ObserveFetch(endpoint, err)
	}
	return raw, err
}

func (p *OpenMeteoProvider) fetch(ctx context.Context, endpoint string, req weather.FetchRequest) (weather.RawHourly, error) {
	if len(req.Variables.Hourly) == 0 {
		return weather.RawHourly{}, fmt.Errorf("%w: no hourly variables requested", weather.ErrProviderFetch)
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(req.Coordinate.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(req.Coordinate.Longitude, 'f', -1, 64))
	values.Set("timezone", req.Timezone)
	values.Set("hourly", strings.Join(req.Variables.Hourly, ","))
	values.Set("timeformat", "unixtime")
	if req.Variables.TemperatureUnit != "" {
		values.Set("temperature_unit", req.Variables.TemperatureUnit)
	}

	base := p.forecastURL
	switch {
	case req.Archive != nil:
		base = p.archiveURL
		values.Set("start_date", req.Archive.Start.String())
		values.Set("end_date", req.Archive.End.String())
	case req.Forecast != nil:
		values.Set("past_days", strconv.Itoa(req.Forecast.PastDays))
		values.Set("forecast_days", strconv.Itoa(req.Forecast.ForecastDays))
	default:
		return weather.RawHourly{}, fmt.Errorf("%w: neither archive range nor forecast window set", weather.ErrProviderFetch)
	}

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s?%s", base, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := common.DoRequestWithResilience(ctx, p.httpCfg, p.circuits[endpoint], buildRequest)
	if err != nil {
		return weather.RawHourly{}, fmt.Errorf("%w: %w", weather.ErrProviderFetch, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly map[string]json.RawMessage `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.RawHourly{}, fmt.Errorf("%w: decode: %w", weather.ErrProviderFetch, err)
	}

	return decodeHourly(payload.Hourly)
}

// decodeHourly converts the parallel hourly arrays into a RawHourly block.
// The "time" array holds UTC epoch seconds at a fixed step; null values
// become NaN.
func decodeHourly(hourly map[string]json.RawMessage) (weather.RawHourly, error) {
	rawTimes, ok := hourly["time"]
	if !ok {
		return weather.RawHourly{}, fmt.Errorf("%w: hourly.time missing", weather.ErrMalformedResponse)
	}
	var times []int64
	if err := json.Unmarshal(rawTimes, &times); err != nil {
		return weather.RawHourly{}, fmt.Errorf("%w: hourly.time: %w", weather.ErrMalformedResponse, err)
	}

	interval := time.Hour
	if len(times) > 1 {
		interval = time.Duration(times[1]-times[0]) * time.Second
	}
	if interval <= 0 {
		return weather.RawHourly{}, fmt.Errorf("%w: non-increasing hourly.time", weather.ErrMalformedResponse)
	}

	out := weather.RawHourly{Interval: interval}
	if len(times) > 0 {
		out.Start = time.Unix(times[0], 0).UTC()
		out.End = time.Unix(times[len(times)-1], 0).UTC().Add(interval)
	}

	for _, name := range slices.Sorted(maps.Keys(hourly)) {
		if name == "time" {
			continue
		}
		msg := hourly[name]
		var vals []*float64
		if err := json.Unmarshal(msg, &vals); err != nil {
			return weather.RawHourly{}, fmt.Errorf("%w: hourly.%s: %w", weather.ErrMalformedResponse, name, err)
		}
		series := make([]float64, len(vals))
		for i, v := range vals {
			if v == nil {
				series[i] = math.NaN()
				continue
			}
			series[i] = *v
		}
		kind, alt := weather.ParseVariableName(name)
		out.Variables = append(out.Variables, weather.RawVariable{
			Name:     name,
			Kind:     kind,
			Altitude: alt,
			Values:   series,
		})
	}

	return out, nil
}
