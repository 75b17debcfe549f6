package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-energy-forecast/internal/common"
	"github.com/i474232898/weather-energy-forecast/internal/energy"
	"github.com/i474232898/weather-energy-forecast/internal/inference"
	"github.com/i474232898/weather-energy-forecast/internal/store"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

type stubPredictor struct {
	got     *energy.Request
	records []energy.PredictionRecord
	err     error
}

func (p *stubPredictor) Predict(_ context.Context, req energy.Request) ([]energy.PredictionRecord, error) {
	p.got = &req
	return p.records, p.err
}

func newApp(p Predictor, probes *store.MemoryStore) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, p, probes, time.Second)
	return app
}

func postPredict(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

const validBody = `{
	"mode": "wind",
	"dates": {"start": "2024-01-01T00:00:00", "end": "2024-01-01T01:00:00"},
	"location": {"latitude": 52.52, "longitude": 13.41},
	"timezone": "Europe/Berlin"
}`

func TestPredict_OK(t *testing.T) {
	p := &stubPredictor{records: []energy.PredictionRecord{
		{Datetime: "2024-01-01 00:00:00", PredictedEnergy: 1},
		{Datetime: "2024-01-01 01:00:00", PredictedEnergy: 2},
	}}
	app := newApp(p, nil)

	for _, path := range []string{"/predict", "/api/v1/predict"} {
		resp := postPredict(t, app, path, validBody)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)

		var got []map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		require.Len(t, got, 2)
		assert.Equal(t, "2024-01-01 00:00:00", got[0]["datetime"])
		assert.Equal(t, 1.0, got[0]["predicted_energy"])
	}

	require.NotNil(t, p.got)
	assert.Equal(t, weather.ModeWind, p.got.Mode)
	assert.Equal(t, "Europe/Berlin", p.got.Location.String())
	assert.Equal(t, civil.DateTime{Date: civil.Date{Year: 2024, Month: time.January, Day: 1}, Time: civil.Time{Hour: 1}}, p.got.End)
	assert.Equal(t, 13.41, p.got.Coordinate.Longitude)
}

func TestPredict_EmptyResultIsArray(t *testing.T) {
	app := newApp(&stubPredictor{records: []energy.PredictionRecord{}}, nil)

	resp := postPredict(t, app, "/predict", validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestPredict_RFC3339DatesUseRequestTimezone(t *testing.T) {
	p := &stubPredictor{records: []energy.PredictionRecord{}}
	app := newApp(p, nil)

	body := `{"mode":"solar","dates":{"start":"2024-01-01T23:00:00Z","end":"2024-01-02"},
		"location":{"latitude":0,"longitude":0},"timezone":"Europe/Berlin"}`
	resp := postPredict(t, app, "/predict", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, civil.DateTime{Date: civil.Date{Year: 2024, Month: time.January, Day: 2}}, p.got.Start)
	assert.Equal(t, civil.DateTime{Date: civil.Date{Year: 2024, Month: time.January, Day: 2}}, p.got.End)
}

func TestPredict_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown mode", `{"mode":"tidal","dates":{"start":"2024-01-01T00:00:00","end":"2024-01-01T00:00:00"},"location":{"latitude":1,"longitude":1},"timezone":"UTC"}`},
		{"missing dates", `{"mode":"wind","location":{"latitude":1,"longitude":1},"timezone":"UTC"}`},
		{"missing latitude", `{"mode":"wind","dates":{"start":"2024-01-01T00:00:00","end":"2024-01-01T00:00:00"},"location":{"longitude":1},"timezone":"UTC"}`},
		{"latitude out of range", `{"mode":"wind","dates":{"start":"2024-01-01T00:00:00","end":"2024-01-01T00:00:00"},"location":{"latitude":120,"longitude":1},"timezone":"UTC"}`},
		{"bad timezone", `{"mode":"wind","dates":{"start":"2024-01-01T00:00:00","end":"2024-01-01T00:00:00"},"location":{"latitude":1,"longitude":1},"timezone":"Mars/Olympus"}`},
		{"bad date", `{"mode":"wind","dates":{"start":"yesterday","end":"2024-01-01T00:00:00"},"location":{"latitude":1,"longitude":1},"timezone":"UTC"}`},
		{"start after end", `{"mode":"wind","dates":{"start":"2024-01-02T00:00:00","end":"2024-01-01T00:00:00"},"location":{"latitude":1,"longitude":1},"timezone":"UTC"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &stubPredictor{}
			app := newApp(p, nil)

			resp := postPredict(t, app, "/predict", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Nil(t, p.got)

			var got map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, true, got["error"])
		})
	}
}

func TestPredict_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: missing", weather.ErrMissingVariable), http.StatusBadGateway},
		{fmt.Errorf("%w: 500", weather.ErrProviderFetch), http.StatusBadGateway},
		{fmt.Errorf("%w: %w", weather.ErrProviderFetch, common.ErrCircuitOpen), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: down", inference.ErrModelUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: wind_gusts_10m has no value at 2024-05-01 06:00:00", weather.ErrIncompleteData), http.StatusBadGateway},
		{fmt.Errorf("%w: sequence 0 step 3 feature 1 is NaN", inference.ErrNonFiniteInput), http.StatusBadGateway},
		{inference.ErrShapeMismatch, http.StatusInternalServerError},
		{fmt.Errorf("%w: wind", energy.ErrUnknownMode), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			app := newApp(&stubPredictor{err: tt.err}, nil)
			resp := postPredict(t, app, "/predict", validBody)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestProbes(t *testing.T) {
	probes := store.NewMemoryStore(10, 0)
	app := newApp(&stubPredictor{}, probes)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/probes/berlin", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	probes.Save(store.ProbeResult{Site: "berlin", Mode: weather.ModeWind, RanAt: time.Now(), Records: 24})

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/probes/berlin", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var one store.ProbeResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&one))
	assert.Equal(t, 24, one.Records)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/probes", nil))
	require.NoError(t, err)
	var all []store.ProbeResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	assert.Len(t, all, 1)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/probes/berlin?history=true", nil))
	require.NoError(t, err)
	var history []store.ProbeResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	assert.Len(t, history, 1)
}
