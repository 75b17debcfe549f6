package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-energy-forecast/internal/common"
)

// ServingConfig configures a ServingModel.
type ServingConfig struct {
	BaseURL    string // e.g. http://localhost:8501
	ModelName  string
	MaxRetries int
	Logger     *slog.Logger
}

type predictRequest struct {
	Instances [][][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions [][]float64 `json:"predictions"`
	Error       string      `json:"error,omitempty"`
}

// ServingModel calls a TensorFlow Serving compatible REST predict endpoint:
// POST {base}/v1/models/{name}:predict.
type ServingModel struct {
	name     string
	endpoint string
	httpCfg  common.HTTPClientConfig
	circuit  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewServingModel creates a ServingModel. The client timeout bounds each attempt.
func NewServingModel(client *http.Client, cfg ServingConfig) *ServingModel {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ServingModel{
		name:     cfg.ModelName,
		endpoint: fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimSuffix(cfg.BaseURL, "/"), cfg.ModelName),
		httpCfg: common.HTTPClientConfig{
			Client: client,
			Backoff: common.BackoffConfig{
				MaxRetries:      max(cfg.MaxRetries, 0),
				InitialInterval: 250 * time.Millisecond,
				MaxInterval:     2 * time.Second,
			},
		},
		circuit: common.NewBreaker("model-" + cfg.ModelName),
		logger:  logger.With("component", "serving-model", "model", cfg.ModelName),
	}
}

// Predict sends batch to the model server. An empty batch returns an empty
// result without a call.
func (m *ServingModel) Predict(ctx context.Context, batch [][][]float64) ([][]float64, error) {
	if len(batch) == 0 {
		return [][]float64{}, nil
	}

	if err := checkFinite(batch); err != nil {
		return nil, err
	}
	body, err := json.Marshal(predictRequest{Instances: batch})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: encode: %w", ErrModelUnavailable, m.name, err)
	}

	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, m.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	started := time.Now()
	resp, err := common.DoRequestWithResilience(ctx, m.httpCfg, m.circuit, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrModelUnavailable, m.name, err)
	}
	defer resp.Body.Close()

	var payload predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %w", ErrModelUnavailable, m.name, err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", ErrModelUnavailable, m.name, payload.Error)
	}
	if len(payload.Predictions) != len(batch) {
		return nil, fmt.Errorf("%w: %d predictions for %d sequences", ErrShapeMismatch, len(payload.Predictions), len(batch))
	}

	m.logger.Debug("model predicted", "sequences", len(batch), "took", time.Since(started))
	return payload.Predictions, nil
}

func checkFinite(batch [][][]float64) error {
	for i, seq := range batch {
		for k, step := range seq {
			for j, v := range step {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: sequence %d step %d feature %d is %v", ErrNonFiniteInput, i, k, j, v)
				}
			}
		}
	}
	return nil
}
