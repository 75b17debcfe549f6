package energy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/i474232898/weather-energy-forecast/internal/features"
	"github.com/i474232898/weather-energy-forecast/internal/inference"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

// Pipeline holds the per-mode constants and the fitted collaborators.
type Pipeline struct {
	Mode      weather.Mode
	Depth     int
	Frequency time.Duration
	Variables weather.VariableSet
	Columns   []weather.ColumnSpec
	Scaler    inference.Scaler
	Model     inference.Model
}

// WindPipeline returns the wind pipeline: hourly rows, 24-step lag windows.
func WindPipeline(scaler inference.Scaler, model inference.Model) Pipeline {
	return Pipeline{
		Mode:      weather.ModeWind,
		Depth:     24,
		Frequency: time.Hour,
		Variables: weather.WindVariables,
		Columns:   weather.WindColumns,
		Scaler:    scaler,
		Model:     model,
	}
}

// SolarPipeline returns the solar pipeline: 3-hourly rows, 8-step lag windows.
func SolarPipeline(scaler inference.Scaler, model inference.Model) Pipeline {
	return Pipeline{
		Mode:      weather.ModeSolar,
		Depth:     8,
		Frequency: 3 * time.Hour,
		Variables: weather.SolarVariables,
		Columns:   weather.SolarColumns,
		Scaler:    scaler,
		Model:     model,
	}
}

// Recorder observes pipeline executions.
type Recorder interface {
	ObserveStage(mode, stage string, d time.Duration)
	ObservePrediction(mode string, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStage(string, string, time.Duration) {}
func (nopRecorder) ObservePrediction(string, error)            {}

// Service runs prediction requests. It holds no request state and is safe
// for concurrent use when its collaborators are.
type Service struct {
	loader    *weather.Service
	pipelines map[weather.Mode]Pipeline
	solar     features.SolarOptions
	now       func() time.Time
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock used to pick data sources.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSolarOptions sets solar feature derivation options.
func WithSolarOptions(opts features.SolarOptions) Option {
	return func(s *Service) { s.solar = opts }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service serving the given pipelines.
func NewService(loader *weather.Service, pipelines []Pipeline, opts ...Option) *Service {
	s := &Service{
		loader:    loader,
		pipelines: make(map[weather.Mode]Pipeline, len(pipelines)),
		solar:     features.SolarOptions{NoonReference: features.NoonFromLatitude},
		now:       time.Now,
		recorder:  nopRecorder{},
		logger:    slog.Default(),
	}
	for _, p := range pipelines {
		s.pipelines[p.Mode] = p
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.solar.NoonReference.Valid() {
		s.solar.NoonReference = features.NoonFromLatitude
	}
	s.logger = s.logger.With("component", "energy-service")
	return s
}

// Predict runs the full pipeline for req: source selection, fetch and
// normalization, solar derivation, clipping, scaling, windowing, inference
// and response building. An empty window yields an empty result.
func (s *Service) Predict(ctx context.Context, req Request) (records []PredictionRecord, err error) {
	p, ok := s.pipelines[req.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	mode := string(req.Mode)
	defer func() { s.recorder.ObservePrediction(mode, err) }()

	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	rng, err := weather.NewDateRange(req.Start.Date, req.End.Date)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("run_id", uuid.NewString(), "mode", mode)

	today := civil.DateOf(s.now().In(loc))
	plan := weather.SelectSource(rng, today)
	logger.Debug("selected data source",
		"source", plan.Kind.String(), "start", rng.Start.String(), "end", rng.End.String(), "today", today.String())

	var block weather.BlockFunc
	if req.Mode == weather.ModeSolar {
		block = func(t weather.Table) (weather.Table, error) {
			defer s.stage(mode, "derive")()
			return features.DeriveSolar(t, req.Coordinate, s.solar)
		}
	}

	done := s.stage(mode, "load")
	table, err := s.loader.Load(ctx, plan, weather.Query{
		Coordinate: req.Coordinate,
		Location:   loc,
		Variables:  p.Variables,
		Columns:    p.Columns,
	}, block)
	done()
	if err != nil {
		return nil, err
	}

	table = features.Clip(table, rng, loc)

	done = s.stage(mode, "scale")
	scaled, err := p.Scaler.Transform(table.Columns, table.Rows)
	done()
	if err != nil {
		return nil, fmt.Errorf("scale %s features: %w", mode, err)
	}
	if table, err = table.WithRows(scaled); err != nil {
		return nil, fmt.Errorf("scale %s features: %w", mode, err)
	}

	tensor := features.Window(table, p.Depth)
	n, depth, width := tensor.Shape()
	logger.Debug("built lag windows", "rows", table.Len(), "sequences", n, "depth", depth, "features", width)
	if n == 0 {
		return []PredictionRecord{}, nil
	}
	// Windows read every row but the last.
	if i, j, found := table.FirstNonFinite(n + depth - 1); found {
		return nil, fmt.Errorf("%w: %s has no value at %s",
			weather.ErrIncompleteData, table.Columns[j], table.Index[i].In(loc).Format(time.DateTime))
	}

	done = s.stage(mode, "predict")
	predictions, err := p.Model.Predict(ctx, tensor)
	done()
	if err != nil {
		return nil, err
	}

	records = BuildResponse(predictions, req.Start, req.End, p.Frequency)
	logger.Info("prediction complete", "source", plan.Kind.String(), "records", len(records))
	return records, nil
}

func (s *Service) stage(mode, name string) func() {
	started := time.Now()
	return func() { s.recorder.ObserveStage(mode, name, time.Since(started)) }
}
