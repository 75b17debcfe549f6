package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-co-op/gocron"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-energy-forecast/internal/energy"
	"github.com/i474232898/weather-energy-forecast/internal/store"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

// Predictor runs one prediction request.
type Predictor interface {
	Predict(ctx context.Context, req energy.Request) ([]energy.PredictionRecord, error)
}

// ProbeRecorder observes probe outcomes.
type ProbeRecorder interface {
	ObserveProbe(site string, err error)
}

// Config tunes the probe job.
type Config struct {
	Interval    time.Duration
	Concurrency int
	Timeout     time.Duration
}

// Scheduler periodically runs the prediction pipeline for configured sites
// and records each outcome in the store.
type Scheduler struct {
	scheduler *gocron.Scheduler
	predictor Predictor
	store     *store.MemoryStore
	recorder  ProbeRecorder
	logger    *slog.Logger
	sites     []weather.Site
	cfg       Config
	now       func() time.Time
}

// New creates a new Scheduler. recorder may be nil.
func New(sites []weather.Site, cfg Config, predictor Predictor, st *store.MemoryStore, recorder ProbeRecorder, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		predictor: predictor,
		store:     st,
		recorder:  recorder,
		logger:    logger.With("component", "scheduler"),
		sites:     sites,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if len(s.sites) == 0 {
		s.logger.Info("no probe sites configured; nothing to schedule")
		return nil
	}

	minutes := int(s.cfg.Interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return fmt.Errorf("schedule probe job: %w", err)
	}

	s.scheduler.StartAsync()
	s.logger.Info("probe scheduler started", "sites", len(s.sites), "interval_minutes", minutes)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunOnce probes every site, at most cfg.Concurrency at a time, and waits for
// all of them. Individual failures are stored, never returned.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Info("running probe job", "sites", len(s.sites))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for _, site := range s.sites {
		g.Go(func() error {
			s.store.Save(s.probe(ctx, site))
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("completed probe job")
}

func (s *Scheduler) probe(ctx context.Context, site weather.Site) store.ProbeResult {
	started := s.now()
	result := store.ProbeResult{Site: site.Name, Mode: site.Mode, RanAt: started.UTC()}

	records, err := s.predict(ctx, site, started)
	result.Duration = time.Since(started)
	if s.recorder != nil {
		s.recorder.ObserveProbe(site.Key(), err)
	}
	if err != nil {
		s.logger.Warn("probe failed", "site", site.Name, "mode", site.Mode, "error", err)
		result.Error = err.Error()
		return result
	}

	result.Records = len(records)
	if len(records) > 0 {
		first, last := records[0], records[len(records)-1]
		result.First, result.Last = &first, &last
	}
	return result
}

// predict asks for today and tomorrow in the site's timezone.
func (s *Scheduler) predict(ctx context.Context, site weather.Site, now time.Time) ([]energy.PredictionRecord, error) {
	loc, err := time.LoadLocation(site.Timezone)
	if err != nil {
		return nil, fmt.Errorf("site %s: load timezone: %w", site.Name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	today := civil.DateOf(now.In(loc))
	return s.predictor.Predict(ctx, energy.Request{
		Mode:       site.Mode,
		Start:      civil.DateTime{Date: today},
		End:        civil.DateTime{Date: today.AddDays(1)},
		Coordinate: site.Coordinate,
		Location:   loc,
	})
}
