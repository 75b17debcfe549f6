package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-energy-forecast/internal/api/http"
	"github.com/i474232898/weather-energy-forecast/internal/config"
	"github.com/i474232898/weather-energy-forecast/internal/energy"
	"github.com/i474232898/weather-energy-forecast/internal/features"
	"github.com/i474232898/weather-energy-forecast/internal/inference"
	"github.com/i474232898/weather-energy-forecast/internal/metrics"
	"github.com/i474232898/weather-energy-forecast/internal/scheduler"
	"github.com/i474232898/weather-energy-forecast/internal/store"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
	"github.com/i474232898/weather-energy-forecast/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	recorder := metrics.NewRecorder()

	// Shared HTTP client for outbound provider and model calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Open-Meteo with resilience (circuit breaker, optional retries).
	provider := providers.NewOpenMeteoProvider(httpClient, providers.OpenMeteoConfig{
		ForecastURL: cfg.ForecastURL,
		ArchiveURL:  cfg.ArchiveURL,
		MaxRetries:  cfg.WeatherMaxRetries,
		Recorder:    recorder,
	})
	loader := weather.NewService(provider, log)

	pipelines, err := loadPipelines(cfg, httpClient, log)
	if err != nil {
		log.Error("failed to load models", "error", err)
		os.Exit(1)
	}

	// Core service running the prediction pipeline.
	service := energy.NewService(loader, pipelines,
		energy.WithSolarOptions(features.SolarOptions{NoonReference: features.NoonReference(cfg.SolarNoonReference)}),
		energy.WithRecorder(recorder),
		energy.WithLogger(log),
	)

	// Probe store with configured retention.
	probeStore := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)

	// Scheduler that periodically probes the configured sites.
	sched := scheduler.New(cfg.Sites, scheduler.Config{
		Interval:    cfg.ProbeInterval,
		Concurrency: cfg.ProbeConcurrency,
		Timeout:     cfg.RequestTimeout,
	}, service, probeStore, recorder, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "energy-forecast",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.RequestTimeout + 5*time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "energy-forecast",
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{})))

	// API routes.
	httpapi.RegisterRoutes(app, service, probeStore, cfg.RequestTimeout)

	go func() {
		log.Info("http server listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// loadPipelines reads both scalers and points each pipeline at its model on
// the model server.
func loadPipelines(cfg *config.AppConfig, client *http.Client, log *slog.Logger) ([]energy.Pipeline, error) {
	windScaler, err := inference.LoadMinMaxScaler(cfg.WindScalerPath)
	if err != nil {
		return nil, err
	}
	solarScaler, err := inference.LoadMinMaxScaler(cfg.SolarScalerPath)
	if err != nil {
		return nil, err
	}

	model := func(name string) *inference.ServingModel {
		return inference.NewServingModel(client, inference.ServingConfig{
			BaseURL:    cfg.ModelServerURL,
			ModelName:  name,
			MaxRetries: cfg.ModelMaxRetries,
			Logger:     log,
		})
	}

	return []energy.Pipeline{
		energy.WindPipeline(windScaler, model(cfg.WindModelName)),
		energy.SolarPipeline(solarScaler, model(cfg.SolarModelName)),
	}, nil
}
