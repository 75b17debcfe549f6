package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

type AppConfig struct {
	Port     string `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// HTTPTimeout bounds a single outbound call; RequestTimeout bounds a whole
	// prediction request.
	HTTPTimeout    time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	ForecastURL       string `envconfig:"OPEN_METEO_FORECAST_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"required,url"`
	ArchiveURL        string `envconfig:"OPEN_METEO_ARCHIVE_URL" default:"https://historical-forecast-api.open-meteo.com/v1/forecast" validate:"required,url"`
	WeatherMaxRetries int    `envconfig:"WEATHER_MAX_RETRIES" default:"0" validate:"gte=0,lte=5"`

	ModelServerURL  string `envconfig:"MODEL_SERVER_URL" default:"http://localhost:8501" validate:"required,url"`
	ModelMaxRetries int    `envconfig:"MODEL_MAX_RETRIES" default:"0" validate:"gte=0,lte=5"`
	WindModelName   string `envconfig:"WIND_MODEL_NAME" default:"wind" validate:"required"`
	SolarModelName  string `envconfig:"SOLAR_MODEL_NAME" default:"solar" validate:"required"`
	WindScalerPath  string `envconfig:"WIND_SCALER_PATH" default:"models/wind_scaler.json" validate:"required"`
	SolarScalerPath string `envconfig:"SOLAR_SCALER_PATH" default:"models/solar_scaler.json" validate:"required"`

	SolarNoonReference string `envconfig:"SOLAR_NOON_REFERENCE" default:"latitude" validate:"oneof=latitude longitude"`

	// Probe scheduling.
	ProbeInterval    time.Duration `envconfig:"PROBE_INTERVAL" default:"15m"`
	ProbeConcurrency int           `envconfig:"PROBE_CONCURRENCY" default:"4" validate:"gte=1"`

	// Probe sites come from SITES_FILE when set, otherwise from the parallel
	// comma separated PROBE_SITE_* lists.
	SitesFile      string    `envconfig:"SITES_FILE"`
	SiteNames      []string  `envconfig:"PROBE_SITE_NAMES"`
	SiteModes      []string  `envconfig:"PROBE_SITE_MODES"`
	SiteLatitudes  []float64 `envconfig:"PROBE_SITE_LATITUDES"`
	SiteLongitudes []float64 `envconfig:"PROBE_SITE_LONGITUDES"`
	SiteTimezones  []string  `envconfig:"PROBE_SITE_TIMEZONES"`

	Sites []weather.Site `ignored:"true" validate:"dive"`

	// In-memory probe store retention.
	StoreMaxHistory int           `envconfig:"STORE_MAX_HISTORY" default:"96"` // roughly 24h at 15-minute intervals
	StoreMaxAge     time.Duration `envconfig:"STORE_MAX_AGE" default:"24h"`
}

var validate = validator.New()

// Load reads configuration from the environment (and an optional .env file)
// with sensible defaults, then validates it.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	sites, err := cfg.loadSites()
	if err != nil {
		return nil, err
	}
	cfg.Sites = sites

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type sitesFile struct {
	Sites []weather.Site `yaml:"sites"`
}

func (c *AppConfig) loadSites() ([]weather.Site, error) {
	if c.SitesFile != "" {
		data, err := os.ReadFile(c.SitesFile)
		if err != nil {
			return nil, fmt.Errorf("read SITES_FILE: %w", err)
		}
		var f sitesFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse SITES_FILE: %w", err)
		}
		return f.Sites, nil
	}

	n := len(c.SiteNames)
	if len(c.SiteModes) != n || len(c.SiteLatitudes) != n || len(c.SiteLongitudes) != n || len(c.SiteTimezones) != n {
		return nil, fmt.Errorf("PROBE_SITE_* lists must have the same length")
	}
	var sites []weather.Site
	for i := range c.SiteNames {
		sites = append(sites, weather.Site{
			Name: c.SiteNames[i],
			Mode: weather.Mode(c.SiteModes[i]),
			Coordinate: weather.GeoCoordinate{
				Latitude:  c.SiteLatitudes[i],
				Longitude: c.SiteLongitudes[i],
			},
			Timezone: c.SiteTimezones[i],
		})
	}
	return sites, nil
}
