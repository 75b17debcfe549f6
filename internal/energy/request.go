// Package energy runs the weather-to-prediction pipeline for one request.
package energy

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

// ErrUnknownMode is returned for a mode with no configured pipeline.
var ErrUnknownMode = errors.New("unknown prediction mode")

// Request is a validated prediction request. Start and End are wall-clock
// datetimes in Location.
type Request struct {
	Mode       weather.Mode
	Start      civil.DateTime
	End        civil.DateTime
	Coordinate weather.GeoCoordinate
	Location   *time.Location
}

// PredictionRecord is one timestamped model output.
type PredictionRecord struct {
	Datetime        string  `json:"datetime"`
	PredictedEnergy float64 `json:"predicted_energy"`
}
