package httpapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-energy-forecast/internal/common"
	"github.com/i474232898/weather-energy-forecast/internal/energy"
	"github.com/i474232898/weather-energy-forecast/internal/inference"
	"github.com/i474232898/weather-energy-forecast/internal/store"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

var validate = validator.New()

// Predictor runs one prediction request.
type Predictor interface {
	Predict(ctx context.Context, req energy.Request) ([]energy.PredictionRecord, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. probes may be
// nil, in which case the probe endpoints are not registered.
func RegisterRoutes(app *fiber.App, predictor Predictor, probes *store.MemoryStore, timeout time.Duration) {
	predict := predictHandler(predictor, timeout)
	app.Post("/predict", predict)

	v1 := app.Group("/api/v1")
	v1.Post("/predict", predict)

	if probes == nil {
		return
	}

	v1.Get("/probes", func(c *fiber.Ctx) error {
		return c.JSON(probes.LatestAll())
	})

	v1.Get("/probes/:site", func(c *fiber.Ctx) error {
		site := c.Params("site")
		if c.QueryBool("history") {
			results, err := probes.History(site)
			if err != nil {
				return probeError(err)
			}
			return c.JSON(results)
		}
		result, err := probes.Latest(site)
		if err != nil {
			return probeError(err)
		}
		return c.JSON(result)
	})
}

func probeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "no probe results for requested site")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read probe results")
}

func predictHandler(predictor Predictor, timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body predictBody
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid JSON body")
		}
		if err := validate.Struct(body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		req, err := body.toRequest()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx := c.UserContext()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		records, err := predictor.Predict(ctx, req)
		if err != nil {
			return fiber.NewError(statusFor(err), err.Error())
		}
		return c.JSON(records)
	}
}

// predictBody is the JSON body of the predict endpoint.
type predictBody struct {
	Mode  string `json:"mode" validate:"required,oneof=wind solar"`
	Dates struct {
		Start string `json:"start" validate:"required"`
		End   string `json:"end" validate:"required"`
	} `json:"dates"`
	Location struct {
		Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
		Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	} `json:"location"`
	Timezone string `json:"timezone" validate:"required,timezone"`
}

func (b predictBody) toRequest() (energy.Request, error) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return energy.Request{}, fmt.Errorf("invalid timezone %q", b.Timezone)
	}
	start, err := parseLocalDateTime(b.Dates.Start, loc)
	if err != nil {
		return energy.Request{}, fmt.Errorf("invalid start date: %w", err)
	}
	end, err := parseLocalDateTime(b.Dates.End, loc)
	if err != nil {
		return energy.Request{}, fmt.Errorf("invalid end date: %w", err)
	}
	if start.After(end) {
		return energy.Request{}, errors.New("start date must not be after end date")
	}

	return energy.Request{
		Mode:  weather.Mode(b.Mode),
		Start: start,
		End:   end,
		Coordinate: weather.GeoCoordinate{
			Latitude:  *b.Location.Latitude,
			Longitude: *b.Location.Longitude,
		},
		Location: loc,
	}, nil
}

// parseLocalDateTime accepts a local ISO-8601 datetime, a bare date, or an
// RFC3339 timestamp which is converted to the wall clock in loc.
func parseLocalDateTime(s string, loc *time.Location) (civil.DateTime, error) {
	if dt, err := civil.ParseDateTime(s); err == nil {
		return dt, nil
	}
	if d, err := civil.ParseDate(s); err == nil {
		return civil.DateTime{Date: d}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return civil.DateTimeOf(ts.In(loc)), nil
	}
	return civil.DateTime{}, fmt.Errorf("%q is not an ISO-8601 datetime", s)
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, energy.ErrUnknownMode), errors.Is(err, weather.ErrInvalidRange):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrCircuitOpen):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, inference.ErrShapeMismatch):
		return fiber.StatusInternalServerError
	case errors.Is(err, weather.ErrMissingVariable),
		errors.Is(err, weather.ErrMalformedResponse),
		errors.Is(err, weather.ErrProviderFetch),
		errors.Is(err, weather.ErrIncompleteData),
		errors.Is(err, inference.ErrNonFiniteInput),
		errors.Is(err, inference.ErrModelUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {error, message} with the status of a
// *fiber.Error, or 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}
