package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// BlockFunc transforms one normalized provider block before blocks are
// concatenated. Solar requests derive their features per block.
type BlockFunc func(Table) (Table, error)

// Query carries the request-scoped parameters of a load.
type Query struct {
	Coordinate GeoCoordinate
	Location   *time.Location
	Variables  VariableSet
	Columns    []ColumnSpec
}

// Service executes fetch plans against a provider and normalizes the result.
type Service struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// NewService creates a new Service.
func NewService(fetcher Fetcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher: fetcher,
		logger:  logger.With("component", "weather-service"),
	}
}

// Load fetches every source named by plan, normalizes each block, applies
// block (when non-nil) and concatenates the results archive first. Fetches
// run one after another; a failure aborts the load with no partial result.
func (s *Service) Load(ctx context.Context, plan FetchPlan, q Query, block BlockFunc) (Table, error) {
	if s.fetcher == nil {
		return Table{}, fmt.Errorf("%w: no weather provider configured", ErrProviderFetch)
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	var requests []FetchRequest
	if plan.Archive != nil {
		requests = append(requests, FetchRequest{
			Coordinate: q.Coordinate,
			Timezone:   loc.String(),
			Archive:    plan.Archive,
			Variables:  q.Variables,
		})
	}
	if plan.Forecast != nil {
		requests = append(requests, FetchRequest{
			Coordinate: q.Coordinate,
			Timezone:   loc.String(),
			Forecast:   plan.Forecast,
			Variables:  q.Variables,
		})
	}

	blocks := make([]Table, 0, len(requests))
	for _, req := range requests {
		raw, err := s.fetcher.Fetch(ctx, req)
		if err != nil {
			s.logger.Warn("provider fetch failed",
				"provider", s.fetcher.Name(), "source", plan.Kind.String(), "error", err)
			return Table{}, err
		}

		t, err := Normalize(raw, loc, q.Columns)
		if err != nil {
			return Table{}, err
		}
		if block != nil {
			if t, err = block(t); err != nil {
				return Table{}, err
			}
		}
		s.logger.Debug("normalized provider block",
			"provider", s.fetcher.Name(), "variables", q.Variables.Name, "rows", t.Len())
		blocks = append(blocks, t)
	}

	if len(blocks) == 0 {
		return Table{Columns: columnNames(q.Columns)}, nil
	}
	return Concat(blocks...)
}

func columnNames(specs []ColumnSpec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}
