package weather

import (
	"context"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// VariableSet is a named list of hourly provider variables.
type VariableSet struct {
	Name            string
	Hourly          []string
	TemperatureUnit string // empty means the provider default (celsius)
}

// ArchiveRange asks for historical data between two dates, inclusive.
type ArchiveRange struct {
	Start civil.Date
	End   civil.Date
}

// ForecastWindow asks for a rolling window around today.
type ForecastWindow struct {
	PastDays     int
	ForecastDays int
}

// FetchRequest describes one outbound provider call. Exactly one of Archive
// and Forecast is set.
type FetchRequest struct {
	Coordinate GeoCoordinate
	Timezone   string
	Archive    *ArchiveRange
	Forecast   *ForecastWindow
	Variables  VariableSet
}

// RawVariable is one hourly series as delivered by the provider.
type RawVariable struct {
	Name     string
	Kind     string
	Altitude int
	Values   []float64
}

// RawHourly is a provider's hourly block: values for [Start, End) every Interval.
type RawHourly struct {
	Start     time.Time
	End       time.Time
	Interval  time.Duration
	Variables []RawVariable
}

// Fetcher abstracts the upstream weather provider.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, req FetchRequest) (RawHourly, error)
}

// kindAliases maps legacy provider spellings to the canonical variable kind.
var kindAliases = map[string]string{
	"dewpoint":         "dew_point",
	"windspeed":        "wind_speed",
	"winddirection":    "wind_direction",
	"windgusts":        "wind_gusts",
	"relativehumidity": "relative_humidity",
	"cloudcover":       "cloud_cover",
}

// ParseVariableName splits a provider variable name such as
// "wind_speed_100m" into its kind ("wind_speed") and altitude in metres (100).
// Names without an altitude suffix report altitude 0.
func ParseVariableName(name string) (kind string, altitude int) {
	kind = name
	if i := strings.LastIndexByte(name, '_'); i > 0 {
		suffix := name[i+1:]
		if strings.HasSuffix(suffix, "m") {
			if n, err := strconv.Atoi(strings.TrimSuffix(suffix, "m")); err == nil {
				kind, altitude = name[:i], n
			}
		}
	}
	if alias, ok := kindAliases[kind]; ok {
		kind = alias
	}
	return kind, altitude
}
