package weather

import (
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
)

// Mode selects which energy model a request is served by.
type Mode string

const (
	ModeWind  Mode = "wind"
	ModeSolar Mode = "solar"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeWind || m == ModeSolar
}

// GeoCoordinate is a point on the globe in decimal degrees.
type GeoCoordinate struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"gte=-180,lte=180"`
}

// DateRange is an inclusive range of calendar dates in the caller's timezone.
type DateRange struct {
	Start civil.Date
	End   civil.Date
}

// NewDateRange builds a DateRange, rejecting ranges that end before they start.
func NewDateRange(start, end civil.Date) (DateRange, error) {
	if !start.IsValid() || !end.IsValid() {
		return DateRange{}, fmt.Errorf("%w: invalid calendar date", ErrInvalidRange)
	}
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: end %s is before start %s", ErrInvalidRange, end, start)
	}
	return DateRange{Start: start, End: end}, nil
}

// Window returns the half-open window [Start-1d, End+1d) that downstream
// stages keep. The extra leading day gives lag windows their context.
func (r DateRange) Window() (from, to civil.Date) {
	return r.Start.AddDays(-1), r.End.AddDays(1)
}

// Column names of the normalized and derived tables. The wind names and the
// solar feature names are the names the scalers and models were fitted with.
const (
	ColTemperature2m      = "temperature_2m"
	ColRelativeHumidity2m = "relativehumidity_2m"
	ColDewPoint2m         = "dewpoint_2m"
	ColWindSpeed100m      = "windspeed_100m"
	ColWindDirection100m  = "winddirection_100m"
	ColWindGusts10m       = "windgusts_10m"

	ColSolarNoonDistance = "Distance to Solar Noon"
	ColTemperatureDay    = "Average Temperature (Day)"
	ColWindSpeedPeriod   = "Average Wind Speed (Period)"
	ColRelativeHumidity  = "Relative Humidity"
	ColSkyCover          = "Sky Cover"
	ColVisibility        = "Visibility"
)

// WindColumns selects the wind model inputs in training order.
var WindColumns = []ColumnSpec{
	{Name: ColTemperature2m, Kind: "temperature", Altitude: 2},
	{Name: ColRelativeHumidity2m, Kind: "relative_humidity", Altitude: 2},
	{Name: ColDewPoint2m, Kind: "dew_point", Altitude: 2},
	{Name: ColWindSpeed100m, Kind: "wind_speed", Altitude: 100},
	{Name: ColWindDirection100m, Kind: "wind_direction", Altitude: 100},
	{Name: ColWindGusts10m, Kind: "wind_gusts", Altitude: 10},
}

// SolarColumns selects the raw solar inputs before feature derivation.
var SolarColumns = []ColumnSpec{
	{Name: ColTemperatureDay, Kind: "temperature", Altitude: 2},
	{Name: ColRelativeHumidity, Kind: "relative_humidity", Altitude: 2},
	{Name: ColWindSpeedPeriod, Kind: "wind_speed", Altitude: 100},
	{Name: ColVisibility, Kind: "visibility", Altitude: 0},
	{Name: ColSkyCover, Kind: "cloud_cover", Altitude: 0},
}

// SolarFeatureOrder is the column order the solar model expects.
var SolarFeatureOrder = []string{
	ColSolarNoonDistance,
	ColTemperatureDay,
	ColWindSpeedPeriod,
	ColRelativeHumidity,
	ColSkyCover,
	ColVisibility,
}

// Variable sets requested from the provider.
var (
	WindVariables = VariableSet{
		Name: "wind",
		Hourly: []string{
			"temperature_2m", "wind_speed_100m", "relative_humidity_2m",
			"dew_point_2m", "wind_direction_100m", "wind_gusts_10m",
		},
	}
	SolarVariables = VariableSet{
		Name: "solar",
		Hourly: []string{
			"temperature_2m", "wind_speed_100m", "relative_humidity_2m",
			"visibility", "cloud_cover",
		},
		TemperatureUnit: "fahrenheit",
	}
)

// Site is a named location probed on a schedule.
type Site struct {
	Name       string        `json:"name" yaml:"name" validate:"required"`
	Mode       Mode          `json:"mode" yaml:"mode" validate:"required,oneof=wind solar"`
	Coordinate GeoCoordinate `json:"location" yaml:"location"`
	Timezone   string        `json:"timezone" yaml:"timezone" validate:"required,timezone"`
}

// Key returns a normalized identifier for the site.
func (s Site) Key() string {
	return strings.ToLower(strings.TrimSpace(s.Name))
}
