package features

import (
	"time"

	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

// Clip keeps the rows with from <= t < to, where from and to are the local
// midnights (in loc) bounding rng's window [Start-1d, End+1d).
func Clip(t weather.Table, rng weather.DateRange, loc *time.Location) weather.Table {
	if loc == nil {
		loc = time.UTC
	}
	fromDate, toDate := rng.Window()
	from, to := fromDate.In(loc), toDate.In(loc)
	return t.Filter(func(ts time.Time) bool {
		return !ts.Before(from) && ts.Before(to)
	})
}
