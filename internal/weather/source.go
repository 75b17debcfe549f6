package weather

import "cloud.google.com/go/civil"

// SourceKind names which provider endpoints a request needs.
type SourceKind int

const (
	SourceForecastOnly SourceKind = iota
	SourceArchiveOnly
	SourceBlended
)

func (k SourceKind) String() string {
	switch k {
	case SourceArchiveOnly:
		return "archive"
	case SourceBlended:
		return "blended"
	default:
		return "forecast"
	}
}

const (
	// ForecastPastDays and ForecastDays bound the rolling forecast window.
	ForecastPastDays = 10
	ForecastDays     = 16

	// archiveHorizonDays is how far back the forecast endpoint is trusted.
	archiveHorizonDays = 10
)

// FetchPlan says what to fetch for a date range and which window to keep.
type FetchPlan struct {
	Kind     SourceKind
	Archive  *ArchiveRange
	Forecast *ForecastWindow
	ClipFrom civil.Date // inclusive
	ClipTo   civil.Date // exclusive
}

// SelectSource decides the fetch plan for rng given today's date in the
// caller's timezone. It is pure; callers supply now explicitly.
func SelectSource(rng DateRange, now civil.Date) FetchPlan {
	from, to := rng.Window()
	plan := FetchPlan{ClipFrom: from, ClipTo: to}
	forecast := &ForecastWindow{PastDays: ForecastPastDays, ForecastDays: ForecastDays}

	switch {
	case now.DaysSince(rng.End) > archiveHorizonDays:
		plan.Kind = SourceArchiveOnly
		plan.Archive = &ArchiveRange{Start: from, End: rng.End}
	case now.DaysSince(rng.Start)-1 > archiveHorizonDays && rng.End.Before(now):
		plan.Kind = SourceBlended
		plan.Archive = &ArchiveRange{Start: from, End: now.AddDays(-(archiveHorizonDays + 1))}
		plan.Forecast = forecast
	default:
		plan.Kind = SourceForecastOnly
		plan.Forecast = forecast
	}
	return plan
}
