package energy

import (
	"time"

	"cloud.google.com/go/civil"
)

// DatetimeLayout formats PredictionRecord.Datetime.
const DatetimeLayout = "2006-01-02 15:04:05"

// Timestamps generates start, start+freq, ... up to and including end + 1 day.
// The sequence is built on naive wall-clock datetimes.
func Timestamps(start, end civil.DateTime, freq time.Duration) []civil.DateTime {
	if freq <= 0 {
		return nil
	}
	from := start.In(time.UTC)
	to := end.In(time.UTC).AddDate(0, 0, 1)

	var out []civil.DateTime
	for ts := from; !ts.After(to); ts = ts.Add(freq) {
		out = append(out, civil.DateTimeOf(ts))
	}
	return out
}

// BuildResponse pairs predictions with generated timestamps position by
// position, stopping at the shorter of the two. Each record takes the first
// scalar of its prediction; predictions without one are skipped.
func BuildResponse(predictions [][]float64, start, end civil.DateTime, freq time.Duration) []PredictionRecord {
	stamps := Timestamps(start, end, freq)
	n := min(len(stamps), len(predictions))

	out := make([]PredictionRecord, 0, n)
	for i := 0; i < n; i++ {
		if len(predictions[i]) == 0 {
			continue
		}
		out = append(out, PredictionRecord{
			Datetime:        stamps[i].In(time.UTC).Format(DatetimeLayout),
			PredictedEnergy: predictions[i][0],
		})
	}
	return out
}
