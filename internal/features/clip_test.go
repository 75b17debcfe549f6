package features

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

func TestClip_Bounds(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	tbl := hourlyTable(start, []string{"a"}, 24*20, func(i, _ int) float64 { return float64(i) })

	rng, err := weather.NewDateRange(civil.Date{Year: 2024, Month: 3, Day: 10}, civil.Date{Year: 2024, Month: 3, Day: 12})
	require.NoError(t, err)

	out := Clip(tbl, rng, loc)

	require.NotZero(t, out.Len())
	lo := time.Date(2024, 3, 9, 0, 0, 0, 0, loc)
	hi := time.Date(2024, 3, 13, 0, 0, 0, 0, loc)
	assert.True(t, lo.Equal(out.Index[0]), "first row %s", out.Index[0])
	assert.True(t, out.Index[out.Len()-1].Before(hi))
	assert.True(t, hi.Add(-time.Hour).Equal(out.Index[out.Len()-1]))
	// 2024-03-10 is 23 hours long in New York.
	assert.Equal(t, 24+23+24+24, out.Len())
}

func TestClip_EmptyTable(t *testing.T) {
	rng, err := weather.NewDateRange(civil.Date{Year: 2024, Month: 3, Day: 10}, civil.Date{Year: 2024, Month: 3, Day: 10})
	require.NoError(t, err)
	out := Clip(weather.Table{Columns: []string{"a"}}, rng, nil)
	assert.Zero(t, out.Len())
	assert.Equal(t, []string{"a"}, out.Columns)
}
