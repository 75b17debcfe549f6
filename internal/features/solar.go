// Package features derives model inputs from normalized weather tables and
// shapes them into lag windows.
package features

import (
	"fmt"
	"math"
	"slices"

	"github.com/i474232898/weather-energy-forecast/internal/common"
	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

const (
	// DownsampleSize is the number of hourly rows folded into one solar row.
	DownsampleSize = 3
	// TemperatureBlock is the number of solar rows sharing one temperature mean.
	TemperatureBlock = 8

	skyCoverBins   = 4
	visibilityBins = 10
)

// NoonReference picks which coordinate feeds the solar-noon meridian.
type NoonReference string

const (
	// NoonFromLatitude reproduces the binding the solar model was trained
	// with: the site latitude is passed as the meridian.
	NoonFromLatitude NoonReference = "latitude"
	// NoonFromLongitude uses the geometrically correct site longitude.
	NoonFromLongitude NoonReference = "longitude"
)

// Valid reports whether r is a known reference.
func (r NoonReference) Valid() bool {
	return r == NoonFromLatitude || r == NoonFromLongitude
}

// SolarOptions tune solar feature derivation.
type SolarOptions struct {
	NoonReference NoonReference
}

func (o SolarOptions) meridian(c weather.GeoCoordinate) float64 {
	if o.NoonReference == NoonFromLongitude {
		return c.Longitude
	}
	return c.Latitude
}

// DeriveSolar turns an hourly solar table (weather.SolarColumns) into the
// solar model's features, in weather.SolarFeatureOrder:
//
//  1. 3-row positional downsampling by mean, indexed at each block's first row
//  2. Sky Cover cut into 4 and Visibility into 10 equal-width bins
//  3. block-constant mean of the day temperature over blocks of 8 rows
//  4. distance to solar noon for every row timestamp
func DeriveSolar(t weather.Table, site weather.GeoCoordinate, opts SolarOptions) (weather.Table, error) {
	for _, col := range []string{weather.ColTemperatureDay, weather.ColSkyCover, weather.ColVisibility} {
		if t.ColumnIndex(col) < 0 {
			return weather.Table{}, fmt.Errorf("derive solar: %w: column %q", weather.ErrMissingVariable, col)
		}
	}

	out := Downsample(t, DownsampleSize)

	sky, _ := out.Column(weather.ColSkyCover)
	vis, _ := out.Column(weather.ColVisibility)
	temp, _ := out.Column(weather.ColTemperatureDay)

	distance := make([]float64, out.Len())
	meridian := opts.meridian(site)
	for i, ts := range out.Index {
		distance[i] = DistanceToSolarNoon(ts, meridian)
	}

	var err error
	for _, c := range []struct {
		name   string
		values []float64
	}{
		{weather.ColSkyCover, Cut(sky, skyCoverBins)},
		{weather.ColVisibility, Cut(vis, visibilityBins)},
		{weather.ColTemperatureDay, BlockMean(temp, TemperatureBlock)},
		{weather.ColSolarNoonDistance, distance},
	} {
		if out, err = out.WithColumn(c.name, c.values); err != nil {
			return weather.Table{}, fmt.Errorf("derive solar: %w", err)
		}
	}

	return out.Select(weather.SolarFeatureOrder)
}

// Downsample folds consecutive positional blocks of size rows into their
// column-wise NaN-skipping mean, indexed by the block's first timestamp. A
// trailing partial block is kept and averaged over the rows it has.
func Downsample(t weather.Table, size int) weather.Table {
	out := weather.Table{Columns: slices.Clone(t.Columns)}
	if size <= 0 {
		size = 1
	}
	for start := 0; start < t.Len(); start += size {
		end := min(start+size, t.Len())
		row := make([]float64, len(t.Columns))
		cell := make([]float64, 0, size)
		for j := range t.Columns {
			cell = cell[:0]
			for i := start; i < end; i++ {
				cell = append(cell, t.Rows[i][j])
			}
			row[j] = common.NaNMean(cell)
		}
		out.Index = append(out.Index, t.Index[start])
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Cut assigns each value an ordinal label 1..bins of equal-width,
// right-closed intervals spanning the observed min and max. The lowest edge
// is lowered by 0.1% of the span so the minimum falls in bin 1; a constant
// series is widened by 0.1% on both sides. NaN values stay NaN.
func Cut(values []float64, bins int) []float64 {
	out := make([]float64, len(values))
	lo, hi, ok := common.NaNMinMax(values)
	if !ok || bins <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	var edges []float64
	if lo == hi {
		adj := 0.001
		if lo != 0 {
			adj = 0.001 * math.Abs(lo)
		}
		edges = linspace(lo-adj, hi+adj, bins+1)
	} else {
		edges = linspace(lo, hi, bins+1)
		edges[0] -= (hi - lo) * 0.001
	}

	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		// First edge >= v; label k covers (edges[k-1], edges[k]].
		k, _ := slices.BinarySearch(edges, v)
		if k == 0 || k == len(edges) {
			out[i] = math.NaN()
			continue
		}
		out[i] = float64(k)
	}
	return out
}

// BlockMean replaces every value with the NaN-skipping mean of its positional
// block of size values; the trailing partial block uses its own mean.
func BlockMean(values []float64, size int) []float64 {
	out := make([]float64, len(values))
	if size <= 0 {
		size = 1
	}
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		m := common.NaNMean(values[start:end])
		for i := start; i < end; i++ {
			out[i] = m
		}
	}
	return out
}

// linspace mirrors numpy.linspace with an exact final point.
func linspace(start, stop float64, num int) []float64 {
	out := make([]float64, num)
	if num == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}
