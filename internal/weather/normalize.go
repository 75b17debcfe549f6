package weather

import (
	"fmt"
	"time"
)

// ColumnSpec maps a provider variable, identified by kind and altitude, to a
// table column name.
type ColumnSpec struct {
	Name     string
	Kind     string
	Altitude int
}

// Normalize turns a raw provider block into a table localized to loc with one
// column per spec, in spec order. Timestamps cover [raw.Start, raw.End) every
// raw.Interval; raw timestamps are UTC.
func Normalize(raw RawHourly, loc *time.Location, specs []ColumnSpec) (Table, error) {
	if loc == nil {
		loc = time.UTC
	}
	if raw.Interval <= 0 {
		return Table{}, fmt.Errorf("%w: non-positive interval %s", ErrMalformedResponse, raw.Interval)
	}

	var index []time.Time
	for ts := raw.Start.UTC(); ts.Before(raw.End); ts = ts.Add(raw.Interval) {
		index = append(index, ts.In(loc))
	}

	series := make([][]float64, len(specs))
	for k, spec := range specs {
		v, ok := findVariable(raw.Variables, spec.Kind, spec.Altitude)
		if !ok {
			return Table{}, fmt.Errorf("%w: %s at %dm (column %q)", ErrMissingVariable, spec.Kind, spec.Altitude, spec.Name)
		}
		if len(v.Values) != len(index) {
			return Table{}, fmt.Errorf("%w: %s has %d values for %d timestamps",
				ErrMalformedResponse, v.Name, len(v.Values), len(index))
		}
		series[k] = v.Values
	}

	cols := make([]string, len(specs))
	for k, spec := range specs {
		cols[k] = spec.Name
	}

	rows := make([][]float64, len(index))
	for i := range index {
		row := make([]float64, len(specs))
		for k := range specs {
			row[k] = series[k][i]
		}
		rows[i] = row
	}

	return Table{Index: index, Columns: cols, Rows: rows}, nil
}

func findVariable(vars []RawVariable, kind string, altitude int) (RawVariable, bool) {
	for _, v := range vars {
		if v.Kind == kind && v.Altitude == altitude {
			return v, true
		}
	}
	return RawVariable{}, false
}
