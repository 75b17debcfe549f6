package weather

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// Table is a time-indexed matrix with named columns. Index[i] labels Rows[i]
// and every row has len(Columns) values. Stages never modify a Table they
// receive; they build a new one.
type Table struct {
	Index   []time.Time
	Columns []string
	Rows    [][]float64
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// FirstNonFinite locates the first NaN or infinite value in the first n rows.
func (t Table) FirstNonFinite(n int) (row, col int, found bool) {
	for i, r := range t.Rows[:min(n, len(t.Rows))] {
		for j, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// ColumnIndex returns the position of the named column or -1.
func (t Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// Column copies the named column out of the table.
func (t Table) Column(name string) ([]float64, bool) {
	j := t.ColumnIndex(name)
	if j < 0 {
		return nil, false
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[j]
	}
	return out, true
}

// WithColumn returns a copy of t where the named column holds values,
// appending the column if it does not exist yet.
func (t Table) WithColumn(name string, values []float64) (Table, error) {
	if len(values) != len(t.Rows) {
		return Table{}, fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(t.Rows))
	}
	j := t.ColumnIndex(name)
	cols := slices.Clone(t.Columns)
	if j < 0 {
		cols = append(cols, name)
	}
	rows := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		r := slices.Clone(row)
		if j < 0 {
			r = append(r, values[i])
		} else {
			r[j] = values[i]
		}
		rows[i] = r
	}
	return Table{Index: slices.Clone(t.Index), Columns: cols, Rows: rows}, nil
}

// Select returns a copy of t restricted to columns, in that order.
func (t Table) Select(columns []string) (Table, error) {
	idx := make([]int, len(columns))
	for k, name := range columns {
		j := t.ColumnIndex(name)
		if j < 0 {
			return Table{}, fmt.Errorf("select: unknown column %q", name)
		}
		idx[k] = j
	}
	rows := make([][]float64, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]float64, len(idx))
		for k, j := range idx {
			r[k] = row[j]
		}
		rows[i] = r
	}
	return Table{Index: slices.Clone(t.Index), Columns: slices.Clone(columns), Rows: rows}, nil
}

// WithRows returns a table sharing t's index and columns with replaced rows.
func (t Table) WithRows(rows [][]float64) (Table, error) {
	if len(rows) != len(t.Index) {
		return Table{}, fmt.Errorf("got %d rows for an index of %d", len(rows), len(t.Index))
	}
	return Table{Index: slices.Clone(t.Index), Columns: slices.Clone(t.Columns), Rows: rows}, nil
}

// Filter keeps the rows whose timestamp satisfies keep.
func (t Table) Filter(keep func(time.Time) bool) Table {
	out := Table{Columns: slices.Clone(t.Columns)}
	for i, ts := range t.Index {
		if keep(ts) {
			out.Index = append(out.Index, ts)
			out.Rows = append(out.Rows, slices.Clone(t.Rows[i]))
		}
	}
	return out
}

// Concat appends tables in the given order. All tables must share columns.
func Concat(tables ...Table) (Table, error) {
	var out Table
	for k, t := range tables {
		if k == 0 {
			out.Columns = slices.Clone(t.Columns)
		} else if !slices.Equal(out.Columns, t.Columns) {
			return Table{}, fmt.Errorf("concat: column mismatch %v vs %v", out.Columns, t.Columns)
		}
		out.Index = append(out.Index, t.Index...)
		for _, row := range t.Rows {
			out.Rows = append(out.Rows, slices.Clone(row))
		}
	}
	return out, nil
}
