package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Count(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, tc := range []struct {
		rows, depth, want int
	}{
		{rows: 30, depth: 24, want: 6},
		{rows: 25, depth: 24, want: 1},
		{rows: 24, depth: 24, want: 0},
		{rows: 3, depth: 8, want: 0},
		{rows: 0, depth: 8, want: 0},
	} {
		tbl := hourlyTable(start, []string{"a", "b"}, tc.rows, func(i, j int) float64 { return float64(i) })
		got := Window(tbl, tc.depth)
		require.NotNil(t, got)
		assert.Len(t, got, tc.want, "rows=%d depth=%d", tc.rows, tc.depth)
		for _, seq := range got {
			assert.Len(t, seq, tc.depth)
		}
	}
}

func TestWindow_Order(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := hourlyTable(start, []string{"a"}, 5, func(i, _ int) float64 { return float64(i) })

	got := Window(tbl, 3)

	require.Len(t, got, 2)
	assert.Equal(t, [][]float64{{0}, {1}, {2}}, got[0])
	assert.Equal(t, [][]float64{{1}, {2}, {3}}, got[1])

	n, depth, f := got.Shape()
	assert.Equal(t, []int{2, 3, 1}, []int{n, depth, f})

	// Windows are copies.
	got[0][0][0] = 99
	assert.Equal(t, 0.0, tbl.Rows[0][0])
}

func TestTensorShape_Empty(t *testing.T) {
	n, depth, f := Tensor{}.Shape()
	assert.Zero(t, n+depth+f)
}
