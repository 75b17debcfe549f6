package features

import (
	"slices"

	"github.com/i474232898/weather-energy-forecast/internal/weather"
)

// Tensor is an N x T x F batch of lag windows.
type Tensor [][][]float64

// Shape returns the tensor dimensions; T and F are 0 for an empty tensor.
func (x Tensor) Shape() (n, t, f int) {
	n = len(x)
	if n == 0 {
		return 0, 0, 0
	}
	t = len(x[0])
	if t > 0 {
		f = len(x[0][0])
	}
	return n, t, f
}

// Window slides a window of depth rows over t, producing len(t)-depth
// overlapping sequences in row order. Tables with no more than depth rows
// give an empty, non-nil tensor.
func Window(t weather.Table, depth int) Tensor {
	n := t.Len() - depth
	if depth <= 0 || n <= 0 {
		return Tensor{}
	}
	out := make(Tensor, n)
	for i := range out {
		seq := make([][]float64, depth)
		for k := range seq {
			seq[k] = slices.Clone(t.Rows[i+k])
		}
		out[i] = seq
	}
	return out
}
