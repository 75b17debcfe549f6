// Package inference adapts the fitted scalers and the served sequence models
// the pipeline consumes. Both are built once at startup and are read-only.
package inference

import (
	"context"
	"errors"
)

var (
	// ErrShapeMismatch is returned when a matrix or tensor does not match what
	// a scaler or model was fitted with.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrNonFiniteInput is returned for batches holding NaN or infinite values,
	// which the model server's JSON API cannot carry.
	ErrNonFiniteInput = errors.New("non-finite model input")

	// ErrModelUnavailable wraps failures calling the model server.
	ErrModelUnavailable = errors.New("model server unavailable")
)

// Scaler applies a fitted, column-wise transform to a feature matrix.
// columns names the matrix columns in order.
type Scaler interface {
	Transform(columns []string, rows [][]float64) ([][]float64, error)
}

// Model predicts one output vector per input sequence of an N x T x F batch.
type Model interface {
	Predict(ctx context.Context, batch [][][]float64) ([][]float64, error)
}
