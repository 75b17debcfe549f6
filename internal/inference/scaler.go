package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// MinMaxScaler applies x*Scale + Min per column, the transform of a fitted
// scikit-learn MinMaxScaler (its min_ and scale_ attributes).
type MinMaxScaler struct {
	FeatureNames []string  `json:"feature_names,omitempty"`
	Min          []float64 `json:"min"`
	Scale        []float64 `json:"scale"`
}

// LoadMinMaxScaler reads scaler parameters from a JSON file.
func LoadMinMaxScaler(path string) (*MinMaxScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scaler %s: %w", path, err)
	}
	var s MinMaxScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler %s: %w", path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scaler %s: %w", path, err)
	}
	return &s, nil
}

func (s *MinMaxScaler) validate() error {
	if len(s.Min) == 0 || len(s.Min) != len(s.Scale) {
		return fmt.Errorf("%w: %d min values, %d scale values", ErrShapeMismatch, len(s.Min), len(s.Scale))
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != len(s.Min) {
		return fmt.Errorf("%w: %d feature names for %d columns", ErrShapeMismatch, len(s.FeatureNames), len(s.Min))
	}
	return nil
}

// Transform returns a scaled copy of rows. When the scaler carries feature
// names they must match columns exactly, order included.
func (s *MinMaxScaler) Transform(columns []string, rows [][]float64) ([][]float64, error) {
	if len(columns) != len(s.Min) {
		return nil, fmt.Errorf("%w: scaler fitted on %d columns, got %d", ErrShapeMismatch, len(s.Min), len(columns))
	}
	if len(s.FeatureNames) > 0 && !slices.Equal(s.FeatureNames, columns) {
		return nil, fmt.Errorf("%w: scaler columns %v, got %v", ErrShapeMismatch, s.FeatureNames, columns)
	}

	out := make([][]float64, len(rows))
	for i, row := range rows {
		if len(row) != len(s.Min) {
			return nil, fmt.Errorf("%w: row %d has %d values", ErrShapeMismatch, i, len(row))
		}
		r := make([]float64, len(row))
		for j, v := range row {
			r[j] = v*s.Scale[j] + s.Min[j]
		}
		out[i] = r
	}
	return out, nil
}
