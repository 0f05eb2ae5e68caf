// Package io provides input/output adapters around the detection engine.
package io

import (
	"fmt"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// Reader is the interface for reading tabular numeric data.
type Reader interface {
	// Read returns the complete dataset, one row per sample.
	Read() ([][]float64, error)

	// Close releases resources.
	Close() error
}

// FeatureExtractor extracts numerical features from raw records.
type FeatureExtractor interface {
	// Extract converts raw input to a feature vector.
	Extract(data any) ([]float64, error)

	// FeatureNames returns the names of extracted features.
	FeatureNames() []string
}

// Series is a one- or two-column dataset shaped for detection: an X axis
// used for reporting and the Y values.
type Series struct {
	X []float64
	Y []float64
	// Generated is set when X was not in the input and counts from 1.
	Generated bool
}

// NewSeries interprets rows. A single column is Y with X = 1..n; two columns
// are X then Y. Any other width is rejected.
func NewSeries(rows [][]float64) (*Series, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", changepoint.ErrInvalidSignal)
	}

	width := len(rows[0])
	s := &Series{
		X: make([]float64, len(rows)),
		Y: make([]float64, len(rows)),
	}
	for i, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d",
				changepoint.ErrInvalidSignal, i+1, len(row), width)
		}
		switch width {
		case 1:
			s.X[i] = float64(i + 1)
			s.Y[i] = row[0]
		case 2:
			s.X[i] = row[0]
			s.Y[i] = row[1]
		default:
			return nil, fmt.Errorf("%w: expected 1 or 2 columns, got %d",
				changepoint.ErrInvalidSignal, width)
		}
	}
	s.Generated = width == 1
	return s, nil
}

// ReadSeries reads every row from r and shapes it into a Series.
func ReadSeries(r Reader) (*Series, error) {
	rows, err := r.Read()
	if err != nil {
		return nil, err
	}
	return NewSeries(rows)
}

// Len returns the number of samples.
func (s *Series) Len() int { return len(s.Y) }

// Signal returns the matrix handed to the engine: [Y] when X was generated
// or yOnly is set, [X, Y] otherwise.
func (s *Series) Signal(yOnly bool) [][]float64 {
	withX := !s.Generated && !yOnly
	out := make([][]float64, len(s.Y))
	for i, y := range s.Y {
		if withX {
			out[i] = []float64{s.X[i], y}
		} else {
			out[i] = []float64{y}
		}
	}
	return out
}

// XAt maps change point indices to X values. The sentinel is skipped.
func (s *Series) XAt(bkps []int) []float64 {
	var out []float64
	for _, b := range bkps {
		if b >= 0 && b < len(s.X) {
			out = append(out, s.X[b])
		}
	}
	return out
}
