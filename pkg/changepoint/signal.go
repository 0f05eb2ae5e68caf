package changepoint

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/stat"
)

// Signal is an immutable T×d matrix of finite samples. Rows are samples,
// columns are features.
type Signal struct {
	rows [][]float64
	dim  int
	hash uint64
}

// NewSignal validates data and copies it into a Signal.
func NewSignal(data [][]float64) (*Signal, error) {
	if len(data) == 0 {
		return nil, invalidSignal("no samples")
	}

	dim := len(data[0])
	if dim == 0 {
		return nil, invalidSignal("no feature columns")
	}

	rows := make([][]float64, len(data))
	backing := make([]float64, len(data)*dim)
	for i, row := range data {
		if len(row) != dim {
			return nil, invalidSignal("row %d has %d columns, want %d", i, len(row), dim)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, invalidSignal("non-finite value at row %d, column %d", i, j)
			}
		}
		rows[i] = backing[i*dim : (i+1)*dim : (i+1)*dim]
		copy(rows[i], row)
	}

	s := &Signal{rows: rows, dim: dim}
	s.hash = s.fingerprint()
	return s, nil
}

// FromColumns builds a Signal from equal-length feature columns.
func FromColumns(cols ...[]float64) (*Signal, error) {
	if len(cols) == 0 || len(cols[0]) == 0 {
		return nil, invalidSignal("no samples")
	}
	n := len(cols[0])
	data := make([][]float64, n)
	for i := range data {
		data[i] = make([]float64, len(cols))
	}
	for j, col := range cols {
		if len(col) != n {
			return nil, invalidSignal("column %d has %d samples, want %d", j, len(col), n)
		}
		for i, v := range col {
			data[i][j] = v
		}
	}
	return NewSignal(data)
}

// Len returns the number of samples T.
func (s *Signal) Len() int { return len(s.rows) }

// Dim returns the number of feature columns d.
func (s *Signal) Dim() int { return s.dim }

// At returns the value at sample i, column j.
func (s *Signal) At(i, j int) float64 { return s.rows[i][j] }

// Row returns sample i. The slice must not be modified.
func (s *Signal) Row(i int) []float64 { return s.rows[i] }

// Column returns a copy of column j restricted to seg.
func (s *Signal) Column(j int, seg Segment) []float64 {
	out := make([]float64, seg.Len())
	for i := seg.Start; i < seg.End; i++ {
		out[i-seg.Start] = s.rows[i][j]
	}
	return out
}

// Fingerprint identifies the signal content. Two signals with the same
// fingerprint hold the same values with overwhelming probability.
func (s *Signal) Fingerprint() uint64 { return s.hash }

func (s *Signal) fingerprint() uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.dim))
	_, _ = d.Write(buf[:])
	for _, row := range s.rows {
		for _, v := range row {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

// Standardize returns a copy with every column scaled to zero mean and unit
// population variance. Constant columns are only centered.
func (s *Signal) Standardize() *Signal {
	n := s.Len()
	out := make([][]float64, n)
	backing := make([]float64, n*s.dim)
	for i := range out {
		out[i] = backing[i*s.dim : (i+1)*s.dim : (i+1)*s.dim]
	}

	all := Segment{Start: 0, End: n}
	for j := 0; j < s.dim; j++ {
		col := s.Column(j, all)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		for i, v := range col {
			out[i][j] = (v - mean) / std
		}
	}

	std := &Signal{rows: out, dim: s.dim}
	std.hash = std.fingerprint()
	return std
}
