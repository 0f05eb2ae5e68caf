package changepoint

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignal(t *testing.T) {
	tests := []struct {
		name    string
		data    [][]float64
		wantErr bool
	}{
		{name: "empty", data: [][]float64{}, wantErr: true},
		{name: "no columns", data: [][]float64{{}}, wantErr: true},
		{name: "ragged", data: [][]float64{{1, 2}, {3}}, wantErr: true},
		{name: "nan", data: [][]float64{{1}, {math.NaN()}}, wantErr: true},
		{name: "inf", data: [][]float64{{math.Inf(-1)}}, wantErr: true},
		{name: "single sample", data: [][]float64{{4}}},
		{name: "two columns", data: [][]float64{{1, 2}, {3, 4}, {5, 6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSignal(tt.data)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidSignal))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.data), s.Len())
			assert.Equal(t, len(tt.data[0]), s.Dim())
		})
	}
}

func TestSignalIsCopied(t *testing.T) {
	data := [][]float64{{1}, {2}}
	s, err := NewSignal(data)
	require.NoError(t, err)

	data[0][0] = 100
	assert.Equal(t, 1.0, s.At(0, 0))
}

func TestFromColumns(t *testing.T) {
	s, err := FromColumns([]float64{1, 2, 3}, []float64{4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, s.Row(1))

	_, err = FromColumns([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrInvalidSignal)
}

func TestFingerprint(t *testing.T) {
	a, err := FromColumns([]float64{1, 2, 3})
	require.NoError(t, err)
	b, err := FromColumns([]float64{1, 2, 3})
	require.NoError(t, err)
	c, err := FromColumns([]float64{1, 2, 4})
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestStandardize(t *testing.T) {
	s, err := FromColumns([]float64{1, 2, 3, 4}, []float64{7, 7, 7, 7})
	require.NoError(t, err)

	std := s.Standardize()
	all := Segment{Start: 0, End: 4}

	x := std.Column(0, all)
	var sum, sq float64
	for _, v := range x {
		sum += v
		sq += v * v
	}
	assert.InDelta(t, 0, sum, 1e-12)
	assert.InDelta(t, 4, sq, 1e-12)

	assert.Equal(t, []float64{0, 0, 0, 0}, std.Column(1, all))
	assert.NotEqual(t, s.Fingerprint(), std.Fingerprint())
}
