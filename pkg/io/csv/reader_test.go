package csv

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		opts        []Option
		want        [][]float64
		wantHeaders []string
		wantErr     bool
	}{
		{
			name:        "comma with header",
			input:       "x,y\n1,2\n3,4\n",
			want:        [][]float64{{1, 2}, {3, 4}},
			wantHeaders: []string{"x", "y"},
		},
		{
			name:  "comma without header",
			input: "1,2\n3,4\n",
			want:  [][]float64{{1, 2}, {3, 4}},
		},
		{
			name:  "tab separated",
			input: "1\t2\n3\t4\n",
			want:  [][]float64{{1, 2}, {3, 4}},
		},
		{
			name:  "semicolon separated",
			input: "1;2\n3;4\n",
			want:  [][]float64{{1, 2}, {3, 4}},
		},
		{
			name:        "whitespace separated with blank lines",
			input:       "time   value\n\n1   2.5\n 2  -3e2 \n",
			want:        [][]float64{{1, 2.5}, {2, -300}},
			wantHeaders: []string{"time", "value"},
		},
		{
			name:  "single column",
			input: "0\n0\n10\n",
			want:  [][]float64{{0}, {0}, {10}},
		},
		{
			name:        "forced header drops numeric first row",
			input:       "1,2\n3,4\n",
			opts:        []Option{WithHeader(true)},
			want:        [][]float64{{3, 4}},
			wantHeaders: []string{"1", "2"},
		},
		{
			name:    "forced no header rejects text row",
			input:   "x,y\n1,2\n",
			opts:    []Option{WithHeader(false)},
			wantErr: true,
		},
		{
			name:  "explicit delimiter",
			input: "1|2\n3|4\n",
			opts:  []Option{WithDelimiter('|')},
			want:  [][]float64{{1, 2}, {3, 4}},
		},
		{
			name:    "non numeric cell",
			input:   "1,2\n3,abc\n",
			wantErr: true,
		},
		{
			name:    "nan cell",
			input:   "1\nNaN\n",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:        "header only",
			input:       "y\n",
			want:        [][]float64{},
			wantHeaders: []string{"y"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReaderFrom(strings.NewReader(tt.input), tt.opts...)
			got, err := r.Read()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, changepoint.ErrInvalidSignal)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantHeaders, r.Headers())
		})
	}
}

func TestNewReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "series.txt")
	require.NoError(t, os.WriteFile(path, []byte("Y\n0\n0\n0\n10\n10\n10\n"), 0o600))

	r, err := NewReader(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.Read()
	require.NoError(t, err)
	assert.Len(t, data, 6)
	assert.Equal(t, []string{"Y"}, r.Headers())

	_, err = NewReader(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
