package binseg

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
)

func TestNew(t *testing.T) {
	b := New()
	assert.Equal(t, 3, b.nBkps)
	assert.Equal(t, 1, b.jump)
	assert.Equal(t, "binseg", b.Name())

	b = New(WithBreakpoints(7), WithMinSize(4), WithJump(3))
	assert.Equal(t, 7, b.nBkps)
	assert.Equal(t, 4, b.minSize)
	assert.Equal(t, 3, b.jump)
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name  string
		y     []float64
		nBkps int
		want  []int
	}{
		{
			name:  "single mean shift",
			y:     []float64{0, 0, 0, 0, 0, 10, 10, 10, 10, 10},
			nBkps: 1,
			want:  []int{5, 10},
		},
		{
			name:  "three segments",
			y:     levels(30, 0, 5, -3),
			nBkps: 2,
			want:  []int{30, 60, 90},
		},
		{
			name:  "four segments",
			y:     levels(20, 1, 8, 2, 9),
			nBkps: 3,
			want:  []int{20, 40, 60, 80},
		},
		{
			name:  "symmetric tie takes lowest index",
			y:     []float64{0, 0, 0, 10, 10, 10, 0, 0, 0},
			nBkps: 1,
			want:  []int{3, 9},
		},
		{
			name:  "symmetric tie then the other edge",
			y:     []float64{0, 0, 0, 10, 10, 10, 0, 0, 0},
			nBkps: 2,
			want:  []int{3, 6, 9},
		},
		{
			name:  "mirrored tie on a shifted level",
			y:     levels(4, 7.3, 1.1, 7.3),
			nBkps: 1,
			want:  []int{4, 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := signal(t, tt.y)
			res, err := New(WithBreakpoints(tt.nBkps)).Search(context.Background(), sig, model(t, cost.L2))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Breakpoints)
			assert.False(t, res.Exhausted)
		})
	}
}

func TestSearchRejectsNonPositiveBreakpoints(t *testing.T) {
	_, err := New(WithBreakpoints(0)).Search(context.Background(), signal(t, levels(5, 1, 2)), model(t, cost.L2))
	var cfgErr *changepoint.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "n_bkps", cfgErr.Field)
}

func TestSearchExhausted(t *testing.T) {
	sig := signal(t, []float64{1, 2, 3})
	res, err := New(WithBreakpoints(5)).Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, res.Breakpoints)
	assert.True(t, res.Exhausted)

	// ar(4) needs five samples per side; twelve samples allow one split.
	ar := model(t, cost.AR)
	res, err = New(WithBreakpoints(3)).Search(context.Background(), signal(t, noisy(12, 1)), ar)
	require.NoError(t, err)
	assert.Len(t, res.Breakpoints, 2)
	assert.True(t, res.Exhausted)
}

func TestSearchSignalTooShort(t *testing.T) {
	_, err := New(WithBreakpoints(1)).Search(context.Background(), signal(t, []float64{1, 2, 3}), model(t, cost.AR))
	assert.ErrorIs(t, err, changepoint.ErrSegmentTooSmall)
}

func TestTotalCostNonIncreasing(t *testing.T) {
	y := levels(25, 0, 4, 1, 6, 2)
	rng := rand.New(rand.NewSource(3))
	for i := range y {
		y[i] += rng.NormFloat64()
	}
	sig := signal(t, y)

	for _, kind := range []cost.Kind{cost.L1, cost.L2, cost.Normal} {
		t.Run(string(kind), func(t *testing.T) {
			m := model(t, kind)
			prev := -1.0
			for k := 1; k <= 8; k++ {
				res, err := New(WithBreakpoints(k)).Search(context.Background(), sig, m)
				require.NoError(t, err)
				require.NoError(t, changepoint.Validate(res.Breakpoints, sig.Len()))

				total, err := changepoint.TotalCost(m, res.Breakpoints)
				require.NoError(t, err)
				if prev >= 0 {
					assert.LessOrEqual(t, total, prev+1e-9, "n_bkps=%d", k)
				}
				prev = total
			}
		})
	}
}

func TestSearchIdempotent(t *testing.T) {
	sig := signal(t, noisy(80, 9))
	b := New(WithBreakpoints(4))

	a, err := b.Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	c, err := b.Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestSearchJumpAndMinSize(t *testing.T) {
	sig := signal(t, levels(30, 0, 5, -3))
	res, err := New(WithBreakpoints(2), WithJump(10), WithMinSize(10)).Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60, 90}, res.Breakpoints)

	res, err = New(WithBreakpoints(2), WithJump(7)).Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	for _, b := range res.Breakpoints[:len(res.Breakpoints)-1] {
		assert.Zero(t, b%7)
	}
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Search(ctx, signal(t, noisy(50, 1)), model(t, cost.L2))
	assert.ErrorIs(t, err, context.Canceled)
}

func model(t testing.TB, kind cost.Kind) cost.Model {
	m, err := cost.New(kind)
	require.NoError(t, err)
	return m
}

func signal(t testing.TB, y []float64) *changepoint.Signal {
	sig, err := changepoint.FromColumns(y)
	require.NoError(t, err)
	return sig
}

func levels(n int, values ...float64) []float64 {
	y := make([]float64, 0, n*len(values))
	for _, v := range values {
		for i := 0; i < n; i++ {
			y = append(y, v)
		}
	}
	return y
}

func noisy(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	y := make([]float64, n)
	for i := range y {
		y[i] = rng.NormFloat64()
	}
	return y
}

func BenchmarkSearch(b *testing.B) {
	sig := signal(b, levels(1000, 0, 3, 1, 4, 2))
	s := New(WithBreakpoints(4))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Search(context.Background(), sig, model(b, cost.L2))
	}
}
