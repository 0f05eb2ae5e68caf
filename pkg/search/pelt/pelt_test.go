package pelt

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
)

func TestNew(t *testing.T) {
	p := New()
	assert.Equal(t, 10.0, p.penalty)
	assert.Equal(t, "pelt", p.Name())

	p = New(WithPenalty(2.5), WithMinSize(3), WithJump(4))
	assert.Equal(t, 2.5, p.penalty)
	assert.Equal(t, 3, p.minSize)
	assert.Equal(t, 4, p.jump)
}

func TestSearch(t *testing.T) {
	tests := []struct {
		name    string
		y       []float64
		penalty float64
		want    []int
	}{
		{
			name:    "single mean shift",
			y:       []float64{0, 0, 0, 0, 0, 10, 10, 10, 10, 10},
			penalty: 1,
			want:    []int{5, 10},
		},
		{
			name:    "constant signal",
			y:       levels(20, 5),
			penalty: 1,
			want:    []int{20},
		},
		{
			name:    "three segments without noise",
			y:       levels(30, 0, 5, -3),
			penalty: 0.5,
			want:    []int{30, 60, 90},
		},
		{
			name:    "large penalty merges everything",
			y:       levels(10, 0, 1),
			penalty: 1000,
			want:    []int{20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := New(WithPenalty(tt.penalty)).Search(context.Background(), signal(t, tt.y), model(t, cost.L2))
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Breakpoints)
		})
	}
}

func TestSearchLargeOffset(t *testing.T) {
	// Bounded noise keeps each regime's cost under the penalty.
	y := make([]float64, 100)
	for i := range y {
		y[i] = 0.5 * math.Sin(1.7*float64(i))
		if i >= 50 {
			y[i] += 1e9
		}
	}

	res, err := New(WithPenalty(20)).Search(context.Background(), signal(t, y), model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, []int{50, 100}, res.Breakpoints)
}

func TestSearchConstantAnyModel(t *testing.T) {
	sig := signal(t, levels(20, 5))
	for _, kind := range cost.Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			res, err := New(WithPenalty(1)).Search(context.Background(), sig, model(t, kind))
			require.NoError(t, err)
			assert.Equal(t, []int{20}, res.Breakpoints)
		})
	}
}

func TestSearchZeroPenalty(t *testing.T) {
	y := make([]float64, 12)
	for i := range y {
		y[i] = float64(i * i)
	}

	res, err := New(WithPenalty(0)).Search(context.Background(), signal(t, y), model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, res.Breakpoints)
}

func TestSearchRejectsBadPenalty(t *testing.T) {
	for _, p := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := New(WithPenalty(p)).Search(context.Background(), signal(t, levels(5, 1)), model(t, cost.L2))
		var cfgErr *changepoint.ConfigError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "penalty", cfgErr.Field)
	}
}

func TestSearchSignalTooShort(t *testing.T) {
	_, err := New(WithPenalty(1)).Search(context.Background(), signal(t, []float64{1, 2, 3}), model(t, cost.AR))
	var tooSmall *changepoint.SegmentTooSmallError
	require.ErrorAs(t, err, &tooSmall)
	assert.Equal(t, "ar", tooSmall.Model)
	assert.Equal(t, 3, tooSmall.End)
}

func TestSearchMatchesExhaustiveOptimum(t *testing.T) {
	y := levels(15, 0, 3, 1, 4)
	rng := rand.New(rand.NewSource(17))
	for i := range y {
		y[i] += 0.5 * rng.NormFloat64()
	}
	sig := signal(t, y)

	for _, pen := range []float64{0.5, 3, 20} {
		for _, minSize := range []int{1, 4} {
			m := model(t, cost.L2)
			res, err := New(WithPenalty(pen), WithMinSize(minSize)).Search(context.Background(), sig, m)
			require.NoError(t, err)
			require.NoError(t, changepoint.Validate(res.Breakpoints, sig.Len()))

			got := penalized(t, m, res.Breakpoints, pen)
			want := exhaustive(t, m, sig.Len(), pen, minSize)
			assert.InDelta(t, want, got, 1e-9, "penalty=%v min_size=%d", pen, minSize)
		}
	}
}

func TestSearchJump(t *testing.T) {
	sig := signal(t, levels(30, 0, 5, -3))
	res, err := New(WithPenalty(1), WithJump(5)).Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60, 90}, res.Breakpoints)
}

func TestSearchIdempotent(t *testing.T) {
	y := levels(20, 0, 2, 1)
	rng := rand.New(rand.NewSource(5))
	for i := range y {
		y[i] += rng.NormFloat64()
	}
	sig := signal(t, y)
	p := New(WithPenalty(3))

	a, err := p.Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	b, err := p.Search(context.Background(), sig, model(t, cost.L2))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSearchWithCache(t *testing.T) {
	sig := signal(t, levels(30, 0, 5, -3))
	c := cost.NewCache(model(t, cost.L2))

	res, err := New(WithPenalty(1)).Search(context.Background(), sig, c)
	require.NoError(t, err)
	assert.Equal(t, []int{30, 60, 90}, res.Breakpoints)

	_, misses := c.Stats()
	assert.Positive(t, misses)
}

func TestSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Search(ctx, signal(t, levels(10, 1, 2)), model(t, cost.L2))
	assert.ErrorIs(t, err, context.Canceled)
}

// exhaustive is the unpruned O(T^2) dynamic program.
func exhaustive(t *testing.T, m cost.Model, n int, pen float64, minSize int) float64 {
	f := make([]float64, n+1)
	for i := range f {
		f[i] = math.Inf(1)
	}
	f[0] = -pen
	for end := 1; end <= n; end++ {
		for start := 0; end-start >= minSize; start++ {
			if math.IsInf(f[start], 1) {
				continue
			}
			c, err := m.Cost(changepoint.Segment{Start: start, End: end})
			require.NoError(t, err)
			if v := f[start] + c + pen; v < f[end] {
				f[end] = v
			}
		}
	}
	return f[n]
}

func penalized(t *testing.T, m cost.Model, bkps []int, pen float64) float64 {
	total, err := changepoint.TotalCost(m, bkps)
	require.NoError(t, err)
	return total + pen*float64(len(bkps)-1)
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

func BenchmarkSearch(b *testing.B) {
	y := levels(2000, 0, 3, 1, 4, 2)
	rng := rand.New(rand.NewSource(1))
	for i := range y {
		y[i] += rng.NormFloat64()
	}
	sig := signal(b, y)
	p := New(WithPenalty(20))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Search(context.Background(), sig, cost.NewCache(model(b, cost.L2)))
	}
}
