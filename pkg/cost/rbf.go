package cost

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// rbfCost is the kernel cost with a Gaussian kernel
// k(x, y) = exp(-gamma * |x - y|^2):
//
//	cost([s, e)) = n - (1/n) * sum_{i,j in [s, e)} k(x_i, x_j)
//
// Fit stores 2D cumulative sums of the Gram matrix, one (T+1)×(T+1) table,
// so each query is O(1). The median heuristic also holds the T(T-1)/2
// pairwise distances while fitting. Inputs are expected to be standardized.
type rbfCost struct {
	base
	gamma  float64
	fitted float64
	prefix []float64 // (T+1)×(T+1)
}

func (c *rbfCost) Name() string { return string(RBF) }

func (c *rbfCost) MinSize() int { return 1 }

// Gamma returns the bandwidth in use after Fit.
func (c *rbfCost) Gamma() float64 { return c.fitted }

func (c *rbfCost) Fit(sig *changepoint.Signal) error {
	n := sig.Len()

	gamma := c.gamma
	if gamma == 0 {
		gamma = medianGamma(sig)
	}

	w := n + 1
	prefix := make([]float64, w*w)
	for i := 0; i < n; i++ {
		var row float64
		for j := 0; j < n; j++ {
			row += math.Exp(-gamma * squaredDistance(sig, i, j))
			prefix[(i+1)*w+j+1] = prefix[i*w+j+1] + row
		}
	}

	c.sig = sig
	c.fitted = gamma
	c.prefix = prefix
	return nil
}

// medianGamma is the inverse median pairwise squared distance, or 1 when
// that median is zero.
func medianGamma(sig *changepoint.Signal) float64 {
	n := sig.Len()
	if n < 2 {
		return 1
	}

	upper := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			upper = append(upper, squaredDistance(sig, i, j))
		}
	}
	sort.Float64s(upper)

	if med := stat.Quantile(0.5, stat.Empirical, upper, nil); med > 0 {
		return 1 / med
	}
	return 1
}

func squaredDistance(sig *changepoint.Signal, i, j int) float64 {
	if i == j {
		return 0
	}
	d := floats.Distance(sig.Row(i), sig.Row(j), 2)
	return d * d
}

func (c *rbfCost) Cost(seg changepoint.Segment) (float64, error) {
	if err := c.check(c.Name(), c.MinSize(), seg); err != nil {
		return 0, err
	}

	w := c.sig.Len() + 1
	s, e := seg.Start, seg.End
	block := c.prefix[e*w+e] - c.prefix[s*w+e] - c.prefix[e*w+s] + c.prefix[s*w+s]
	n := float64(seg.Len())

	v := n - block/n
	if v < 0 {
		v = 0
	}
	return v, nil
}
