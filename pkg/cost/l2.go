package cost

import (
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// roundoffMargin is how far above the estimated cancellation error a
// prefix-sum result must lie before it is trusted.
const roundoffMargin = 1e6

// unitRoundoff is the float64 machine epsilon.
const unitRoundoff = 0x1p-52

// l2Cost is the within-segment sum of squared deviations from the mean.
//
// Cumulative sums of the globally centered signal answer most queries in
// O(d). When a segment mean sits far from the global mean the difference
// sumSq - sum²/n cancels catastrophically; such queries are recomputed with
// a two-pass variance over the segment.
type l2Cost struct {
	base
	dim   int
	sum   []float64 // (T+1)×d
	sumSq []float64 // (T+1)×d
}

func (c *l2Cost) Name() string { return string(L2) }

func (c *l2Cost) MinSize() int { return 1 }

func (c *l2Cost) Fit(sig *changepoint.Signal) error {
	n, d := sig.Len(), sig.Dim()
	all := changepoint.Segment{Start: 0, End: n}

	c.sig = sig
	c.dim = d
	c.sum = make([]float64, (n+1)*d)
	c.sumSq = make([]float64, (n+1)*d)

	for j := 0; j < d; j++ {
		mean := stat.Mean(sig.Column(j, all), nil)
		for i := 0; i < n; i++ {
			v := sig.At(i, j) - mean
			c.sum[(i+1)*d+j] = c.sum[i*d+j] + v
			c.sumSq[(i+1)*d+j] = c.sumSq[i*d+j] + v*v
		}
	}
	return nil
}

func (c *l2Cost) Cost(seg changepoint.Segment) (float64, error) {
	if err := c.check(c.Name(), c.MinSize(), seg); err != nil {
		return 0, err
	}

	n := float64(seg.Len())
	d := c.dim
	prefixLen := float64(c.sig.Len())

	var total float64
	for j := 0; j < d; j++ {
		s := c.sum[seg.End*d+j] - c.sum[seg.Start*d+j]
		sq := c.sumSq[seg.End*d+j] - c.sumSq[seg.Start*d+j]
		v := sq - s*s/n

		// Rounding error of the prefix sums grows with their magnitude, not
		// with the segment's own spread.
		bound := prefixLen * unitRoundoff * (c.sumSq[seg.End*d+j] + s*s/n)
		if v <= roundoffMargin*bound {
			v = n * stat.PopVariance(c.sig.Column(j, seg), nil)
		}
		if v > 0 {
			total += v
		}
	}
	return total, nil
}
