package cost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// arCost fits, per column, an autoregressive model of fixed order with an
// intercept: x_t ~ 1 + x_{t-1} + ... + x_{t-order}. Lags reach back across
// the segment start into the rest of the signal; lags before the first sample
// are zero. The cost is the residual sum of squares over all columns.
type arCost struct {
	base
	order int
}

func (c *arCost) Name() string { return string(AR) }

// Order returns the number of lags.
func (c *arCost) Order() int { return c.order }

func (c *arCost) MinSize() int { return c.order + 1 }

func (c *arCost) Fit(sig *changepoint.Signal) error {
	c.sig = sig
	return nil
}

func (c *arCost) Cost(seg changepoint.Segment) (float64, error) {
	if err := c.check(c.Name(), c.MinSize(), seg); err != nil {
		return 0, err
	}

	n := seg.Len()
	var total float64
	for j := 0; j < c.sig.Dim(); j++ {
		a := mat.NewDense(n, c.order+1, nil)
		y := make([]float64, n)
		for i := 0; i < n; i++ {
			t := seg.Start + i
			a.Set(i, 0, 1)
			for k := 1; k <= c.order; k++ {
				if t-k >= 0 {
					a.Set(i, k, c.sig.At(t-k, j))
				}
			}
			y[i] = c.sig.At(t, j)
		}
		total += residualSumSquares(a, y)
	}
	return total, nil
}
