package cost

import (
	"gonum.org/v1/gonum/mat"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// linearCost regresses the last column on an intercept and the remaining
// columns, or on an intercept and the sample position when the signal has a
// single column. The cost is the residual sum of squares.
type linearCost struct {
	base
}

func (c *linearCost) Name() string { return string(Linear) }

// MinSize is the number of regression parameters, and never less than two.
func (c *linearCost) MinSize() int {
	if c.sig == nil || c.sig.Dim() < 2 {
		return 2
	}
	return c.sig.Dim()
}

func (c *linearCost) Fit(sig *changepoint.Signal) error {
	c.sig = sig
	return nil
}

func (c *linearCost) Cost(seg changepoint.Segment) (float64, error) {
	if err := c.check(c.Name(), c.MinSize(), seg); err != nil {
		return 0, err
	}

	d := c.sig.Dim()
	n := seg.Len()
	params := d
	if d == 1 {
		params = 2
	}

	a := mat.NewDense(n, params, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		row := c.sig.Row(seg.Start + i)
		a.Set(i, 0, 1)
		if d == 1 {
			a.Set(i, 1, float64(seg.Start+i))
		} else {
			for j := 0; j < d-1; j++ {
				a.Set(i, j+1, row[j])
			}
		}
		y[i] = row[d-1]
	}

	return residualSumSquares(a, y), nil
}
