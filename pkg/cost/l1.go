package cost

import (
	"math"
	"sort"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// l1Cost sums absolute deviations from the per-column median.
type l1Cost struct {
	base
}

func (c *l1Cost) Name() string { return string(L1) }

func (c *l1Cost) MinSize() int { return 1 }

func (c *l1Cost) Fit(sig *changepoint.Signal) error {
	c.sig = sig
	return nil
}

func (c *l1Cost) Cost(seg changepoint.Segment) (float64, error) {
	if err := c.check(c.Name(), c.MinSize(), seg); err != nil {
		return 0, err
	}

	var total float64
	for j := 0; j < c.sig.Dim(); j++ {
		col := c.sig.Column(j, seg)
		m := median(col)
		for _, v := range col {
			total += math.Abs(v - m)
		}
	}
	return total, nil
}

// median sorts x in place.
func median(x []float64) float64 {
	sort.Float64s(x)
	n := len(x)
	if n%2 == 0 {
		return (x[n/2-1] + x[n/2]) / 2
	}
	return x[n/2]
}
