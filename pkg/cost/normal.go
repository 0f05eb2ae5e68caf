package cost

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// covarianceJitter is added to the covariance diagonal so that constant
// segments have a finite log-determinant.
const covarianceJitter = 1e-6

// normalCost is the Gaussian negative log-likelihood of a segment under its
// own maximum likelihood mean and covariance Σ, up to terms that do not
// depend on the partition:
//
//	cost([s, e)) = n * (log det(Σ + εI) - d*log ε)
//
// The d*log ε shift is a per-sample constant, keeping the cost non-negative
// without changing which partition is optimal. Concavity of log det makes
// splitting a segment never increase the cost.
type normalCost struct {
	base
}

func (c *normalCost) Name() string { return string(Normal) }

func (c *normalCost) MinSize() int { return 2 }

func (c *normalCost) Fit(sig *changepoint.Signal) error {
	c.sig = sig
	return nil
}

func (c *normalCost) Cost(seg changepoint.Segment) (float64, error) {
	if err := c.check(c.Name(), c.MinSize(), seg); err != nil {
		return 0, err
	}

	n := seg.Len()
	d := c.sig.Dim()
	floor := float64(d) * math.Log(covarianceJitter)

	if d == 1 {
		v := stat.PopVariance(c.sig.Column(0, seg), nil)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, c.failure(seg, "variance overflows")
		}
		return float64(n) * (math.Log(v+covarianceJitter) - floor), nil
	}

	x := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		x.SetRow(i, c.sig.Row(seg.Start+i))
	}

	cov := mat.NewSymDense(d, nil)
	stat.CovarianceMatrix(cov, x, nil)
	cov.ScaleSym(float64(n-1)/float64(n), cov)
	for j := 0; j < d; j++ {
		cov.SetSym(j, j, cov.At(j, j)+covarianceJitter)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return 0, c.failure(seg, "covariance is not positive definite")
	}

	logDet := chol.LogDet()
	if math.IsInf(logDet, 0) || math.IsNaN(logDet) {
		return 0, c.failure(seg, "covariance log-determinant is not finite")
	}

	v := float64(n) * (logDet - floor)
	if v < 0 {
		v = 0
	}
	return v, nil
}

func (c *normalCost) failure(seg changepoint.Segment, reason string) error {
	return &changepoint.SegmentCostError{
		Model:  c.Name(),
		Start:  seg.Start,
		End:    seg.End,
		Reason: reason,
	}
}
