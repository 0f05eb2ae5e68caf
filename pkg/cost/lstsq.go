package cost

import (
	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the relative singular value cutoff for least squares.
const rankTolerance = 1e-10

// residualSumSquares solves min |a*beta - y| through a thin SVD, which also
// handles rank-deficient designs, and returns the residual sum of squares.
func residualSumSquares(a *mat.Dense, y []float64) float64 {
	n := len(y)
	yv := mat.NewVecDense(n, y)

	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThin) {
		return mat.Dot(yv, yv)
	}

	rank := svd.Rank(rankTolerance)
	if rank == 0 {
		return mat.Dot(yv, yv)
	}

	var beta mat.VecDense
	svd.SolveVecTo(&beta, yv, rank)

	var resid mat.VecDense
	resid.MulVec(a, &beta)
	resid.SubVec(yv, &resid)

	return mat.Dot(&resid, &resid)
}
