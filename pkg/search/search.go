// Package search defines the contract shared by the change point search
// strategies in its subpackages.
package search

import (
	"context"
	"math"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
)

// Searcher proposes breakpoints for a signal under a cost model.
type Searcher interface {
	// Name identifies the strategy.
	Name() string

	// Search fits model on sig and returns the breakpoints it selects.
	// The returned list is strictly increasing and ends with sig.Len().
	Search(ctx context.Context, sig *changepoint.Signal, model cost.Model) (Result, error)
}

// Result is the output of a single search.
type Result struct {
	// Breakpoints ends with the series length.
	Breakpoints []int
	// Exhausted is set when fewer breakpoints than requested could be placed.
	Exhausted bool
}

// MinSize returns the effective minimum segment length: the larger of the
// requested size and what the model accepts.
func MinSize(requested int, model cost.Model) int {
	if m := model.MinSize(); m > requested {
		return m
	}
	if requested < 1 {
		return 1
	}
	return requested
}

// Admissible reports whether a breakpoint may be placed at pos given the
// candidate grid step.
func Admissible(pos, jump int) bool {
	return jump <= 1 || pos%jump == 0
}

// tieTolerance is the relative difference below which two gains are equal.
const tieTolerance = 1e-9

// Exceeds reports whether gain a beats b by more than round-off. Gains that
// differ only in their last bits count as ties, so callers scanning in
// ascending position order keep the lowest index.
func Exceeds(a, b float64) bool {
	if math.IsInf(b, -1) {
		return !math.IsInf(a, -1)
	}
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return a-b > tieTolerance*scale
}
