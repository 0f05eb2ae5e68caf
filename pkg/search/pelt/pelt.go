// Package pelt implements the Pruned Exact Linear Time search.
//
// With F(0) = -penalty,
//
//	F(t) = min over s in R(t) of F(s) + cost([s, t)) + penalty
//
// is the optimal penalized cost of [0, t). After F(t) is known, every
// candidate s with F(s) + cost([s, t)) > F(t) is dropped from R for good,
// which keeps the candidate set small on signals with regular changes.
package pelt

import (
	"context"
	"math"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
	"github.com/hed1ad/gochangepoint/pkg/search"
)

// Pelt is the penalized exact searcher.
type Pelt struct {
	penalty float64
	minSize int
	jump    int
}

// Option configures a Pelt.
type Option func(*Pelt)

// WithPenalty sets the per-breakpoint penalty.
func WithPenalty(p float64) Option {
	return func(s *Pelt) {
		s.penalty = p
	}
}

// WithMinSize sets the minimum segment length.
func WithMinSize(n int) Option {
	return func(s *Pelt) {
		s.minSize = n
	}
}

// WithJump restricts candidates to multiples of n.
func WithJump(n int) Option {
	return func(s *Pelt) {
		s.jump = n
	}
}

// New creates a Pelt searcher.
func New(opts ...Option) *Pelt {
	s := &Pelt{
		penalty: 10,
		jump:    1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements search.Searcher.
func (s *Pelt) Name() string { return "pelt" }

type candidate struct {
	pos    int
	expire int // 0 while the candidate has not been pruned
}

// Search implements search.Searcher. A zero penalty is accepted and yields
// the finest admissible partition.
func (s *Pelt) Search(ctx context.Context, sig *changepoint.Signal, model cost.Model) (search.Result, error) {
	if s.penalty < 0 || math.IsNaN(s.penalty) || math.IsInf(s.penalty, 0) {
		return search.Result{}, changepoint.NewConfigError("penalty", s.penalty, "must be finite and not negative")
	}
	if err := model.Fit(sig); err != nil {
		return search.Result{}, err
	}

	n := sig.Len()
	minSize := search.MinSize(s.minSize, model)
	if n < minSize {
		return search.Result{}, &changepoint.SegmentTooSmallError{
			Model: model.Name(), Start: 0, End: n, MinSize: minSize,
		}
	}

	best := make([]float64, n+1)
	prev := make([]int, n+1)
	for i := range best {
		best[i] = math.Inf(1)
		prev[i] = -1
	}
	best[0] = -s.penalty

	// Reachable positions wait in pending until they are minSize behind the
	// current end, so every candidate can be evaluated. A pruned candidate is
	// only dominated once the position that pruned it becomes a candidate
	// itself, so it stays until then.
	pending := []int{0}
	var candidates []candidate
	segCost := make([]float64, n+1)

	for t := 1; t <= n; t++ {
		if t < n && !search.Admissible(t, s.jump) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return search.Result{}, err
		}

		live := candidates[:0]
		for _, c := range candidates {
			if c.expire == 0 || t < c.expire {
				live = append(live, c)
			}
		}
		candidates = live

		k := 0
		for k < len(pending) && t-pending[k] >= minSize {
			candidates = append(candidates, candidate{pos: pending[k]})
			k++
		}
		pending = pending[k:]

		if len(candidates) == 0 {
			continue
		}

		for _, c := range candidates {
			v, err := model.Cost(changepoint.Segment{Start: c.pos, End: t})
			if err != nil {
				return search.Result{}, err
			}
			segCost[c.pos] = v
			if total := best[c.pos] + v + s.penalty; total < best[t] {
				best[t] = total
				prev[t] = c.pos
			}
		}

		for i, c := range candidates {
			if c.expire == 0 && best[c.pos]+segCost[c.pos] > best[t] {
				candidates[i].expire = t + minSize
			}
		}
		pending = append(pending, t)
	}

	if prev[n] < 0 {
		return search.Result{}, &changepoint.SegmentTooSmallError{
			Model: model.Name(), Start: 0, End: n, MinSize: minSize,
		}
	}

	var bkps []int
	for t := n; t > 0; t = prev[t] {
		bkps = append(bkps, t)
	}
	for i, j := 0, len(bkps)-1; i < j; i, j = i+1, j-1 {
		bkps[i], bkps[j] = bkps[j], bkps[i]
	}

	return search.Result{Breakpoints: bkps}, nil
}
