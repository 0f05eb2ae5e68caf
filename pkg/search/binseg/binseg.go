// Package binseg implements greedy binary segmentation.
//
// Starting from the whole series, each step splits the segment whose best
// split reduces the total cost the most. Splits are never revisited, so the
// search runs O(nBkps * T) cost evaluations instead of an exact search.
package binseg

import (
	"context"
	"math"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
	"github.com/hed1ad/gochangepoint/pkg/search"
)

// BinSeg is the binary segmentation searcher.
type BinSeg struct {
	nBkps   int
	minSize int
	jump    int
}

// Option configures a BinSeg.
type Option func(*BinSeg)

// WithBreakpoints sets how many splits to perform.
func WithBreakpoints(n int) Option {
	return func(b *BinSeg) {
		b.nBkps = n
	}
}

// WithMinSize sets the minimum segment length.
func WithMinSize(n int) Option {
	return func(b *BinSeg) {
		b.minSize = n
	}
}

// WithJump restricts candidates to multiples of n.
func WithJump(n int) Option {
	return func(b *BinSeg) {
		b.jump = n
	}
}

// New creates a BinSeg searcher.
func New(opts ...Option) *BinSeg {
	b := &BinSeg{
		nBkps: 3,
		jump:  1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name implements search.Searcher.
func (b *BinSeg) Name() string { return "binseg" }

// node is a segment on the worklist with its best split cached; the best
// split of a segment does not change until the segment itself is split.
type node struct {
	seg   changepoint.Segment
	split int // -1 when the segment cannot be split
	gain  float64
	left  float64
	right float64
}

// Search implements search.Searcher.
func (b *BinSeg) Search(ctx context.Context, sig *changepoint.Signal, model cost.Model) (search.Result, error) {
	if b.nBkps <= 0 {
		return search.Result{}, changepoint.NewConfigError("n_bkps", b.nBkps, "must be positive")
	}
	if err := model.Fit(sig); err != nil {
		return search.Result{}, err
	}

	n := sig.Len()
	minSize := search.MinSize(b.minSize, model)

	whole := changepoint.Segment{Start: 0, End: n}
	total, err := model.Cost(whole)
	if err != nil {
		return search.Result{}, err
	}
	root, err := b.bestSplit(ctx, model, minSize, whole, total)
	if err != nil {
		return search.Result{}, err
	}

	work := []*node{root}
	splits := make([]int, 0, b.nBkps)

	for len(splits) < b.nBkps {
		if err := ctx.Err(); err != nil {
			return search.Result{}, err
		}

		best := -1
		for i, nd := range work {
			if nd.split < 0 {
				continue
			}
			if best < 0 || search.Exceeds(nd.gain, work[best].gain) ||
				(!search.Exceeds(work[best].gain, nd.gain) && nd.split < work[best].split) {
				best = i
			}
		}
		if best < 0 {
			break
		}

		nd := work[best]
		leftSeg, rightSeg := nd.seg.Split(nd.split)
		left, err := b.bestSplit(ctx, model, minSize, leftSeg, nd.left)
		if err != nil {
			return search.Result{}, err
		}
		right, err := b.bestSplit(ctx, model, minSize, rightSeg, nd.right)
		if err != nil {
			return search.Result{}, err
		}

		splits = append(splits, nd.split)
		work[best] = left
		work = append(work, right)
	}

	return search.Result{
		Breakpoints: changepoint.Normalize(splits, n),
		Exhausted:   len(splits) < b.nBkps,
	}, nil
}

// bestSplit scans every admissible split of seg and keeps the one with the
// largest gain, the lowest index on ties.
func (b *BinSeg) bestSplit(ctx context.Context, model cost.Model, minSize int, seg changepoint.Segment, segCost float64) (*node, error) {
	nd := &node{seg: seg, split: -1, gain: math.Inf(-1)}

	for s := seg.Start + minSize; s <= seg.End-minSize; s++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !search.Admissible(s, b.jump) {
			continue
		}

		left, right := seg.Split(s)
		l, err := model.Cost(left)
		if err != nil {
			return nil, err
		}
		r, err := model.Cost(right)
		if err != nil {
			return nil, err
		}

		if gain := segCost - l - r; search.Exceeds(gain, nd.gain) {
			nd.split, nd.gain, nd.left, nd.right = s, gain, l, r
		}
	}
	return nd, nil
}
