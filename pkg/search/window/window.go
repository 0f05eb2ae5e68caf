// Package window implements sliding-window change point search.
//
// Each admissible position i is scored by the gain of splitting the window
// [i-w, i+w) at i:
//
//	gain(i) = cost([i-w, i+w)) - cost([i-w, i)) - cost([i, i+w))
//
// The highest strict local maxima of the gain curve are then picked greedily,
// at least w apart.
package window

import (
	"context"
	"math"
	"sort"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
	"github.com/hed1ad/gochangepoint/pkg/search"
)

// gainTolerance is the relative gain below which a split is treated as
// round-off rather than a change.
const gainTolerance = 1e-9

// Window is the sliding-window searcher.
type Window struct {
	width   int
	nBkps   int
	minSize int
	jump    int
}

// Option configures a Window.
type Option func(*Window)

// WithWidth sets the window width w. Each side of a candidate spans w
// samples.
func WithWidth(w int) Option {
	return func(s *Window) {
		s.width = w
	}
}

// WithBreakpoints sets how many breakpoints to select.
func WithBreakpoints(n int) Option {
	return func(s *Window) {
		s.nBkps = n
	}
}

// WithMinSize sets the minimum segment length.
func WithMinSize(n int) Option {
	return func(s *Window) {
		s.minSize = n
	}
}

// WithJump restricts candidates to multiples of n.
func WithJump(n int) Option {
	return func(s *Window) {
		s.jump = n
	}
}

// New creates a Window searcher.
func New(opts ...Option) *Window {
	s := &Window{
		width: 20,
		nBkps: 3,
		jump:  1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements search.Searcher.
func (s *Window) Name() string { return "window" }

type candidate struct {
	pos  int
	gain float64
}

// Search implements search.Searcher.
func (s *Window) Search(ctx context.Context, sig *changepoint.Signal, model cost.Model) (search.Result, error) {
	n := sig.Len()
	if s.width <= 0 {
		return search.Result{}, changepoint.NewConfigError("width", s.width, "must be positive")
	}
	if s.width >= n {
		return search.Result{}, changepoint.NewConfigError("width", s.width, "must be smaller than the signal length")
	}
	if s.nBkps <= 0 {
		return search.Result{}, changepoint.NewConfigError("n_bkps", s.nBkps, "must be positive")
	}

	if err := model.Fit(sig); err != nil {
		return search.Result{}, err
	}

	scores, err := s.scores(ctx, n, model)
	if err != nil {
		return search.Result{}, err
	}

	peaks := localMaxima(scores)
	sort.SliceStable(peaks, func(i, j int) bool {
		if search.Exceeds(peaks[i].gain, peaks[j].gain) {
			return true
		}
		if search.Exceeds(peaks[j].gain, peaks[i].gain) {
			return false
		}
		return peaks[i].pos < peaks[j].pos
	})

	selected := make([]int, 0, s.nBkps)
	for _, p := range peaks {
		if len(selected) == s.nBkps {
			break
		}
		if s.farEnough(p.pos, selected) {
			selected = append(selected, p.pos)
		}
	}

	return search.Result{
		Breakpoints: changepoint.Normalize(selected, n),
		Exhausted:   len(selected) < s.nBkps,
	}, nil
}

// scores computes the gain curve over every admissible position.
func (s *Window) scores(ctx context.Context, n int, model cost.Model) ([]candidate, error) {
	w := s.width
	minSize := search.MinSize(s.minSize, model)

	var out []candidate
	for i := w; i+w <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !search.Admissible(i, s.jump) || i < minSize || n-i < minSize {
			continue
		}

		full := changepoint.Segment{Start: i - w, End: i + w}
		left, right := full.Split(i)

		total, err := model.Cost(full)
		if err != nil {
			return nil, err
		}
		l, err := model.Cost(left)
		if err != nil {
			return nil, err
		}
		r, err := model.Cost(right)
		if err != nil {
			return nil, err
		}

		gain := total - l - r
		if gain <= gainTolerance*math.Max(1, math.Abs(total)) {
			gain = 0
		}
		out = append(out, candidate{pos: i, gain: gain})
	}
	return out, nil
}

// localMaxima keeps positive-gain points that rise above their left
// neighbour and are not below their right one; on a plateau only the first
// point is kept.
func localMaxima(scores []candidate) []candidate {
	var peaks []candidate
	for k, c := range scores {
		if c.gain <= 0 {
			continue
		}
		left, right := math.Inf(-1), math.Inf(-1)
		if k > 0 {
			left = scores[k-1].gain
		}
		if k+1 < len(scores) {
			right = scores[k+1].gain
		}
		if c.gain > left && c.gain >= right {
			peaks = append(peaks, c)
		}
	}
	return peaks
}

func (s *Window) farEnough(pos int, selected []int) bool {
	for _, b := range selected {
		d := pos - b
		if d < 0 {
			d = -d
		}
		if d < s.width {
			return false
		}
	}
	return true
}
