// Package detect is the entry point of the change point engine. A Detector
// validates a request, prepares the signal for the chosen cost model, runs
// the chosen search strategy and reports a normalized, method-agnostic
// Result.
package detect

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
	"github.com/hed1ad/gochangepoint/pkg/search"
	"github.com/hed1ad/gochangepoint/pkg/search/binseg"
	"github.com/hed1ad/gochangepoint/pkg/search/pelt"
	"github.com/hed1ad/gochangepoint/pkg/search/window"
)

// NoChangePointsMessage is reported when only the sentinel is returned.
const NoChangePointsMessage = "no change points detected"

// Result is the outcome of one detection request.
type Result struct {
	Method string `json:"method"`
	Model  string `json:"model"`
	// Breakpoints is strictly increasing and ends with the series length.
	Breakpoints []int `json:"breakpoints"`
	// NoChangePoints is set when Breakpoints holds only the sentinel.
	NoChangePoints bool `json:"no_change_points"`
	// Message is a human-readable summary for the presentation layer.
	Message string `json:"message,omitempty"`
	// Warnings flags valid but suspicious outcomes.
	Warnings []string `json:"warnings,omitempty"`
}

// ChangePoints returns the breakpoints without the sentinel.
func (r *Result) ChangePoints() []int {
	if len(r.Breakpoints) == 0 {
		return nil
	}
	return r.Breakpoints[:len(r.Breakpoints)-1]
}

// Request pairs a signal with its configuration.
type Request struct {
	Data   [][]float64
	Config Config
}

// Detector runs detection requests. It holds no per-request state and is
// safe for concurrent use.
type Detector struct {
	logger      *zap.SugaredLogger
	parallelism int
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(d *Detector) {
		d.logger = l
	}
}

// WithParallelism bounds how many requests DetectAll runs at once.
func WithParallelism(n int) Option {
	return func(d *Detector) {
		d.parallelism = n
	}
}

// New creates a Detector.
func New(opts ...Option) *Detector {
	d := &Detector{
		logger:      zap.NewNop().Sugar(),
		parallelism: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect runs one request to completion.
func (d *Detector) Detect(ctx context.Context, data [][]float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sig, err := changepoint.NewSignal(data)
	if err != nil {
		return nil, err
	}

	kind, _ := cost.ParseKind(cfg.Model)
	method, _ := ParseMethod(cfg.Method)

	if kind == cost.RBF {
		sig = sig.Standardize()
	}

	model, err := cost.New(kind, cost.WithAROrder(cfg.AROrder), cost.WithGamma(cfg.Gamma))
	if err != nil {
		return nil, err
	}

	var cache *cost.Cache
	if !cfg.DisableCache {
		cache = cost.NewCache(model)
		model = cache
	}

	searcher := newSearcher(method, cfg)

	d.logger.Debugw("Running change point search",
		"method", searcher.Name(),
		"model", model.Name(),
		"samples", sig.Len(),
		"features", sig.Dim())

	res, err := searcher.Search(ctx, sig, model)
	if err != nil {
		return nil, err
	}

	n := sig.Len()
	if err := changepoint.Validate(res.Breakpoints, n); err != nil {
		return nil, fmt.Errorf("%s returned malformed breakpoints: %w", searcher.Name(), err)
	}

	out := &Result{
		Method:      string(method),
		Model:       string(kind),
		Breakpoints: res.Breakpoints,
	}

	if changepoint.IsDegenerate(res.Breakpoints, n) {
		out.NoChangePoints = true
		out.Message = NoChangePointsMessage
	} else {
		out.Message = fmt.Sprintf("%d change points detected", len(res.Breakpoints)-1)
	}

	if res.Exhausted && !out.NoChangePoints {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"requested %d breakpoints, found %d", cfg.NBkps, len(res.Breakpoints)-1))
	}

	minSize := search.MinSize(cfg.MinSize, model)
	step := max(minSize, cfg.Jump)
	if method == Pelt && n > 1 && len(res.Breakpoints) >= n/step {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"penalty %g splits the signal at every admissible position", cfg.Penalty))
	}

	for _, w := range out.Warnings {
		d.logger.Warnw(w, "method", out.Method, "model", out.Model)
	}

	if cache != nil {
		hits, misses := cache.Stats()
		d.logger.Debugw("Change point search finished",
			"breakpoints", out.Breakpoints,
			"cost_evaluations", misses,
			"cache_hits", hits)
	}

	return out, nil
}

// DetectAll runs independent requests in parallel. Results are returned in
// request order; the first error cancels the remaining requests.
func (d *Detector) DetectAll(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if d.parallelism > 0 {
		g.SetLimit(d.parallelism)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := d.Detect(ctx, req.Data, req.Config)
			if err != nil {
				return fmt.Errorf("request %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newSearcher(method Method, cfg Config) search.Searcher {
	switch method {
	case Window:
		return window.New(
			window.WithWidth(cfg.Width),
			window.WithBreakpoints(cfg.NBkps),
			window.WithMinSize(cfg.MinSize),
			window.WithJump(cfg.Jump),
		)
	case BinSeg:
		return binseg.New(
			binseg.WithBreakpoints(cfg.NBkps),
			binseg.WithMinSize(cfg.MinSize),
			binseg.WithJump(cfg.Jump),
		)
	default:
		return pelt.New(
			pelt.WithPenalty(cfg.Penalty),
			pelt.WithMinSize(cfg.MinSize),
			pelt.WithJump(cfg.Jump),
		)
	}
}
