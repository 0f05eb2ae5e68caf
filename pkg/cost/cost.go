// Package cost implements segment cost functions for change point search.
//
// A Model is fitted once on a whole Signal and then scores any contiguous
// segment of it. Lower cost means the segment is better explained by a single
// regime of the model. Every model has a minimum segment size; scoring a
// shorter segment returns a *changepoint.SegmentTooSmallError.
package cost

import (
	"fmt"
	"strings"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// Kind names a cost model family.
type Kind string

const (
	L1     Kind = "l1"
	L2     Kind = "l2"
	RBF    Kind = "rbf"
	Linear Kind = "linear"
	Normal Kind = "normal"
	AR     Kind = "ar"
)

// Kinds lists every supported family.
func Kinds() []Kind {
	return []Kind{L1, L2, RBF, Linear, Normal, AR}
}

// ParseKind resolves a case-insensitive model name.
func ParseKind(name string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", changepoint.NewConfigError("model", name, "unknown cost model")
}

// Model is the common interface of all cost functions.
type Model interface {
	// Name returns the model family.
	Name() string

	// Fit prepares the model for scoring segments of sig.
	Fit(sig *changepoint.Signal) error

	// Cost returns the non-negative cost of seg.
	Cost(seg changepoint.Segment) (float64, error)

	// MinSize is the smallest segment length Cost accepts.
	MinSize() int
}

// DefaultAROrder is the autoregressive order used when none is given.
const DefaultAROrder = 4

type options struct {
	arOrder int
	gamma   float64
}

// Option configures a cost model.
type Option func(*options)

// WithAROrder sets the number of lags of the ar model.
func WithAROrder(p int) Option {
	return func(o *options) {
		o.arOrder = p
	}
}

// WithGamma fixes the rbf kernel bandwidth. Zero selects the median
// heuristic at fit time.
func WithGamma(g float64) Option {
	return func(o *options) {
		o.gamma = g
	}
}

// New creates an unfitted model of the given family.
func New(kind Kind, opts ...Option) (Model, error) {
	o := options{arOrder: DefaultAROrder}
	for _, opt := range opts {
		opt(&o)
	}

	switch kind {
	case L1:
		return &l1Cost{}, nil
	case L2:
		return &l2Cost{}, nil
	case RBF:
		if o.gamma < 0 {
			return nil, changepoint.NewConfigError("gamma", o.gamma, "must not be negative")
		}
		return &rbfCost{gamma: o.gamma}, nil
	case Linear:
		return &linearCost{}, nil
	case Normal:
		return &normalCost{}, nil
	case AR:
		if o.arOrder < 1 {
			return nil, changepoint.NewConfigError("ar_order", o.arOrder, "must be at least 1")
		}
		return &arCost{order: o.arOrder}, nil
	default:
		return nil, changepoint.NewConfigError("model", string(kind), "unknown cost model")
	}
}

// base carries the fitted signal and the bounds checks shared by all models.
type base struct {
	sig *changepoint.Signal
}

func (b *base) check(name string, minSize int, seg changepoint.Segment) error {
	if b.sig == nil {
		return changepoint.ErrNotFitted
	}
	if seg.Start < 0 || seg.End > b.sig.Len() || seg.Start > seg.End {
		return fmt.Errorf("segment %v out of range [0, %d]", seg, b.sig.Len())
	}
	if seg.Len() < minSize {
		return &changepoint.SegmentTooSmallError{
			Model:   name,
			Start:   seg.Start,
			End:     seg.End,
			MinSize: minSize,
		}
	}
	return nil
}
