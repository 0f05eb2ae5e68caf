package detect

import (
	"math"
	"strings"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
	"github.com/hed1ad/gochangepoint/pkg/cost"
)

// Method names a search strategy.
type Method string

const (
	// Window is the sliding-window scan.
	Window Method = "window"
	// BinSeg is greedy binary segmentation.
	BinSeg Method = "binseg"
	// Pelt is the pruned exact search.
	Pelt Method = "pelt"
)

var methodAliases = map[string]Method{
	"window":              Window,
	"sliding-window":      Window,
	"binseg":              BinSeg,
	"binary-segmentation": BinSeg,
	"pelt":                Pelt,
}

// Methods lists every supported strategy.
func Methods() []Method {
	return []Method{Window, BinSeg, Pelt}
}

// ParseMethod resolves a case-insensitive method name.
func ParseMethod(name string) (Method, error) {
	if m, ok := methodAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return m, nil
	}
	return "", changepoint.NewConfigError("method", name, "unknown search method")
}

// Config selects a method, a cost model and their parameters for one
// request. It is a plain value and is never modified by the Detector.
type Config struct {
	// Method is one of window, binseg, pelt.
	Method string `yaml:"method" json:"method"`
	// Model is one of l1, l2, rbf, linear, normal, ar.
	Model string `yaml:"model" json:"model"`

	// Width is the window width (window only).
	Width int `yaml:"width" json:"width,omitempty"`
	// NBkps is the number of breakpoints to place (window, binseg).
	NBkps int `yaml:"n_bkps" json:"n_bkps,omitempty"`
	// Penalty is the per-breakpoint penalty (pelt only).
	Penalty float64 `yaml:"penalty" json:"penalty,omitempty"`

	// AROrder is the lag count of the ar model.
	AROrder int `yaml:"ar_order" json:"ar_order,omitempty"`
	// Gamma fixes the rbf bandwidth; zero uses the median heuristic.
	Gamma float64 `yaml:"gamma" json:"gamma,omitempty"`
	// MinSize is the minimum segment length; zero uses the model minimum.
	MinSize int `yaml:"min_size" json:"min_size,omitempty"`
	// Jump is the candidate grid step; zero means every position.
	Jump int `yaml:"jump" json:"jump,omitempty"`

	// DisableCache turns off segment cost memoization.
	DisableCache bool `yaml:"disable_cache" json:"disable_cache,omitempty"`
}

// DefaultConfig returns the defaults of the interactive tool.
func DefaultConfig() Config {
	return Config{
		Method:  string(Pelt),
		Model:   string(cost.L2),
		Width:   20,
		NBkps:   3,
		Penalty: 10,
		AROrder: cost.DefaultAROrder,
	}
}

// Validate checks every field the selected method uses. Bounds that depend
// on the signal length are checked by the searchers.
func (c Config) Validate() error {
	method, err := ParseMethod(c.Method)
	if err != nil {
		return err
	}
	kind, err := cost.ParseKind(c.Model)
	if err != nil {
		return err
	}

	switch method {
	case Window:
		if c.Width <= 0 {
			return changepoint.NewConfigError("width", c.Width, "must be positive")
		}
		if c.NBkps <= 0 {
			return changepoint.NewConfigError("n_bkps", c.NBkps, "must be positive")
		}
	case BinSeg:
		if c.NBkps <= 0 {
			return changepoint.NewConfigError("n_bkps", c.NBkps, "must be positive")
		}
	case Pelt:
		if !(c.Penalty > 0) || math.IsInf(c.Penalty, 0) {
			return changepoint.NewConfigError("penalty", c.Penalty, "must be positive")
		}
	}

	if kind == cost.AR && c.AROrder < 1 {
		return changepoint.NewConfigError("ar_order", c.AROrder, "must be at least 1")
	}
	if c.Gamma < 0 {
		return changepoint.NewConfigError("gamma", c.Gamma, "must not be negative")
	}
	if c.MinSize < 0 {
		return changepoint.NewConfigError("min_size", c.MinSize, "must not be negative")
	}
	if c.Jump < 0 {
		return changepoint.NewConfigError("jump", c.Jump, "must not be negative")
	}
	return nil
}

// SuggestWindowWidth proposes a window width for a series of n samples.
func SuggestWindowWidth(n int) int {
	if w := n / 20; w > 1 {
		return w
	}
	return 1
}
