package changepoint

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSignal reports empty, ragged, or non-finite input.
	ErrInvalidSignal = errors.New("invalid signal")

	// ErrConfiguration reports a search parameter out of its domain.
	ErrConfiguration = errors.New("configuration error")

	// ErrSegmentTooSmall reports a cost evaluated on a segment shorter than
	// the model allows.
	ErrSegmentTooSmall = errors.New("segment too small")

	// ErrNotFitted is returned when a cost model is used before Fit.
	ErrNotFitted = errors.New("model not fitted")
)

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

// NewConfigError builds a ConfigError.
func NewConfigError(field string, value any, reason string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Reason: reason}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrConfiguration, e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// SegmentTooSmallError identifies the model and the segment bounds that
// violated the model's minimum size.
type SegmentTooSmallError struct {
	Model   string
	Start   int
	End     int
	MinSize int
}

func (e *SegmentTooSmallError) Error() string {
	return fmt.Sprintf("%s: model %q needs at least %d samples, got [%d, %d)",
		ErrSegmentTooSmall, e.Model, e.MinSize, e.Start, e.End)
}

func (e *SegmentTooSmallError) Unwrap() error {
	return ErrSegmentTooSmall
}

// SegmentCostError reports a segment whose cost cannot be represented, such
// as a covariance that overflows. It unwraps to ErrInvalidSignal since the
// scale of the input is at fault.
type SegmentCostError struct {
	Model  string
	Start  int
	End    int
	Reason string
}

func (e *SegmentCostError) Error() string {
	return fmt.Sprintf("%s: model %q on [%d, %d): %s",
		ErrInvalidSignal, e.Model, e.Start, e.End, e.Reason)
}

func (e *SegmentCostError) Unwrap() error {
	return ErrInvalidSignal
}

func invalidSignal(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSignal, fmt.Sprintf(format, args...))
}
