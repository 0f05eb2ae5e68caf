package io

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hed1ad/gochangepoint/pkg/detect"
)

// Writer is the interface for writing detection reports.
type Writer interface {
	// Write outputs a single report.
	Write(report Report) error

	// WriteAll outputs multiple reports.
	WriteAll(reports []Report) error

	// Close releases resources.
	Close() error
}

// Report is a detection result tied to its input.
type Report struct {
	Source  string `json:"source"`
	Samples int    `json:"samples"`
	// XBreakpoints holds the X value at each change point.
	XBreakpoints []float64 `json:"x_breakpoints,omitempty"`
	*detect.Result
}

// NewReport builds a Report for res computed on s.
func NewReport(source string, s *Series, res *detect.Result) Report {
	return Report{
		Source:       source,
		Samples:      s.Len(),
		XBreakpoints: s.XAt(res.ChangePoints()),
		Result:       res,
	}
}

// JSONWriter writes one JSON document per report.
type JSONWriter struct {
	w   io.Writer
	enc *json.Encoder
}

// NewJSONWriter creates a JSONWriter on w.
func NewJSONWriter(w io.Writer, indent bool) *JSONWriter {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return &JSONWriter{w: w, enc: enc}
}

// Write outputs a single report.
func (j *JSONWriter) Write(report Report) error {
	return j.enc.Encode(report)
}

// WriteAll outputs multiple reports.
func (j *JSONWriter) WriteAll(reports []Report) error {
	for _, r := range reports {
		if err := j.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying writer when it is an io.Closer.
func (j *JSONWriter) Close() error {
	return closeIfCloser(j.w)
}

// TextWriter writes a short human-readable summary per report.
type TextWriter struct {
	w io.Writer
}

// NewTextWriter creates a TextWriter on w.
func NewTextWriter(w io.Writer) *TextWriter {
	return &TextWriter{w: w}
}

// Write outputs a single report.
func (t *TextWriter) Write(report Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s/%s on %d samples\n", report.Source, report.Method, report.Model, report.Samples)
	if report.NoChangePoints {
		fmt.Fprintf(&b, "  %s\n", report.Message)
	} else {
		fmt.Fprintf(&b, "  breakpoints: %v\n", report.Breakpoints)
		fmt.Fprintf(&b, "  x values:    %v\n", report.XBreakpoints)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", w)
	}
	_, err := io.WriteString(t.w, b.String())
	return err
}

// WriteAll outputs multiple reports.
func (t *TextWriter) WriteAll(reports []Report) error {
	for _, r := range reports {
		if err := t.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying writer when it is an io.Closer.
func (t *TextWriter) Close() error {
	return closeIfCloser(t.w)
}

func closeIfCloser(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
