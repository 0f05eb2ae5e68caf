// Package csv reads numeric columns from delimited text files.
package csv

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

// Whitespace splits fields on runs of spaces and tabs.
const Whitespace rune = ' '

// HeaderMode selects how the first row is treated.
type HeaderMode int

const (
	// HeaderAuto treats the first row as a header when it is not numeric.
	HeaderAuto HeaderMode = iota
	// HeaderPresent always skips the first row.
	HeaderPresent
	// HeaderAbsent parses the first row as data.
	HeaderAbsent
)

// Reader reads numeric data from CSV or TXT files.
type Reader struct {
	closer    io.Closer
	src       *bufio.Reader
	header    HeaderMode
	delimiter rune
	sniff     bool
	headers   []string
}

// Option configures a CSV reader.
type Option func(*Reader)

// WithHeader forces the presence or absence of a header row.
func WithHeader(has bool) Option {
	return func(r *Reader) {
		if has {
			r.header = HeaderPresent
		} else {
			r.header = HeaderAbsent
		}
	}
}

// WithDelimiter fixes the field delimiter instead of sniffing it.
func WithDelimiter(d rune) Option {
	return func(r *Reader) {
		r.delimiter = d
		r.sniff = false
	}
}

// NewReader opens filename.
func NewReader(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	r := NewReaderFrom(file, opts...)
	r.closer = file
	return r, nil
}

// NewReaderFrom reads from src.
func NewReaderFrom(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		src:    bufio.NewReader(src),
		header: HeaderAuto,
		sniff:  true,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Headers returns the column headers, if the input had a header row.
func (r *Reader) Headers() []string {
	return r.headers
}

// Read returns all data as a 2D float slice. Any cell that is not a finite
// number rejects the whole input.
func (r *Reader) Read() ([][]float64, error) {
	content, err := io.ReadAll(r.src)
	if err != nil {
		return nil, err
	}

	if r.sniff {
		r.delimiter = sniffDelimiter(content)
	}

	records, err := r.records(content)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no data rows", changepoint.ErrInvalidSignal)
	}

	first := 0
	switch r.header {
	case HeaderPresent:
		first = 1
	case HeaderAuto:
		if _, err := parseRow(records[0]); err != nil {
			first = 1
		}
	}
	if first == 1 {
		r.headers = records[0]
	}

	data := make([][]float64, 0, len(records)-first)
	for i, record := range records[first:] {
		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", changepoint.ErrInvalidSignal, i+first+1, err)
		}
		data = append(data, row)
	}

	return data, nil
}

// Close releases resources.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) records(content []byte) ([][]string, error) {
	if r.delimiter == Whitespace {
		var records [][]string
		scanner := bufio.NewScanner(bytes.NewReader(content))
		for scanner.Scan() {
			if fields := strings.Fields(scanner.Text()); len(fields) > 0 {
				records = append(records, fields)
			}
		}
		return records, scanner.Err()
	}

	cr := csv.NewReader(bytes.NewReader(content))
	cr.Comma = r.delimiter
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

// sniffDelimiter inspects the first non-empty line.
func sniffDelimiter(content []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		for _, d := range []rune{',', '\t', ';'} {
			if strings.ContainsRune(line, d) {
				return d
			}
		}
		return Whitespace
	}
	return ','
}

// parseRow converts string slice to float slice.
func parseRow(record []string) ([]float64, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("empty row")
	}

	row := make([]float64, len(record))
	for i, val := range record {
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("column %d: non-finite value %q", i+1, val)
		}
		row[i] = f
	}
	return row, nil
}
