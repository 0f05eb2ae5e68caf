package changepoint

import (
	"fmt"
	"sort"
)

// Coster is the subset of a cost model needed to score a partition.
type Coster interface {
	Cost(seg Segment) (float64, error)
}

// Normalize sorts bkps, drops duplicates and out-of-range values, and makes
// sure the list ends with the sentinel n.
func Normalize(bkps []int, n int) []int {
	out := make([]int, 0, len(bkps)+1)
	for _, b := range bkps {
		if b > 0 && b < n {
			out = append(out, b)
		}
	}
	sort.Ints(out)

	uniq := out[:0]
	for i, b := range out {
		if i == 0 || b != out[i-1] {
			uniq = append(uniq, b)
		}
	}
	return append(uniq, n)
}

// Validate checks that bkps is strictly increasing, lies in (0, n] and ends
// with n.
func Validate(bkps []int, n int) error {
	if len(bkps) == 0 {
		return fmt.Errorf("empty breakpoint list")
	}
	prev := 0
	for i, b := range bkps {
		if b <= prev || b > n {
			return fmt.Errorf("breakpoint %d at position %d out of order or range (0, %d]", b, i, n)
		}
		prev = b
	}
	if bkps[len(bkps)-1] != n {
		return fmt.Errorf("breakpoint list must end with %d, got %d", n, bkps[len(bkps)-1])
	}
	return nil
}

// IsDegenerate reports whether bkps holds nothing but the sentinel n.
func IsDegenerate(bkps []int, n int) bool {
	return len(bkps) == 0 || (len(bkps) == 1 && bkps[0] == n)
}

// Segments expands a breakpoint list into the segments it delimits.
func Segments(bkps []int) []Segment {
	segs := make([]Segment, 0, len(bkps))
	start := 0
	for _, b := range bkps {
		segs = append(segs, Segment{Start: start, End: b})
		start = b
	}
	return segs
}

// TotalCost sums the cost of every segment delimited by bkps.
func TotalCost(c Coster, bkps []int) (float64, error) {
	var total float64
	for _, seg := range Segments(bkps) {
		v, err := c.Cost(seg)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
