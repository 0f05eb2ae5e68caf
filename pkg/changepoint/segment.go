package changepoint

import "fmt"

// Segment is the half-open sample interval [Start, End).
type Segment struct {
	Start int
	End   int
}

// Len returns the number of samples in the segment.
func (s Segment) Len() int { return s.End - s.Start }

// Split cuts the segment at bkp, which must lie strictly inside it.
func (s Segment) Split(bkp int) (Segment, Segment) {
	return Segment{Start: s.Start, End: bkp}, Segment{Start: bkp, End: s.End}
}

func (s Segment) String() string {
	return fmt.Sprintf("[%d, %d)", s.Start, s.End)
}
