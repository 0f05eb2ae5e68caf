package cost

import (
	"github.com/hed1ad/gochangepoint/pkg/changepoint"
)

type cacheKey struct {
	model  string
	signal uint64
	start  int
	end    int
}

// Cache memoizes segment costs of a wrapped model. Keys carry the model name
// and the fitted signal's fingerprint as well as the bounds, and Fit drops
// every entry, so a Cache never returns a cost computed for other data.
//
// A Cache is meant for a single request and is not safe for concurrent use.
type Cache struct {
	model  Model
	signal uint64
	costs  map[cacheKey]float64

	hits   int
	misses int
}

// NewCache wraps m.
func NewCache(m Model) *Cache {
	return &Cache{
		model: m,
		costs: make(map[cacheKey]float64),
	}
}

func (c *Cache) Name() string { return c.model.Name() }

func (c *Cache) MinSize() int { return c.model.MinSize() }

// Unwrap returns the underlying model.
func (c *Cache) Unwrap() Model { return c.model }

func (c *Cache) Fit(sig *changepoint.Signal) error {
	if err := c.model.Fit(sig); err != nil {
		return err
	}
	c.signal = sig.Fingerprint()
	c.costs = make(map[cacheKey]float64)
	c.hits, c.misses = 0, 0
	return nil
}

func (c *Cache) Cost(seg changepoint.Segment) (float64, error) {
	key := cacheKey{model: c.model.Name(), signal: c.signal, start: seg.Start, end: seg.End}
	if v, ok := c.costs[key]; ok {
		c.hits++
		return v, nil
	}

	v, err := c.model.Cost(seg)
	if err != nil {
		return 0, err
	}
	c.misses++
	c.costs[key] = v
	return v, nil
}

// Stats returns the number of cache hits and misses since the last Fit.
func (c *Cache) Stats() (hits, misses int) {
	return c.hits, c.misses
}
