// Package cache memoizes analysis results keyed by (guide, parameters,
// index generation), using an LRU so repeated re-analysis of the same
// guide under unchanged parameters short-circuits the full pipeline.
package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"sirna-offtarget/internal/api"
)

const defaultCapacity = 4096

// Key identifies one memoized analysis.
type Key struct {
	Guide           string
	Generation      string
	MaxMismatches   int
	AllowWobble     bool
	EnergyThreshold float64
	RestrictToUTR3  bool
}

// Cache wraps an LRU of Key -> api.AnalysisResult.
type Cache struct {
	lru *lru.Cache[Key, api.AnalysisResult]
}

// New creates a cache holding up to capacity entries (defaultCapacity if
// capacity <= 0).
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	l, err := lru.New[Key, api.AnalysisResult](capacity)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l}, nil
}

// Get returns a cached result, if present.
func (c *Cache) Get(k Key) (api.AnalysisResult, bool) {
	return c.lru.Get(k)
}

// Put stores a result under k, evicting the least recently used entry if
// the cache is full.
func (c *Cache) Put(k Key, result api.AnalysisResult) {
	c.lru.Add(k, result)
}
