package search

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/hyperjump/ajwiba/internal/models"
)

// ResultCache holds recent successful responses keyed by the canonical query.
// A nil *ResultCache is a valid, disabled cache.
type ResultCache struct {
	lru *expirable.LRU[string, *models.SearchResponse]
	ttl time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewResultCache creates a cache of up to size responses, each kept for ttl.
// It returns nil (caching disabled) when size is not positive.
func NewResultCache(size int, ttl time.Duration) *ResultCache {
	if size <= 0 {
		return nil
	}
	return &ResultCache{
		lru: expirable.NewLRU[string, *models.SearchResponse](size, nil, ttl),
		ttl: ttl,
	}
}

// Get returns the cached response for key.
func (c *ResultCache) Get(key string) (*models.SearchResponse, bool) {
	if c == nil {
		return nil, false
	}
	return c.lru.Get(key)
}

// Generation returns a counter that changes on every Purge.
func (c *ResultCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Add stores resp under key unless the cache was purged since generation was read.
// It reports whether resp was stored.
func (c *ResultCache) Add(key string, resp *models.SearchResponse, generation uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.lru.Add(key, resp)
	return true
}

// Purge drops every entry and starts a new generation.
func (c *ResultCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.lru.Purge()
}

// Len returns the number of cached responses.
func (c *ResultCache) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// TTL returns how long entries are kept.
func (c *ResultCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}
