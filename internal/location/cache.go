// Package location holds the most recent position fix of a session.
package location

import (
	"errors"
	"sync"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// ErrLocationUnavailable is reported when no position has arrived yet.
var ErrLocationUnavailable = errors.New("location unavailable")

// Cache keeps only the latest position, last write wins.
// Values never expire: a fix from minutes ago is still returned as current.
type Cache struct {
	// current is the latest fix, nil until the first update.
	current *walk.PositionSample
	// mu protects current.
	mu sync.RWMutex
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return new(Cache)
}

// Update overwrites the cached position unconditionally.
func (c *Cache) Update(p walk.PositionSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = &p
}

// Current returns a copy of the latest position, or false if none arrived yet.
func (c *Cache) Current() (walk.PositionSample, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return walk.PositionSample{}, false
	}

	return *c.current, true
}

// Require returns the latest position or ErrLocationUnavailable.
func (c *Cache) Require() (walk.PositionSample, error) {
	p, ok := c.Current()
	if !ok {
		return walk.PositionSample{}, ErrLocationUnavailable
	}

	return p, nil
}

// Clear discards the cached position.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.current = nil
}
