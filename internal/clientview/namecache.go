package clientview

import (
	"sync"
	"time"
)

// NameCache remembers the display name resolved for each character number
// seen in the tile grid, and throttles how often the client is allowed to
// issue an autolook request for the same character number — without it, a
// client hovering over one moving character would flood the connection
// with lookup requests every tick.
type NameCache struct {
	mu       sync.Mutex
	names    map[uint16]string
	lastLook map[uint16]time.Time
	throttle time.Duration
}

// NewNameCache returns a cache that throttles repeat autolook requests for
// the same character number to no more than once per throttle.
func NewNameCache(throttle time.Duration) *NameCache {
	return &NameCache{
		names:    make(map[uint16]string),
		lastLook: make(map[uint16]time.Time),
		throttle: throttle,
	}
}

// Name returns the cached display name for characterNumber, if known.
func (c *NameCache) Name(characterNumber uint16) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	name, ok := c.names[characterNumber]
	return name, ok
}

// Set records the display name resolved for characterNumber.
func (c *NameCache) Set(characterNumber uint16, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[characterNumber] = name
}

// ShouldAutolook reports whether an autolook request for characterNumber
// is due at now: true unless a request for the same number was already
// made within the throttle window, whether or not its name is known yet.
// A true result records now as the new last-request time.
func (c *NameCache) ShouldAutolook(characterNumber uint16, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, seen := c.lastLook[characterNumber]
	if seen && now.Sub(last) < c.throttle {
		return false
	}
	c.lastLook[characterNumber] = now
	return true
}

// Forget drops a character number from both the name and throttle tables,
// for when the tile grid no longer contains it (scrolled or despawned out
// of view).
func (c *NameCache) Forget(characterNumber uint16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, characterNumber)
	delete(c.lastLook, characterNumber)
}
