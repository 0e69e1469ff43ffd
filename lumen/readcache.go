package lumen

import (
	"sync"
	"time"
)

// readCache is the idempotent read-receipt request guard: a short-lived
// set of in-flight mark-room-read requests keyed by room id, preventing
// duplicate network calls from overlapping UI events. Entries expire on
// their own.
type readCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]*time.Timer
}

func newReadCache(ttl time.Duration) *readCache {
	return &readCache{ttl: ttl, pending: make(map[string]*time.Timer)}
}

// tryAcquire reports whether a request for roomID may proceed, and if
// so records it until the TTL expires.
func (c *readCache) tryAcquire(roomID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[roomID]; ok {
		return false
	}
	var tm *time.Timer
	tm = time.AfterFunc(c.ttl, func() {
		c.mu.Lock()
		// Only this timer's own entry; a cleared-and-reacquired room
		// has a fresh timer that must survive.
		if c.pending[roomID] == tm {
			delete(c.pending, roomID)
		}
		c.mu.Unlock()
	})
	c.pending[roomID] = tm
	return true
}

// clear cancels every expiry timer and empties the cache.
func (c *readCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, t := range c.pending {
		t.Stop()
		delete(c.pending, id)
	}
}
