package watcher

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultDebounce is the minimum spacing between two accepted events for the
// same path.
const DefaultDebounce = 250 * time.Millisecond

// Debouncer remembers when each key was last accepted. With no capacity the
// store grows with every distinct path touched and is never pruned.
type Debouncer struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	bounded *lru.Cache[string, time.Time]
}

// NewDebouncer returns a store. A positive capacity evicts the least recently
// accepted keys once that many are held.
func NewDebouncer(capacity int) *Debouncer {
	d := &Debouncer{}
	if capacity > 0 {
		// lru.New only fails for a non-positive size.
		d.bounded, _ = lru.New[string, time.Time](capacity)
	} else {
		d.seen = make(map[string]time.Time)
	}
	return d
}

// Accept reports whether an event for key at now should be let through. The
// stored timestamp moves to now only on acceptance.
func (d *Debouncer) Accept(key string, now time.Time, window time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.get(key); ok && window > 0 && now.Sub(last) <= window {
		return false
	}
	d.put(key, now)
	return true
}

// Len returns the number of keys currently held.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bounded != nil {
		return d.bounded.Len()
	}
	return len(d.seen)
}

func (d *Debouncer) get(key string) (time.Time, bool) {
	if d.bounded != nil {
		return d.bounded.Get(key)
	}
	t, ok := d.seen[key]
	return t, ok
}

func (d *Debouncer) put(key string, now time.Time) {
	if d.bounded != nil {
		d.bounded.Add(key, now)
		return
	}
	d.seen[key] = now
}
