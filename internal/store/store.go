// Package store provides a generic, thread-safe, in-memory collection used
// by the backend twin for events, codes, tickets, and participant records.
// It supports CRUD, filtering, and snapshot load/dump for seeding and tests.
package store

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Collection is a generic, thread-safe, in-memory store for objects of type T.
type Collection[T any] struct {
	mu      sync.RWMutex
	items   map[string]T
	order   []string // insertion order for deterministic listing
	prefix  string
	counter atomic.Uint64
}

// New creates a Collection with the given ID prefix (e.g. "evt", "tck").
func New[T any](prefix string) *Collection[T] {
	return &Collection[T]{
		items:  make(map[string]T),
		order:  make([]string, 0),
		prefix: prefix,
	}
}

// NextID generates a deterministic ID of the form "{prefix}-{counter}",
// e.g. "tck-000001".
func (c *Collection[T]) NextID() string {
	n := c.counter.Add(1)
	return fmt.Sprintf("%s-%06d", c.prefix, n)
}

// Set stores an item under the given ID. Overwriting preserves the item's
// position in the insertion order.
func (c *Collection[T]) Set(id string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

// Get retrieves an item by ID.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Delete removes an item by ID. Returns true if the item existed.
func (c *Collection[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.items[id]; !exists {
		return false
	}
	delete(c.items, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns all items in insertion order.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]T, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.items[id])
	}
	return result
}

// Count returns the number of items.
func (c *Collection[T]) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Find returns the first item matching the predicate, in insertion order.
func (c *Collection[T]) Find(predicate func(id string, item T) bool) (string, T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		if predicate(id, c.items[id]) {
			return id, c.items[id], true
		}
	}
	var zero T
	return "", zero, false
}

// Filter returns all items matching the predicate, in insertion order.
func (c *Collection[T]) Filter(predicate func(id string, item T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []T
	for _, id := range c.order {
		if predicate(id, c.items[id]) {
			result = append(result, c.items[id])
		}
	}
	return result
}

// Reset clears all items and resets the ID counter.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]T)
	c.order = make([]string, 0)
	c.counter.Store(0)
}

// Snapshot returns all items as a JSON-serializable map.
func (c *Collection[T]) Snapshot() map[string]T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]T, len(c.items))
	for k, v := range c.items {
		snapshot[k] = v
	}
	return snapshot
}

// LoadSnapshot replaces all items from a map. Existing items are cleared.
// IDs are sorted to keep listing order deterministic.
func (c *Collection[T]) LoadSnapshot(snapshot map[string]T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]T, len(snapshot))
	c.order = make([]string, 0, len(snapshot))
	for k, v := range snapshot {
		c.items[k] = v
		c.order = append(c.order, k)
	}
	sort.Strings(c.order)
}

// Clock is a simulated clock for time-dependent twin behavior such as token
// expiry. Tests advance it instead of sleeping.
type Clock struct {
	mu     sync.RWMutex
	offset time.Duration
}

// NewClock creates a clock with no offset.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Now().Add(c.offset)
}

// Advance moves the simulated clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

// Reset resets the clock offset to zero.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = 0
}

// Offset returns the current clock offset.
func (c *Clock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}
