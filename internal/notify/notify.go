// Package notify provides a transport-agnostic change notifier for row-level
// updates (ticket used, balance changed). Surfaces subscribe to the entities
// they render; publishers record every delivery for inspection in tests.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Change describes one row-level mutation.
type Change struct {
	Entity string    `json:"entity"` // "tickets", "balances", ...
	ID     string    `json:"id"`
	Type   string    `json:"type"` // "insert", "update", "delete"
	At     time.Time `json:"at"`
}

// Delivery records one change handed to one subscriber.
type Delivery struct {
	ChangeID   string    `json:"change_id"`
	Subscriber string    `json:"subscriber"`
	At         time.Time `json:"at"`
}

// Handler receives changes for a subscription.
type Handler func(Change)

type subscription struct {
	id      string
	entity  string
	rowID   string // "" subscribes to the whole entity
	handler Handler
}

// Notifier fans out changes to matching subscribers synchronously, in
// subscription order. Handlers must not block.
type Notifier struct {
	mu         sync.RWMutex
	logger     *slog.Logger
	subs       []subscription
	deliveries []Delivery
	counter    int
}

// New creates a Notifier.
func New(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Subscribe registers a handler for changes to the given entity. An empty
// rowID matches every row. The returned function cancels the subscription.
func (n *Notifier) Subscribe(entity, rowID string, handler Handler) func() {
	n.mu.Lock()
	n.counter++
	id := fmt.Sprintf("sub_%06d", n.counter)
	n.subs = append(n.subs, subscription{id: id, entity: entity, rowID: rowID, handler: handler})
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, s := range n.subs {
			if s.id == id {
				n.subs = append(n.subs[:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers a change to every matching subscriber. The At timestamp
// is filled in if the caller left it zero.
func (n *Notifier) Publish(ch Change) {
	if ch.At.IsZero() {
		ch.At = time.Now()
	}

	n.mu.RLock()
	matched := make([]subscription, 0, len(n.subs))
	for _, s := range n.subs {
		if s.entity == ch.Entity && (s.rowID == "" || s.rowID == ch.ID) {
			matched = append(matched, s)
		}
	}
	n.mu.RUnlock()

	changeID := ch.Entity + ":" + ch.ID
	for _, s := range matched {
		s.handler(ch)
		n.mu.Lock()
		n.deliveries = append(n.deliveries, Delivery{
			ChangeID:   changeID,
			Subscriber: s.id,
			At:         time.Now(),
		})
		n.mu.Unlock()
	}

	n.logger.Debug("change published",
		"entity", ch.Entity,
		"id", ch.ID,
		"type", ch.Type,
		"subscribers", len(matched),
	)
}

// Deliveries returns all delivery records.
func (n *Notifier) Deliveries() []Delivery {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]Delivery, len(n.deliveries))
	copy(out, n.deliveries)
	return out
}

// Reset clears subscriptions and the delivery log.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = nil
	n.deliveries = nil
	n.counter = 0
}
