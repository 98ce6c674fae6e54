// Package store holds the in-memory, append-only log of validated
// interaction events. All state lives in process memory; there is no
// on-disk representation.
package store

import (
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// EventWeights maps recognized event types to their interaction strength.
// Unknown event types are rejected at ingest time.
var EventWeights = map[string]float64{
	"view":        1.0,
	"add_to_cart": 2.0,
	"purchase":    3.0,
}

// Interaction is one validated (user, product, weight, timestamp) record.
// Immutable once stored; records are never deleted individually, only
// cleared in bulk via Reset.
type Interaction struct {
	ID        string
	UserID    string
	ProductID string
	Weight    float64
	Timestamp string
}

// EventStore accumulates interactions behind a single mutex. Both appends
// and snapshot reads go through the lock; the lock is held only for the
// append or the copy, never across derived computation.
type EventStore struct {
	mu     sync.Mutex
	events []Interaction
}

// Stats summarizes the current store contents.
type Stats struct {
	Events   int `json:"events"`
	Users    int `json:"users"`
	Products int `json:"products"`
}

func New() *EventStore {
	return &EventStore{}
}

// Reset clears all stored interactions. Idempotent.
func (s *EventStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// Ingest validates a batch of loosely-typed event records and appends the
// accepted ones atomically. Malformed rows are skipped, not errored:
// upstream event streams are noisy and a bad row must never poison a batch.
// Returns the number of records appended.
func (s *EventStore) Ingest(raw []map[string]any) int {
	accepted := make([]Interaction, 0, len(raw))
	for _, ev := range raw {
		rec, ok := parseEvent(ev)
		if !ok {
			continue
		}
		accepted = append(accepted, rec)
	}
	if len(accepted) == 0 {
		return 0
	}

	s.mu.Lock()
	s.events = append(s.events, accepted...)
	s.mu.Unlock()
	return len(accepted)
}

// Snapshot returns a point-in-time copy of all stored interactions.
// The copy is detached: concurrent ingests never mutate a returned slice.
func (s *EventStore) Snapshot() []Interaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Interaction, len(s.events))
	copy(out, s.events)
	return out
}

// Stats reports event, distinct-user, and distinct-product counts.
func (s *EventStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]struct{})
	products := make(map[string]struct{})
	for _, ev := range s.events {
		users[ev.UserID] = struct{}{}
		products[ev.ProductID] = struct{}{}
	}
	return Stats{
		Events:   len(s.events),
		Users:    len(users),
		Products: len(products),
	}
}

// parseEvent converts one untyped event row into an Interaction. Returns
// false when the row is malformed: missing user or product, or an
// unrecognized event type.
func parseEvent(ev map[string]any) (Interaction, bool) {
	userID := stringField(ev, "userId")
	productID := stringField(ev, "productId")
	if userID == "" || productID == "" {
		return Interaction{}, false
	}

	eventType := strings.ToLower(stringField(ev, "eventType"))
	weight, ok := EventWeights[eventType]
	if !ok {
		return Interaction{}, false
	}

	// Two timestamp spellings exist upstream; first non-empty wins.
	ts := stringField(ev, "ts")
	if ts == "" {
		ts = stringField(ev, "timestamp")
	}

	return Interaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Weight:    weight,
		Timestamp: ts,
	}, true
}

// stringField coerces a JSON-decoded value to a string. Numeric IDs are
// accepted and stringified; anything else non-string is treated as absent.
func stringField(ev map[string]any, key string) string {
	switch v := ev[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
