// Package event notifies external observers about memory lifecycle
// changes. Hooks are advisory: the engine never depends on a hook
// succeeding, and a nil bus disables the whole mechanism.
package event

import "time"

// EventType identifies the kind of memory lifecycle event.
type EventType string

const (
	// Entry lifecycle
	EntryPromoted   EventType = "entry.promoted"
	EntryBoosted    EventType = "entry.boosted"
	EntryPinned     EventType = "entry.pinned"
	EntrySuppressed EventType = "entry.suppressed"
	EntryEvicted    EventType = "entry.evicted"

	// Conflicts
	ConflictDetected EventType = "conflict.detected"
	ConflictResolved EventType = "conflict.resolved"

	// Sessions and maintenance
	SessionFinalized EventType = "session.finalized"
	StoreCompacted   EventType = "store.compacted"
)

// Event carries data about one lifecycle occurrence.
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]interface{}) Event {
	return Event{
		Type:      t,
		Timestamp: time.Now(),
		Data:      data,
	}
}
