// Package track records cheap per-message pointers during a live session.
// The pointers are advisory: the finalizer uses them to reconcile which
// messages it has already seen, and nothing ever scores them.
package track

import (
	"sync"
	"time"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

const defaultCap = 500

// Tracker keeps a bounded, ordered list of message pointers.
type Tracker struct {
	mu   sync.Mutex
	cap  int
	ptrs []memory.MessagePointer
}

// New creates a tracker bounded at maxPointers (defaulted when <= 0).
func New(maxPointers int) *Tracker {
	if maxPointers <= 0 {
		maxPointers = defaultCap
	}
	return &Tracker{cap: maxPointers}
}

// Record appends a pointer for the message. Oldest pointers fall off past
// the cap.
func (t *Tracker) Record(messageID, text string, hint memory.Category) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ptrs = append(t.ptrs, memory.MessagePointer{
		MessageID:    messageID,
		ContentHash:  memory.ShortHash(text),
		CategoryHint: hint,
		Timestamp:    time.Now(),
	})
	if len(t.ptrs) > t.cap {
		t.ptrs = t.ptrs[len(t.ptrs)-t.cap:]
	}
}

// Pointers returns a copy of the recorded pointers, oldest first.
func (t *Tracker) Pointers() []memory.MessagePointer {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]memory.MessagePointer, len(t.ptrs))
	copy(out, t.ptrs)
	return out
}

// Seen reports whether a message with this content hash was recorded.
func (t *Tracker) Seen(contentHash string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range t.ptrs {
		if p.ContentHash == contentHash {
			return true
		}
	}
	return false
}

// Len returns the number of recorded pointers.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ptrs)
}
