// Package audit keeps the append-only, size-bounded mutation history.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/memory"
)

// Log is the audit log backed by one JSON file. One record per mutation;
// trimmed to the most recent TrimTo once it grows past Cap.
type Log struct {
	mu     sync.Mutex
	path   string
	cfg    config.AuditConfig
	events []memory.AuditEvent
	dirty  bool
}

// Open loads the audit log at path. A missing or corrupt file starts
// empty; history is nice to have, never load-bearing.
func Open(path string, cfg config.AuditConfig) *Log {
	l := &Log{path: path, cfg: cfg}
	content, err := os.ReadFile(path)
	if err != nil {
		return l
	}
	if err := json.Unmarshal(content, &l.events); err != nil {
		l.events = nil
	}
	return l
}

// Append records one mutation.
func (l *Log) Append(action string, entryID, detail string, source memory.Actor) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, memory.AuditEvent{
		Action:    action,
		EntryID:   entryID,
		Detail:    detail,
		Source:    source,
		Timestamp: time.Now(),
	})
	if len(l.events) > l.cfg.Cap {
		l.events = append(l.events[:0:0], l.events[len(l.events)-l.cfg.TrimTo:]...)
	}
	l.dirty = true
}

// Events returns the most recent n events, newest last. n <= 0 returns
// everything.
func (l *Log) Events(n int) []memory.AuditEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]memory.AuditEvent, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// Flush persists the log if anything changed since the last flush.
func (l *Log) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.dirty {
		return nil
	}
	data, err := json.MarshalIndent(l.events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal audit log: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	l.dirty = false
	return nil
}
