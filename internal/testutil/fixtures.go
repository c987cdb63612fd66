package testutil

import (
	"fmt"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/finalize"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

// TestLogger returns a quiet logger suitable for tests.
func TestLogger() *telemetry.Logger {
	return telemetry.NewLogger(false)
}

// TestConfig returns the default configuration with the balanced
// preset, matching what a fresh install would run.
func TestConfig() *config.Config {
	return config.Default()
}

// Entry builds a confirmed entry with sensible defaults. Callers
// mutate the returned value for scenario-specific fields.
func Entry(id, content string, category memory.Category) memory.Entry {
	now := time.Now().UTC()
	return memory.Entry{
		ID:          id,
		Fingerprint: memory.Fingerprint(content),
		Content:     content,
		Category:    category,
		Importance:  0.5,
		Status:      memory.StatusConfirmed,
		Confidence:  0.8,
		Source: memory.Source{
			SessionID:  "session-1",
			AgentID:    "test-agent",
			PromotedAt: now,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PinnedEntry builds a pinned entry.
func PinnedEntry(id, content string) memory.Entry {
	e := Entry(id, content, memory.CategoryPreference)
	e.Status = memory.StatusPinned
	e.Importance = 0.9
	return e
}

// SeedStore returns a store populated with the given entries.
func SeedStore(entries ...memory.Entry) *memory.Store {
	st := memory.NewStore()
	st.Entries = append(st.Entries, entries...)
	return st
}

// AssistantMessage builds a plain assistant turn.
func AssistantMessage(id, text string) finalize.Message {
	return finalize.Message{
		ID:        id,
		Role:      "assistant",
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorMessage builds an assistant turn carrying a resolved error.
func ErrorMessage(id, errText string) finalize.Message {
	m := AssistantMessage(id, "Fixed: "+errText)
	m.ErrorText = errText
	return m
}

// EditMessage builds an assistant turn that touched files.
func EditMessage(id string, paths ...string) finalize.Message {
	m := AssistantMessage(id, fmt.Sprintf("Edited %d files", len(paths)))
	m.FileEdits = paths
	return m
}
