// Package testutil provides fixtures and a full-engine harness shared
// across package tests.
package testutil

import (
	"testing"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/engine"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

// TestHarness wires a real engine over a throwaway home directory.
type TestHarness struct {
	T       *testing.T
	Config  *config.Config
	Engine  *engine.Engine
	Logger  *telemetry.Logger
	Home    string
	Project string
}

// NewTestHarness creates a harness with default configuration and an
// initialized engine rooted in t.TempDir().
func NewTestHarness(t *testing.T) *TestHarness {
	t.Helper()
	return NewTestHarnessWithConfig(t, TestConfig())
}

// NewTestHarnessWithConfig is NewTestHarness with an explicit config.
func NewTestHarnessWithConfig(t *testing.T, cfg *config.Config) *TestHarness {
	t.Helper()

	home := t.TempDir()
	project := t.TempDir()
	logger := TestLogger()

	eng := engine.New(cfg, logger)
	if err := eng.Init(home, project); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	return &TestHarness{
		T:       t,
		Config:  cfg,
		Engine:  eng,
		Logger:  logger,
		Home:    home,
		Project: project,
	}
}

// Remember stores content directly, failing the test on error.
func (h *TestHarness) Remember(content string, category memory.Category, pin bool) string {
	h.T.Helper()
	id, err := h.Engine.Remember(content, category, "test-agent", pin)
	if err != nil {
		h.T.Fatalf("remember %q: %v", content, err)
	}
	return id
}

// AssertEntryCount checks the number of durable entries.
func (h *TestHarness) AssertEntryCount(want int) {
	h.T.Helper()
	got := len(h.Engine.Entries())
	if got != want {
		h.T.Errorf("entry count = %d, want %d", got, want)
	}
}

// FindEntry returns the entry with the given id, or fails the test.
func (h *TestHarness) FindEntry(id string) memory.Entry {
	h.T.Helper()
	for _, e := range h.Engine.Entries() {
		if e.ID == id {
			return e
		}
	}
	h.T.Fatalf("entry %s not found", id)
	return memory.Entry{}
}
