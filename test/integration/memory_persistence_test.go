//go:build integration

package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/pkg/mnemo"
)

func openClient(t *testing.T, projectPath string) *mnemo.Client {
	t.Helper()
	client, err := mnemo.OpenWithConfig(projectPath, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func assistantTurn(id, text string) mnemo.Message {
	return mnemo.Message{ID: id, Role: "assistant", Text: text, Timestamp: time.Now()}
}

func TestMemoryPersistenceAcrossRuns(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()

	// --- Run 1: live session discovers and fixes an error, then closes ---
	client1 := openClient(t, project)

	client1.OnMessage("s1", "claude", assistantTurn("m1", "Investigating the failing migration."))
	errMsg := assistantTurn("m2", "Fixed: migrations deadlocked against the analytics cron job")
	errMsg.ErrorText = "migrations deadlocked against the analytics cron job"
	client1.OnMessage("s1", "claude", errMsg)
	client1.OnSessionClose("s1")

	if got := client1.Status().Entries; got != 1 {
		t.Fatalf("entries after session close = %d, want 1", got)
	}
	if err := client1.Close(); err != nil {
		t.Fatal(err)
	}

	// --- Run 2: a fresh process sees the promoted memory ---
	client2 := openClient(t, project)
	defer client2.Close()

	if got := client2.Status().Entries; got != 1 {
		t.Fatalf("entries after reopen = %d, want 1", got)
	}

	res := client2.Retrieve("migration deadlock", "claude", mnemo.Options{})
	if len(res.Entries) == 0 {
		t.Fatal("persisted entry not retrievable after reopen")
	}
	if !strings.Contains(res.Entries[0].Entry.Content, "deadlocked") {
		t.Errorf("retrieved content = %q", res.Entries[0].Entry.Content)
	}

	prefix := client2.InjectionPrefix("migration deadlock", "claude", 1000, nil)
	if !strings.Contains(prefix, "deadlocked") {
		t.Errorf("injection prefix missing persisted memory:\n%s", prefix)
	}
}

func TestMemorySharedAcrossAgents(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()

	client := openClient(t, project)
	defer client.Close()

	// Two agents contribute through the chat command surface.
	out := client.Command("/remember decision: the public API is versioned by URL path", "claude-planner")
	if !strings.Contains(out, "Remembered") {
		t.Fatalf("planner remember failed: %q", out)
	}
	out = client.Command("/remember architecture: the users table is partitioned by tenant id", "codex-worker")
	if !strings.Contains(out, "Remembered") {
		t.Fatalf("worker remember failed: %q", out)
	}

	// A third agent sees both memories.
	res := client.Retrieve("api versioning and user table layout", "reviewer", mnemo.Options{})
	if len(res.Entries) != 2 {
		t.Fatalf("reviewer sees %d entries, want 2", len(res.Entries))
	}

	status := client.Status()
	if status.Entries != 2 {
		t.Errorf("status entries = %d, want 2", status.Entries)
	}
	if !client.Handles("/memory status") {
		t.Error("client should handle memory commands")
	}
}
