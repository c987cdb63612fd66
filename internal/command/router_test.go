package command_test

import (
	"strings"
	"testing"

	"github.com/mnemo-oss/mnemo/internal/command"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/testutil"
)

func newRouter(t *testing.T) (*command.Router, *testutil.TestHarness) {
	t.Helper()
	h := testutil.NewTestHarness(t)
	return command.New(h.Engine), h
}

func TestRouter_Handles(t *testing.T) {
	r, _ := newRouter(t)

	for _, line := range []string{"/remember x", "/forget id", "/pin id", "/memory status", "  /memory list "} {
		if !r.Handles(line) {
			t.Errorf("Handles(%q) = false", line)
		}
	}
	for _, line := range []string{"", "hello", "/unknown", "remember this"} {
		if r.Handles(line) {
			t.Errorf("Handles(%q) = true", line)
		}
	}
}

func TestRouter_Remember(t *testing.T) {
	r, h := newRouter(t)

	out := r.Route("/remember decision: we version the API by URL path, not header", "claude")
	if !strings.Contains(out, "Remembered as decision") {
		t.Fatalf("reply = %q", out)
	}
	h.AssertEntryCount(1)
	if got := h.Engine.Entries()[0].Category; got != memory.CategoryDecision {
		t.Errorf("category = %s, want %s", got, memory.CategoryDecision)
	}

	// An unknown prefix is treated as content, not category.
	out = r.Route("/remember note: retries use exponential backoff with jitter", "claude")
	if !strings.Contains(out, "Remembered as discovery") {
		t.Fatalf("reply = %q", out)
	}

	if out := r.Route("/remember", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("bare /remember reply = %q", out)
	}
	if out := r.Route("/remember short", "claude"); !strings.Contains(out, "too short") {
		t.Errorf("short content reply = %q", out)
	}
}

func TestRouter_ForgetAndPin(t *testing.T) {
	r, h := newRouter(t)
	id := h.Remember("generated protobuf files are never edited by hand", memory.CategoryPattern, false)

	if out := r.Route("/pin "+id, "claude"); !strings.Contains(out, "Pinned: "+id) {
		t.Fatalf("pin reply = %q", out)
	}
	if got := h.FindEntry(id).Status; got != memory.StatusPinned {
		t.Errorf("status = %s", got)
	}

	if out := r.Route("/forget "+id, "claude"); !strings.Contains(out, "Forgotten: "+id) {
		t.Fatalf("forget reply = %q", out)
	}
	h.AssertEntryCount(0)

	if out := r.Route("/forget nope", "claude"); !strings.Contains(out, "nope") {
		t.Errorf("unknown id reply = %q", out)
	}
	if out := r.Route("/forget", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("bare forget reply = %q", out)
	}
	if out := r.Route("/pin one two", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("pin arity reply = %q", out)
	}
}

func TestRouter_MemoryStatusAndList(t *testing.T) {
	r, h := newRouter(t)

	if out := r.Route("/memory list", "claude"); out != "No memory entries yet." {
		t.Errorf("empty list reply = %q", out)
	}

	h.Remember("the websocket gateway fans out to one goroutine per client", memory.CategoryArchitecture, false)
	h.Remember("canary deploys bake for thirty minutes before full rollout", memory.CategoryDecision, true)

	out := r.Route("/memory status", "claude")
	if !strings.Contains(out, "Entries: 2") {
		t.Errorf("status reply missing counts:\n%s", out)
	}
	if !strings.Contains(out, "Index: 2 docs") {
		t.Errorf("status reply missing index line:\n%s", out)
	}

	out = r.Route("/memory list 1", "claude")
	if got := len(strings.Split(out, "\n")); got != 1 {
		t.Errorf("list 1 returned %d lines:\n%s", got, out)
	}
}

func TestRouter_MemorySearch(t *testing.T) {
	r, h := newRouter(t)

	if out := r.Route("/memory search anything", "claude"); out != "No matches." {
		t.Errorf("empty search reply = %q", out)
	}
	if out := r.Route("/memory search", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("bare search reply = %q", out)
	}

	h.Remember("redis caches rendered pages with a five minute expiry", memory.CategoryDiscovery, false)
	out := r.Route("/memory search redis cache", "claude")
	if !strings.Contains(out, "redis caches rendered pages") {
		t.Errorf("search reply missing hit:\n%s", out)
	}
}

func TestRouter_MemoryBudget(t *testing.T) {
	r, _ := newRouter(t)

	out := r.Route("/memory budget 50000", "claude")
	if !strings.Contains(out, "total=") || !strings.Contains(out, "bridge=") {
		t.Errorf("budget reply = %q", out)
	}
	if out := r.Route("/memory budget lots", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("bad budget arg reply = %q", out)
	}
}

func TestRouter_MemoryAliasAutoConfig(t *testing.T) {
	r, h := newRouter(t)

	out := r.Route("/memory alias db postgres,sql", "claude")
	if !strings.Contains(out, "db -> postgres, sql") {
		t.Errorf("alias reply = %q", out)
	}
	if out := r.Route("/memory alias db", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("alias arity reply = %q", out)
	}

	if out := r.Route("/memory auto off", "claude"); out != "Auto memory off" {
		t.Errorf("auto reply = %q", out)
	}
	if h.Engine.GetStatus().AutoMemory {
		t.Error("auto memory still on")
	}
	if out := r.Route("/memory auto maybe", "claude"); !strings.Contains(out, "Usage:") {
		t.Errorf("auto arg reply = %q", out)
	}

	out = r.Route("/memory config", "claude")
	if !strings.Contains(out, "Preset: balanced") {
		t.Errorf("config reply = %q", out)
	}
	if out := r.Route("/memory config conservative", "claude"); !strings.Contains(out, "conservative") {
		t.Errorf("preset switch reply = %q", out)
	}
	if got := h.Engine.Config().Promotion.MinPoints; got != 4 {
		t.Errorf("MinPoints after switch = %d, want 4", got)
	}
	if out := r.Route("/memory config reckless", "claude"); !strings.Contains(out, "unknown preset") {
		t.Errorf("bad preset reply = %q", out)
	}
}

func TestRouter_MemoryFlags(t *testing.T) {
	r, _ := newRouter(t)

	out := r.Route("/memory flags", "claude")
	for _, want := range []string{"conflict_detection=true", "duplicate_check=true", "cold_archive=true"} {
		if !strings.Contains(out, want) {
			t.Errorf("flags reply missing %q:\n%s", want, out)
		}
	}
}

func TestRouter_Usage(t *testing.T) {
	r, _ := newRouter(t)

	for _, line := range []string{"/memory", "/memory bogus", "/unknown"} {
		out := r.Route(line, "claude")
		if !strings.Contains(out, "Memory commands:") {
			t.Errorf("Route(%q) should print usage, got %q", line, out)
		}
	}
}
