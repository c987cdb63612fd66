package engine

import (
	"testing"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/finalize"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/retrieve"
	"github.com/mnemo-oss/mnemo/internal/telemetry"
)

// newClockedEngine returns an initialized engine whose clock the test
// controls, so entries can be aged past their TTL.
func newClockedEngine(t *testing.T, cfg *config.Config) (*Engine, *time.Time) {
	t.Helper()

	clock := time.Now()
	saved := now
	now = func() time.Time { return clock }
	t.Cleanup(func() { now = saved })

	eng := New(cfg, telemetry.NewLogger(false))
	if err := eng.Init(t.TempDir(), t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng, &clock
}

func TestEngine_AccessCountTriggersCompaction(t *testing.T) {
	cfg := config.Default()
	cfg.Flags.RetrievalCache = false
	eng, _ := newClockedEngine(t, cfg)

	if _, err := eng.Remember("integration tests require the seeded postgres snapshot to boot", memory.CategoryDiscovery, "a", false); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < cfg.Compaction.AccessInterval; i++ {
		if res := eng.Retrieve("postgres snapshot", "a", retrieve.Options{}); len(res.Entries) == 0 {
			t.Fatalf("retrieval %d returned nothing", i)
		}
	}

	eng.mu.Lock()
	count := eng.accessesSinceCompact
	eng.mu.Unlock()
	if count != 0 {
		t.Errorf("accesses since last compaction = %d, want 0 once the access trigger fires", count)
	}
	if len(eng.Entries()) != 1 {
		t.Errorf("frequently accessed entry should survive compaction")
	}
}

func TestEngine_RetrievalPathEvictsExpired(t *testing.T) {
	cfg := config.Default()
	cfg.Flags.RetrievalCache = false
	eng, clock := newClockedEngine(t, cfg)

	stale, err := eng.Remember("the analytics importer chokes on empty csv exports from billing", memory.CategoryDiscovery, "a", false)
	if err != nil {
		t.Fatal(err)
	}

	// Age the entry well past the discovery TTL, then keep working.
	*clock = clock.Add(60 * 24 * time.Hour)
	if _, err := eng.Remember("deploy scripts read the region list from terraform outputs", memory.CategoryDiscovery, "a", false); err != nil {
		t.Fatal(err)
	}

	// A single retrieval is enough: the elapsed-time trigger is due.
	eng.Retrieve("terraform region", "a", retrieve.Options{})

	for _, e := range eng.Entries() {
		if e.ID == stale {
			t.Fatal("TTL-expired entry survived the retrieval-path compaction")
		}
	}
	if len(eng.Entries()) != 1 {
		t.Errorf("fresh entry should survive, have %d entries", len(eng.Entries()))
	}
}

func TestEngine_MessagePathCompactsWithAutoMemoryOff(t *testing.T) {
	cfg := config.Default()
	cfg.AutoMemory = false
	cfg.Flags.RetrievalCache = false
	eng, clock := newClockedEngine(t, cfg)

	stale, err := eng.Remember("the queue worker drops jobs when redis restarts mid shift", memory.CategoryDiscovery, "a", false)
	if err != nil {
		t.Fatal(err)
	}

	*clock = clock.Add(60 * 24 * time.Hour)
	eng.OnMessage("s1", "a", finalize.Message{
		ID:        "m1",
		Role:      "assistant",
		Text:      "looking at the deploy pipeline",
		Timestamp: time.Now(),
	})

	for _, e := range eng.Entries() {
		if e.ID == stale {
			t.Fatal("TTL-expired entry survived with auto memory off")
		}
	}
}
