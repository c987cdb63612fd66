package retrieve

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mnemo-oss/mnemo/internal/config"
	"github.com/mnemo-oss/mnemo/internal/index"
	"github.com/mnemo-oss/mnemo/internal/memory"
	"github.com/mnemo-oss/mnemo/internal/slo"
)

func newPipeline(cfg config.RetrievalConfig) *Pipeline {
	return New(cfg, slo.New(config.Default().SLO), nil)
}

func pipelineEntry(id, content string, cat memory.Category) memory.Entry {
	now := time.Now()
	return memory.Entry{
		ID:          id,
		Fingerprint: memory.Fingerprint(content),
		Content:     content,
		Category:    cat,
		Importance:  0.5,
		Status:      memory.StatusConfirmed,
		Source:      memory.Source{SessionID: "s-" + id},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func buildIndex(st *memory.Store) *index.Index {
	ix := index.New()
	ix.Rebuild(st.Entries)
	return ix
}

func TestRetrieve_BasicMatch(t *testing.T) {
	st := memory.NewStore()
	st.Entries = append(st.Entries,
		pipelineEntry("a", "the docker build caches layers per stage", memory.CategoryDiscovery),
		pipelineEntry("b", "frontend state lives in zustand stores", memory.CategoryDiscovery),
	)
	p := newPipeline(config.Default().Retrieval)

	res := p.Retrieve(st, buildIndex(st), "docker build caching", Options{})
	if len(res.Entries) == 0 || res.Entries[0].Entry.ID != "a" {
		t.Fatalf("entries = %+v, want a first", res.Entries)
	}
	if res.Degraded {
		t.Error("fresh monitor should not degrade")
	}
}

func TestRetrieve_PinnedAlwaysPresent(t *testing.T) {
	st := memory.NewStore()
	pin := pipelineEntry("pin", "always run make generate after proto changes", memory.CategoryPreference)
	pin.Status = memory.StatusPinned
	st.Entries = append(st.Entries, pin,
		pipelineEntry("a", "the docker build caches layers", memory.CategoryDiscovery))
	p := newPipeline(config.Default().Retrieval)

	// Query unrelated to the pinned content.
	res := p.Retrieve(st, buildIndex(st), "docker layers", Options{})
	if len(res.Pinned) != 1 || res.Pinned[0].ID != "pin" {
		t.Errorf("pinned = %+v", res.Pinned)
	}
	for _, s := range res.Entries {
		if s.Entry.ID == "pin" {
			t.Error("pinned entry duplicated in scored results")
		}
	}
}

func TestRetrieve_PinnedCapKeepsMostImportant(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.MaxPinned = 2
	st := memory.NewStore()
	for i := 0; i < 4; i++ {
		e := pipelineEntry(fmt.Sprintf("p%d", i), fmt.Sprintf("pinned rule number %d", i), memory.CategoryPreference)
		e.Status = memory.StatusPinned
		e.Importance = float64(i) / 10
		st.Entries = append(st.Entries, e)
	}
	p := newPipeline(cfg)

	res := p.Retrieve(st, buildIndex(st), "anything", Options{})
	if len(res.Pinned) != 2 {
		t.Fatalf("pinned = %d, want 2", len(res.Pinned))
	}
	if res.Pinned[0].ID != "p3" || res.Pinned[1].ID != "p2" {
		t.Errorf("kept %s,%s; want p3,p2", res.Pinned[0].ID, res.Pinned[1].ID)
	}
}

func TestRetrieve_SuppressedExcluded(t *testing.T) {
	st := memory.NewStore()
	e := pipelineEntry("a", "the docker build caches layers", memory.CategoryDiscovery)
	e.Suppression = &memory.Suppression{Suppressed: true}
	st.Entries = append(st.Entries, e)

	ix := index.New()
	ix.Add(e) // stale index still carries it

	p := newPipeline(config.Default().Retrieval)
	if res := p.Retrieve(st, ix, "docker", Options{}); len(res.Entries) != 0 {
		t.Errorf("suppressed entry surfaced: %+v", res.Entries)
	}
}

func TestRetrieve_InjectionTopN(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.InjectionTopN = 3
	cfg.MaxPerSource = 100
	cfg.MedianFloor = 0
	st := memory.NewStore()
	for i := 0; i < 10; i++ {
		e := pipelineEntry(fmt.Sprintf("e%d", i), fmt.Sprintf("shared topic kubernetes notes %d", i), memory.CategoryDiscovery)
		st.Entries = append(st.Entries, e)
	}
	p := newPipeline(cfg)

	res := p.Retrieve(st, buildIndex(st), "kubernetes", Options{})
	if len(res.Entries) != 3 {
		t.Errorf("entries = %d, want 3", len(res.Entries))
	}
}

func TestRetrieve_MaxPerSource(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.MaxPerSource = 1
	cfg.MedianFloor = 0
	st := memory.NewStore()
	for i := 0; i < 4; i++ {
		e := pipelineEntry(fmt.Sprintf("e%d", i), fmt.Sprintf("shared topic kubernetes notes %d", i), memory.CategoryDiscovery)
		e.Source.SessionID = "same-session"
		st.Entries = append(st.Entries, e)
	}
	other := pipelineEntry("other", "kubernetes ingress quirks", memory.CategoryDiscovery)
	other.Source.SessionID = "other-session"
	st.Entries = append(st.Entries, other)
	p := newPipeline(cfg)

	res := p.Retrieve(st, buildIndex(st), "kubernetes", Options{})
	perSession := map[string]int{}
	for _, s := range res.Entries {
		perSession[s.Entry.Source.SessionID]++
	}
	if perSession["same-session"] > 1 {
		t.Errorf("one session contributed %d results", perSession["same-session"])
	}
}

func TestRetrieve_FilePathAffinity(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.MedianFloor = 0
	st := memory.NewStore()
	a := pipelineEntry("a", "the auth middleware validates session tokens", memory.CategoryDiscovery)
	a.FilePaths = []string{"internal/api/auth.go"}
	b := pipelineEntry("b", "the auth flow redirects through the idp", memory.CategoryDiscovery)
	b.FilePaths = []string{"web/src/login.tsx"}
	st.Entries = append(st.Entries, a, b)
	p := newPipeline(cfg)

	res := p.Retrieve(st, buildIndex(st), "auth", Options{FilePaths: []string{"internal/api/auth.go"}})
	if len(res.Entries) < 2 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	if res.Entries[0].Entry.ID != "a" {
		t.Errorf("working-set entry should rank first: %+v", res.Entries)
	}
}

func TestRetrieve_ConflictPenaltyAndSurfacing(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.MedianFloor = 0
	st := memory.NewStore()
	a := pipelineEntry("a", "always use eslint before commit", memory.CategoryPreference)
	b := pipelineEntry("b", "never use eslint for formatting", memory.CategoryPreference)
	st.Entries = append(st.Entries, a, b)
	st.Conflicts = []memory.ConflictPair{
		{EntryA: "a", EntryB: "b", Type: memory.ConflictContradictory, DetectedAt: time.Now(), Severity: memory.SeverityHigh},
	}
	p := newPipeline(cfg)

	res := p.Retrieve(st, buildIndex(st), "eslint", Options{})
	if len(res.Conflicts) != 1 {
		t.Errorf("conflicts = %+v, want the unresolved pair", res.Conflicts)
	}

	// Resolving removes it from the surface.
	now := time.Now()
	st.Conflicts[0].ResolvedAt = &now
	res = p.Retrieve(st, buildIndex(st), "eslint", Options{})
	if len(res.Conflicts) != 0 {
		t.Errorf("resolved conflict still surfaced: %+v", res.Conflicts)
	}
}

func TestRetrieve_BudgetPacking(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.MedianFloor = 0
	st := memory.NewStore()
	long := strings.Repeat("kubernetes scheduling details ", 10) // ~75 tokens
	for i := 0; i < 5; i++ {
		st.Entries = append(st.Entries, pipelineEntry(fmt.Sprintf("e%d", i), long+fmt.Sprint(i), memory.CategoryDiscovery))
	}
	p := newPipeline(cfg)

	res := p.Retrieve(st, buildIndex(st), "kubernetes", Options{MaxTokens: 160})
	used := 0
	for _, e := range res.Pinned {
		used += memory.EstimateTokens(e.Content)
	}
	for _, s := range res.Entries {
		used += memory.EstimateTokens(s.Entry.Content)
	}
	if used > 160 {
		t.Errorf("packed %d tokens over budget 160", used)
	}
	if len(res.Entries) == 0 {
		t.Error("budget should still fit at least one entry")
	}
}

func TestRetrieve_KeywordGroupBonus(t *testing.T) {
	cfg := config.Default().Retrieval
	cfg.MedianFloor = 0
	st := memory.NewStore()
	errEntry := pipelineEntry("err", "the flaky test came from a shared port", memory.CategoryError)
	disc := pipelineEntry("disc", "the flaky test suite runs on a schedule", memory.CategoryDiscovery)
	st.Entries = append(st.Entries, errEntry, disc)
	p := newPipeline(cfg)

	// "fix" is an errors-group keyword: the error entry gets the bonus.
	res := p.Retrieve(st, buildIndex(st), "fix the flaky test", Options{})
	if len(res.Entries) < 2 {
		t.Fatalf("entries = %+v", res.Entries)
	}
	if res.Entries[0].Entry.ID != "err" {
		t.Errorf("error entry should outrank discovery on an error query: %+v", res.Entries)
	}
}

func TestMedianFilter(t *testing.T) {
	scored := []Scored{
		{Score: 10}, {Score: 9}, {Score: 8}, {Score: 7}, {Score: 0.5},
	}
	out := medianFilter(scored, 0.5)
	// median = 8, cutoff = 4: the 0.5 tail drops.
	if len(out) != 4 {
		t.Errorf("filtered = %d, want 4", len(out))
	}

	// Fewer than three results pass through untouched.
	two := []Scored{{Score: 10}, {Score: 0.001}}
	if got := medianFilter(two, 0.5); len(got) != 2 {
		t.Errorf("small set filtered: %d", len(got))
	}
}
