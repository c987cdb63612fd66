package match

import (
	"testing"

	"github.com/mnemo-oss/mnemo/internal/index"
	"github.com/mnemo-oss/mnemo/internal/memory"
)

func TestFindDuplicate_NearDuplicateFound(t *testing.T) {
	st := memory.NewStore()
	st.Entries = append(st.Entries,
		entry("a", "use vitest for unit testing in this repo", memory.CategoryDecision),
		entry("b", "the api paginates with cursors", memory.CategoryDiscovery),
	)
	ix := index.New()
	ix.Rebuild(st.Entries)

	dup, ok := FindDuplicate("use vitest for unit tests in this repo", st, ix, 0.55)
	if !ok {
		t.Fatal("expected duplicate")
	}
	if dup.MatchedEntryID != "a" {
		t.Errorf("matched %s, want a", dup.MatchedEntryID)
	}
	if dup.Score < 0.55 {
		t.Errorf("score = %v below floor", dup.Score)
	}
}

func TestFindDuplicate_DistinctContentPasses(t *testing.T) {
	st := memory.NewStore()
	st.Entries = append(st.Entries, entry("a", "use vitest for unit testing", memory.CategoryDecision))
	ix := index.New()
	ix.Rebuild(st.Entries)

	if _, ok := FindDuplicate("the deploy pipeline uses github actions runners", st, ix, 0.55); ok {
		t.Error("distinct content flagged as duplicate")
	}
}

func TestFindDuplicate_IgnoresSuppressed(t *testing.T) {
	st := memory.NewStore()
	e := entry("a", "use vitest for unit testing in this repo", memory.CategoryDecision)
	e.Suppression = &memory.Suppression{Suppressed: true}
	st.Entries = append(st.Entries, e)

	ix := index.New()
	// Rebuild skips suppressed entries, but even a stale index entry must
	// not match once the store marks it suppressed.
	ix.Add(e)

	if _, ok := FindDuplicate("use vitest for unit testing in this repo", st, ix, 0.55); ok {
		t.Error("suppressed entry matched as duplicate")
	}
}

func TestFindDuplicate_CrossCategory(t *testing.T) {
	// Candidates come from the whole index, not the candidate's category.
	st := memory.NewStore()
	st.Entries = append(st.Entries, entry("a", "use vitest for unit testing in this repo", memory.CategoryDecision))
	ix := index.New()
	ix.Rebuild(st.Entries)

	dup, ok := FindDuplicate("use vitest for unit testing in this repo", st, ix, 0.55)
	if !ok || dup.MatchedEntryID != "a" {
		t.Errorf("cross-category duplicate missed: %+v ok=%v", dup, ok)
	}
}
