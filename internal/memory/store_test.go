package memory

import (
	"testing"
	"time"
)

func testEntry(id, content string) Entry {
	now := time.Now()
	return Entry{
		ID:          id,
		Fingerprint: Fingerprint(content),
		Content:     content,
		Category:    CategoryDecision,
		Importance:  0.5,
		Status:      StatusConfirmed,
		Confidence:  0.8,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestStore_GetAndRemove(t *testing.T) {
	st := NewStore()
	st.Entries = append(st.Entries, testEntry("a", "use vitest"), testEntry("b", "use eslint"))

	if e := st.Get("a"); e == nil || e.Content != "use vitest" {
		t.Fatal("expected to find entry a")
	}
	if st.Get("missing") != nil {
		t.Fatal("expected nil for missing entry")
	}

	if !st.Remove("a") {
		t.Fatal("expected Remove to report true")
	}
	if st.Get("a") != nil {
		t.Fatal("entry a still present after Remove")
	}
	if st.Remove("a") {
		t.Fatal("second Remove should report false")
	}
}

func TestStore_FindByFingerprint(t *testing.T) {
	st := NewStore()
	st.Entries = append(st.Entries, testEntry("a", "Use Vitest"))

	// Fingerprint lookup is normalization-stable.
	if st.FindByFingerprint(Fingerprint("use  vitest")) == nil {
		t.Fatal("expected fingerprint match across normalization")
	}
	if st.FindByFingerprint(Fingerprint("use jest")) != nil {
		t.Fatal("unexpected fingerprint match")
	}
}

func TestStore_UnresolvedConflicts(t *testing.T) {
	st := NewStore()
	now := time.Now()
	st.Conflicts = []ConflictPair{
		{EntryA: "a", EntryB: "b", Type: ConflictContradictory, DetectedAt: now},
		{EntryA: "c", EntryB: "d", Type: ConflictSuperseded, DetectedAt: now, ResolvedAt: &now},
	}

	open := st.UnresolvedConflicts()
	if len(open) != 1 || open[0].EntryA != "a" {
		t.Fatalf("UnresolvedConflicts = %v, want single a/b pair", open)
	}
	if !st.InUnresolvedConflict("b") {
		t.Error("b should be in an unresolved conflict")
	}
	if st.InUnresolvedConflict("c") {
		t.Error("c's conflict is resolved")
	}
}

func TestStore_CloneIsDeep(t *testing.T) {
	st := NewStore()
	e := testEntry("a", "use vitest")
	e.Tags = []string{"testing"}
	e.FilePaths = []string{"vitest.config.ts"}
	st.Entries = append(st.Entries, e)
	st.Aliases["db"] = []string{"database"}

	cp := st.Clone()
	cp.Entries[0].Content = "changed"
	cp.Entries[0].Tags[0] = "changed"
	cp.Aliases["db"][0] = "changed"

	if st.Entries[0].Content != "use vitest" {
		t.Error("clone shares entry content with original")
	}
	if st.Entries[0].Tags[0] != "testing" {
		t.Error("clone shares tag slice with original")
	}
	if st.Aliases["db"][0] != "database" {
		t.Error("clone shares alias slice with original")
	}
}

func TestEntry_Suppressed(t *testing.T) {
	e := testEntry("a", "use vitest")
	if e.Suppressed() {
		t.Error("fresh entry should not be suppressed")
	}
	e.Suppression = &Suppression{Suppressed: true, SuppressedBy: "b"}
	if !e.Suppressed() {
		t.Error("expected suppressed entry")
	}
}

func TestCategory_Valid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("category %q should be valid", c)
		}
	}
	if Category("banana").Valid() {
		t.Error("unknown category reported valid")
	}
}
