package storage

import (
	"path/filepath"
	"testing"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := OpenArchive(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestArchive_AppendAndSearch(t *testing.T) {
	a := openTestArchive(t)

	entries := []memory.Entry{
		storedEntry("a", "database migrations run via goose"),
		storedEntry("b", "frontend uses pnpm workspaces"),
	}
	if err := a.Append(entries, "ttl-eviction"); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := a.Search("migrations", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 1 || got[0].EntryID != "a" {
		t.Fatalf("search = %+v, want entry a", got)
	}
	if got[0].Reason != "ttl-eviction" {
		t.Errorf("reason = %q", got[0].Reason)
	}
}

func TestArchive_Count(t *testing.T) {
	a := openTestArchive(t)

	if err := a.Append([]memory.Entry{storedEntry("a", "one"), storedEntry("b", "two")}, "size-eviction"); err != nil {
		t.Fatal(err)
	}
	n, err := a.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestArchive_AppendEmptyIsNoop(t *testing.T) {
	a := openTestArchive(t)

	if err := a.Append(nil, "whatever"); err != nil {
		t.Fatalf("empty append: %v", err)
	}
	n, _ := a.Count()
	if n != 0 {
		t.Errorf("count = %d after empty append", n)
	}
}

func TestArchive_SearchLimit(t *testing.T) {
	a := openTestArchive(t)

	var entries []memory.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, storedEntry("e", "repeated content about caching"))
	}
	if err := a.Append(entries, "test"); err != nil {
		t.Fatal(err)
	}

	got, err := a.Search("caching", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("limit not applied, got %d rows", len(got))
	}
}
