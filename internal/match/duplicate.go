package match

import (
	"github.com/mnemo-oss/mnemo/internal/index"
	"github.com/mnemo-oss/mnemo/internal/memory"
)

const candidateTopK = 10

// Duplicate identifies an existing entry the candidate nearly repeats.
type Duplicate struct {
	MatchedEntryID string
	Score          float64
}

// FindDuplicate runs the two-phase duplicate check: lexical candidates
// from the index, then trigram Jaccard against each. The index is a
// global candidate source; candidates are not scoped by category.
// Suppressed entries never match.
func FindDuplicate(content string, store *memory.Store, ix *index.Index, floor float64) (Duplicate, bool) {
	res := ix.Search(content, index.SearchOptions{TopK: candidateTopK})

	best := Duplicate{}
	for _, hit := range res.Hits {
		e := store.Get(hit.ID)
		if e == nil || e.Suppressed() {
			continue
		}
		sim := TrigramJaccard(content, e.Content)
		if sim >= floor && sim > best.Score {
			best = Duplicate{MatchedEntryID: e.ID, Score: sim}
		}
	}
	return best, best.MatchedEntryID != ""
}
