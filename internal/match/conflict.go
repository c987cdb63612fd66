package match

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mnemo-oss/mnemo/internal/memory"
)

// antonymPair is one entry in the fixed contradiction table.
type antonymPair struct {
	a, b     string
	severity memory.Severity
}

var antonymPairs = []antonymPair{
	{"always", "never", memory.SeverityHigh},
	{"must", "must not", memory.SeverityHigh},
	{"should", "shouldn't", memory.SeverityMedium},
	{"use", "don't use", memory.SeverityMedium},
	{"enable", "disable", memory.SeverityMedium},
	{"allow", "disallow", memory.SeverityMedium},
	{"prefer", "avoid", memory.SeverityLow},
	{"include", "exclude", memory.SeverityLow},
	{"add", "remove", memory.SeverityLow},
}

// supersededGap is how far apart two low-severity statements must be in
// time before the disagreement reads as supersession rather than
// contradiction.
const supersededGap = 30 * 24 * time.Hour

// DetectConflict compares two entries pairwise. They can conflict only
// when they share a category or a file path; one antonym-pair match makes
// a ConflictPair. Symmetric in its arguments.
func DetectConflict(a, b *memory.Entry, now time.Time) *memory.ConflictPair {
	if a.ID == b.ID {
		return nil
	}
	if !sharesScope(a, b) {
		return nil
	}

	var matches []antonymPair
	for _, p := range antonymPairs {
		if directedMatch(a.Content, b.Content, p) || directedMatch(b.Content, a.Content, p) {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	top := matches[0]
	ctype := memory.ConflictContradictory
	switch {
	case len(matches) >= 2:
		ctype = memory.ConflictAmbiguous
	case top.severity == memory.SeverityLow && createdGap(a, b) > supersededGap:
		ctype = memory.ConflictSuperseded
	}

	return &memory.ConflictPair{
		EntryA:         a.ID,
		EntryB:         b.ID,
		Type:           ctype,
		DetectedAt:     now,
		ConflictSetID:  uuid.New().String(),
		Severity:       top.severity,
		DetectedReason: fmt.Sprintf("%s/%s", top.a, top.b),
		SourceAgentA:   a.Source.AgentID,
		SourceAgentB:   b.Source.AgentID,
	}
}

// DetectConflicts checks a new entry against all existing entries,
// returning every pair found.
func DetectConflicts(candidate *memory.Entry, store *memory.Store, now time.Time) []memory.ConflictPair {
	var out []memory.ConflictPair
	for i := range store.Entries {
		e := &store.Entries[i]
		if e.Suppressed() {
			continue
		}
		if cp := DetectConflict(candidate, e, now); cp != nil {
			out = append(out, *cp)
		}
	}
	return out
}

// Resolve marks the pair between the two ids resolved. Idempotent and
// monotonic: a resolved pair never becomes unresolved.
func Resolve(store *memory.Store, idA, idB string, now time.Time) bool {
	for i := range store.Conflicts {
		c := &store.Conflicts[i]
		if !pairMatches(c, idA, idB) {
			continue
		}
		if c.ResolvedAt == nil {
			t := now
			c.ResolvedAt = &t
		}
		return true
	}
	return false
}

func pairMatches(c *memory.ConflictPair, idA, idB string) bool {
	return (c.EntryA == idA && c.EntryB == idB) || (c.EntryA == idB && c.EntryB == idA)
}

func sharesScope(a, b *memory.Entry) bool {
	if a.Category == b.Category {
		return true
	}
	for _, pa := range a.FilePaths {
		for _, pb := range b.FilePaths {
			if pa == pb {
				return true
			}
		}
	}
	return false
}

// directedMatch reports whether the first content carries term a and the
// second carries term b of the pair. The positive side must not itself
// contain the negative phrase, so "don't use tabs" never conflicts with
// itself through the bare "use".
func directedMatch(contentA, contentB string, p antonymPair) bool {
	return containsPhrase(contentA, p.a) &&
		!containsPhrase(contentA, p.b) &&
		containsPhrase(contentB, p.b)
}

// containsPhrase matches the phrase on word boundaries against
// normalized content, so "use" does not fire inside "because".
func containsPhrase(content, phrase string) bool {
	normalized := " " + normalizePhrase(content) + " "
	return strings.Contains(normalized, " "+normalizePhrase(phrase)+" ")
}

// normalizePhrase lowercases, folds typographic apostrophes, and strips
// punctuation except intra-word apostrophes.
func normalizePhrase(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "’", "'")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'', r > 127:
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func createdGap(a, b *memory.Entry) time.Duration {
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d
}
