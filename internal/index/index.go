// Package index maintains a lexical BM25-style inverted index over
// memory entries, with weighted fields, prefix and light fuzzy matching,
// and alias-based query expansion. First-pass candidate retrieval only;
// the retrieval pipeline re-scores whatever comes out.
package index

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mnemo-oss/mnemo/internal/errors"
	"github.com/mnemo-oss/mnemo/internal/memory"
)

// BM25 tuning constants.
const (
	k1 = 1.2
	b  = 0.75

	prefixMinLen   = 4
	fuzzyMinLen    = 5
	inexactPenalty = 0.7 // discount for prefix/fuzzy term matches
)

// Field weights per the retrieval design: content dominates, tags and
// file paths help, category is a weak signal.
var fieldWeights = map[string]float64{
	"content":   2.0,
	"tags":      1.5,
	"filepaths": 1.2,
	"category":  1.0,
}

// Hit is one scored candidate.
type Hit struct {
	ID    string
	Score float64
}

// SearchOptions bound one search call.
type SearchOptions struct {
	TopK     int
	MaxScan  int           // max candidate docs scored
	Deadline time.Duration // soft wall clock; exceeding truncates, never errors
}

// SearchResult carries the hits plus whether the deadline truncated them.
type SearchResult struct {
	Hits      []Hit
	Truncated bool
}

type docEntry struct {
	length float64            // weighted token count
	terms  map[string]float64 // term -> weighted tf
}

// Index is the inverted index. Safe for concurrent reads; writes are
// serialized by the engine's mutation discipline.
type Index struct {
	docs        map[string]*docEntry
	postings    map[string]map[string]float64 // term -> docID -> weighted tf
	totalLength float64
	aliases     map[string][]string
}

// New creates an empty index with the default alias table.
func New() *Index {
	return &Index{
		docs:     make(map[string]*docEntry),
		postings: make(map[string]map[string]float64),
		aliases:  DefaultAliases(),
	}
}

// SetAliases merges user synonym overrides over the defaults.
func (ix *Index) SetAliases(user map[string][]string) {
	merged := DefaultAliases()
	for k, v := range user {
		merged[strings.ToLower(k)] = v
	}
	ix.aliases = merged
}

// Add indexes one entry. Re-adding an existing id is rejected with
// INDEX_DUPLICATE; callers ignore it rather than trigger a rebuild.
func (ix *Index) Add(e memory.Entry) error {
	if _, ok := ix.docs[e.ID]; ok {
		return errors.Newf(errors.CodeIndexDuplicate, "entry %s already indexed", e.ID)
	}
	ix.add(e)
	return nil
}

func (ix *Index) add(e memory.Entry) {
	doc := &docEntry{terms: make(map[string]float64)}

	index := func(text string, field string) {
		w := fieldWeights[field]
		for _, term := range Tokenize(text) {
			doc.terms[term] += w
			doc.length += w
		}
	}
	index(e.Content, "content")
	index(strings.Join(e.Tags, " "), "tags")
	index(strings.Join(e.FilePaths, " "), "filepaths")
	index(string(e.Category), "category")

	ix.docs[e.ID] = doc
	ix.totalLength += doc.length
	for term, tf := range doc.terms {
		posting, ok := ix.postings[term]
		if !ok {
			posting = make(map[string]float64)
			ix.postings[term] = posting
		}
		posting[e.ID] = tf
	}
}

// Remove drops an entry from the index. Unknown ids are a no-op.
func (ix *Index) Remove(id string) {
	doc, ok := ix.docs[id]
	if !ok {
		return
	}
	for term := range doc.terms {
		if posting, ok := ix.postings[term]; ok {
			delete(posting, id)
			if len(posting) == 0 {
				delete(ix.postings, term)
			}
		}
	}
	ix.totalLength -= doc.length
	delete(ix.docs, id)
}

// Rebuild replaces the index contents with the given entries. Suppressed
// entries are skipped: they must not surface as candidates.
func (ix *Index) Rebuild(entries []memory.Entry) {
	ix.docs = make(map[string]*docEntry, len(entries))
	ix.postings = make(map[string]map[string]float64)
	ix.totalLength = 0
	for _, e := range entries {
		if e.Suppressed() {
			continue
		}
		ix.add(e)
	}
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int { return len(ix.docs) }

// Terms returns the vocabulary size.
func (ix *Index) Terms() int { return len(ix.postings) }

// Search scores candidates for the query under the given bounds. The
// deadline is soft: when exceeded mid-scan the result is truncated to a
// smaller top-K rather than completing the full scan.
func (ix *Index) Search(query string, opts SearchOptions) SearchResult {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	terms := ix.ExpandQuery(query)
	if len(terms) == 0 || len(ix.docs) == 0 {
		return SearchResult{}
	}

	start := time.Now()
	avgLen := ix.totalLength / float64(len(ix.docs))
	n := float64(len(ix.docs))

	// Resolve each query term to concrete vocabulary terms, exact first.
	type resolved struct {
		term    string
		factor  float64
		posting map[string]float64
	}
	var matched []resolved
	for _, qt := range terms {
		if posting, ok := ix.postings[qt]; ok {
			matched = append(matched, resolved{qt, 1.0, posting})
			continue
		}
		for _, vt := range ix.inexactTerms(qt) {
			matched = append(matched, resolved{vt, inexactPenalty, ix.postings[vt]})
		}
	}

	scores := make(map[string]float64)
	scanned := 0
	truncated := false

scan:
	for _, m := range matched {
		df := float64(len(m.posting))
		idf := idf(n, df)
		for docID, tf := range m.posting {
			doc := ix.docs[docID]
			norm := tf * (k1 + 1) / (tf + k1*(1-b+b*doc.length/avgLen))
			scores[docID] += m.factor * idf * norm

			scanned++
			if opts.MaxScan > 0 && scanned >= opts.MaxScan {
				break scan
			}
			if opts.Deadline > 0 && scanned%64 == 0 && time.Since(start) > opts.Deadline {
				truncated = true
				break scan
			}
		}
	}

	hits := make([]Hit, 0, len(scores))
	for id, s := range scores {
		hits = append(hits, Hit{ID: id, Score: s})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	topK := opts.TopK
	if truncated {
		// Trade recall for responsiveness.
		topK = topK / 2
		if topK < 1 {
			topK = 1
		}
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return SearchResult{Hits: hits, Truncated: truncated}
}

// ExpandQuery tokenizes the query and appends alias synonyms for any term
// that has them. Originals are never replaced.
func (ix *Index) ExpandQuery(query string) []string {
	terms := Tokenize(query)
	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		seen[t] = true
	}
	for _, t := range terms {
		for _, syn := range ix.aliases[t] {
			syn = strings.ToLower(syn)
			if !seen[syn] {
				seen[syn] = true
				terms = append(terms, syn)
			}
		}
	}
	return terms
}

// inexactTerms returns vocabulary terms matching qt by prefix or by edit
// distance one.
func (ix *Index) inexactTerms(qt string) []string {
	var out []string
	usePrefix := len(qt) >= prefixMinLen
	useFuzzy := len(qt) >= fuzzyMinLen
	if !usePrefix && !useFuzzy {
		return nil
	}
	for vt := range ix.postings {
		if usePrefix && strings.HasPrefix(vt, qt) {
			out = append(out, vt)
			continue
		}
		if useFuzzy && withinOneEdit(qt, vt) {
			out = append(out, vt)
		}
	}
	sort.Strings(out)
	return out
}

func idf(n, df float64) float64 {
	// ln(1 + (N - df + 0.5) / (df + 0.5)); always positive.
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

// Tokenize lowercases and splits on non-alphanumeric runes, dropping
// single-rune fragments.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// withinOneEdit reports whether a and b differ by at most one
// substitution, insertion, or deletion.
func withinOneEdit(a, b string) bool {
	la, lb := len(a), len(b)
	if la > lb {
		a, b, la, lb = b, a, lb, la
	}
	if lb-la > 1 {
		return false
	}
	if la == lb {
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return true
	}
	// One insertion into a yields b.
	i, j, edits := 0, 0, 0
	for i < la && j < lb {
		if a[i] == b[j] {
			i++
			j++
			continue
		}
		edits++
		if edits > 1 {
			return false
		}
		j++
	}
	return true
}
