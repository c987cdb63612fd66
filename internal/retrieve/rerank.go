package retrieve

// Reranker reorders scored candidates between re-scoring and the median
// filter. Injected at pipeline construction; no global strategy state.
type Reranker interface {
	Rerank(query string, candidates []Scored) []Scored
}

// Identity is the default reranker: it returns the candidates unchanged.
type Identity struct{}

// Rerank implements Reranker.
func (Identity) Rerank(_ string, candidates []Scored) []Scored {
	return candidates
}
