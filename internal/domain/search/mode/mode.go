package mode

// Mode is the retrieval strategy requested by the caller.
type Mode string

// Search mode constants.
const (
	// Vector runs semantic similarity search over the indexed corpus.
	Vector Mode = "vector"
	// Keyword runs BM25 keyword search.
	Keyword Mode = "keyword"
	// Hybrid fuses vector and keyword results inside the backend.
	Hybrid Mode = "hybrid"
	// HybridGrep combines raw filesystem text search with backend vector search.
	HybridGrep Mode = "hybrid_grep"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Vector || m == Keyword || m == Hybrid || m == HybridGrep
}

// BackendMode reports whether the mode is served by the retrieval backend alone.
func (m Mode) BackendMode() bool {
	return m == Vector || m == Keyword || m == Hybrid
}
