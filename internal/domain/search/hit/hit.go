package hit

// Method identifies which retrieval mechanism produced a raw hit.
// Raw scores are not comparable across methods without weight adjustment.
type Method string

// Retrieval method constants.
const (
	Vector  Method = "vector"
	Keyword Method = "keyword"
	Hybrid  Method = "hybrid"
	Grep    Method = "grep"
)

// Hit is a single raw match from the retrieval backend or filesystem search.
type Hit struct {
	sourcePath string
	snippet    string
	rawScore   float64
	method     Method
	metadata   map[string]string
}

// New creates a raw hit.
func New(sourcePath, snippet string, rawScore float64, method Method, metadata map[string]string) Hit {
	return Hit{
		sourcePath: sourcePath,
		snippet:    snippet,
		rawScore:   rawScore,
		method:     method,
		metadata:   metadata,
	}
}

// SourcePath returns the originating document path.
func (h *Hit) SourcePath() string { return h.sourcePath }

// Snippet returns the matched text fragment.
func (h *Hit) Snippet() string { return h.snippet }

// RawScore returns the method-native relevance score.
func (h *Hit) RawScore() float64 { return h.rawScore }

// Method returns the retrieval mechanism that produced the hit.
func (h *Hit) Method() Method { return h.method }

// Metadata returns the document metadata fields.
func (h *Hit) Metadata() map[string]string { return h.metadata }
