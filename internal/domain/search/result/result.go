package result

import "github.com/kensaku-io/kensaku/internal/domain/search/hit"

// Source identifies which retrieval attempt produced a scored result:
// a fallback ladder stage, or a hybrid-mode leg.
type Source string

// Result source constants.
const (
	SourceDirect       Source = "direct"
	SourcePreprocessed Source = "preprocessed"
	SourceSplit        Source = "split"
	SourceGrep         Source = "grep"
	SourceVector       Source = "vector"
)

// Span marks one highlighted query-term occurrence within a snippet,
// as half-open rune offsets [Start, End).
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Result is a raw hit adjusted onto the cross-method ranking scale:
// weightedScore = rawScore x variant trust weight. Results are always
// emitted sorted descending by weightedScore, ties broken by first-seen
// order.
type Result struct {
	sourcePath    string
	snippet       string
	rawScore      float64
	method        hit.Method
	source        Source
	queryOrigin   string
	weightedScore float64
	metadata      map[string]string
	highlights    []Span
}

// FromHit lifts a raw hit into a scored result.
// queryOrigin is the exact query text the producing call used.
func FromHit(h hit.Hit, source Source, queryOrigin string, weightedScore float64) Result {
	return Result{
		sourcePath:    h.SourcePath(),
		snippet:       h.Snippet(),
		rawScore:      h.RawScore(),
		method:        h.Method(),
		source:        source,
		queryOrigin:   queryOrigin,
		weightedScore: weightedScore,
		metadata:      h.Metadata(),
	}
}

// SourcePath returns the originating document path.
func (r *Result) SourcePath() string { return r.sourcePath }

// Snippet returns the matched text fragment.
func (r *Result) Snippet() string { return r.snippet }

// RawScore returns the method-native score before weighting.
func (r *Result) RawScore() float64 { return r.rawScore }

// Method returns the retrieval mechanism that produced the hit.
func (r *Result) Method() hit.Method { return r.method }

// Source returns the stage or hybrid leg that produced the result.
func (r *Result) Source() Source { return r.source }

// QueryOrigin returns the exact query text used for the producing call.
func (r *Result) QueryOrigin() string { return r.queryOrigin }

// WeightedScore returns the cross-method ranking key.
func (r *Result) WeightedScore() float64 { return r.weightedScore }

// Metadata returns the document metadata fields.
func (r *Result) Metadata() map[string]string { return r.metadata }

// Highlights returns the query-term highlight spans.
func (r *Result) Highlights() []Span { return r.highlights }

// WithSnippet returns a copy with the snippet replaced.
func (r Result) WithSnippet(snippet string) Result {
	r.snippet = snippet
	return r
}

// WithQueryOrigin returns a copy with the echoed query origin replaced.
func (r Result) WithQueryOrigin(origin string) Result {
	r.queryOrigin = origin
	return r
}

// WithMetadata returns a copy with the metadata replaced.
func (r Result) WithMetadata(metadata map[string]string) Result {
	r.metadata = metadata
	return r
}

// WithHighlights returns a copy with the highlight spans replaced.
func (r Result) WithHighlights(spans []Span) Result {
	r.highlights = spans
	return r
}
