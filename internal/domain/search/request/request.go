package request

import (
	"fmt"

	"github.com/kensaku-io/kensaku/internal/domain"
	"github.com/kensaku-io/kensaku/internal/domain/search/filter"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length in bytes.
	MaxQueryLength = 4096
	DefaultTopK    = 5
	MaxTopK        = 50
)

// Request is a validated, immutable search query. Variants are derived
// copies; the request itself is never mutated after construction.
type Request struct {
	query       string
	project     string
	searchMode  mode.Mode
	topK        int
	useFallback bool
	filters     filter.Filters
}

// New validates and normalizes search parameters.
// Defaults: mode=vector, topK=5, useFallback=true.
func New(
	query string,
	m mode.Mode,
	project string,
	topK int,
	useFallback bool,
	filters filter.Filters,
) (Request, error) {
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("%w: query too long (max %d bytes)", domain.ErrInvalidRequest, MaxQueryLength)
	}
	if m == "" {
		m = mode.Vector
	}
	if !m.IsValid() {
		return Request{}, fmt.Errorf("%w: invalid search type %q", domain.ErrInvalidRequest, m)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}

	return Request{
		query:       query,
		project:     project,
		searchMode:  m,
		topK:        topK,
		useFallback: useFallback,
		filters:     filters,
	}, nil
}

// Query returns the original query text.
func (r *Request) Query() string { return r.query }

// Project returns the corpus scope identifier ("" for unscoped).
func (r *Request) Project() string { return r.project }

// Mode returns the requested retrieval strategy.
func (r *Request) Mode() mode.Mode { return r.searchMode }

// TopK returns the requested result count.
func (r *Request) TopK() int { return r.topK }

// UseFallback reports whether the fallback ladder should run.
func (r *Request) UseFallback() bool { return r.useFallback }

// Filters returns the metadata post-filter predicates.
func (r *Request) Filters() filter.Filters { return r.filters }
