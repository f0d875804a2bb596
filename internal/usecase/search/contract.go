package search

import (
	"context"

	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
	"github.com/kensaku-io/kensaku/internal/domain/search/variant"
)

// Backend defines the index-side retrieval contract.
type Backend interface {
	Search(
		ctx context.Context, query string, m mode.Mode, topK int, project string,
	) ([]hit.Hit, error)
}

// TextSearcher runs literal substring search over the note tree.
type TextSearcher interface {
	Grep(ctx context.Context, query string, topK int) ([]hit.Hit, error)
}

// Expander derives query variants and split fragments.
type Expander interface {
	Expand(query string) []variant.Variant
	Split(query string) []string
}
