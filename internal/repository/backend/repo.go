// Package backend adapts the Redis search store to the retrieval
// contract used by the search service.
package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/kensaku-io/kensaku/internal/db"
	"github.com/kensaku-io/kensaku/internal/domain"
	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
)

// returnFields lists the indexed note fields fetched per hit.
var returnFields = []string{
	"content", "path", "category", "tags", "created_at", "project", "file_name", "title",
}

// Repo serves vector, keyword, and hybrid retrieval over one note index.
type Repo struct {
	store *db.Store
	embed domain.Embedder
	index string
}

// New creates a backend repository.
func New(store *db.Store, embed domain.Embedder, index string) *Repo {
	return &Repo{store: store, embed: embed, index: index}
}

// Search runs one retrieval call in the given mode, scoped to a project
// when one is supplied.
func (r *Repo) Search(
	ctx context.Context, query string, m mode.Mode, topK int, project string,
) ([]hit.Hit, error) {
	scope := ""
	if project != "" {
		scope = db.TagFilter("project", project)
	}

	switch m {
	case mode.Vector:
		return r.searchVector(ctx, query, topK, scope)
	case mode.Keyword:
		return r.searchKeyword(ctx, query, topK, scope)
	case mode.Hybrid:
		return r.searchHybrid(ctx, query, topK, scope)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedMode, m)
	}
}

func (r *Repo) searchVector(ctx context.Context, query string, topK int, scope string) ([]hit.Hit, error) {
	emb, err := r.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	res, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.index,
		Vector:       emb.Embedding,
		K:            topK,
		Filter:       scope,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search knn: %w", domain.ErrBackendUnavailable, err)
	}
	return entriesToHits(res.Entries, hit.Vector), nil
}

func (r *Repo) searchKeyword(ctx context.Context, query string, topK int, scope string) ([]hit.Hit, error) {
	res, err := r.store.SearchBM25(ctx, &db.TextQuery{
		IndexName:    r.index,
		Query:        query,
		TopK:         topK,
		Filter:       scope,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search bm25: %w", domain.ErrBackendUnavailable, err)
	}
	return entriesToHits(res.Entries, hit.Keyword), nil
}

// searchHybrid runs KNN and BM25 sequentially, then fuses via RRF.
func (r *Repo) searchHybrid(ctx context.Context, query string, topK int, scope string) ([]hit.Hit, error) {
	knn, err := r.searchVector(ctx, query, topK, scope)
	if err != nil {
		return nil, err
	}
	bm25, err := r.searchKeyword(ctx, query, topK, scope)
	if err != nil {
		return nil, err
	}
	return fuseRRF(knn, bm25, topK), nil
}

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// fuseRRF merges KNN and BM25 hit lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
func fuseRRF(knn, bm25 []hit.Hit, topK int) []hit.Hit {
	type scored struct {
		h     hit.Hit
		score float64
	}

	merged := make(map[string]*scored)
	order := make([]string, 0, len(knn)+len(bm25))

	for rank, h := range knn {
		s := 1.0 / float64(rrfK+rank+1)
		merged[h.SourcePath()] = &scored{h: h, score: s}
		order = append(order, h.SourcePath())
	}

	for rank, h := range bm25 {
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[h.SourcePath()]; ok {
			existing.score += s
		} else {
			merged[h.SourcePath()] = &scored{h: h, score: s}
			order = append(order, h.SourcePath())
		}
	}

	hits := make([]hit.Hit, 0, len(merged))
	for _, path := range order {
		s := merged[path]
		hits = append(hits, hit.New(
			s.h.SourcePath(), s.h.Snippet(), s.score, hit.Hybrid, s.h.Metadata(),
		))
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].RawScore() > hits[j].RawScore()
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// entriesToHits converts store entries into domain hits. The indexed
// path field names the source document; the Redis key is the fallback.
func entriesToHits(entries []db.SearchEntry, method hit.Method) []hit.Hit {
	hits := make([]hit.Hit, 0, len(entries))
	for _, e := range entries {
		path := e.Fields["path"]
		if path == "" {
			path = e.Key
		}

		metadata := make(map[string]string, len(e.Fields))
		for k, v := range e.Fields {
			if k == "content" || k == "path" {
				continue
			}
			metadata[k] = v
		}

		hits = append(hits, hit.New(path, e.Fields["content"], e.Score, method, metadata))
	}
	return hits
}
