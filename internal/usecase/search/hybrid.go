package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
	"github.com/kensaku-io/kensaku/internal/domain/search/request"
	"github.com/kensaku-io/kensaku/internal/domain/search/result"
)

// Weights applied when fusing filesystem grep hits with backend vector
// hits. Grep matches are literal and high-precision but carry no
// semantic ranking, so they score below a strong vector match while
// still outranking marginal ones.
const (
	grepWeight   = 0.4
	vectorWeight = 0.6
)

// searchHybridGrep fans out to the filesystem text searcher and the
// vector backend in parallel, then fuses both lists. Either side failing
// leaves the other side's results intact.
func (s *Service) searchHybridGrep(ctx context.Context, req *request.Request) (Outcome, error) {
	var (
		wg       sync.WaitGroup
		grepHits []hit.Hit
		grepErr  error
		vecHits  []hit.Hit
		vecErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		grepHits, grepErr = s.grepCall(ctx, req.Query(), req.TopK())
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
		defer cancel()
		vecHits, vecErr = s.backend.Search(callCtx, req.Query(), mode.Vector, req.TopK(), req.Project())
	}()
	wg.Wait()

	var history []string
	if grepErr != nil {
		history = append(history, fmt.Sprintf("grep search %q failed: %v", req.Query(), grepErr))
	} else {
		history = append(history, fmt.Sprintf("grep search %q: %d hits", req.Query(), len(grepHits)))
	}
	if vecErr != nil {
		history = append(history, fmt.Sprintf("vector search %q failed: %v", req.Query(), vecErr))
	} else {
		history = append(history, fmt.Sprintf("vector search %q: %d hits", req.Query(), len(vecHits)))
	}

	return Outcome{
		Results: fuseHybrid(grepHits, vecHits, req.Query(), req.TopK()),
		History: history,
	}, nil
}

// fuseHybrid merges grep and vector hit lists into one ranked list.
// Grep hits are folded in first, so a document found by both keeps its
// grep entry.
func fuseHybrid(grepHits, vecHits []hit.Hit, query string, topK int) []result.Result {
	merged := make([]result.Result, 0, len(grepHits)+len(vecHits))
	seen := make(map[string]struct{}, len(grepHits)+len(vecHits))

	for _, h := range grepHits {
		if _, dup := seen[h.SourcePath()]; dup {
			continue
		}
		seen[h.SourcePath()] = struct{}{}
		merged = append(merged, result.FromHit(h, result.SourceGrep, query, h.RawScore()*grepWeight))
	}
	for _, h := range vecHits {
		if _, dup := seen[h.SourcePath()]; dup {
			continue
		}
		seen[h.SourcePath()] = struct{}{}
		merged = append(merged, result.FromHit(h, result.SourceVector, query, h.RawScore()*vectorWeight))
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].WeightedScore() > merged[j].WeightedScore()
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
