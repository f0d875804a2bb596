package search

import (
	"sort"

	"github.com/kensaku-io/kensaku/internal/domain/search/result"
)

// mergeRanked flattens the session attempts into one ranked list.
// Each hit's score is its raw backend score discounted by the attempt
// weight. Duplicate source paths keep the first occurrence, so hits
// from earlier (higher-trust) attempts win over later ones.
func mergeRanked(attempts []attempt, limit int) []result.Result {
	merged := make([]result.Result, 0, limit)
	seen := make(map[string]struct{})

	for _, a := range attempts {
		if a.err != nil {
			continue
		}
		for _, h := range a.hits {
			if _, dup := seen[h.SourcePath()]; dup {
				continue
			}
			seen[h.SourcePath()] = struct{}{}
			merged = append(merged, result.FromHit(h, a.source, a.queryText, h.RawScore()*a.weight))
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].WeightedScore() > merged[j].WeightedScore()
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
