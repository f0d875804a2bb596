package search

import (
	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/result"
)

// attempt records a single backend call made during a fallback ladder run.
type attempt struct {
	queryText string
	source    result.Source
	weight    float64
	hits      []hit.Hit
	err       error
}

func (a attempt) succeeded() bool {
	return a.err == nil && len(a.hits) > 0
}

// session accumulates the attempts and human-readable history of one
// fallback ladder run. It is not safe for concurrent use.
type session struct {
	attempts []attempt
	history  []string
}

func (s *session) record(a attempt, line string) {
	s.attempts = append(s.attempts, a)
	s.history = append(s.history, line)
}

// successfulVariants counts attempts that independently returned hits.
func (s *session) successfulVariants() int {
	n := 0
	for _, a := range s.attempts {
		if a.succeeded() {
			n++
		}
	}
	return n
}
