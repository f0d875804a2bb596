// Package search orchestrates the multi-stage fallback retrieval ladder
// over a vector/keyword backend and a filesystem text searcher.
package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
	"github.com/kensaku-io/kensaku/internal/domain/search/request"
	"github.com/kensaku-io/kensaku/internal/domain/search/result"
	"github.com/kensaku-io/kensaku/internal/domain/search/variant"
	"github.com/kensaku-io/kensaku/internal/metrics"
)

const (
	// mergedResultCap bounds the merged output of a fallback run,
	// independent of the requested top-k.
	mergedResultCap = 5

	// maxPreprocessedVariants bounds how many dictionary-derived variants
	// the second ladder stage will try.
	maxPreprocessedVariants = 3

	// preprocessedStopAfter stops the second stage once this many variants
	// have each independently returned hits.
	preprocessedStopAfter = 2

	// maxSplitTokens bounds how many split fragments the last stage tries.
	maxSplitTokens = 2

	defaultBackendTimeout = 30 * time.Second
	defaultTextTimeout    = 10 * time.Second
)

// Service runs retrieval requests, degrading through query variants and
// split fragments until something answers or the ladder is exhausted.
type Service struct {
	backend  Backend
	text     TextSearcher
	expander Expander
	log      *zap.Logger

	backendTimeout time.Duration
	textTimeout    time.Duration
}

// New creates a search service.
func New(backend Backend, text TextSearcher, expander Expander, log *zap.Logger) *Service {
	return &Service{
		backend:        backend,
		text:           text,
		expander:       expander,
		log:            log,
		backendTimeout: defaultBackendTimeout,
		textTimeout:    defaultTextTimeout,
	}
}

// WithTimeouts overrides the per-call backend and text search timeouts.
func (s *Service) WithTimeouts(backend, text time.Duration) *Service {
	if backend > 0 {
		s.backendTimeout = backend
	}
	if text > 0 {
		s.textTimeout = text
	}
	return s
}

// Outcome is the product of one retrieval run: the ranked results plus
// a human-readable trace of every attempt made along the way.
type Outcome struct {
	Results []result.Result
	History []string
}

// Search dispatches a request to the hybrid grep path, the fallback
// ladder, or a single direct backend call. Backend failures degrade to
// an empty outcome with the failure recorded in the history.
func (s *Service) Search(ctx context.Context, req *request.Request) (Outcome, error) {
	if req.Mode() == mode.HybridGrep {
		return s.searchHybridGrep(ctx, req)
	}
	if req.UseFallback() {
		return s.searchFallback(ctx, req), nil
	}
	return s.searchSingle(ctx, req), nil
}

// searchSingle runs the direct query once, without the ladder.
func (s *Service) searchSingle(ctx context.Context, req *request.Request) Outcome {
	sess := &session{}
	s.callBackend(ctx, sess, req, req.Query(), result.SourceDirect, variant.WeightDirect, req.TopK())

	return Outcome{Results: mergeRanked(sess.attempts, req.TopK()), History: sess.history}
}

// searchFallback walks the ladder: direct query, then preprocessed
// variants, then split fragments, merging whatever accumulated.
func (s *Service) searchFallback(ctx context.Context, req *request.Request) Outcome {
	sess := &session{}
	metrics.FallbackStageTotal.WithLabelValues("direct").Inc()

	// Stage 1: the query as given, full top-k.
	s.callBackend(ctx, sess, req, req.Query(), result.SourceDirect, variant.WeightDirect, req.TopK())
	if sess.successfulVariants() > 0 {
		return Outcome{Results: mergeRanked(sess.attempts, mergedResultCap), History: sess.history}
	}

	// Stage 2: dictionary and script variants at half budget.
	variants := s.expander.Expand(req.Query())
	perVariant := (req.TopK() + 1) / 2
	tried := 0
	for _, v := range variants {
		if v.Origin() == variant.Direct {
			continue
		}
		if tried >= maxPreprocessedVariants {
			break
		}
		tried++
		metrics.FallbackStageTotal.WithLabelValues("preprocessed").Inc()
		s.callBackend(ctx, sess, req, v.Text(), result.SourcePreprocessed, v.Weight(), perVariant)
		if sess.successfulVariants() >= preprocessedStopAfter {
			break
		}
	}
	if sess.successfulVariants() >= preprocessedStopAfter {
		return Outcome{Results: mergeRanked(sess.attempts, mergedResultCap), History: sess.history}
	}

	// Stage 3: split fragments, budget shared across tokens.
	tokens := s.expander.Split(req.Query())
	perToken := (req.TopK() + len(tokens) - 1) / len(tokens)
	if perToken < 1 {
		perToken = 1
	}
	for i, tok := range tokens {
		if i >= maxSplitTokens {
			break
		}
		metrics.FallbackStageTotal.WithLabelValues("split").Inc()
		s.callBackend(ctx, sess, req, tok, result.SourceSplit, variant.WeightSplit, perToken)
	}

	return Outcome{Results: mergeRanked(sess.attempts, mergedResultCap), History: sess.history}
}

// callBackend runs one backend call under the per-call timeout and records
// it in the session. Errors are absorbed into the history.
func (s *Service) callBackend(
	ctx context.Context, sess *session, req *request.Request,
	query string, source result.Source, weight float64, topK int,
) {
	callCtx, cancel := context.WithTimeout(ctx, s.backendTimeout)
	defer cancel()

	start := time.Now()
	hits, err := s.backend.Search(callCtx, query, req.Mode(), topK, req.Project())
	metrics.BackendCallDuration.WithLabelValues(string(source)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackendCallErrors.WithLabelValues(string(source)).Inc()
		s.log.Warn("backend call failed",
			zap.String("query", query),
			zap.String("source", string(source)),
			zap.Error(err),
		)
		sess.record(
			attempt{queryText: query, source: source, weight: weight, err: err},
			fmt.Sprintf("%s search %q failed: %v", source, query, err),
		)
		return
	}

	sess.record(
		attempt{queryText: query, source: source, weight: weight, hits: hits},
		fmt.Sprintf("%s search %q: %d hits", source, query, len(hits)),
	)
}

// grepCall runs the filesystem text search under its own timeout.
func (s *Service) grepCall(ctx context.Context, query string, topK int) ([]hit.Hit, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.textTimeout)
	defer cancel()
	return s.text.Grep(callCtx, query, topK)
}
