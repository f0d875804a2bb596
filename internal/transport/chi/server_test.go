package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kensaku-io/kensaku/internal/dictionary"
	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/mode"
	"github.com/kensaku-io/kensaku/internal/usecase/expand"
	healthuc "github.com/kensaku-io/kensaku/internal/usecase/health"
	searchuc "github.com/kensaku-io/kensaku/internal/usecase/search"
)

type stubBackend struct {
	hits []hit.Hit
	err  error
}

func (s *stubBackend) Search(
	_ context.Context, _ string, _ mode.Mode, _ int, _ string,
) ([]hit.Hit, error) {
	return s.hits, s.err
}

type stubText struct{}

func (stubText) Grep(_ context.Context, _ string, _ int) ([]hit.Hit, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(_ context.Context) error { return s.err }

func newTestServer(backend *stubBackend, pingErr error) http.Handler {
	logger := zap.NewNop()
	searchSvc := searchuc.New(backend, stubText{}, expand.New(dictionary.Empty()), logger)
	healthSvc := healthuc.New(stubPinger{err: pingErr}, nil)
	server := NewServer(searchSvc, healthSvc)

	r := chirouter.NewRouter()
	server.Register(r)
	return r
}

func postSearch(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/v1/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHandleSearch_OK(t *testing.T) {
	backend := &stubBackend{hits: []hit.Hit{
		hit.New("notes/a.md", "deploy checklist #ops", 0.9, hit.Vector,
			map[string]string{"category": "work", "secret_field": "x"}),
	}}
	handler := newTestServer(backend, nil)

	rr := postSearch(t, handler, `{"query":"deploy","search_type":"vector"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Query != "deploy" {
		t.Errorf("expected echoed query, got %q", resp.Query)
	}
	if resp.SearchType != "vector" {
		t.Errorf("expected search_type vector, got %q", resp.SearchType)
	}
	if resp.TotalFound != 1 || len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %+v", resp)
	}

	r := resp.Results[0]
	if r.SourcePath != "notes/a.md" {
		t.Errorf("unexpected source path %q", r.SourcePath)
	}
	if r.Score != 0.9 {
		t.Errorf("expected weighted score 0.9, got %v", r.Score)
	}
	if len(r.Highlights) != 1 {
		t.Errorf("expected a highlight span, got %+v", r.Highlights)
	}
	if _, ok := r.Metadata["secret_field"]; ok {
		t.Error("non-allow-listed metadata must be stripped")
	}
	if len(resp.SearchHistory) == 0 {
		t.Error("expected search history")
	}
}

func TestHandleSearch_LongQueryEchoTruncated(t *testing.T) {
	backend := &stubBackend{}
	handler := newTestServer(backend, nil)

	long := strings.Repeat("q", 120)
	rr := postSearch(t, handler, `{"query":"`+long+`"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if got := len([]rune(resp.Query)); got != 50 {
		t.Errorf("expected echoed query truncated to 50 runes, got %d", got)
	}
	if !strings.HasSuffix(resp.Query, "...") {
		t.Errorf("expected truncation marker, got %q", resp.Query)
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	handler := newTestServer(&stubBackend{}, nil)

	rr := postSearch(t, handler, `{"search_type":"vector"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHandleSearch_InvalidMode(t *testing.T) {
	handler := newTestServer(&stubBackend{}, nil)

	rr := postSearch(t, handler, `{"query":"deploy","search_type":"fuzzy"}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHandleSearch_InvalidBody(t *testing.T) {
	handler := newTestServer(&stubBackend{}, nil)

	rr := postSearch(t, handler, `{not json`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHandleSearch_InvalidCreatedAfter(t *testing.T) {
	handler := newTestServer(&stubBackend{}, nil)

	rr := postSearch(t, handler, `{"query":"deploy","filters":{"created_after":"notadate"}}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rr.Code)
	}
}

func TestHandleSearch_BackendDownDegrades(t *testing.T) {
	backend := &stubBackend{err: errors.New("connection refused")}
	handler := newTestServer(backend, nil)

	rr := postSearch(t, handler, `{"query":"deploy"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("backend failure with fallback must degrade to 200, got %d", rr.Code)
	}

	var resp searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalFound != 0 {
		t.Errorf("expected no results, got %d", resp.TotalFound)
	}
	if len(resp.SearchHistory) == 0 {
		t.Fatal("expected failure history")
	}
	if !strings.Contains(resp.SearchHistory[0], "failed") {
		t.Errorf("expected failure entry, got %q", resp.SearchHistory[0])
	}
}

func TestHandleHealth_OK(t *testing.T) {
	handler := newTestServer(&stubBackend{}, nil)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", rr.Code)
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	handler := newTestServer(&stubBackend{}, errors.New("backend down"))

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d, want 503", rr.Code)
	}
}
