package postprocess

import (
	"strings"
	"testing"
	"time"

	"github.com/kensaku-io/kensaku/internal/domain/search/filter"
	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
	"github.com/kensaku-io/kensaku/internal/domain/search/result"
)

func makeResult(path, snippet string, metadata map[string]string) result.Result {
	h := hit.New(path, snippet, 0.9, hit.Vector, metadata)
	return result.FromHit(h, result.SourceDirect, "query", 0.9)
}

func ts(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestApply_NoFiltersPassesAll(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "meeting notes", nil),
		makeResult("b.md", "deploy runbook", nil),
	}

	out := Apply(results, filter.Filters{}, "notes")
	if len(out) != 2 {
		t.Fatalf("expected 2 results, got %d", len(out))
	}
}

func TestApply_CategoryFilterFromMetadata(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "text", map[string]string{"category": "work"}),
		makeResult("b.md", "text", map[string]string{"category": "personal"}),
	}

	out := Apply(results, filter.New("work", nil, nil, nil), "text")
	if len(out) != 1 || out[0].SourcePath() != "a.md" {
		t.Fatalf("expected only a.md, got %+v", out)
	}
}

func TestApply_CategoryFilterFromSnippetText(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "category: work\nweekly sync notes", nil),
		makeResult("b.md", "no category line here", nil),
	}

	out := Apply(results, filter.New("work", nil, nil, nil), "notes")
	if len(out) != 1 || out[0].SourcePath() != "a.md" {
		t.Fatalf("expected only a.md, got %d results", len(out))
	}
}

func TestApply_TagsKeepOnAnyOverlap(t *testing.T) {
	// Sharing any requested tag is enough; only results with no
	// requested tag at all are dropped.
	results := []result.Result{
		makeResult("a.md", "text", map[string]string{"tags": "go"}),
		makeResult("b.md", "text", map[string]string{"tags": "go,redis"}),
		makeResult("c.md", "text", map[string]string{"tags": "python"}),
	}

	out := Apply(results, filter.New("", []string{"go", "redis"}, nil, nil), "text")
	if len(out) != 2 {
		t.Fatalf("expected a.md and b.md to survive, got %d results", len(out))
	}
	if out[0].SourcePath() != "a.md" || out[1].SourcePath() != "b.md" {
		t.Errorf("unexpected survivors: %s, %s", out[0].SourcePath(), out[1].SourcePath())
	}
}

func TestApply_TagsFromInlineHashtags(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "meeting notes #work #整理", nil),
	}

	out := Apply(results, filter.New("", []string{"整理"}, nil, nil), "notes")
	if len(out) != 1 {
		t.Fatalf("expected hashtag match, got %d results", len(out))
	}
}

func TestApply_CreatedAfterFilter(t *testing.T) {
	results := []result.Result{
		makeResult("old.md", "text", map[string]string{"created_at": "2024-01-15"}),
		makeResult("new.md", "text", map[string]string{"created_at": "2026-02-01T10:00:00Z"}),
	}

	out := Apply(results, filter.New("", nil, ts(2025, time.January, 1), nil), "text")
	if len(out) != 1 || out[0].SourcePath() != "new.md" {
		t.Fatalf("expected only new.md, got %d results", len(out))
	}
}

func TestApply_MissingTimestampFailsAfterPassesBefore(t *testing.T) {
	results := []result.Result{
		makeResult("undated.md", "text", nil),
	}

	after := Apply(results, filter.New("", nil, ts(2020, time.January, 1), nil), "text")
	if len(after) != 0 {
		t.Errorf("missing created_at must fail created_after, got %d results", len(after))
	}

	before := Apply(results, filter.New("", nil, nil, ts(2020, time.January, 1)), "text")
	if len(before) != 1 {
		t.Errorf("missing created_at must pass created_before, got %d results", len(before))
	}
}

func TestApply_HighlightSpansCaseInsensitive(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "Redis and redis again", nil),
	}

	out := Apply(results, filter.Filters{}, "redis")
	if len(out) != 1 {
		t.Fatalf("expected 1 result, got %d", len(out))
	}
	spans := out[0].Highlights()
	if len(spans) != 2 {
		t.Fatalf("expected 2 highlight spans, got %d: %+v", len(spans), spans)
	}
	if spans[0].Start != 0 || spans[0].End != 5 {
		t.Errorf("unexpected first span: %+v", spans[0])
	}
	if spans[1].Start != 10 || spans[1].End != 15 {
		t.Errorf("unexpected second span: %+v", spans[1])
	}
}

func TestApply_HighlightSpansPerQueryTerm(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "Redis cache notes", nil),
	}

	out := Apply(results, filter.Filters{}, "redis cache")
	spans := out[0].Highlights()
	if len(spans) != 2 {
		t.Fatalf("expected one span per query term, got %d: %+v", len(spans), spans)
	}
	if spans[0].Start != 0 || spans[0].End != 5 {
		t.Errorf("unexpected redis span: %+v", spans[0])
	}
	if spans[1].Start != 6 || spans[1].End != 11 {
		t.Errorf("unexpected cache span: %+v", spans[1])
	}
}

func TestApply_HighlightSpansRuneOffsets(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "メモ: 検索の話", nil),
	}

	out := Apply(results, filter.Filters{}, "検索")
	spans := out[0].Highlights()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Start != 4 || spans[0].End != 6 {
		t.Errorf("expected rune offsets [4,6), got %+v", spans[0])
	}
}

func TestApply_MetadataAllowList(t *testing.T) {
	results := []result.Result{
		makeResult("a.md", "text", map[string]string{
			"category":    "work",
			"title":       "notes",
			"internal_id": "xyz",
			"api_key":     "secret",
		}),
	}

	out := Apply(results, filter.Filters{}, "text")
	md := out[0].Metadata()
	if _, ok := md["internal_id"]; ok {
		t.Error("internal_id must be stripped")
	}
	if _, ok := md["api_key"]; ok {
		t.Error("api_key must be stripped")
	}
	if md["category"] != "work" || md["title"] != "notes" {
		t.Errorf("allow-listed fields must survive, got %v", md)
	}
}

func TestApply_SnippetTruncatedToBudget(t *testing.T) {
	long := strings.Repeat("あ", 200)
	results := []result.Result{
		makeResult("a.md", long, nil),
	}

	out := Apply(results, filter.Filters{}, "query")
	snippet := out[0].Snippet()
	if got := len([]rune(snippet)); got != snippetBudget {
		t.Errorf("expected %d runes including marker, got %d", snippetBudget, got)
	}
	if !strings.HasSuffix(snippet, ellipsis) {
		t.Errorf("expected truncation marker, got %q", snippet)
	}
}

func TestApply_Idempotent(t *testing.T) {
	// One match inside the snippet budget, one past it. The span set
	// must be computed against the truncated snippet, or a second pass
	// would see a different span set.
	long := "redis " + strings.Repeat("x", 500) + " redis"
	results := []result.Result{
		makeResult("a.md", long, map[string]string{"category": "work"}),
	}

	once := Apply(results, filter.Filters{}, "redis")
	twice := Apply(once, filter.Filters{}, "redis")

	if len(once) != len(twice) {
		t.Fatalf("idempotence broken: %d vs %d results", len(once), len(twice))
	}
	if once[0].Snippet() != twice[0].Snippet() {
		t.Errorf("snippet changed on second pass:\nonce:  %q\ntwice: %q",
			once[0].Snippet(), twice[0].Snippet())
	}
	if once[0].QueryOrigin() != twice[0].QueryOrigin() {
		t.Errorf("query origin changed on second pass")
	}
	if len(once[0].Highlights()) != 1 || len(twice[0].Highlights()) != 1 {
		t.Errorf("highlights changed on second pass: %+v vs %+v",
			once[0].Highlights(), twice[0].Highlights())
	}
}

func TestApply_IdempotentWithSnippetDerivedFilters(t *testing.T) {
	// The category line and the hashtag sit past the snippet budget.
	// The first pass must carry them into metadata, or re-applying the
	// same filters would drop results whose evidence was truncated away.
	long := strings.Repeat("x", 100) + "\ncategory: design\nreview notes #architecture"
	results := []result.Result{
		makeResult("a.md", long, nil),
	}

	byCategory := filter.New("design", nil, nil, nil)
	once := Apply(results, byCategory, "notes")
	if len(once) != 1 {
		t.Fatalf("expected snippet-derived category to match, got %d results", len(once))
	}
	if got := once[0].Metadata()["category"]; got != "design" {
		t.Errorf("expected category promoted into metadata, got %q", got)
	}
	twice := Apply(once, byCategory, "notes")
	if len(twice) != 1 {
		t.Fatalf("category filter dropped result on second pass")
	}

	byTag := filter.New("", []string{"architecture"}, nil, nil)
	once = Apply(results, byTag, "notes")
	if len(once) != 1 {
		t.Fatalf("expected hashtag to match, got %d results", len(once))
	}
	if got := once[0].Metadata()["tags"]; got != "architecture" {
		t.Errorf("expected tags promoted into metadata, got %q", got)
	}
	if len(Apply(once, byTag, "notes")) != 1 {
		t.Fatalf("tag filter dropped result on second pass")
	}
}

func TestTruncateQuery(t *testing.T) {
	long := strings.Repeat("q", 120)
	got := TruncateQuery(long)
	if len([]rune(got)) != queryBudget {
		t.Errorf("expected %d runes, got %d", queryBudget, len([]rune(got)))
	}
	if TruncateQuery(got) != got {
		t.Error("truncation must be idempotent")
	}

	short := "短いクエリ"
	if TruncateQuery(short) != short {
		t.Error("short queries must pass through unchanged")
	}
}

func TestTruncate_SubQueryBudget(t *testing.T) {
	h := hit.New("a.md", "snippet", 0.5, hit.Vector, nil)
	r := result.FromHit(h, result.SourcePreprocessed, strings.Repeat("長", 60), 0.4)

	out := Apply([]result.Result{r}, filter.Filters{}, "snippet")
	if got := len([]rune(out[0].QueryOrigin())); got != subQueryBudget {
		t.Errorf("expected sub-query budget %d, got %d", subQueryBudget, got)
	}
}
