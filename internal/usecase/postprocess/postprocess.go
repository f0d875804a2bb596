// Package postprocess refines ranked results for presentation: metadata
// filtering, snippet highlighting, metadata sanitization, and display
// truncation. Every step here is pure and idempotent.
package postprocess

import (
	"regexp"
	"strings"
	"time"

	"github.com/kensaku-io/kensaku/internal/domain/search/filter"
	"github.com/kensaku-io/kensaku/internal/domain/search/result"
)

// Display budgets, in runes, inclusive of the truncation marker.
const (
	snippetBudget  = 80
	subQueryBudget = 30
	queryBudget    = 50

	ellipsis = "..."
)

// categoryPattern extracts a category declaration from snippet text when
// the metadata field is absent, matching lines like "category: work".
var categoryPattern = regexp.MustCompile(`(?im)^category:\s*(\S+)`)

// tagPattern matches inline hashtags in snippet text.
var tagPattern = regexp.MustCompile(`#([\p{L}\p{N}_-]+)`)

// metadataAllowList names the metadata fields safe to return to callers.
var metadataAllowList = map[string]struct{}{
	"category":   {},
	"tags":       {},
	"created_at": {},
	"project":    {},
	"file_name":  {},
	"title":      {},
}

// Apply filters, highlights, sanitizes, and truncates results in
// presentation order. The input slice is not modified.
func Apply(results []result.Result, filters filter.Filters, query string) []result.Result {
	out := make([]result.Result, 0, len(results))
	for _, r := range results {
		if !matches(r, filters) {
			continue
		}
		// Category and tags extracted from snippet text are promoted
		// into metadata before the snippet is truncated, so filters
		// keep passing when the process is applied again.
		r = r.WithMetadata(promoteFromSnippet(sanitizeMetadata(r.Metadata()), r.Snippet()))
		r = r.WithSnippet(truncate(r.Snippet(), snippetBudget))
		// Spans index into the truncated snippet, the text callers see.
		r = r.WithHighlights(highlightSpans(r.Snippet(), query))
		r = r.WithQueryOrigin(truncate(r.QueryOrigin(), subQueryBudget))
		out = append(out, r)
	}
	return out
}

// TruncateQuery shortens the echoed top-level query for the response
// envelope.
func TruncateQuery(query string) string {
	return truncate(query, queryBudget)
}

// matches reports whether a result passes every requested filter.
// Filters combine with AND.
func matches(r result.Result, f filter.Filters) bool {
	if f.IsEmpty() {
		return true
	}
	if cat := f.Category(); cat != "" {
		if !strings.EqualFold(resultCategory(r), cat) {
			return false
		}
	}
	if tags := f.Tags(); len(tags) > 0 {
		have := resultTags(r)
		overlap := false
		for _, want := range tags {
			if _, ok := have[strings.ToLower(want)]; ok {
				overlap = true
				break
			}
		}
		if !overlap {
			return false
		}
	}
	if after := f.CreatedAfter(); after != nil {
		if !resultCreatedAt(r).After(*after) {
			return false
		}
	}
	if before := f.CreatedBefore(); before != nil {
		if !resultCreatedAt(r).Before(*before) {
			return false
		}
	}
	return true
}

// resultCategory reads the category from metadata, falling back to a
// "category:" line in the snippet text.
func resultCategory(r result.Result) string {
	if cat, ok := r.Metadata()["category"]; ok && cat != "" {
		return cat
	}
	if m := categoryPattern.FindStringSubmatch(r.Snippet()); m != nil {
		return m[1]
	}
	return ""
}

// resultTags collects the result's tags, lowercased, from the metadata
// field when present, else from inline hashtags in the snippet.
func resultTags(r result.Result) map[string]struct{} {
	tags := make(map[string]struct{})
	if raw, ok := r.Metadata()["tags"]; ok && raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags[strings.ToLower(t)] = struct{}{}
			}
		}
		return tags
	}
	for _, m := range tagPattern.FindAllStringSubmatch(r.Snippet(), -1) {
		tags[strings.ToLower(m[1])] = struct{}{}
	}
	return tags
}

// resultCreatedAt parses the created_at metadata field. A missing or
// unparseable timestamp resolves to the Unix epoch, which fails any
// created_after filter and passes any created_before filter.
func resultCreatedAt(r result.Result) time.Time {
	raw, ok := r.Metadata()["created_at"]
	if !ok || raw == "" {
		return time.Unix(0, 0).UTC()
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts
	}
	return time.Unix(0, 0).UTC()
}

// highlightSpans finds every case-insensitive occurrence of each
// whitespace-split query term in the snippet, as rune offsets. Spans
// from different terms may overlap and are not merged.
func highlightSpans(snippet, query string) []result.Span {
	if query == "" || snippet == "" {
		return nil
	}
	text := []rune(strings.ToLower(snippet))

	var spans []result.Span
	for _, term := range strings.Fields(strings.ToLower(query)) {
		needle := []rune(term)
		if len(needle) > len(text) {
			continue
		}
		for i := 0; i+len(needle) <= len(text); {
			if runesEqual(text[i:i+len(needle)], needle) {
				spans = append(spans, result.Span{Start: i, End: i + len(needle)})
				i += len(needle)
				continue
			}
			i++
		}
	}
	return spans
}

func runesEqual(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// promoteFromSnippet fills missing category and tags metadata from the
// snippet text, using the same extraction rules the filters apply.
func promoteFromSnippet(metadata map[string]string, snippet string) map[string]string {
	promoted := make(map[string]string, len(metadata)+2)
	for k, v := range metadata {
		promoted[k] = v
	}
	if promoted["category"] == "" {
		if m := categoryPattern.FindStringSubmatch(snippet); m != nil {
			promoted["category"] = m[1]
		}
	}
	if promoted["tags"] == "" {
		if tags := inlineTags(snippet); len(tags) > 0 {
			promoted["tags"] = strings.Join(tags, ",")
		}
	}
	return promoted
}

// inlineTags extracts hashtags from snippet text in order of first
// appearance, de-duplicated case-insensitively.
func inlineTags(snippet string) []string {
	ms := tagPattern.FindAllStringSubmatch(snippet, -1)
	seen := make(map[string]struct{}, len(ms))
	tags := make([]string, 0, len(ms))
	for _, m := range ms {
		key := strings.ToLower(m[1])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}

// sanitizeMetadata keeps only allow-listed fields.
func sanitizeMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return metadata
	}
	clean := make(map[string]string, len(metadata))
	for k, v := range metadata {
		if _, ok := metadataAllowList[k]; ok {
			clean[k] = v
		}
	}
	return clean
}

// truncate shortens s to at most budget runes including the marker, so
// applying it twice yields the same string.
func truncate(s string, budget int) string {
	runes := []rune(s)
	if len(runes) <= budget {
		return s
	}
	return string(runes[:budget-len(ellipsis)]) + ellipsis
}
