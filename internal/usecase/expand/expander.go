// Package expand derives query variants for the fallback retrieval ladder.
// Expansion is pure and deterministic: no I/O, bounded by the dictionary
// entry plus two script heuristics, and never empty.
package expand

import (
	"regexp"
	"strings"

	"github.com/kensaku-io/kensaku/internal/dictionary"
	"github.com/kensaku-io/kensaku/internal/domain/search/variant"
)

// Script boundary patterns. U+30FC (prolonged sound mark) has script
// Common, so it is listed explicitly next to the kana/kanji classes.
var (
	latinToJapanese = regexp.MustCompile(`([A-Za-z0-9])([\p{Hiragana}\p{Katakana}\p{Han}ー])`)
	japaneseToLatin = regexp.MustCompile(`([\p{Hiragana}\p{Katakana}\p{Han}ー])([A-Za-z0-9])`)
)

// Expander derives query variants from an injected compound-term dictionary.
type Expander struct {
	dict *dictionary.Dictionary
}

// New creates an expander over the given dictionary.
func New(dict *dictionary.Dictionary) *Expander {
	if dict == nil {
		dict = dictionary.Empty()
	}
	return &Expander{dict: dict}
}

// Expand produces the ordered variant list for a query:
// the direct variant first (weight 1.0, always present), then dictionary
// token-join and synonym variants (0.8), then a script-boundary-spaced
// variant (0.4). Variants are de-duplicated by exact text, first seen wins.
func (e *Expander) Expand(query string) []variant.Variant {
	variants := make([]variant.Variant, 0, 4)
	seen := make(map[string]struct{}, 4)

	add := func(text string, origin variant.Origin, weight float64) {
		if text == "" {
			return
		}
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		variants = append(variants, variant.New(text, origin, weight))
	}

	add(query, variant.Direct, variant.WeightDirect)

	if entry, ok := e.dict.Lookup(query); ok {
		if len(entry.Tokens) >= 2 {
			add(strings.Join(entry.Tokens, " "), variant.TokenJoin, variant.WeightPreprocessed)
		}
		for _, syn := range entry.Synonyms {
			add(syn, variant.Synonym, variant.WeightPreprocessed)
		}
	}

	if spaced := latinToJapanese.ReplaceAllString(query, "$1 $2"); spaced != query {
		add(spaced, variant.ScriptSplit, variant.WeightSplit)
	}

	return variants
}

// Split breaks a query into retrievable fragments for the last-resort
// ladder stage. Dictionary tokenization wins when the query is a known
// compound term; otherwise the query is split at every Latin-Japanese
// script transition. Always returns at least one element.
func (e *Expander) Split(query string) []string {
	if entry, ok := e.dict.Lookup(query); ok && len(entry.Tokens) > 0 {
		tokens := make([]string, len(entry.Tokens))
		copy(tokens, entry.Tokens)
		return tokens
	}

	spaced := latinToJapanese.ReplaceAllString(query, "$1 $2")
	spaced = japaneseToLatin.ReplaceAllString(spaced, "$1 $2")

	parts := strings.Fields(spaced)
	if len(parts) == 0 {
		return []string{query}
	}
	return parts
}
