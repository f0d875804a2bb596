// Package dictionary holds the compound-term dictionary: a static mapping
// from known multi-word domain terms (mostly Japanese technical compounds)
// to their tokenization and synonyms. It is loaded once at startup and
// read-only afterwards, so concurrent lookups need no synchronization.
package dictionary

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kensaku-io/kensaku/internal/domain"
)

// Entry describes one compound term.
type Entry struct {
	Surface  string
	Tokens   []string
	Synonyms []string
	Weight   float64
}

// Dictionary is an immutable surface-form lookup table.
// It is constructed once and injected; never a package-level global.
type Dictionary struct {
	entries map[string]Entry
}

// Empty returns a dictionary with no entries. The query expander still
// functions against it, producing only direct and script-split variants.
func Empty() *Dictionary {
	return &Dictionary{entries: map[string]Entry{}}
}

// FromEntries builds a dictionary from explicit entries (used by tests
// and by callers that source terms elsewhere).
func FromEntries(entries []Entry) *Dictionary {
	d := &Dictionary{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if e.Surface == "" {
			continue
		}
		if e.Weight <= 0 {
			e.Weight = 1.0
		}
		d.entries[e.Surface] = e
	}
	return d
}

// fileFormat mirrors the on-disk YAML layout:
//
//	compound_terms:
//	  Slack通知:
//	    tokens: [Slack, 通知]
//	    synonyms: ["Slack notification"]
type fileFormat struct {
	CompoundTerms map[string]entryFormat `yaml:"compound_terms"`
}

type entryFormat struct {
	Tokens   []string `yaml:"tokens"`
	Synonyms []string `yaml:"synonyms"`
	Weight   float64  `yaml:"weight"`
}

// Load reads a compound-term dictionary from a YAML file.
// Callers should degrade to Empty() on error rather than failing startup.
func Load(path string) (*Dictionary, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrDictionaryLoad, path, err)
	}

	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrDictionaryLoad, path, err)
	}

	entries := make([]Entry, 0, len(f.CompoundTerms))
	for surface, e := range f.CompoundTerms {
		entries = append(entries, Entry{
			Surface:  surface,
			Tokens:   e.Tokens,
			Synonyms: e.Synonyms,
			Weight:   e.Weight,
		})
	}
	return FromEntries(entries), nil
}

// Lookup returns the entry whose surface form exactly matches s.
func (d *Dictionary) Lookup(s string) (Entry, bool) {
	e, ok := d.entries[s]
	return e, ok
}

// Len returns the number of entries.
func (d *Dictionary) Len() int { return len(d.entries) }
