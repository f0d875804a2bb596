package dictionary

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kensaku-io/kensaku/internal/domain"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terms.yaml")
	data := `compound_terms:
  Slack通知:
    tokens: [Slack, 通知]
    synonyms: ["Slack notification"]
  API設計:
    tokens: [API, 設計]
    weight: 0.9
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", d.Len())
	}

	e, ok := d.Lookup("Slack通知")
	if !ok {
		t.Fatal("expected entry for Slack通知")
	}
	if len(e.Tokens) != 2 || e.Tokens[0] != "Slack" {
		t.Errorf("unexpected tokens: %v", e.Tokens)
	}
	if len(e.Synonyms) != 1 || e.Synonyms[0] != "Slack notification" {
		t.Errorf("unexpected synonyms: %v", e.Synonyms)
	}
	if e.Weight != 1.0 {
		t.Errorf("expected default weight 1.0, got %v", e.Weight)
	}

	e, _ = d.Lookup("API設計")
	if e.Weight != 0.9 {
		t.Errorf("expected weight 0.9, got %v", e.Weight)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, domain.ErrDictionaryLoad) {
		t.Fatalf("expected ErrDictionaryLoad, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("compound_terms: ["), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !errors.Is(err, domain.ErrDictionaryLoad) {
		t.Fatalf("expected ErrDictionaryLoad, got %v", err)
	}
}

func TestFromEntries_SkipsEmptySurface(t *testing.T) {
	d := FromEntries([]Entry{
		{Surface: ""},
		{Surface: "検索改善", Tokens: []string{"検索", "改善"}},
	})
	if d.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", d.Len())
	}
}

func TestEmpty(t *testing.T) {
	d := Empty()
	if d.Len() != 0 {
		t.Errorf("expected empty dictionary, got %d entries", d.Len())
	}
	if _, ok := d.Lookup("anything"); ok {
		t.Error("empty dictionary must not match")
	}
}
