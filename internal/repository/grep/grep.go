// Package grep provides literal substring search over the on-disk note
// tree, used as the exact-match leg of hybrid retrieval.
package grep

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kensaku-io/kensaku/internal/domain/search/hit"
)

const (
	defaultMaxMatches = 20

	// maxFileSize skips files too large to be notes.
	maxFileSize = 1 << 20

	// snippetContext is how many bytes of line context surround a match.
	snippetContext = 200
)

// textExtensions limits the walk to plain-text note formats.
var textExtensions = map[string]struct{}{
	".md":       {},
	".markdown": {},
	".txt":      {},
	".rst":      {},
	".adoc":     {},
}

// errStop aborts the walk once enough matches accumulated.
var errStop = errors.New("grep: match limit reached")

// Searcher walks a note tree finding case-insensitive substring matches.
type Searcher struct {
	root       string
	maxMatches int
	log        *zap.Logger
}

// New creates a filesystem searcher rooted at dir.
func New(root string, maxMatches int, log *zap.Logger) *Searcher {
	if maxMatches <= 0 {
		maxMatches = defaultMaxMatches
	}
	return &Searcher{root: root, maxMatches: maxMatches, log: log}
}

// Grep scans the tree for lines containing the query, ignoring case.
// Every match scores 1.0: literal presence is binary, ranking against
// other methods happens through fusion weights.
func (s *Searcher) Grep(ctx context.Context, query string, topK int) ([]hit.Hit, error) {
	if query == "" {
		return nil, nil
	}
	limit := s.maxMatches
	if topK > 0 && topK < limit {
		limit = topK
	}

	needle := strings.ToLower(query)
	var hits []hit.Hit

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			s.log.Debug("grep: skipping entry", zap.String("path", path), zap.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if name := d.Name(); strings.HasPrefix(name, ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := textExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxFileSize {
			return nil
		}

		fileHits, err := s.grepFile(path, needle, limit-len(hits))
		if err != nil {
			s.log.Debug("grep: skipping file", zap.String("path", path), zap.Error(err))
			return nil
		}
		hits = append(hits, fileHits...)
		if len(hits) >= limit {
			return errStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, fmt.Errorf("walk %s: %w", s.root, err)
	}
	return hits, nil
}

// grepFile scans one file line by line, emitting at most limit hits.
func (s *Searcher) grepFile(path, needle string, limit int) ([]hit.Hit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}

	var hits []hit.Hit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxFileSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if !strings.Contains(strings.ToLower(line), needle) {
			continue
		}

		hits = append(hits, hit.New(rel, snippetAround(line, needle), 1.0, hit.Grep, map[string]string{
			"file_name": filepath.Base(path),
			"line":      strconv.Itoa(lineNo),
		}))
		if len(hits) >= limit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hits, nil
}

// snippetAround trims a matched line down to the context window around
// the first occurrence.
func snippetAround(line, needle string) string {
	if len(line) <= snippetContext {
		return line
	}
	idx := strings.Index(strings.ToLower(line), needle)
	if idx < 0 {
		idx = 0
	}
	start := idx - snippetContext/2
	if start < 0 {
		start = 0
	}
	end := start + snippetContext
	if end > len(line) {
		end = len(line)
		start = end - snippetContext
	}
	// Align to rune boundaries so multibyte text is not cut mid-character.
	for start > 0 && !isRuneStart(line[start]) {
		start--
	}
	for end < len(line) && !isRuneStart(line[end]) {
		end++
	}
	return line[start:end]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
