package ingest

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Library holds the parsed statements of every matching document under a
// directory. Statements are keyed by relative path so re-parses replace
// rather than duplicate, and the flattened view is deterministic (sorted
// path order).
type Library struct {
	root    string
	include []string

	mu   sync.RWMutex
	docs map[string][]string
}

// NewLibrary creates a library rooted at dir. include lists doublestar
// patterns relative to the root; an empty list matches nothing.
func NewLibrary(dir string, include []string) *Library {
	return &Library{
		root:    dir,
		include: include,
		docs:    make(map[string][]string),
	}
}

// Root returns the library's directory.
func (l *Library) Root() string {
	return l.root
}

// Matches reports whether a path (relative to the root) is covered by the
// include patterns.
func (l *Library) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, pattern := range l.include {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Scan walks the root directory and parses every matching file, replacing
// the library's contents.
func (l *Library) Scan() error {
	docs := make(map[string][]string)

	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if name := d.Name(); name == ".git" || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(l.root, path)
		if err != nil || !l.Matches(rel) {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil // Unreadable files are skipped, not fatal.
		}
		docs[rel] = parseFile(rel, content)
		return nil
	})
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.docs = docs
	l.mu.Unlock()
	return nil
}

// Reload re-parses a single file, adding or replacing its statements.
func (l *Library) Reload(rel string) {
	content, err := os.ReadFile(filepath.Join(l.root, rel))
	if err != nil {
		l.Remove(rel)
		return
	}

	statements := parseFile(rel, content)

	l.mu.Lock()
	l.docs[rel] = statements
	l.mu.Unlock()
}

// Remove drops a file's statements from the library.
func (l *Library) Remove(rel string) {
	l.mu.Lock()
	delete(l.docs, rel)
	l.mu.Unlock()
}

// Statements returns the flattened, ordered statement list across all
// documents, sorted by relative path for determinism.
func (l *Library) Statements() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	paths := make([]string, 0, len(l.docs))
	for p := range l.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []string
	for _, p := range paths {
		out = append(out, l.docs[p]...)
	}
	return out
}

// DocumentCount returns the number of parsed documents.
func (l *Library) DocumentCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.docs)
}

// parseFile dispatches on file extension: HTML documents go through
// content extraction, everything else through structured/plain parsing.
func parseFile(rel string, content []byte) []string {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".html", ".htm":
		doc, err := ExtractHTML(content, nil)
		if err != nil {
			return Statements(content)
		}
		return doc.Statements
	default:
		return Statements(content)
	}
}
