package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	internal "github.com/ZanzyTHEbar/hot-reload/hotreload"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreMatcher skips excluded subtrees and paths matched by the
// gitignore-style ignore file found at the root of a watch path
type IgnoreMatcher struct {
	root     string
	excludes []string
	patterns *ignore.GitIgnore
}

var _ Ignorer = (*IgnoreMatcher)(nil)

// NewIgnoreMatcher builds a matcher for root. excludePaths must be
// absolute. The ignore file is read once; a missing file is not an error.
func NewIgnoreMatcher(root string, excludePaths []string) (*IgnoreMatcher, error) {
	if root == "" {
		return nil, ErrPathEmpty
	}

	m := &IgnoreMatcher{root: filepath.Clean(root)}

	for _, ex := range excludePaths {
		if ex == "" {
			continue
		}
		m.excludes = append(m.excludes, filepath.Clean(ex))
	}

	// A single-file root has no ignore file
	if info, err := os.Stat(m.root); err == nil && !info.IsDir() {
		return m, nil
	}

	patterns, err := loadIgnoreFile(filepath.Join(m.root, internal.DefaultIgnoreFileName))
	if err != nil {
		return nil, err
	}
	m.patterns = patterns

	return m, nil
}

// loadIgnoreFile compiles the ignore file at path if there is one
func loadIgnoreFile(path string) (*ignore.GitIgnore, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking for %s file: %w", filepath.Base(path), err)
	}
	if info.IsDir() {
		return nil, nil
	}

	patterns, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrIgnoreFileParse, path, err)
	}
	return patterns, nil
}

// Ignored reports whether path lies under an excluded path or matches an
// ignore pattern
func (m *IgnoreMatcher) Ignored(path string, isDir bool) bool {
	for _, ex := range m.excludes {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}

	if m.patterns == nil {
		return false
	}

	rel, err := filepath.Rel(m.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}

	rel = filepath.ToSlash(rel)
	if isDir {
		rel += "/"
	}
	return m.patterns.MatchesPath(rel)
}

// HasPatterns reports whether an ignore file was loaded
func (m *IgnoreMatcher) HasPatterns() bool {
	return m.patterns != nil
}
