package watcher

import (
	"path/filepath"
	"sort"
	"strings"

	internal "github.com/ZanzyTHEbar/hot-reload/hotreload"
)

// FileTypeFilter decides which files take part in change detection.
// It either matches every file or matches by exact, case-sensitive
// extension (without the leading dot).
type FileTypeFilter struct {
	matchAll bool
	exts     map[string]struct{}
}

// MatchAll returns a filter accepting every file
func MatchAll() FileTypeFilter {
	return FileTypeFilter{matchAll: true}
}

// NewFileTypeFilter builds a filter from configured file types. The
// wildcard "*" anywhere in types, or no types at all, matches every file.
func NewFileTypeFilter(types ...string) FileTypeFilter {
	exts := make(map[string]struct{}, len(types))
	for _, t := range types {
		if t == internal.MatchAllFileTypes {
			return MatchAll()
		}
		if t == "" {
			continue
		}
		exts[t] = struct{}{}
	}

	if len(exts) == 0 {
		return MatchAll()
	}

	return FileTypeFilter{exts: exts}
}

// Accepts reports whether path passes the filter. The extension is the
// text after the last "." of the file name; a name without a "." never
// matches an extension filter.
func (f FileTypeFilter) Accepts(path string) bool {
	if f.matchAll {
		return true
	}

	name := filepath.Base(path)
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return false
	}

	_, ok := f.exts[name[i+1:]]
	return ok
}

// MatchesAll reports whether the filter is the wildcard
func (f FileTypeFilter) MatchesAll() bool {
	return f.matchAll
}

// Extensions returns the configured extensions, sorted
func (f FileTypeFilter) Extensions() []string {
	out := make([]string, 0, len(f.exts))
	for ext := range f.exts {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func (f FileTypeFilter) String() string {
	if f.matchAll {
		return internal.MatchAllFileTypes
	}
	return strings.Join(f.Extensions(), ",")
}
