package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sourcegraph/conc/pool"
)

// Ignorer decides whether a path found during a scan is skipped.
// Directories that are ignored are not descended into.
type Ignorer interface {
	Ignored(path string, isDir bool) bool
}

// Scanner recursively lists the regular files under a root path.
// Directories of the same depth are read concurrently by a bounded
// conc pool; a Scanner keeps no state between calls and is safe for
// concurrent use.
type Scanner struct {
	maxWorkers int
	ignorer    Ignorer
}

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithMaxWorkers bounds the number of directories read at once
func WithMaxWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// WithIgnorer skips the paths matched by ig
func WithIgnorer(ig Ignorer) ScannerOption {
	return func(s *Scanner) {
		s.ignorer = ig
	}
}

// NewScanner creates a scanner with a worker count derived from the CPU count
func NewScanner(opts ...ScannerOption) *Scanner {
	// I/O bound: CPU cores * 2, clamped to [4, 32]
	s := &Scanner{
		maxWorkers: min(max(runtime.NumCPU()*2, 4), 32),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListFiles returns the absolute path of every regular file under root,
// in no particular order.
//
// A root that does not exist yields an empty result and no error. A root
// that is a regular file yields exactly that path. Subdirectories that
// cannot be read are skipped; the files found elsewhere are still
// returned together with a multierror describing the skipped subtrees.
// If the root itself cannot be inspected or listed the returned error
// wraps ErrRootUnreadable and no files are returned.
func (s *Scanner) ListFiles(ctx context.Context, root string) ([]string, error) {
	if root == "" {
		return nil, ErrPathEmpty
	}

	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrRootUnreadable, root, err)
	}

	if info.Mode().IsRegular() {
		return []string{root}, nil
	}
	if !info.IsDir() {
		return nil, nil
	}

	start := time.Now()

	var (
		mu      sync.Mutex
		files   []string
		errs    *multierror.Error
		rootErr error
	)

	// Breadth first: one pool per level so every directory of a level is
	// read before descending.
	currentLevel := []string{root}
	depth := 0

	for len(currentLevel) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var nextLevel []string
		levelPool := pool.New().WithMaxGoroutines(s.maxWorkers).WithContext(ctx)

		for _, dir := range currentLevel {
			levelPool.Go(func(ctx context.Context) error {
				subdirs, found, err := s.readDir(dir)

				mu.Lock()
				defer mu.Unlock()

				if err != nil && dir == root {
					rootErr = err
				} else if err != nil {
					errs = multierror.Append(errs, err)
				}
				files = append(files, found...)
				nextLevel = append(nextLevel, subdirs...)
				return nil
			})
		}

		_ = levelPool.Wait()

		// an empty listing of the root must not read as "every file deleted"
		if rootErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRootUnreadable, rootErr)
		}

		currentLevel = nextLevel
		depth++
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	skipped := 0
	if errs != nil {
		skipped = len(errs.Errors)
	}

	slog.Debug("Scan completed",
		"root", root,
		"files", len(files),
		"depth", depth,
		"skipped", skipped,
		"duration", time.Since(start))

	return files, errs.ErrorOrNil()
}

// readDir lists one directory, splitting its entries into subdirectories
// to descend into and files to report
func (s *Scanner) readDir(dir string) (subdirs, files []string, err error) {
	// os.ReadDir returns the entries read before a failure, keep them
	entries, readErr := os.ReadDir(dir)
	if readErr != nil {
		err = fmt.Errorf("failed to read directory %s: %w", dir, readErr)
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		switch {
		case entry.IsDir():
			if s.ignored(path, true) {
				continue
			}
			subdirs = append(subdirs, path)

		case entry.Type().IsRegular():
			if s.ignored(path, false) {
				continue
			}
			files = append(files, path)

		case entry.Type()&fs.ModeSymlink != 0:
			// Symlinks to files count as files; linked directories are not
			// followed so a link cycle cannot make the scan unbounded.
			target, statErr := os.Stat(path)
			if statErr != nil || !target.Mode().IsRegular() {
				continue
			}
			if s.ignored(path, false) {
				continue
			}
			files = append(files, path)
		}
	}

	return subdirs, files, err
}

func (s *Scanner) ignored(path string, isDir bool) bool {
	return s.ignorer != nil && s.ignorer.Ignored(path, isDir)
}
