package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/hot-reload/hotreload/filesystem/watcher"
	"github.com/ZanzyTHEbar/hot-reload/hotreload/runner"
)

// ResolveTargets turns settings into one WatchTarget per distinct watch
// path. Relative paths resolve against baseDir, which defaults to the
// working directory and is also where commands run.
func ResolveTargets(s *Settings, baseDir string) ([]watcher.WatchTarget, error) {
	base, err := resolveBaseDir(baseDir)
	if err != nil {
		return nil, err
	}

	filter := watcher.NewFileTypeFilter(s.WatchFileTypes...)
	commands := runner.Commands(s.Commands...)

	excludes := make([]string, 0, len(s.ExcludePaths))
	for _, p := range s.ExcludePaths {
		excludes = append(excludes, resolvePath(base, p))
	}

	seen := make(map[string]struct{}, len(s.WatchPaths))
	targets := make([]watcher.WatchTarget, 0, len(s.WatchPaths))
	for _, p := range s.WatchPaths {
		root := resolvePath(base, p)
		if _, dup := seen[root]; dup {
			slog.Debug("Ignoring duplicate watch path", "path", p, "root", root)
			continue
		}
		seen[root] = struct{}{}

		targets = append(targets, watcher.WatchTarget{
			Root:     root,
			Filter:   filter,
			Delay:    s.Delay(),
			Commands: commands,
			Excludes: excludes,
			Dir:      base,
			FailFast: s.FailFast,
		})
	}

	if len(targets) == 0 {
		return nil, watcher.ErrNoTargets
	}

	return targets, nil
}

func resolveBaseDir(baseDir string) (string, error) {
	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}

	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve base directory %s: %w", baseDir, err)
	}
	return abs, nil
}

func resolvePath(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
