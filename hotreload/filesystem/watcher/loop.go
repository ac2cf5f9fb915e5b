package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ZanzyTHEbar/hot-reload/hotreload/filesystem"
	"github.com/ZanzyTHEbar/hot-reload/hotreload/runner"
	"github.com/google/uuid"
)

// Environment variables set for every command of a trigger
const (
	EnvChanges   = "HOTRELOAD_CHANGES"
	EnvTriggerID = "HOTRELOAD_TRIGGER_ID"
	EnvWatchPath = "HOTRELOAD_WATCH_PATH"
)

// State is the phase a watch loop is in
type State int32

const (
	StateScanning State = iota
	StateDiffing
	StateIdle
	StateTriggering
	StateSleeping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateDiffing:
		return "diffing"
	case StateIdle:
		return "idle"
	case StateTriggering:
		return "triggering"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// WatchTarget is one fully resolved watch path with its settings
type WatchTarget struct {
	// Root is the absolute watch path, a directory or a single file
	Root string
	// Filter selects the files taking part in change detection
	Filter FileTypeFilter
	// Delay is the pause between the end of one cycle and the next scan
	Delay time.Duration
	// Commands run in order on every change
	Commands []runner.Command
	// Excludes are absolute paths never scanned
	Excludes []string
	// Dir is the working directory of the commands
	Dir string
	// FailFast skips the remaining commands after the first failure
	FailFast bool
}

// WatchLoop polls one target forever: scan, diff, trigger on change,
// sleep. The first cycle diffs against an empty store, so every matching
// file counts as created and commands run once at startup.
type WatchLoop struct {
	target        WatchTarget
	scanner       Scanner
	fingerprinter Fingerprinter
	runner        runner.Runner
	reporter      Reporter
	newID         func() string

	store atomic.Pointer[Store]
	state atomic.Int32
	stats loopStats
}

// LoopOption configures a WatchLoop
type LoopOption func(*WatchLoop)

// WithScanner replaces the directory scanner
func WithScanner(s Scanner) LoopOption {
	return func(l *WatchLoop) {
		l.scanner = s
	}
}

// WithFingerprinter replaces the modification time fingerprinter
func WithFingerprinter(f Fingerprinter) LoopOption {
	return func(l *WatchLoop) {
		l.fingerprinter = f
	}
}

// WithRunner replaces the shell command runner
func WithRunner(r runner.Runner) LoopOption {
	return func(l *WatchLoop) {
		l.runner = r
	}
}

// WithReporter sets the trigger reporter
func WithReporter(r Reporter) LoopOption {
	return func(l *WatchLoop) {
		l.reporter = r
	}
}

// WithIDGenerator replaces the trigger id source
func WithIDGenerator(fn func() string) LoopOption {
	return func(l *WatchLoop) {
		l.newID = fn
	}
}

// NewWatchLoop creates a loop for target. Unless a scanner is supplied,
// the target's ignore file and excludes are loaded here.
func NewWatchLoop(target WatchTarget, opts ...LoopOption) (*WatchLoop, error) {
	if target.Root == "" {
		return nil, filesystem.ErrPathEmpty
	}
	if target.Delay < 0 {
		return nil, fmt.Errorf("invalid delay %s for %s", target.Delay, target.Root)
	}

	l := &WatchLoop{
		target:        target,
		fingerprinter: NewModTimeFingerprinter(),
		runner:        runner.NewShellRunner(),
		reporter:      ReporterFunc(func(Trigger) {}),
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.scanner == nil {
		matcher, err := filesystem.NewIgnoreMatcher(target.Root, target.Excludes)
		if err != nil {
			return nil, err
		}
		l.scanner = filesystem.NewScanner(filesystem.WithIgnorer(matcher))
	}

	l.store.Store(NewStore())
	l.setState(StateIdle)

	return l, nil
}

// Target returns the loop's watch target
func (l *WatchLoop) Target() WatchTarget {
	return l.target
}

// State returns the current phase
func (l *WatchLoop) State() State {
	return State(l.state.Load())
}

func (l *WatchLoop) setState(s State) {
	l.state.Store(int32(s))
}

// Store returns the fingerprints tracked after the last completed cycle
func (l *WatchLoop) Store() *Store {
	return l.store.Load()
}

// Stats returns a snapshot of the loop's counters
func (l *WatchLoop) Stats() Stats {
	return l.stats.snapshot()
}

// Run cycles until ctx is cancelled and returns ctx.Err(). Commands that
// fail never stop the loop.
func (l *WatchLoop) Run(ctx context.Context) error {
	slog.Info("Watching for changes",
		"root", l.target.Root,
		"file_types", l.target.Filter.String(),
		"delay", l.target.Delay,
		"commands", len(l.target.Commands))

	defer l.setState(StateStopped)

	for {
		if _, err := l.Cycle(ctx); err != nil {
			return err
		}

		l.setState(StateSleeping)
		if err := sleep(ctx, l.target.Delay); err != nil {
			return err
		}
	}
}

// Cycle performs one scan and diff, running the target's commands when
// anything changed. The returned error is non-nil only when ctx is done.
func (l *WatchLoop) Cycle(ctx context.Context) (DiffResult, error) {
	if err := ctx.Err(); err != nil {
		return DiffResult{}, err
	}

	start := time.Now()
	defer l.stats.recordCycle(start)

	l.setState(StateScanning)
	paths, err := l.scanner.ListFiles(ctx, l.target.Root)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return DiffResult{}, ctxErr
		}

		l.stats.recordScanError()
		if errors.Is(err, filesystem.ErrRootUnreadable) {
			// Treating an unreadable root as empty would report every
			// tracked file as deleted, so the cycle is skipped instead.
			slog.Warn("Watch root unreadable, skipping cycle", "root", l.target.Root, "error", err)
			l.setState(StateIdle)
			return DiffResult{Store: l.Store()}, nil
		}
		slog.Warn("Some paths could not be scanned", "root", l.target.Root, "error", err)
	}

	scan := make([]Fingerprint, 0, len(paths))
	for _, path := range paths {
		if !l.target.Filter.Accepts(path) {
			continue
		}
		fp, err := l.fingerprinter.Fingerprint(path)
		if err != nil {
			// removed between listing and stat
			slog.Debug("Skipping file", "path", path, "error", err)
			continue
		}
		scan = append(scan, fp)
	}

	l.setState(StateDiffing)
	result := Diff(l.Store(), scan)
	l.store.Store(result.Store)

	if !result.Changed {
		l.setState(StateIdle)
		return result, nil
	}

	l.setState(StateTriggering)
	l.trigger(ctx, result)
	l.setState(StateIdle)

	return result, nil
}

func (l *WatchLoop) trigger(ctx context.Context, result DiffResult) {
	id := l.newID()
	started := time.Now()

	slog.Info("Changes detected",
		"root", l.target.Root,
		"trigger", id,
		"created", result.Count(EventCreate),
		"modified", result.Count(EventWrite),
		"deleted", result.Count(EventRemove))

	env, err := changeEnv(id, l.target.Root, result.Changes)
	if err != nil {
		slog.Error("Failed to encode changes", "trigger", id, "error", err)
	}

	results := l.runner.Run(ctx, runner.Invocation{
		ID:       id,
		Commands: l.target.Commands,
		Dir:      l.target.Dir,
		Env:      env,
		FailFast: l.target.FailFast,
	})

	failed := results.Failures()
	l.stats.recordTrigger(failed)

	l.reporter.Report(Trigger{
		ID:       id,
		Root:     l.target.Root,
		Changes:  result.Changes,
		Results:  results,
		Started:  started,
		Duration: time.Since(started),
	})

	if failed > 0 {
		slog.Warn("Trigger finished with failures", "trigger", id, "failed", failed, "total", len(results))
	}
}

func changeEnv(id, root string, changes []Change) ([]string, error) {
	env := []string{
		EnvTriggerID + "=" + id,
		EnvWatchPath + "=" + root,
	}

	encoded, err := json.Marshal(changes)
	if err != nil {
		return env, err
	}

	return append(env, EnvChanges+"="+string(encoded)), nil
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
