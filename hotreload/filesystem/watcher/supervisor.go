package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"
)

// ErrNoTargets is returned when a supervisor is built without targets
var ErrNoTargets = errors.New("no watch targets configured")

// DefaultRestartDelay is the pause before a panicked loop is restarted
const DefaultRestartDelay = time.Second

// Supervisor runs one independent WatchLoop per target. A failure or
// panic in one loop never stops the others; a panicked loop is restarted
// with its fingerprints intact.
type Supervisor struct {
	loops        []*WatchLoop
	restartDelay time.Duration
}

// NewSupervisor creates a loop for every target with the shared options
func NewSupervisor(targets []WatchTarget, opts ...LoopOption) (*Supervisor, error) {
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	loops := make([]*WatchLoop, 0, len(targets))
	for _, target := range targets {
		loop, err := NewWatchLoop(target, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create watch loop for %s: %w", target.Root, err)
		}
		loops = append(loops, loop)
	}

	return &Supervisor{loops: loops, restartDelay: DefaultRestartDelay}, nil
}

// Loops returns the supervised loops in target order
func (s *Supervisor) Loops() []*WatchLoop {
	return s.loops
}

// Run starts every loop and blocks until all of them stopped. Loops stop
// when ctx is cancelled, which is a clean shutdown and returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	var wg conc.WaitGroup

	for _, loop := range s.loops {
		wg.Go(func() {
			s.runLoop(ctx, loop)
		})
	}

	wg.Wait()

	for _, loop := range s.loops {
		slog.Debug("Watch loop stopped", "root", loop.Target().Root, "stats", loop.Stats().GetMetrics())
	}

	return nil
}

func (s *Supervisor) runLoop(ctx context.Context, loop *WatchLoop) {
	for {
		panicked, err := runGuarded(ctx, loop)
		if !panicked {
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				slog.Error("Watch loop stopped", "root", loop.Target().Root, "error", err)
			}
			return
		}

		slog.Warn("Restarting watch loop", "root", loop.Target().Root, "delay", s.restartDelay)
		if err := sleep(ctx, s.restartDelay); err != nil {
			return
		}
	}
}

func runGuarded(ctx context.Context, loop *WatchLoop) (panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Watch loop panicked", "root", loop.Target().Root, "panic", r)
			loop.stats.recordRestart()
			panicked = true
		}
	}()

	return false, loop.Run(ctx)
}
