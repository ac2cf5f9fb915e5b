package watcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/hot-reload/hotreload/runner"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicScanner struct{}

func (panicScanner) ListFiles(context.Context, string) ([]string, error) {
	panic("scanner exploded")
}

// flakyScanner panics on its first scan and delegates afterwards
type flakyScanner struct {
	calls atomic.Int32
	next  Scanner
}

func (f *flakyScanner) ListFiles(ctx context.Context, root string) ([]string, error) {
	if f.calls.Add(1) == 1 {
		panic("first scan exploded")
	}
	return f.next.ListFiles(ctx, root)
}

func TestSupervisor_NoTargets(t *testing.T) {
	_, err := NewSupervisor(nil)
	assert.ErrorIs(t, err, ErrNoTargets)
}

func TestSupervisor_RunsTargetsIndependently(t *testing.T) {
	recA := &recordingRunner{}
	recB := &recordingRunner{}
	fsA := newFakeFS(map[string]string{"/a/x.ts": "1"})
	fsB := newFakeFS(map[string]string{"/b/y.ts": "1"})

	loopA, err := NewWatchLoop(WatchTarget{Root: "/a", Filter: MatchAll(), Delay: 5 * time.Millisecond, Commands: runner.Commands("a")},
		WithScanner(fsA), WithFingerprinter(fsA), WithRunner(recA))
	require.NoError(t, err)
	loopB, err := NewWatchLoop(WatchTarget{Root: "/b", Filter: MatchAll(), Delay: 5 * time.Millisecond, Commands: runner.Commands("b")},
		WithScanner(fsB), WithFingerprinter(fsB), WithRunner(recB))
	require.NoError(t, err)
	broken, err := NewWatchLoop(WatchTarget{Root: "/c", Filter: MatchAll()}, WithScanner(panicScanner{}))
	require.NoError(t, err)

	s := &Supervisor{loops: []*WatchLoop{loopA, broken, loopB}, restartDelay: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(recA.calls()) == 1 && len(recB.calls()) == 1
	}, 2*time.Second, 5*time.Millisecond)

	fsB.set("/b/z.ts", "1")
	require.Eventually(t, func() bool { return len(recB.calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, recA.calls(), 1)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}

	assert.Equal(t, StateStopped, loopA.State())
	assert.Equal(t, StateStopped, loopB.State())
	assert.Len(t, s.Loops(), 3)
}

func TestNewSupervisor_BuildsLoopPerTarget(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	s, err := NewSupervisor([]WatchTarget{
		{Root: rootA, Filter: MatchAll()},
		{Root: rootB, Filter: NewFileTypeFilter("go")},
	}, WithRunner(&recordingRunner{}))
	require.NoError(t, err)

	require.Len(t, s.Loops(), 2)
	assert.Equal(t, rootA, s.Loops()[0].Target().Root)
	assert.Equal(t, rootB, s.Loops()[1].Target().Root)
}

func TestSupervisor_RestartsPanickedLoop(t *testing.T) {
	fs := newFakeFS(map[string]string{"/w/a.ts": "1"})
	rec := &recordingRunner{}
	scanner := &flakyScanner{next: fs}

	loop, err := NewWatchLoop(WatchTarget{Root: "/w", Filter: MatchAll(), Delay: 5 * time.Millisecond, Commands: runner.Commands("build")},
		WithScanner(scanner), WithFingerprinter(fs), WithRunner(rec))
	require.NoError(t, err)

	s := &Supervisor{loops: []*WatchLoop{loop}, restartDelay: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.calls()) == 1 }, 2*time.Second, 5*time.Millisecond)

	fs.set("/w/b.ts", "1")
	require.Eventually(t, func() bool { return len(rec.calls()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), loop.Stats().Restarts)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop after cancellation")
	}
}

func TestSupervisor_CancelDuringRestartDelay(t *testing.T) {
	broken, err := NewWatchLoop(WatchTarget{Root: "/c", Filter: MatchAll()}, WithScanner(panicScanner{}))
	require.NoError(t, err)

	s := &Supervisor{loops: []*WatchLoop{broken}, restartDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return broken.Stats().Restarts == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop during restart delay")
	}
}
