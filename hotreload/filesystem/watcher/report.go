package watcher

import (
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/hot-reload/hotreload/runner"
)

// Trigger is one execution of a target's command list in response to a
// changed diff
type Trigger struct {
	ID       string
	Root     string
	Changes  []Change
	Results  runner.Results
	Started  time.Time
	Duration time.Duration
}

// OutputReporter writes the captured standard output of every command to
// out and logs failures. Writes from concurrent loops never interleave.
type OutputReporter struct {
	mu  sync.Mutex
	out io.Writer
}

var _ Reporter = (*OutputReporter)(nil)

// NewOutputReporter creates a reporter writing command output to out
func NewOutputReporter(out io.Writer) *OutputReporter {
	return &OutputReporter{out: out}
}

// Report prints the outputs of trigger in command order
func (r *OutputReporter) Report(trigger Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range trigger.Results {
		if res.Skipped {
			slog.Warn("Command skipped",
				"trigger", trigger.ID,
				"command", res.Command.String(),
				"reason", res.Err)
			continue
		}

		if res.Stdout != "" {
			if _, err := io.WriteString(r.out, res.Stdout); err != nil {
				slog.Error("Failed to write command output", "trigger", trigger.ID, "error", err)
			}
		}

		if res.Failed() {
			slog.Warn("Command failed",
				"trigger", trigger.ID,
				"root", trigger.Root,
				"command", res.Command.String(),
				"exit_code", res.ExitCode,
				"stderr", strings.TrimSpace(res.Stderr),
				"error", res.Err)
			continue
		}

		slog.Debug("Command finished",
			"trigger", trigger.ID,
			"command", res.Command.String(),
			"duration", res.Duration)
	}
}
