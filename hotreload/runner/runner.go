package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

var (
	ErrEmptyCommand = errors.New("command cannot be empty")
	ErrSkipped      = errors.New("command skipped")
)

// DefaultWaitDelay bounds how long a finished or cancelled command may keep
// its output pipes open through background children
const DefaultWaitDelay = 500 * time.Millisecond

// Command is one invocable unit of a trigger. A command is either a raw
// shell line interpreted by the system shell, or a program with explicit
// arguments executed without a shell.
type Command struct {
	Line    string
	Program string
	Args    []string
}

// Shell returns a command interpreted by the system shell
func Shell(line string) Command {
	return Command{Line: line}
}

// Exec returns a command that runs program directly with args
func Exec(program string, args ...string) Command {
	return Command{Program: program, Args: args}
}

// Commands converts shell lines into commands, preserving order
func Commands(lines ...string) []Command {
	cmds := make([]Command, 0, len(lines))
	for _, line := range lines {
		cmds = append(cmds, Shell(line))
	}
	return cmds
}

// IsShell reports whether the command is a raw shell line
func (c Command) IsShell() bool {
	return c.Program == ""
}

// Validate checks that the command has something to run
func (c Command) Validate() error {
	if c.IsShell() && strings.TrimSpace(c.Line) == "" {
		return ErrEmptyCommand
	}
	return nil
}

func (c Command) String() string {
	if c.IsShell() {
		return c.Line
	}
	if len(c.Args) == 0 {
		return c.Program
	}
	return c.Program + " " + strings.Join(c.Args, " ")
}

// Invocation is the command sequence of a single trigger
type Invocation struct {
	// ID identifies the trigger in logs and in the command environment
	ID string

	// Commands run strictly in order
	Commands []Command

	// Dir is the working directory of every command; empty means the process cwd
	Dir string

	// Env is appended to the process environment
	Env []string

	// FailFast skips the remaining commands after the first failure
	FailFast bool
}

// Runner executes the commands of an invocation sequentially
type Runner interface {
	Run(ctx context.Context, inv Invocation) Results
}

// Result is the outcome of one command
type Result struct {
	Command  Command
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Err      error
	Skipped  bool
}

// Failed reports whether the command ran and did not succeed
func (r Result) Failed() bool {
	return r.Err != nil && !r.Skipped
}

// Results holds one Result per command, in execution order
type Results []Result

// Err combines the errors of every failed command, or nil
func (rs Results) Err() error {
	var result *multierror.Error
	for _, r := range rs {
		if r.Failed() {
			result = multierror.Append(result, r.Err)
		}
	}
	return result.ErrorOrNil()
}

// Outputs returns the captured stdout of every command that ran
func (rs Results) Outputs() []string {
	outputs := make([]string, 0, len(rs))
	for _, r := range rs {
		if r.Skipped {
			continue
		}
		outputs = append(outputs, r.Stdout)
	}
	return outputs
}

// Failures counts the commands that failed
func (rs Results) Failures() int {
	n := 0
	for _, r := range rs {
		if r.Failed() {
			n++
		}
	}
	return n
}

// ShellRunner runs commands as child processes, shell lines through the
// system shell
type ShellRunner struct {
	shell     string
	shellFlag string
	waitDelay time.Duration
}

// NewShellRunner creates a runner using the platform shell
func NewShellRunner() *ShellRunner {
	if runtime.GOOS == "windows" {
		return NewShellRunnerWith("cmd", "/C")
	}
	return NewShellRunnerWith("/bin/sh", "-c")
}

// NewShellRunnerWith creates a runner using a specific shell, e.g. ("bash", "-c")
func NewShellRunnerWith(shell, flag string) *ShellRunner {
	return &ShellRunner{shell: shell, shellFlag: flag, waitDelay: DefaultWaitDelay}
}

// Shell returns the shell program and its command flag
func (r *ShellRunner) Shell() (string, string) {
	return r.shell, r.shellFlag
}

// Run executes every command of inv in order. A failing command does not
// stop the sequence unless inv.FailFast is set. Commands not started
// because of FailFast or cancellation are reported as skipped.
func (r *ShellRunner) Run(ctx context.Context, inv Invocation) Results {
	results := make(Results, 0, len(inv.Commands))

	for i, c := range inv.Commands {
		if err := ctx.Err(); err != nil {
			return append(results, skipped(inv.Commands[i:], err)...)
		}

		res := r.runCommand(ctx, inv, c)
		results = append(results, res)

		if res.Failed() && inv.FailFast {
			return append(results, skipped(inv.Commands[i+1:], ErrSkipped)...)
		}
	}

	return results
}

func (r *ShellRunner) runCommand(ctx context.Context, inv Invocation, c Command) Result {
	res := Result{Command: c}

	if err := c.Validate(); err != nil {
		res.ExitCode = -1
		res.Err = err
		return res
	}

	cmd := r.command(ctx, c)
	cmd.Dir = inv.Dir
	cmd.Env = append(os.Environ(), inv.Env...)
	cmd.WaitDelay = r.waitDelay
	configureProcess(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	slog.Debug("Executing command",
		"trigger", inv.ID,
		"command", c.String(),
		"dir", inv.Dir)

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if errors.Is(err, exec.ErrWaitDelay) {
		// exited cleanly, a background child still held stdout or stderr
		slog.Debug("Command left background processes running",
			"trigger", inv.ID,
			"command", c.String())
		err = nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		res.Err = fmt.Errorf("command %q failed: %w", c.String(), err)
	}

	return res
}

func (r *ShellRunner) command(ctx context.Context, c Command) *exec.Cmd {
	if c.IsShell() {
		return exec.CommandContext(ctx, r.shell, r.shellFlag, c.Line)
	}
	return exec.CommandContext(ctx, c.Program, c.Args...)
}

func skipped(cmds []Command, reason error) Results {
	results := make(Results, 0, len(cmds))
	for _, c := range cmds {
		results = append(results, Result{Command: c, Err: reason, Skipped: true})
	}
	return results
}
