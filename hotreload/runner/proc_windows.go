//go:build windows

package runner

import "os/exec"

// configureProcess keeps the default cancellation, which kills the
// process; WaitDelay bounds any pipes its children still hold
func configureProcess(cmd *exec.Cmd) {}
