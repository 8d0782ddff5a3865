package sandbox

import (
	"context"
	"time"
)

// Result captures output of a command.
type Result struct {
	Stdout   string
	Stderr   string
	Code     int
	TimedOut bool
}

// Runner defines the interface for running commands in a sandboxed
// environment. Capability handlers that touch the shell or execute generated
// scripts go through a Runner so a broken or hostile command cannot affect
// the host.
type Runner interface {
	// RunCmd runs a command in the given working directory with a timeout.
	// - ctx: base context for cancellation
	// - workDir: directory the command runs in
	// - name: executable name, e.g. "python3"
	// - args: arguments
	// - timeout: optional timeout (<=0 uses default)
	RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (Result, error)
}

// RunCmd is a convenience function that uses the default runner. It will
// attempt to use Docker if available, falling back to host execution. For
// explicit control, use NewRunner to get a specific implementation.
func RunCmd(ctx context.Context, workDir, name string, args []string, timeout time.Duration) (Result, error) {
	runner := NewDefaultRunner()
	return runner.RunCmd(ctx, workDir, name, args, timeout)
}
