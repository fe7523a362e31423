package util

import (
	"fmt"
	"strings"
)

// CommandError captures the failure of an external command with enough
// context to diagnose it without re-running.
//
// # Description
//
// Wraps a failed process invocation with the command line, exit code,
// and captured stderr. Stderr is truncated at capture time so error
// chains stay a bounded size. Unwrap exposes the underlying exec error
// for errors.Is / errors.As matching.
type CommandError struct {
	// Command is the command line that failed, with sensitive values
	// already redacted by the caller.
	Command string

	// ExitCode is the process exit code, or -1 if the process never ran
	// or was killed by a signal.
	ExitCode int

	// Stderr holds the trailing portion of standard error output.
	Stderr string

	// Wrapped is the underlying error from os/exec.
	Wrapped error
}

// maxStderrCapture bounds how much stderr a CommandError retains.
const maxStderrCapture = 4096

// NewCommandError builds a CommandError, truncating stderr to its last
// maxStderrCapture bytes. The tail is kept rather than the head because
// the proximate failure cause usually prints last.
func NewCommandError(command string, exitCode int, stderr string, wrapped error) *CommandError {
	if len(stderr) > maxStderrCapture {
		stderr = "..." + stderr[len(stderr)-maxStderrCapture:]
	}
	return &CommandError{
		Command:  command,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Wrapped:  wrapped,
	}
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "command %q failed with exit code %d", e.Command, e.ExitCode)
	if e.Stderr != "" {
		fmt.Fprintf(&b, ": %s", e.Stderr)
	}
	if e.Wrapped != nil {
		fmt.Fprintf(&b, " (%v)", e.Wrapped)
	}
	return b.String()
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}
