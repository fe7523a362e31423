package util

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// =============================================================================
// NewCommandError Tests
// =============================================================================

// TestNewCommandError_Basic verifies fields are captured.
func TestNewCommandError_Basic(t *testing.T) {
	wrapped := errors.New("exit status 1")
	err := NewCommandError("docker compose up -d postgres", 1, "no such service\n", wrapped)

	if err.Command != "docker compose up -d postgres" {
		t.Errorf("Command = %q", err.Command)
	}
	if err.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", err.ExitCode)
	}
	if err.Stderr != "no such service" {
		t.Errorf("Stderr = %q, want trimmed", err.Stderr)
	}
	if !errors.Is(err, wrapped) {
		t.Error("errors.Is should match the wrapped error")
	}
}

// TestNewCommandError_TruncatesStderr verifies long stderr is bounded.
func TestNewCommandError_TruncatesStderr(t *testing.T) {
	long := strings.Repeat("x", maxStderrCapture*2) + "TAIL"
	err := NewCommandError("cmd", 2, long, nil)

	if len(err.Stderr) > maxStderrCapture+8 {
		t.Errorf("Stderr len = %d, want bounded near %d", len(err.Stderr), maxStderrCapture)
	}
	if !strings.HasSuffix(err.Stderr, "TAIL") {
		t.Error("truncation should keep the tail of stderr")
	}
	if !strings.HasPrefix(err.Stderr, "...") {
		t.Error("truncated stderr should be marked with leading ellipsis")
	}
}

// =============================================================================
// CommandError.Error() Tests
// =============================================================================

// TestCommandError_Error verifies message composition.
func TestCommandError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *CommandError
		contains []string
	}{
		{
			name:     "with stderr",
			err:      NewCommandError("docker compose ps", 125, "daemon not running", nil),
			contains: []string{"docker compose ps", "125", "daemon not running"},
		},
		{
			name:     "no stderr",
			err:      NewCommandError("docker compose ps", -1, "", errors.New("context deadline exceeded")),
			contains: []string{"-1", "context deadline exceeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.contains {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want it to contain %q", msg, want)
				}
			}
		})
	}
}

// TestCommandError_AsTarget verifies errors.As extraction through wrapping.
func TestCommandError_AsTarget(t *testing.T) {
	inner := NewCommandError("cmd", 7, "boom", nil)
	wrapped := fmt.Errorf("starting service: %w", inner)

	var ce *CommandError
	if !errors.As(wrapped, &ce) {
		t.Fatal("errors.As should find CommandError in chain")
	}
	if ce.ExitCode != 7 {
		t.Errorf("ExitCode = %d, want 7", ce.ExitCode)
	}
}
