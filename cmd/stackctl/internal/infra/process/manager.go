package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/genomehub/stackctl/cmd/stackctl/internal/util"
)

// Manager handles external process operations.
//
// All methods accept a context for cancellation and timeout. A command
// killed by context cancellation surfaces the context error wrapped in
// the returned *util.CommandError.
type Manager interface {
	// Run executes a command synchronously and returns its stdout.
	//
	// # Description
	//
	// Executes the command and waits for completion. Stderr is captured
	// separately; on failure it is folded into the returned
	// *util.CommandError rather than mixed into the output.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Standard output
	//   - error: *util.CommandError if the command fails or is cancelled
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithEnv executes a command with extra environment variables
	// appended to the inherited environment.
	//
	// # Description
	//
	// Like Run, but with env entries in KEY=VALUE form overlaid on
	// os.Environ(). Used to hand secret material to compose without it
	// appearing in the argument vector.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - env: Extra KEY=VALUE entries, later entries win
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Standard output
	//   - error: *util.CommandError if the command fails or is cancelled
	//
	// # Limitations
	//
	//   - Callers must redact env values before logging the invocation
	RunWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

	// RunStreaming executes a command with stdout and stderr streamed
	// to the given writer as they are produced.
	//
	// # Description
	//
	// Used for log dumps where output can be large and should land on
	// disk rather than in memory. The writer receives interleaved
	// stdout and stderr.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - out: Destination for combined output
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - error: *util.CommandError if the command fails or is cancelled
	RunStreaming(ctx context.Context, out io.Writer, name string, args ...string) error
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultManager implements Manager using os/exec. This is the
// production implementation; use MockManager in tests.
type DefaultManager struct{}

// NewDefaultManager creates a Manager that executes real processes.
func NewDefaultManager() *DefaultManager {
	return &DefaultManager{}
}

// Run executes a command synchronously and returns its stdout.
func (pm *DefaultManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return pm.run(ctx, nil, name, args...)
}

// RunWithEnv executes a command with extra environment variables.
func (pm *DefaultManager) RunWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	return pm.run(ctx, env, name, args...)
}

func (pm *DefaultManager) run(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, util.NewCommandError(
			commandLine(name, args),
			exitCode(err),
			stderr.String(),
			wrapInterrupt(ctx, err),
		)
	}
	return stdout.Bytes(), nil
}

// RunStreaming executes a command with output streamed to out.
func (pm *DefaultManager) RunStreaming(ctx context.Context, out io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		return util.NewCommandError(
			commandLine(name, args),
			exitCode(err),
			"",
			wrapInterrupt(ctx, err),
		)
	}
	return nil
}

// commandLine joins a command for diagnostics. Argument values are
// assumed pre-redacted; secrets travel via env, never argv.
func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// exitCode extracts the process exit code, or -1 for commands that
// never ran or were signal-killed.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// wrapInterrupt prefers the context error when the command died from
// cancellation, so callers can match errors.Is(err, context.DeadlineExceeded).
func wrapInterrupt(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockManager is a test double for Manager.
//
// Configure by setting function fields before use. A nil function
// field panics when its method is called, which makes an unexpected
// invocation fail loudly in tests.
type MockManager struct {
	// RunFunc is called when Run is invoked.
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunWithEnvFunc is called when RunWithEnv is invoked.
	RunWithEnvFunc func(ctx context.Context, env []string, name string, args ...string) ([]byte, error)

	// RunStreamingFunc is called when RunStreaming is invoked.
	RunStreamingFunc func(ctx context.Context, out io.Writer, name string, args ...string) error

	// Calls records all method invocations for verification.
	Calls []ManagerCall

	mu sync.Mutex
}

// ManagerCall records a single method invocation.
type ManagerCall struct {
	Method string
	Name   string
	Args   []string
	Env    []string
}

// Run delegates to RunFunc and records the call.
func (m *MockManager) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "Run", Name: name, Args: args})
	if m.RunFunc == nil {
		panic("MockManager.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunWithEnv delegates to RunWithEnvFunc and records the call.
func (m *MockManager) RunWithEnv(ctx context.Context, env []string, name string, args ...string) ([]byte, error) {
	m.record(ManagerCall{Method: "RunWithEnv", Name: name, Args: args, Env: env})
	if m.RunWithEnvFunc == nil {
		panic("MockManager.RunWithEnvFunc not set")
	}
	return m.RunWithEnvFunc(ctx, env, name, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockManager) RunStreaming(ctx context.Context, out io.Writer, name string, args ...string) error {
	m.record(ManagerCall{Method: "RunStreaming", Name: name, Args: args})
	if m.RunStreamingFunc == nil {
		panic("MockManager.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, out, name, args...)
}

func (m *MockManager) record(call ManagerCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// Reset clears all recorded calls.
func (m *MockManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockManager) GetCalls() []ManagerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]ManagerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
