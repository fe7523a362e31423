// Package compose abstracts the container control plane the
// orchestrator drives. The bring-up sequencer never shells out
// directly; every `up`, `exec`, and `logs` goes through the Executor
// interface so orchestration logic is testable against a fake.
package compose

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/genomehub/stackctl/cmd/stackctl/internal/infra/process"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/util"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrComposeFileMissing is returned when the configured compose
	// file does not exist.
	ErrComposeFileMissing = errors.New("compose file not found")

	// ErrInvalidConfig is returned when the executor configuration is
	// invalid.
	ErrInvalidConfig = errors.New("invalid compose configuration")

	// ErrNoService is returned when an operation names no service.
	ErrNoService = errors.New("no service specified")
)

// =============================================================================
// Interface Definition
// =============================================================================

// Executor manages compose operations for the stack.
//
// # Security
//
//   - Environment keys are validated before injection
//   - Secret values travel via the process environment, never argv
//   - Callers log invocations with values pre-redacted
//
// # Thread Safety
//
// Implementations must be safe for concurrent use; the sequencer
// starts sibling services from separate goroutines.
type Executor interface {
	// Up starts the named services detached, without letting the
	// control plane start their compose-declared dependencies. The
	// sequencer owns dependency ordering.
	Up(ctx context.Context, opts UpOptions) error

	// Stop gracefully stops services, all of them when opts.Services
	// is empty.
	Stop(ctx context.Context, opts StopOptions) error

	// Down stops and removes the project's containers, optionally
	// removing volumes. Volume removal is irreversible.
	Down(ctx context.Context, opts DownOptions) error

	// Logs streams a service's logs to w.
	Logs(ctx context.Context, service string, w io.Writer) error

	// Exec runs a command inside a running service container and
	// returns its stdout. A non-zero exit surfaces as a
	// *util.CommandError with the exit code, which the readiness
	// probes use to distinguish not-ready from probe failure.
	Exec(ctx context.Context, service string, command []string) ([]byte, error)

	// Status lists the project's containers.
	Status(ctx context.Context) ([]ServiceStatus, error)
}

// =============================================================================
// Options and Results
// =============================================================================

// Config configures an executor instance.
type Config struct {
	// Command is the control-plane invocation, e.g. ["docker", "compose"].
	Command []string

	// ComposeFile is passed via -f to every call.
	ComposeFile string

	// ProjectName namespaces the compose project.
	ProjectName string

	// CommandTimeout bounds each control-plane call. Zero uses the
	// package default.
	CommandTimeout time.Duration
}

// UpOptions configures a start.
type UpOptions struct {
	// Services to start. Must be non-empty.
	Services []string

	// Env is the extra environment for the invocation, with secret
	// values already resolved.
	Env map[string]string

	// Build forces an image build before starting.
	Build bool
}

// StopOptions configures a graceful stop.
type StopOptions struct {
	// Services to stop. Empty stops the whole project.
	Services []string

	// Timeout is the grace period before the control plane kills the
	// containers. Zero uses the compose default.
	Timeout time.Duration
}

// DownOptions configures teardown.
type DownOptions struct {
	// RemoveVolumes also deletes named volumes.
	RemoveVolumes bool

	// RemoveOrphans removes containers outside the compose file.
	RemoveOrphans bool
}

// ServiceStatus is one container row from the control plane.
type ServiceStatus struct {
	Name    string `json:"Name"`
	Service string `json:"Service"`
	State   string `json:"State"`
	Health  string `json:"Health"`
	Image   string `json:"Image"`
}

// Running reports whether the container is in a running state.
func (s ServiceStatus) Running() bool {
	return strings.EqualFold(s.State, "running")
}

// =============================================================================
// Default Implementation
// =============================================================================

const defaultCommandTimeout = 2 * time.Minute

// DefaultExecutor implements Executor over a process.Manager.
type DefaultExecutor struct {
	config Config
	proc   process.Manager

	// statFunc is swappable for tests.
	statFunc func(string) (os.FileInfo, error)
}

// NewDefaultExecutor validates config and builds an executor bound to
// the given process manager.
func NewDefaultExecutor(cfg Config, proc process.Manager) (*DefaultExecutor, error) {
	if proc == nil {
		return nil, fmt.Errorf("%w: nil process manager", ErrInvalidConfig)
	}
	if len(cfg.Command) == 0 {
		cfg.Command = []string{"docker", "compose"}
	}
	if cfg.CommandTimeout == 0 {
		cfg.CommandTimeout = defaultCommandTimeout
	}

	e := &DefaultExecutor{
		config:   cfg,
		proc:     proc,
		statFunc: os.Stat,
	}
	if cfg.ComposeFile != "" {
		if _, err := e.statFunc(cfg.ComposeFile); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrComposeFileMissing, cfg.ComposeFile)
		}
	}
	return e, nil
}

// Up implements Executor.
func (e *DefaultExecutor) Up(ctx context.Context, opts UpOptions) error {
	if len(opts.Services) == 0 {
		return ErrNoService
	}
	if err := util.ValidateEnv(opts.Env); err != nil {
		return err
	}

	args := []string{"up", "-d", "--no-deps"}
	if opts.Build {
		args = append(args, "--build")
	}
	args = append(args, opts.Services...)

	_, err := e.run(ctx, args, envSlice(opts.Env))
	return err
}

// Stop implements Executor.
func (e *DefaultExecutor) Stop(ctx context.Context, opts StopOptions) error {
	args := []string{"stop"}
	if opts.Timeout > 0 {
		args = append(args, "-t", fmt.Sprintf("%d", int(opts.Timeout.Seconds())))
	}
	args = append(args, opts.Services...)

	_, err := e.run(ctx, args, nil)
	return err
}

// Down implements Executor.
func (e *DefaultExecutor) Down(ctx context.Context, opts DownOptions) error {
	args := []string{"down"}
	if opts.RemoveVolumes {
		args = append(args, "--volumes")
	}
	if opts.RemoveOrphans {
		args = append(args, "--remove-orphans")
	}

	_, err := e.run(ctx, args, nil)
	return err
}

// Logs implements Executor. Output streams to w without buffering so
// large dumps go straight to disk.
func (e *DefaultExecutor) Logs(ctx context.Context, service string, w io.Writer) error {
	if service == "" {
		return ErrNoService
	}
	ctx, cancel := context.WithTimeout(ctx, e.config.CommandTimeout)
	defer cancel()

	name, args := e.command([]string{"logs", "--no-color", service})
	return e.proc.RunStreaming(ctx, w, name, args...)
}

// Exec implements Executor.
func (e *DefaultExecutor) Exec(ctx context.Context, service string, command []string) ([]byte, error) {
	if service == "" {
		return nil, ErrNoService
	}
	if len(command) == 0 {
		return nil, fmt.Errorf("%w: empty exec command for %s", ErrInvalidConfig, service)
	}

	args := append([]string{"exec", "-T", service}, command...)
	return e.run(ctx, args, nil)
}

// Status implements Executor.
func (e *DefaultExecutor) Status(ctx context.Context) ([]ServiceStatus, error) {
	out, err := e.run(ctx, []string{"ps", "--all", "--format", "json"}, nil)
	if err != nil {
		return nil, err
	}
	return parseStatus(out)
}

// run executes one control-plane call with the shared file and
// project flags, under the command timeout.
func (e *DefaultExecutor) run(ctx context.Context, args []string, env []string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.config.CommandTimeout)
	defer cancel()

	name, full := e.command(args)
	if len(env) > 0 {
		return e.proc.RunWithEnv(ctx, env, name, full...)
	}
	return e.proc.Run(ctx, name, full...)
}

// command assembles the binary and full argument list for a call.
func (e *DefaultExecutor) command(args []string) (string, []string) {
	full := append([]string{}, e.config.Command[1:]...)
	if e.config.ComposeFile != "" {
		full = append(full, "-f", e.config.ComposeFile)
	}
	if e.config.ProjectName != "" {
		full = append(full, "-p", e.config.ProjectName)
	}
	full = append(full, args...)
	return e.config.Command[0], full
}

// envSlice converts an env map to KEY=VALUE form with deterministic
// content (order does not matter to the child process).
func envSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}

// parseStatus decodes `ps --format json` output. Newer engines emit
// one JSON object per line; older ones emit a single array. Both are
// accepted.
func parseStatus(out []byte) ([]ServiceStatus, error) {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		var statuses []ServiceStatus
		if err := json.Unmarshal([]byte(trimmed), &statuses); err != nil {
			return nil, fmt.Errorf("parsing container status: %w", err)
		}
		return statuses, nil
	}

	var statuses []ServiceStatus
	for _, line := range strings.Split(trimmed, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var status ServiceStatus
		if err := json.Unmarshal([]byte(line), &status); err != nil {
			return nil, fmt.Errorf("parsing container status line: %w", err)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Compile-time interface compliance check.
var _ Executor = (*DefaultExecutor)(nil)
