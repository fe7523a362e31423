/*
Package main provides StackManager, the deployment orchestrator.

StackManager brings a declared stack of services up in dependency
order, gates each start on its dependencies' readiness probes, runs
the one-shot snapshot repository registration once its gating service
is ready, and fails fast with a report of what was blocked when any
service never becomes ready.

# Sequencing

Services are grouped into waves by the dependency plan. Services in
the same wave have no edges between them and start concurrently; a
wave starts only after every service in the prior waves is ready.

# Failure Handling

A service that exhausts its probe budget aborts the bring-up. Nothing
that depends on it is started, and the error names both the failed
service and the services blocked behind it. Container logs for the
profile's log-dump list are written out after every bring-up attempt,
successful or not.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genomehub/stackctl/cmd/stackctl/config"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/infra/compose"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/plan"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/probe"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/snapshot"
	"github.com/genomehub/stackctl/cmd/stackctl/internal/util"
	"github.com/genomehub/stackctl/pkg/logging"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")

	// ErrBringUpFailed is returned when the stack could not be brought
	// to a fully ready state.
	ErrBringUpFailed = errors.New("stack bring-up failed")

	// ErrSnapshotNotConfigured is returned when the snapshot job is
	// requested but the profile declares none.
	ErrSnapshotNotConfigured = errors.New("no snapshot repository configured")

	// ErrSecretNotBound is returned when a service binds a secret that
	// did not resolve.
	ErrSecretNotBound = errors.New("secret not bound")
)

// defaultProbeAttempts bounds probes that declare no budget of their own.
const defaultProbeAttempts = 30

// recoverPanic converts a recovered panic into an error so a failing
// dependency cannot take down the whole process mid-operation.
func recoverPanic(r any, errPtr *error) {
	if r == nil {
		return
	}
	*errPtr = fmt.Errorf("%w: panic: %v", ErrBringUpFailed, r)
}

// =============================================================================
// Options and Results
// =============================================================================

// StartOptions configures a bring-up.
type StartOptions struct {
	// Build forces an image build before starting each service.
	Build bool

	// SkipSnapshot suppresses the snapshot registration job.
	SkipSnapshot bool

	// SkipLogDump suppresses the post-run container log dump.
	SkipLogDump bool
}

// StackStatus summarizes the running stack.
type StackStatus struct {
	// Profile is the deployment profile name.
	Profile string

	// State is "running", "partial", "stopped", or "unknown".
	State string

	// Ready counts services in a running state.
	Ready int

	// Total counts declared services.
	Total int

	// Services holds per-service detail in declaration order.
	Services []StackServiceInfo
}

// StackServiceInfo is one service's observed state.
type StackServiceInfo struct {
	Name   string
	State  string
	Health string
	Image  string
}

// =============================================================================
// Interface Definition
// =============================================================================

// SnapshotRegistrar performs the one-shot repository registration.
// snapshot.Registrar satisfies this.
type SnapshotRegistrar interface {
	Register(ctx context.Context, reg snapshot.Registration) error
}

// StackManager orchestrates the deployment lifecycle.
//
// # Description
//
// This is the primary interface for bringing a declared stack up,
// tearing it down, and inspecting it. It coordinates secret
// resolution, dependency-ordered startup, readiness probing, and the
// snapshot registration job.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Mutating
// operations (Start, Stop, Destroy) are serialized internally.
//
// # Context Handling
//
// All methods accept context.Context. Start respects cancellation at
// every phase boundary and between probe attempts.
type StackManager interface {
	// Start brings every declared service up in dependency order.
	//
	// # Outputs
	//
	//   - error: ErrBringUpFailed wrapping the failing phase, or a
	//     secret resolution error before anything was started
	Start(ctx context.Context, opts StartOptions) error

	// Stop gracefully stops the stack in reverse dependency order.
	Stop(ctx context.Context) error

	// Destroy stops and removes the stack's containers, optionally
	// deleting volumes. Volume deletion is irreversible.
	Destroy(ctx context.Context, removeVolumes bool) error

	// Status reports the observed state of every declared service.
	Status(ctx context.Context) (*StackStatus, error)

	// Logs writes container logs for the named services to w. Empty
	// names use the profile's log-dump list.
	Logs(ctx context.Context, services []string, w io.Writer) error

	// RegisterSnapshot runs the snapshot repository registration job
	// on its own, against an already running search service.
	RegisterSnapshot(ctx context.Context) error
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultStackManager implements StackManager over a compose control
// plane.
type DefaultStackManager struct {
	profile   *config.Profile
	compose   compose.Executor
	secrets   SecretsManager
	registrar SnapshotRegistrar
	logger    *logging.Logger

	// httpClient serves the HTTP readiness probes.
	httpClient probe.HTTPDoer

	// output receives operator-facing progress lines.
	output io.Writer

	// mu serializes mutating operations.
	mu sync.Mutex
}

// NewDefaultStackManager creates a stack manager with injected
// dependencies. The registrar may be nil when the profile declares no
// snapshot job.
func NewDefaultStackManager(
	profile *config.Profile,
	executor compose.Executor,
	secrets SecretsManager,
	registrar SnapshotRegistrar,
	logger *logging.Logger,
) (*DefaultStackManager, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: Profile", ErrNilDependency)
	}
	if executor == nil {
		return nil, fmt.Errorf("%w: compose.Executor", ErrNilDependency)
	}
	if secrets == nil {
		return nil, fmt.Errorf("%w: SecretsManager", ErrNilDependency)
	}
	if profile.Snapshot != nil && registrar == nil {
		return nil, fmt.Errorf("%w: SnapshotRegistrar", ErrNilDependency)
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &DefaultStackManager{
		profile:    profile,
		compose:    executor,
		secrets:    secrets,
		registrar:  registrar,
		logger:     logger,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		output:     os.Stdout,
	}, nil
}

// SetOutput redirects progress lines, e.g. into a buffer for tests.
// A nil writer discards them.
func (s *DefaultStackManager) SetOutput(w io.Writer) {
	if w == nil {
		s.output = io.Discard
	} else {
		s.output = w
	}
}

// =============================================================================
// Start
// =============================================================================

// Start brings every declared service up in dependency order.
func (s *DefaultStackManager) Start(ctx context.Context, opts StartOptions) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { recoverPanic(recover(), &err) }()

	startTime := time.Now()
	runID := uuid.NewString()
	log := s.logger.With("run_id", runID, "profile", s.profile.Name)

	timeouts, err := s.profile.Timeouts.ToTimeoutConfig()
	if err != nil {
		return err
	}

	bringUp, err := plan.Compute(s.profile.Services)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBringUpFailed, err)
	}

	// Secrets resolve before any container is started or any network
	// call is made. Anything a probe, env binding, or the snapshot job
	// references is required here even if the profile declares it
	// optional; a secret that is missing only surfaces later otherwise,
	// with containers already up.
	secretSpecs := s.referencedSecrets(!opts.SkipSnapshot)
	secretValues, err := s.secrets.ResolveAll(ctx, secretSpecs)
	if err != nil {
		s.printSecretHelp(ctx, secretSpecs)
		return err
	}

	log.Info("starting stack", "services", len(s.profile.Services), "waves", len(bringUp.Waves))
	fmt.Fprintf(s.output, "Starting %s (%d services, %d waves)\n",
		s.profile.Name, len(s.profile.Services), len(bringUp.Waves))

	if !opts.SkipLogDump {
		defer s.dumpLogs(runID)
	}

	snapshotDone := false
	for _, wave := range bringUp.Waves {
		if err := ctx.Err(); err != nil {
			return err
		}
		if failed, err := s.startWave(ctx, wave, opts, secretValues, timeouts, log); err != nil {
			return s.reportBlocked(err, failed, bringUp)
		}

		if s.snapshotGateReached(wave) && !snapshotDone && !opts.SkipSnapshot {
			if err := s.runSnapshotJob(ctx, secretValues, log); err != nil {
				return fmt.Errorf("%w: %w", ErrBringUpFailed, err)
			}
			snapshotDone = true
		}
	}

	if s.profile.Snapshot != nil && !snapshotDone && !opts.SkipSnapshot {
		if err := s.runSnapshotJob(ctx, secretValues, log); err != nil {
			return fmt.Errorf("%w: %w", ErrBringUpFailed, err)
		}
	}

	elapsed := time.Since(startTime).Round(time.Second)
	log.Info("stack ready", "elapsed", elapsed.String())
	fmt.Fprintf(s.output, "Stack %s ready in %s\n", s.profile.Name, elapsed)
	return nil
}

// referencedSecrets returns the profile's secret declarations with
// every secret a service env binding, a probe, or the snapshot job
// references promoted to required. includeSnapshot is false when the
// registration job will not run this invocation.
func (s *DefaultStackManager) referencedSecrets(includeSnapshot bool) []config.SecretSpec {
	referenced := make(map[string]bool)
	for _, svc := range s.profile.Services {
		for _, secretName := range svc.SecretEnv {
			referenced[secretName] = true
		}
		if svc.Probe != nil && svc.Probe.BasicAuthSecret != "" {
			for _, secretName := range strings.SplitN(svc.Probe.BasicAuthSecret, ":", 2) {
				referenced[secretName] = true
			}
		}
	}
	if snap := s.profile.Snapshot; snap != nil && includeSnapshot {
		referenced[snap.UsernameSecret] = true
		referenced[snap.PasswordSecret] = true
	}

	specs := make([]config.SecretSpec, len(s.profile.Secrets))
	for i, spec := range s.profile.Secrets {
		if referenced[spec.Name] {
			spec.Required = true
		}
		specs[i] = spec
	}
	return specs
}

// printSecretHelp writes operator setup guidance for every required
// secret that did not resolve.
func (s *DefaultStackManager) printSecretHelp(ctx context.Context, specs []config.SecretSpec) {
	for _, spec := range specs {
		if !spec.Required {
			continue
		}
		if _, err := s.secrets.Resolve(ctx, spec); err != nil {
			fmt.Fprintln(s.output, s.secrets.SetupInstructions(spec))
		}
	}
}

// startWave starts every service in the wave concurrently and waits
// for all of their probes. It returns the names of services that did
// not reach readiness alongside the first error.
func (s *DefaultStackManager) startWave(
	ctx context.Context,
	wave []string,
	opts StartOptions,
	secretValues map[string]string,
	timeouts util.TimeoutConfig,
	log *logging.Logger,
) ([]string, error) {
	var mu sync.Mutex
	var failed []string

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range wave {
		svc := s.profile.Service(name)
		g.Go(func() error {
			if err := s.startService(gctx, svc, opts, secretValues, timeouts, log); err != nil {
				mu.Lock()
				failed = append(failed, svc.Name)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	return failed, err
}

// startService starts one service with its sidecars and blocks until
// its readiness probe passes.
func (s *DefaultStackManager) startService(
	ctx context.Context,
	svc *config.ServiceSpec,
	opts StartOptions,
	secretValues map[string]string,
	timeouts util.TimeoutConfig,
	log *logging.Logger,
) error {
	env, err := s.serviceEnv(svc, secretValues)
	if err != nil {
		return err
	}

	services := append([]string{svc.Name}, svc.Sidecars...)
	log.Debug("starting service", "service", svc.Name,
		"env", util.RedactedEnvSummary(env))
	fmt.Fprintf(s.output, "  starting %s\n", strings.Join(services, ", "))
	if err := s.compose.Up(ctx, compose.UpOptions{
		Services: services,
		Env:      env,
		Build:    opts.Build,
	}); err != nil {
		return fmt.Errorf("starting %s: %w", svc.Name, err)
	}

	checker, err := s.checkerFor(svc, secretValues)
	if err != nil {
		return err
	}
	if checker == nil {
		log.Debug("no probe declared, service considered ready", "service", svc.Name)
		return nil
	}

	result, err := probe.WaitReady(ctx, svc.Name, checker, s.waitOptions(svc.Probe, timeouts), log)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.output, "  %s ready after %d attempts (%s)\n",
		svc.Name, result.Attempts, result.Elapsed.Round(time.Millisecond))
	return nil
}

// serviceEnv merges the service's plain environment with its resolved
// secret bindings. Secret values travel only through this map, which
// the compose layer injects via the process environment.
func (s *DefaultStackManager) serviceEnv(svc *config.ServiceSpec, secretValues map[string]string) (map[string]string, error) {
	bound := make([]util.EnvVar, 0, len(svc.SecretEnv))
	for envKey, secretName := range svc.SecretEnv {
		value, ok := secretValues[secretName]
		if !ok {
			return nil, fmt.Errorf("%w: service %s binds %s but it did not resolve",
				ErrSecretNotBound, svc.Name, secretName)
		}
		bound = append(bound, util.EnvVar{Key: envKey, Value: value, Sensitive: true})
	}
	return util.MergeEnv(svc.Env, bound), nil
}

// checkerFor builds the readiness checker for a service's probe spec.
// A nil spec yields a nil checker.
func (s *DefaultStackManager) checkerFor(svc *config.ServiceSpec, secretValues map[string]string) (probe.Checker, error) {
	spec := svc.Probe
	if spec == nil {
		return nil, nil
	}

	switch spec.Type {
	case "http":
		username, password, err := resolveBasicAuth(spec.BasicAuthSecret, secretValues)
		if err != nil {
			return nil, fmt.Errorf("service %s: %w", svc.Name, err)
		}
		return probe.NewHTTP(spec.URL, username, password, s.httpClient), nil
	case "exec":
		return probe.NewExec(s.compose, svc.Name, spec.Command), nil
	case "tcp":
		return probe.NewTCP(spec.Address), nil
	case "delay":
		return probe.NewDelay(spec.Delay.Std()), nil
	}
	return nil, fmt.Errorf("service %s: unknown probe type %q", svc.Name, spec.Type)
}

// resolveBasicAuth turns a "user-secret:password-secret" reference, or
// a single secret holding "user:password", into a credential pair.
func resolveBasicAuth(ref string, secretValues map[string]string) (string, string, error) {
	if ref == "" {
		return "", "", nil
	}

	parts := strings.SplitN(ref, ":", 2)
	if len(parts) == 2 {
		user, ok := secretValues[parts[0]]
		if !ok {
			return "", "", fmt.Errorf("%w: %s", ErrSecretNotBound, parts[0])
		}
		pass, ok := secretValues[parts[1]]
		if !ok {
			return "", "", fmt.Errorf("%w: %s", ErrSecretNotBound, parts[1])
		}
		return user, pass, nil
	}

	combined, ok := secretValues[ref]
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrSecretNotBound, ref)
	}
	pair := strings.SplitN(combined, ":", 2)
	if len(pair) != 2 {
		return "", "", fmt.Errorf("%w: %s is not in user:password form", ErrSecretNotBound, ref)
	}
	return pair[0], pair[1], nil
}

// waitOptions fills probe wait settings from the spec and the profile
// timeout defaults.
func (s *DefaultStackManager) waitOptions(spec *config.ProbeSpec, timeouts util.TimeoutConfig) probe.WaitOptions {
	opts := probe.WaitOptions{
		Interval:       timeouts.ProbeInterval,
		MaxAttempts:    defaultProbeAttempts,
		AttemptTimeout: timeouts.ProbeTimeout,
	}
	if spec.Interval > 0 {
		opts.Interval = spec.Interval.Std()
	}
	if spec.MaxAttempts > 0 {
		opts.MaxAttempts = spec.MaxAttempts
	}
	if spec.Timeout > 0 {
		opts.AttemptTimeout = spec.Timeout.Std()
	}
	opts.Jitter = spec.Jitter
	return opts
}

// reportBlocked wraps a wave failure with the services that can no
// longer start because of it, and prints each failed service's
// dependency chain so the operator sees what it was sitting on.
func (s *DefaultStackManager) reportBlocked(err error, failed []string, bringUp *plan.Plan) error {
	seen := make(map[string]bool)
	var blocked []string
	for _, name := range failed {
		if chain := bringUp.DependencyChain(name, s.profile.Services); len(chain) > 1 {
			fmt.Fprintf(s.output, "  %s depends on: %s\n", name, strings.Join(chain[1:], " -> "))
		}
		for _, dep := range bringUp.BlockedBy(name) {
			if !seen[dep] {
				seen[dep] = true
				blocked = append(blocked, dep)
			}
		}
	}
	if len(blocked) > 0 {
		fmt.Fprintf(s.output, "bring-up halted, never started: %s\n", strings.Join(blocked, ", "))
		return fmt.Errorf("%w: %w (blocked: %s)", ErrBringUpFailed, err, strings.Join(blocked, ", "))
	}
	return fmt.Errorf("%w: %w", ErrBringUpFailed, err)
}

// snapshotGateReached reports whether this wave made the snapshot
// job's gating service ready.
func (s *DefaultStackManager) snapshotGateReached(wave []string) bool {
	if s.profile.Snapshot == nil || s.profile.Snapshot.After == "" {
		return false
	}
	for _, name := range wave {
		if name == s.profile.Snapshot.After {
			return true
		}
	}
	return false
}

// runSnapshotJob performs the one-shot repository registration.
// Registration is create-or-replace on the repository name, so
// re-running after a prior success is harmless.
func (s *DefaultStackManager) runSnapshotJob(ctx context.Context, secretValues map[string]string, log *logging.Logger) error {
	spec := s.profile.Snapshot

	username, ok := secretValues[spec.UsernameSecret]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotBound, spec.UsernameSecret)
	}
	password, ok := secretValues[spec.PasswordSecret]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotBound, spec.PasswordSecret)
	}

	if spec.VerifyBucket {
		verifier, err := snapshot.NewBucketVerifier(ctx, spec.CredentialsFile)
		if err != nil {
			return err
		}
		defer verifier.Close()
		if err := verifier.Verify(ctx, spec.Bucket); err != nil {
			return err
		}
	}

	log.Info("registering snapshot repository",
		"repository", spec.Repository, "endpoint", spec.Endpoint)
	fmt.Fprintf(s.output, "  registering snapshot repository %s\n", spec.Repository)

	return s.registrar.Register(ctx, snapshot.Registration{
		Endpoint:    spec.Endpoint,
		Repository:  spec.Repository,
		Type:        spec.Type,
		Bucket:      spec.Bucket,
		Username:    username,
		Password:    password,
		MaxAttempts: spec.MaxAttempts,
	})
}

// dumpLogs writes container logs for the profile's log-dump list to
// the output writer. Runs after every bring-up attempt so failures
// leave evidence behind.
func (s *DefaultStackManager) dumpLogs(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	names := s.profile.LogDump
	if len(names) == 0 {
		for _, svc := range s.profile.Services {
			names = append(names, svc.Name)
		}
	}

	for _, name := range names {
		fmt.Fprintf(s.output, "---- logs: %s (run %s) ----\n", name, runID)
		if err := s.compose.Logs(ctx, name, s.output); err != nil {
			s.logger.Warn("log dump failed", "service", name, "error", err.Error())
		}
	}
}

// =============================================================================
// Stop / Destroy / Status / Logs
// =============================================================================

// Stop gracefully stops the stack in reverse dependency order, so
// dependents quiesce before the services they rely on.
func (s *DefaultStackManager) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	timeouts, err := s.profile.Timeouts.ToTimeoutConfig()
	if err != nil {
		return err
	}
	bringUp, err := plan.Compute(s.profile.Services)
	if err != nil {
		return err
	}

	for i := len(bringUp.Waves) - 1; i >= 0; i-- {
		wave := bringUp.Waves[i]
		var services []string
		for _, name := range wave {
			svc := s.profile.Service(name)
			services = append(services, svc.Name)
			services = append(services, svc.Sidecars...)
		}
		fmt.Fprintf(s.output, "  stopping %s\n", strings.Join(services, ", "))
		if err := s.compose.Stop(ctx, compose.StopOptions{
			Services: services,
			Timeout:  timeouts.ShutdownTimeout,
		}); err != nil {
			return fmt.Errorf("stopping %s: %w", strings.Join(wave, ", "), err)
		}
	}

	s.logger.Info("stack stopped", "profile", s.profile.Name)
	return nil
}

// Destroy stops and removes the stack's containers.
func (s *DefaultStackManager) Destroy(ctx context.Context, removeVolumes bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.compose.Down(ctx, compose.DownOptions{
		RemoveVolumes: removeVolumes,
		RemoveOrphans: true,
	}); err != nil {
		return fmt.Errorf("destroying stack: %w", err)
	}

	s.logger.Info("stack destroyed", "profile", s.profile.Name, "volumes_removed", removeVolumes)
	fmt.Fprintf(s.output, "Stack %s destroyed\n", s.profile.Name)
	return nil
}

// Status reports the observed state of every declared service.
func (s *DefaultStackManager) Status(ctx context.Context) (*StackStatus, error) {
	observed, err := s.compose.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying stack status: %w", err)
	}

	byService := make(map[string]compose.ServiceStatus, len(observed))
	for _, st := range observed {
		byService[st.Service] = st
	}

	status := &StackStatus{
		Profile: s.profile.Name,
		Total:   len(s.profile.Services),
	}
	for _, svc := range s.profile.Services {
		info := StackServiceInfo{Name: svc.Name, State: "absent"}
		if st, ok := byService[svc.Name]; ok {
			info.State = st.State
			info.Health = st.Health
			info.Image = st.Image
			if st.Running() {
				status.Ready++
			}
		}
		status.Services = append(status.Services, info)
	}

	switch status.Ready {
	case status.Total:
		status.State = "running"
	case 0:
		status.State = "stopped"
	default:
		status.State = "partial"
	}
	return status, nil
}

// Logs writes container logs for the named services to w.
func (s *DefaultStackManager) Logs(ctx context.Context, services []string, w io.Writer) error {
	if len(services) == 0 {
		services = s.profile.LogDump
	}
	if len(services) == 0 {
		for _, svc := range s.profile.Services {
			services = append(services, svc.Name)
		}
	}

	for _, name := range services {
		if s.profile.Service(name) == nil {
			return fmt.Errorf("%w: %s", compose.ErrNoService, name)
		}
		fmt.Fprintf(w, "---- logs: %s ----\n", name)
		if err := s.compose.Logs(ctx, name, w); err != nil {
			return err
		}
	}
	return nil
}

// RegisterSnapshot runs the registration job standalone.
func (s *DefaultStackManager) RegisterSnapshot(ctx context.Context) error {
	if s.profile.Snapshot == nil {
		return ErrSnapshotNotConfigured
	}

	spec := s.profile.Snapshot
	needed := make([]config.SecretSpec, 0, 2)
	for _, name := range []string{spec.UsernameSecret, spec.PasswordSecret} {
		secretSpec := s.profile.Secret(name)
		if secretSpec == nil {
			return fmt.Errorf("%w: %s", ErrSecretNotBound, name)
		}
		required := *secretSpec
		required.Required = true
		needed = append(needed, required)
	}

	secretValues, err := s.secrets.ResolveAll(ctx, needed)
	if err != nil {
		return err
	}
	return s.runSnapshotJob(ctx, secretValues, s.logger.With("profile", s.profile.Name))
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockStackManager is a test double recording lifecycle calls.
type MockStackManager struct {
	StartFunc            func(ctx context.Context, opts StartOptions) error
	StopFunc             func(ctx context.Context) error
	DestroyFunc          func(ctx context.Context, removeVolumes bool) error
	StatusFunc           func(ctx context.Context) (*StackStatus, error)
	LogsFunc             func(ctx context.Context, services []string, w io.Writer) error
	RegisterSnapshotFunc func(ctx context.Context) error

	mu    sync.Mutex
	calls []string
}

func (m *MockStackManager) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

// GetCalls returns the method names invoked, in order.
func (m *MockStackManager) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

func (m *MockStackManager) Start(ctx context.Context, opts StartOptions) error {
	m.record("Start")
	if m.StartFunc != nil {
		return m.StartFunc(ctx, opts)
	}
	return nil
}

func (m *MockStackManager) Stop(ctx context.Context) error {
	m.record("Stop")
	if m.StopFunc != nil {
		return m.StopFunc(ctx)
	}
	return nil
}

func (m *MockStackManager) Destroy(ctx context.Context, removeVolumes bool) error {
	m.record("Destroy")
	if m.DestroyFunc != nil {
		return m.DestroyFunc(ctx, removeVolumes)
	}
	return nil
}

func (m *MockStackManager) Status(ctx context.Context) (*StackStatus, error) {
	m.record("Status")
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx)
	}
	return &StackStatus{State: "stopped"}, nil
}

func (m *MockStackManager) Logs(ctx context.Context, services []string, w io.Writer) error {
	m.record("Logs")
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, services, w)
	}
	return nil
}

func (m *MockStackManager) RegisterSnapshot(ctx context.Context) error {
	m.record("RegisterSnapshot")
	if m.RegisterSnapshotFunc != nil {
		return m.RegisterSnapshotFunc(ctx)
	}
	return nil
}

// =============================================================================
// Compile-time Interface Checks
// =============================================================================

var _ StackManager = (*DefaultStackManager)(nil)
var _ StackManager = (*MockStackManager)(nil)
