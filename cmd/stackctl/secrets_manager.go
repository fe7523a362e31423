/*
Package main provides SecretsManager for deployment credential handling.

SecretsManager resolves the secrets a deployment profile declares
(database passwords, search-cluster credentials, application signing
keys) from their configured sources before any service is started.

# Security Context

Resolved values are handed to services through process environment
only. They are never placed on a command line, never written to the
profile, and never logged at any level. Log statements reference
secrets by name.

# Fail-Secure

A required secret that cannot be resolved is a fatal configuration
error. Resolution happens up front so the failure surfaces before any
container is started or any network call is made.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/genomehub/stackctl/cmd/stackctl/config"
)

// -----------------------------------------------------------------------------
// Error Sentinel Values
// -----------------------------------------------------------------------------

// ErrSecretNotFound is returned when a secret's source yields no value.
var ErrSecretNotFound = errors.New("secret not found")

// ErrSecretEmpty is returned when a source exists but holds an empty value.
var ErrSecretEmpty = errors.New("secret is empty")

// ErrSecretSourceInvalid is returned when a secret declares no usable source.
var ErrSecretSourceInvalid = errors.New("secret source invalid")

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// SecretsManager resolves profile-declared secrets to their values.
//
// # Description
//
// This interface abstracts secret resolution from the underlying
// source. The production implementation reads environment variables
// and key files. Tests substitute MockSecretsManager.
//
// # Security
//
//   - Secret values are never logged
//   - Missing required secrets produce clear errors naming the secret
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type SecretsManager interface {
	// Resolve returns the value for one declared secret.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - spec: The secret declaration from the profile
	//
	// # Outputs
	//
	//   - string: The secret value (never empty on success)
	//   - error: ErrSecretNotFound, ErrSecretEmpty, or ErrSecretSourceInvalid
	Resolve(ctx context.Context, spec config.SecretSpec) (string, error)

	// ResolveAll resolves every secret the profile declares.
	//
	// # Description
	//
	// Missing optional secrets are omitted from the result. Missing
	// required secrets are collected and reported together in one
	// error so an operator can fix the whole set in one pass.
	//
	// # Outputs
	//
	//   - map[string]string: Secret name to value for each resolved secret
	//   - error: Names every required secret that could not be resolved
	ResolveAll(ctx context.Context, specs []config.SecretSpec) (map[string]string, error)

	// SetupInstructions returns operator guidance for a missing secret.
	SetupInstructions(spec config.SecretSpec) string
}

// -----------------------------------------------------------------------------
// Implementation Struct
// -----------------------------------------------------------------------------

// DefaultSecretsManager resolves secrets from the process environment
// and from key files on disk.
type DefaultSecretsManager struct {
	envFunc      func(string) string
	readFileFunc func(string) ([]byte, error)
}

// NewDefaultSecretsManager creates a secrets manager reading from the
// real process environment and filesystem.
func NewDefaultSecretsManager() *DefaultSecretsManager {
	return &DefaultSecretsManager{
		envFunc:      os.Getenv,
		readFileFunc: os.ReadFile,
	}
}

// Resolve returns the value for one declared secret.
//
// The environment source is tried first when both are set. File
// contents have a single trailing newline stripped so keys written
// with echo resolve to the intended value.
func (m *DefaultSecretsManager) Resolve(ctx context.Context, spec config.SecretSpec) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if spec.FromEnv == "" && spec.FromFile == "" {
		return "", fmt.Errorf("%w: %s declares neither from_env nor from_file", ErrSecretSourceInvalid, spec.Name)
	}

	if spec.FromEnv != "" {
		if value := m.envFunc(spec.FromEnv); value != "" {
			return value, nil
		}
		if spec.FromFile == "" {
			return "", fmt.Errorf("%w: %s (env %s unset)", ErrSecretNotFound, spec.Name, spec.FromEnv)
		}
	}

	data, err := m.readFileFunc(spec.FromFile)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s (file %s missing)", ErrSecretNotFound, spec.Name, spec.FromFile)
		}
		return "", fmt.Errorf("reading secret %s from %s: %w", spec.Name, spec.FromFile, err)
	}

	value := strings.TrimSuffix(string(data), "\n")
	value = strings.TrimSuffix(value, "\r")
	if value == "" {
		return "", fmt.Errorf("%w: %s (file %s)", ErrSecretEmpty, spec.Name, spec.FromFile)
	}
	return value, nil
}

// ResolveAll resolves every secret the profile declares.
func (m *DefaultSecretsManager) ResolveAll(ctx context.Context, specs []config.SecretSpec) (map[string]string, error) {
	resolved := make(map[string]string, len(specs))
	var missing []string

	for _, spec := range specs {
		value, err := m.Resolve(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		resolved[spec.Name] = value
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: required secrets unresolved: %s",
			ErrSecretNotFound, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// SetupInstructions returns operator guidance for a missing secret.
func (m *DefaultSecretsManager) SetupInstructions(spec config.SecretSpec) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s not found.\n\n", spec.Name))
	sb.WriteString("To configure this secret, choose one of these options:\n\n")

	optionNum := 1
	if spec.FromEnv != "" {
		sb.WriteString(fmt.Sprintf("Option %d: Environment Variable\n", optionNum))
		sb.WriteString(fmt.Sprintf("  export %s=\"your-secret-value\"\n\n", spec.FromEnv))
		optionNum++
	}
	if spec.FromFile != "" {
		sb.WriteString(fmt.Sprintf("Option %d: Key File\n", optionNum))
		sb.WriteString(fmt.Sprintf("  install -m 0600 /dev/null %s\n", spec.FromFile))
		sb.WriteString(fmt.Sprintf("  printf '%%s' \"your-secret-value\" > %s\n\n", spec.FromFile))
	}
	return sb.String()
}

// -----------------------------------------------------------------------------
// Mock Implementation
// -----------------------------------------------------------------------------

// MockSecretsManager is a test double serving secrets from a fixed map.
type MockSecretsManager struct {
	// Secrets maps secret names to values. Names absent from the map
	// resolve as not found.
	Secrets map[string]string

	mu    sync.Mutex
	calls []string
}

// Resolve serves from the fixed map and records the access.
func (m *MockSecretsManager) Resolve(ctx context.Context, spec config.SecretSpec) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, spec.Name)
	m.mu.Unlock()

	value, ok := m.Secrets[spec.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, spec.Name)
	}
	return value, nil
}

// ResolveAll mirrors DefaultSecretsManager semantics over the fixed map.
func (m *MockSecretsManager) ResolveAll(ctx context.Context, specs []config.SecretSpec) (map[string]string, error) {
	resolved := make(map[string]string, len(specs))
	var missing []string
	for _, spec := range specs {
		value, err := m.Resolve(ctx, spec)
		if err != nil {
			if spec.Required {
				missing = append(missing, spec.Name)
			}
			continue
		}
		resolved[spec.Name] = value
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("%w: required secrets unresolved: %s",
			ErrSecretNotFound, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// SetupInstructions returns a fixed hint for tests.
func (m *MockSecretsManager) SetupInstructions(spec config.SecretSpec) string {
	return fmt.Sprintf("%s not found", spec.Name)
}

// GetCalls returns the names of every resolved secret in order.
func (m *MockSecretsManager) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

// -----------------------------------------------------------------------------
// Compile-time Interface Checks
// -----------------------------------------------------------------------------

var _ SecretsManager = (*DefaultSecretsManager)(nil)
var _ SecretsManager = (*MockSecretsManager)(nil)
