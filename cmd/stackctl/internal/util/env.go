package util

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// envVarKeyPattern validates environment variable key names.
// Keys must start with a letter or underscore and contain only
// alphanumeric characters, underscores, and dots. Dots are outside
// POSIX shell naming but are legal in container env maps, where
// settings like elasticsearch's "discovery.type" are passed this way.
// The pattern still blocks shell metacharacter injection through keys.
var envVarKeyPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// ErrInvalidEnvVarKey is returned when an environment variable key is invalid.
var ErrInvalidEnvVarKey = fmt.Errorf("invalid environment variable key")

// EnvVar represents a single environment variable handed to a service
// at start time.
//
// # Description
//
// A typed representation of an environment variable with validation and
// sensitivity marking for secure logging. Values bound from secrets are
// marked Sensitive so they render as [REDACTED] in any diagnostic
// output.
//
// # Example
//
//	ev := EnvVar{Key: "POSTGRES_PASSWORD", Value: pw, Sensitive: true}
//	fmt.Println(ev.Redacted()) // POSTGRES_PASSWORD=[REDACTED]
type EnvVar struct {
	// Key is the environment variable name.
	// Must match pattern: ^[a-zA-Z_][a-zA-Z0-9_.]*$
	Key string

	// Value is the environment variable value. May be empty.
	Value string

	// Sensitive indicates this value must be redacted in logs.
	Sensitive bool
}

// String returns the KEY=VALUE format suitable for exec.Cmd.Env.
func (e EnvVar) String() string {
	return fmt.Sprintf("%s=%s", e.Key, e.Value)
}

// Redacted returns KEY=[REDACTED] for sensitive vars, otherwise String().
func (e EnvVar) Redacted() string {
	if e.Sensitive {
		return fmt.Sprintf("%s=[REDACTED]", e.Key)
	}
	return e.String()
}

// Validate checks the key against container env naming rules.
//
// Returns ErrInvalidEnvVarKey (wrapped with the offending key) if the
// key is empty or contains characters outside [a-zA-Z0-9_.].
func (e EnvVar) Validate() error {
	if e.Key == "" {
		return fmt.Errorf("%w: empty key", ErrInvalidEnvVarKey)
	}
	if !envVarKeyPattern.MatchString(e.Key) {
		return fmt.Errorf("%w: %q", ErrInvalidEnvVarKey, e.Key)
	}
	return nil
}

// ValidateEnv validates every key in an environment map.
//
// Returns the first invalid key found, iterating in sorted order so the
// error is deterministic.
func ValidateEnv(env map[string]string) error {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := (EnvVar{Key: k}).Validate(); err != nil {
			return err
		}
	}
	return nil
}

// MergeEnv overlays vars onto base, with vars winning on key conflicts.
//
// Neither input map is modified. The result is a fresh map and can be
// handed directly to a compose invocation.
func MergeEnv(base map[string]string, vars []EnvVar) map[string]string {
	merged := make(map[string]string, len(base)+len(vars))
	for k, v := range base {
		merged[k] = v
	}
	for _, ev := range vars {
		merged[ev.Key] = ev.Value
	}
	return merged
}

// RedactedEnvSummary renders an environment map for logging, redacting
// any key that matches a sensitive name pattern. Keys are sorted for
// stable output.
func RedactedEnvSummary(env map[string]string) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		ev := EnvVar{Key: k, Value: env[k], Sensitive: IsSensitiveKey(k)}
		parts = append(parts, ev.Redacted())
	}
	return strings.Join(parts, " ")
}

// sensitiveKeyFragments are substrings that mark an environment key as
// carrying credential material.
var sensitiveKeyFragments = []string{
	"PASSWORD", "SECRET", "TOKEN", "API_KEY", "APIKEY", "CREDENTIAL",
	"PRIVATE_KEY", "CLIENT_SECRET",
}

// IsSensitiveKey reports whether an environment key looks like it holds
// credential material and must be redacted.
func IsSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, frag := range sensitiveKeyFragments {
		if strings.Contains(upper, frag) {
			return true
		}
	}
	return false
}
