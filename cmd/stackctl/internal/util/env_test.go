package util

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// EnvVar.String() / EnvVar.Redacted() Tests
// =============================================================================

// TestEnvVar_String verifies KEY=VALUE format.
func TestEnvVar_String(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"simple", "FOO", "bar", "FOO=bar"},
		{"empty value", "FOO", "", "FOO="},
		{"equals in value", "FOO", "a=b=c", "FOO=a=b=c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := EnvVar{Key: tt.key, Value: tt.value}
			if got := ev.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestEnvVar_Redacted verifies sensitive values are masked.
func TestEnvVar_Redacted(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		sensitive bool
		want      string
	}{
		{"not sensitive", "FOO", "bar", false, "FOO=bar"},
		{"sensitive", "PGPASSWORD", "secret123", true, "PGPASSWORD=[REDACTED]"},
		{"sensitive empty value", "KEY", "", true, "KEY=[REDACTED]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := EnvVar{Key: tt.key, Value: tt.value, Sensitive: tt.sensitive}
			if got := ev.Redacted(); got != tt.want {
				t.Errorf("Redacted() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// EnvVar.Validate() Tests
// =============================================================================

// TestEnvVar_Validate_ValidKeys verifies valid key patterns.
func TestEnvVar_Validate_ValidKeys(t *testing.T) {
	validKeys := []string{
		"FOO",
		"foo",
		"FOO_BAR",
		"_FOO",
		"FOO123",
		"a",
		"_",
		"discovery.type", // container env maps allow dotted settings
		"xpack.security.enabled",
	}

	for _, key := range validKeys {
		t.Run(key, func(t *testing.T) {
			ev := EnvVar{Key: key, Value: "test"}
			if err := ev.Validate(); err != nil {
				t.Errorf("Validate() returned error for valid key %q: %v", key, err)
			}
		})
	}
}

// TestEnvVar_Validate_InvalidKeys verifies invalid key patterns are rejected.
func TestEnvVar_Validate_InvalidKeys(t *testing.T) {
	invalidKeys := []string{
		"",        // empty
		"1FOO",    // starts with number
		"FOO-BAR", // contains hyphen
		".FOO",    // starts with dot
		"FOO BAR", // contains space
		"FOO=BAR", // contains equals
		"FOO$BAR", // contains dollar
	}

	for _, key := range invalidKeys {
		t.Run(key, func(t *testing.T) {
			err := (EnvVar{Key: key, Value: "test"}).Validate()
			if err == nil {
				t.Errorf("Validate() should return error for invalid key %q", key)
			}
			if !errors.Is(err, ErrInvalidEnvVarKey) {
				t.Errorf("Validate() error should wrap ErrInvalidEnvVarKey, got: %v", err)
			}
		})
	}
}

// =============================================================================
// ValidateEnv Tests
// =============================================================================

// TestValidateEnv_Valid verifies a clean map passes.
func TestValidateEnv_Valid(t *testing.T) {
	env := map[string]string{"FOO": "bar", "BAZ_QUX": "1"}
	if err := ValidateEnv(env); err != nil {
		t.Errorf("ValidateEnv() returned error: %v", err)
	}
}

// TestValidateEnv_InvalidKey verifies error wraps the sentinel.
func TestValidateEnv_InvalidKey(t *testing.T) {
	env := map[string]string{"OK": "x", "bad-key": "y"}
	err := ValidateEnv(env)
	if err == nil {
		t.Fatal("ValidateEnv() should return error for invalid key")
	}
	if !errors.Is(err, ErrInvalidEnvVarKey) {
		t.Errorf("error should wrap ErrInvalidEnvVarKey, got: %v", err)
	}
}

// =============================================================================
// MergeEnv Tests
// =============================================================================

// TestMergeEnv verifies overlay precedence and that inputs are untouched.
func TestMergeEnv(t *testing.T) {
	base := map[string]string{"FOO": "base", "BAR": "only_in_base"}
	vars := []EnvVar{
		{Key: "FOO", Value: "override"},
		{Key: "BAZ", Value: "only_in_vars"},
	}

	merged := MergeEnv(base, vars)

	if merged["FOO"] != "override" {
		t.Errorf("merged[FOO] = %q, want %q", merged["FOO"], "override")
	}
	if merged["BAR"] != "only_in_base" {
		t.Errorf("merged[BAR] = %q, want %q", merged["BAR"], "only_in_base")
	}
	if merged["BAZ"] != "only_in_vars" {
		t.Errorf("merged[BAZ] = %q, want %q", merged["BAZ"], "only_in_vars")
	}
	if base["FOO"] != "base" {
		t.Error("MergeEnv must not modify base map")
	}
}

// TestMergeEnv_NilBase verifies nil base yields just the vars.
func TestMergeEnv_NilBase(t *testing.T) {
	merged := MergeEnv(nil, []EnvVar{{Key: "FOO", Value: "bar"}})
	if merged["FOO"] != "bar" {
		t.Errorf("merged[FOO] = %q, want %q", merged["FOO"], "bar")
	}
}

// =============================================================================
// Sensitivity Detection Tests
// =============================================================================

// TestIsSensitiveKey verifies credential-looking keys are flagged.
func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"POSTGRES_PASSWORD", true},
		{"SEQR_ES_PASSWORD", true},
		{"GCS_TOKEN", true},
		{"aws_secret_access_key", true},
		{"API_KEY", true},
		{"CLIENT_SECRET", true},
		{"POSTGRES_HOST", false},
		{"LOG_LEVEL", false},
		{"PORT", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := IsSensitiveKey(tt.key); got != tt.want {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

// TestRedactedEnvSummary verifies secrets never appear in the summary.
func TestRedactedEnvSummary(t *testing.T) {
	env := map[string]string{
		"POSTGRES_HOST":     "postgres",
		"POSTGRES_PASSWORD": "hunter2",
	}

	got := RedactedEnvSummary(env)

	if strings.Contains(got, "hunter2") {
		t.Errorf("summary leaked secret value: %q", got)
	}
	if !strings.Contains(got, "POSTGRES_PASSWORD=[REDACTED]") {
		t.Errorf("summary should contain redacted password entry, got %q", got)
	}
	if !strings.Contains(got, "POSTGRES_HOST=postgres") {
		t.Errorf("summary should contain plain entry, got %q", got)
	}
}

// TestRedactedEnvSummary_Deterministic verifies stable key ordering.
func TestRedactedEnvSummary_Deterministic(t *testing.T) {
	env := map[string]string{"B": "2", "A": "1", "C": "3"}

	first := RedactedEnvSummary(env)
	for i := 0; i < 10; i++ {
		if got := RedactedEnvSummary(env); got != first {
			t.Fatalf("summary not deterministic: %q vs %q", got, first)
		}
	}
	if first != "A=1 B=2 C=3" {
		t.Errorf("summary = %q, want sorted order", first)
	}
}
