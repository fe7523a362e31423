package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// minimalProfile returns a small valid profile for mutation in tests.
func minimalProfile() *Profile {
	return &Profile{
		Name: "test-stack",
		Services: []ServiceSpec{
			{Name: "db", Probe: &ProbeSpec{Type: "tcp", Address: "localhost:5432"}},
			{Name: "app", DependsOn: []string{"db"}},
		},
	}
}

// =============================================================================
// Validate Tests
// =============================================================================

// TestValidate_MinimalProfile verifies the baseline profile passes.
func TestValidate_MinimalProfile(t *testing.T) {
	if err := Validate(minimalProfile()); err != nil {
		t.Fatalf("Validate() returned error: %v", err)
	}
}

// TestValidate_DefaultProfile verifies the stock profile is valid.
func TestValidate_DefaultProfile(t *testing.T) {
	profile := DefaultProfile()
	if err := Validate(&profile); err != nil {
		t.Fatalf("default profile failed validation: %v", err)
	}
}

// TestValidate_Rejections verifies each cross-reference check.
func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{
			"missing name",
			func(p *Profile) { p.Name = "" },
		},
		{
			"no services",
			func(p *Profile) { p.Services = nil },
		},
		{
			"duplicate service",
			func(p *Profile) {
				p.Services = append(p.Services, ServiceSpec{Name: "db"})
			},
		},
		{
			"undeclared dependency",
			func(p *Profile) {
				p.Services[1].DependsOn = []string{"ghost"}
			},
		},
		{
			"self dependency",
			func(p *Profile) {
				p.Services[0].DependsOn = []string{"db"}
			},
		},
		{
			"undeclared secret binding",
			func(p *Profile) {
				p.Services[1].SecretEnv = map[string]string{"DB_PASSWORD": "ghost"}
			},
		},
		{
			"secret without source",
			func(p *Profile) {
				p.Secrets = []SecretSpec{{Name: "orphan"}}
			},
		},
		{
			"duplicate secret",
			func(p *Profile) {
				p.Secrets = []SecretSpec{
					{Name: "s", FromEnv: "S"},
					{Name: "s", FromEnv: "S2"},
				}
			},
		},
		{
			"http probe without url",
			func(p *Profile) {
				p.Services[0].Probe = &ProbeSpec{Type: "http"}
			},
		},
		{
			"exec probe without command",
			func(p *Profile) {
				p.Services[0].Probe = &ProbeSpec{Type: "exec"}
			},
		},
		{
			"tcp probe without address",
			func(p *Profile) {
				p.Services[0].Probe = &ProbeSpec{Type: "tcp"}
			},
		},
		{
			"delay probe without delay",
			func(p *Profile) {
				p.Services[0].Probe = &ProbeSpec{Type: "delay"}
			},
		},
		{
			"unknown probe type",
			func(p *Profile) {
				p.Services[0].Probe = &ProbeSpec{Type: "icmp"}
			},
		},
		{
			"probe references undeclared secret",
			func(p *Profile) {
				p.Services[0].Probe = &ProbeSpec{
					Type: "http", URL: "http://localhost/", BasicAuthSecret: "ghost",
				}
			},
		},
		{
			"snapshot references undeclared secret",
			func(p *Profile) {
				p.Snapshot = &SnapshotSpec{
					Endpoint: "http://localhost:9200", Repository: "r",
					Type: "gcs", Bucket: "b",
					UsernameSecret: "ghost", PasswordSecret: "ghost",
				}
			},
		},
		{
			"ingress backend not declared",
			func(p *Profile) {
				p.Ingress = &IngressSpec{
					Hostname: "app.example.org", TLSSecret: "tls",
					Backend: "ghost", BackendPort: 8000,
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := minimalProfile()
			tt.mutate(p)
			err := Validate(p)
			if err == nil {
				t.Fatal("Validate() should reject profile")
			}
			if !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("error should wrap ErrInvalidProfile, got: %v", err)
			}
		})
	}
}

// =============================================================================
// Parse / Load Tests
// =============================================================================

// TestParse_FullProfile verifies YAML decoding end to end.
func TestParse_FullProfile(t *testing.T) {
	raw := `
name: seqr-local
compose_file: docker-compose.yml
services:
  - name: postgres
    port: 5432
    probe:
      type: exec
      command: ["pg_isready"]
  - name: elasticsearch
    port: 9200
    probe:
      type: http
      url: http://localhost:9200/
      interval: 5s
      max_attempts: 60
  - name: seqr
    depends_on: [postgres, elasticsearch]
    secret_env:
      POSTGRES_PASSWORD: pg-password
    sidecars: [cloudsql-proxy]
secrets:
  - name: pg-password
    from_env: POSTGRES_PASSWORD
    required: true
timeouts:
  probe_interval: 3s
`
	profile, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() returned error: %v", err)
	}

	if profile.Name != "seqr-local" {
		t.Errorf("Name = %q", profile.Name)
	}
	es := profile.Service("elasticsearch")
	if es == nil {
		t.Fatal("Service(elasticsearch) = nil")
	}
	if es.Probe.Interval.Std() != 5*time.Second {
		t.Errorf("probe interval = %v, want 5s", es.Probe.Interval.Std())
	}
	if es.Probe.MaxAttempts != 60 {
		t.Errorf("probe max attempts = %d, want 60", es.Probe.MaxAttempts)
	}
	app := profile.Service("seqr")
	if len(app.Sidecars) != 1 || app.Sidecars[0] != "cloudsql-proxy" {
		t.Errorf("Sidecars = %v", app.Sidecars)
	}
	if profile.Secret("pg-password") == nil {
		t.Error("Secret(pg-password) = nil")
	}
	if profile.Timeouts.ProbeInterval.Std() != 3*time.Second {
		t.Errorf("timeouts.probe_interval = %v", profile.Timeouts.ProbeInterval.Std())
	}
}

// TestParse_InvalidYAML verifies decode errors are wrapped.
func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("services: [unclosed"))
	if err == nil {
		t.Fatal("Parse() should reject malformed yaml")
	}
	if !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("error should wrap ErrInvalidProfile, got: %v", err)
	}
}

// TestLoad_RoundTrip verifies the default profile survives a write and
// reload.
func TestLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stackctl.yaml")

	profile := DefaultProfile()
	data, err := yaml.Marshal(profile)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if loaded.Name != profile.Name {
		t.Errorf("Name = %q, want %q", loaded.Name, profile.Name)
	}
	if len(loaded.Services) != len(profile.Services) {
		t.Errorf("Services len = %d, want %d", len(loaded.Services), len(profile.Services))
	}
	if loaded.Snapshot == nil || loaded.Snapshot.Repository != "callsets" {
		t.Errorf("Snapshot = %+v", loaded.Snapshot)
	}
}

// TestLoad_MissingFile verifies a clear error for an explicit path.
func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() should fail for missing explicit path")
	}
}

// =============================================================================
// Duration Tests
// =============================================================================

// TestDuration_Unmarshal verifies string and numeric forms.
func TestDuration_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{`"30s"`, 30 * time.Second, false},
		{`"2m"`, 2 * time.Minute, false},
		{`5`, 5 * time.Second, false},
		{`1.5`, 1500 * time.Millisecond, false},
		{`"fast"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := yaml.Unmarshal([]byte(tt.in), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && d.Std() != tt.want {
				t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, d.Std(), tt.want)
			}
		})
	}
}

// =============================================================================
// Helper Tests
// =============================================================================

// TestProfile_ComposeCommand verifies the override and the default.
func TestProfile_ComposeCommand(t *testing.T) {
	p := minimalProfile()
	got := p.ComposeCommand()
	if len(got) != 2 || got[0] != "docker" || got[1] != "compose" {
		t.Errorf("ComposeCommand() = %v, want docker compose", got)
	}

	p.ComposeBinary = []string{"podman-compose"}
	got = p.ComposeCommand()
	if len(got) != 1 || got[0] != "podman-compose" {
		t.Errorf("ComposeCommand() = %v, want podman-compose", got)
	}
}

// TestTimeoutSpec_ToTimeoutConfig verifies defaults fill in.
func TestTimeoutSpec_ToTimeoutConfig(t *testing.T) {
	cfg, err := TimeoutSpec{ProbeInterval: Duration(time.Second)}.ToTimeoutConfig()
	if err != nil {
		t.Fatalf("ToTimeoutConfig() returned error: %v", err)
	}
	if cfg.ProbeInterval != time.Second {
		t.Errorf("ProbeInterval = %v, want 1s", cfg.ProbeInterval)
	}
	if cfg.CommandTimeout == 0 {
		t.Error("CommandTimeout should be defaulted, got 0")
	}
}
