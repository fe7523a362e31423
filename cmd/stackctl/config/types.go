package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/genomehub/stackctl/cmd/stackctl/internal/util"
)

// Duration wraps time.Duration so profiles can write "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string or a bare number of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
		return nil
	case int:
		*d = Duration(time.Duration(v) * time.Second)
		return nil
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value %v", raw)
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Profile is a declarative deployment profile: the services to bring
// up, their dependency edges, secret bindings, and the one-shot jobs
// and edge policy that complete a deployment.
type Profile struct {
	// Name identifies the deployment, e.g. "seqr-local".
	Name string `yaml:"name" validate:"required"`

	// ComposeFile is the compose file passed to every control-plane call.
	ComposeFile string `yaml:"compose_file"`

	// ComposeBinary overrides the control-plane command, e.g.
	// ["podman", "compose"]. Defaults to ["docker", "compose"].
	ComposeBinary []string `yaml:"compose_binary"`

	// ProjectName is the compose project namespace.
	ProjectName string `yaml:"project_name"`

	// Services in declaration order. Order matters: topological ties
	// are broken by position in this list.
	Services []ServiceSpec `yaml:"services" validate:"required,min=1,dive"`

	// Secrets declares named credentials resolvable at start time.
	Secrets []SecretSpec `yaml:"secrets" validate:"dive"`

	// Snapshot optionally configures the snapshot repository
	// registration job run after the search service is ready.
	Snapshot *SnapshotSpec `yaml:"snapshot"`

	// Ingress optionally declares the edge routing policy.
	Ingress *IngressSpec `yaml:"ingress"`

	// Timeouts tunes probe and command deadlines.
	Timeouts TimeoutSpec `yaml:"timeouts"`

	// LogDump lists the services whose logs are dumped after bring-up,
	// successful or not. Empty means all started services.
	LogDump []string `yaml:"log_dump"`
}

// ServiceSpec declares one service in the stack.
type ServiceSpec struct {
	// Name is the compose service name.
	Name string `yaml:"name" validate:"required,hostname_rfc1123"`

	// DependsOn lists services that must be ready before this one starts.
	DependsOn []string `yaml:"depends_on"`

	// Host and Port form the service's stable network identity.
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`

	// Env is the plain (non-secret) environment for the service.
	Env map[string]string `yaml:"env"`

	// SecretEnv binds declared secrets into the service environment,
	// mapping env key to secret name.
	SecretEnv map[string]string `yaml:"secret_env"`

	// Sidecars are compose services started together with this one,
	// e.g. a database connection proxy. Sidecars share the service's
	// readiness gate and are not probed independently.
	Sidecars []string `yaml:"sidecars"`

	// Probe defines the readiness check. Nil means the service is
	// considered ready as soon as the start command succeeds.
	Probe *ProbeSpec `yaml:"probe"`
}

// ProbeSpec configures a readiness probe.
type ProbeSpec struct {
	// Type selects the probe variant.
	Type string `yaml:"type" validate:"required,oneof=http exec tcp delay"`

	// URL for http probes, e.g. "http://localhost:9200/".
	URL string `yaml:"url"`

	// Command for exec probes, run inside the service container.
	Command []string `yaml:"command"`

	// Address for tcp probes, host:port form.
	Address string `yaml:"address"`

	// Delay for delay probes: the fixed wait before reporting ready.
	Delay Duration `yaml:"delay"`

	// BasicAuthSecret names a secret pair used for http probes against
	// authenticated endpoints. Format: "<user-secret>:<password-secret>"
	// or a single secret name whose value is user:password.
	BasicAuthSecret string `yaml:"basic_auth_secret"`

	// Interval between attempts. Zero uses the profile default.
	Interval Duration `yaml:"interval"`

	// MaxAttempts bounds the retry budget. Zero uses the profile default.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`

	// Jitter is the fraction of Interval randomized per attempt, 0 to 1.
	Jitter float64 `yaml:"jitter" validate:"gte=0,lte=1"`

	// Timeout bounds a single attempt. Zero uses the profile default.
	Timeout Duration `yaml:"timeout"`
}

// SecretSpec declares a named credential.
type SecretSpec struct {
	// Name is the secret's identity within the profile.
	Name string `yaml:"name" validate:"required"`

	// FromEnv names the host environment variable supplying the value.
	FromEnv string `yaml:"from_env"`

	// FromFile reads the value from a file path. FromEnv wins when both
	// are set and the variable is present.
	FromFile string `yaml:"from_file"`

	// Required makes an unresolvable secret fatal before any service
	// that binds it is started.
	Required bool `yaml:"required"`
}

// SnapshotSpec configures the snapshot repository registration job.
type SnapshotSpec struct {
	// After names the service whose readiness gates the job. The job
	// runs as soon as that service is ready, before later services
	// start. Empty runs it after the whole stack is up.
	After string `yaml:"after"`

	// Endpoint is the search service base URL, e.g. "http://localhost:9200".
	Endpoint string `yaml:"endpoint" validate:"required,url"`

	// Repository is the snapshot repository name to register.
	Repository string `yaml:"repository" validate:"required"`

	// Type is the repository storage backend, e.g. "gcs".
	Type string `yaml:"type" validate:"required"`

	// Bucket is the remote storage bucket identifier.
	Bucket string `yaml:"bucket" validate:"required"`

	// UsernameSecret and PasswordSecret name the credential pair.
	UsernameSecret string `yaml:"username_secret" validate:"required"`
	PasswordSecret string `yaml:"password_secret" validate:"required"`

	// MaxAttempts bounds the registration retry budget. Zero means 4.
	MaxAttempts int `yaml:"max_attempts" validate:"gte=0"`

	// VerifyBucket checks the bucket exists in cloud storage before
	// registering. Needs ambient cloud credentials.
	VerifyBucket bool `yaml:"verify_bucket"`

	// CredentialsFile is the cloud credentials file for bucket
	// verification. Empty uses application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

// IngressSpec declares the edge routing policy as configuration data.
type IngressSpec struct {
	// Hostname is the single external hostname.
	Hostname string `yaml:"hostname" validate:"required,fqdn"`

	// TLSSecret names the secret holding TLS material.
	TLSSecret string `yaml:"tls_secret" validate:"required"`

	// Backend is the service receiving all traffic, including
	// unmatched paths.
	Backend string `yaml:"backend" validate:"required"`

	// BackendPort is the backend service port.
	BackendPort int `yaml:"backend_port" validate:"required,gte=1,lte=65535"`

	// Filters toggles the request filtering rulesets applied before
	// forwarding, keyed by rule name, e.g. "sqli", "xss".
	Filters map[string]bool `yaml:"filters"`

	// PreserveDestinationHeaders keeps mesh sidecar destination
	// override headers intact when forwarding.
	PreserveDestinationHeaders bool `yaml:"preserve_destination_headers"`
}

// TimeoutSpec carries profile-level timeout overrides.
type TimeoutSpec struct {
	ProbeInterval   Duration `yaml:"probe_interval"`
	ProbeTimeout    Duration `yaml:"probe_timeout"`
	CommandTimeout  Duration `yaml:"command_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// ToTimeoutConfig converts the spec to the validated runtime form.
func (t TimeoutSpec) ToTimeoutConfig() (util.TimeoutConfig, error) {
	return util.TimeoutConfig{
		ProbeInterval:   t.ProbeInterval.Std(),
		ProbeTimeout:    t.ProbeTimeout.Std(),
		CommandTimeout:  t.CommandTimeout.Std(),
		ShutdownTimeout: t.ShutdownTimeout.Std(),
	}.Validated()
}

// Service returns the spec for name, or nil if not declared.
func (p *Profile) Service(name string) *ServiceSpec {
	for i := range p.Services {
		if p.Services[i].Name == name {
			return &p.Services[i]
		}
	}
	return nil
}

// Secret returns the spec for name, or nil if not declared.
func (p *Profile) Secret(name string) *SecretSpec {
	for i := range p.Secrets {
		if p.Secrets[i].Name == name {
			return &p.Secrets[i]
		}
	}
	return nil
}

// ComposeCommand returns the control-plane command, defaulting to
// docker compose.
func (p *Profile) ComposeCommand() []string {
	if len(p.ComposeBinary) > 0 {
		return p.ComposeBinary
	}
	return []string{"docker", "compose"}
}
