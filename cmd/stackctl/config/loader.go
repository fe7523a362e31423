package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidProfile wraps every validation failure so callers can
// match the whole category.
var ErrInvalidProfile = fmt.Errorf("invalid deployment profile")

// DefaultPath returns the default profile location under the user's
// home directory.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".stackctl", "stackctl.yaml"), nil
}

// Load reads and validates a profile. An empty path uses DefaultPath
// and writes the stock profile there on first run.
func Load(path string) (*Profile, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "first run detected, creating profile at %s\n", path)
			if err := writeDefault(path); err != nil {
				return nil, err
			}
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a profile from YAML bytes.
func Parse(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: parsing yaml: %v", ErrInvalidProfile, err)
	}
	if err := Validate(&profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate runs structural validation tags and the cross-reference
// checks yaml tags cannot express.
func Validate(p *Profile) error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	names := make(map[string]bool, len(p.Services))
	for _, svc := range p.Services {
		if names[svc.Name] {
			return fmt.Errorf("%w: duplicate service %q", ErrInvalidProfile, svc.Name)
		}
		names[svc.Name] = true
	}

	secretNames := make(map[string]bool, len(p.Secrets))
	for _, sec := range p.Secrets {
		if secretNames[sec.Name] {
			return fmt.Errorf("%w: duplicate secret %q", ErrInvalidProfile, sec.Name)
		}
		if sec.FromEnv == "" && sec.FromFile == "" {
			return fmt.Errorf("%w: secret %q has no source", ErrInvalidProfile, sec.Name)
		}
		secretNames[sec.Name] = true
	}

	for _, svc := range p.Services {
		for _, dep := range svc.DependsOn {
			if !names[dep] {
				return fmt.Errorf("%w: service %q depends on undeclared service %q",
					ErrInvalidProfile, svc.Name, dep)
			}
			if dep == svc.Name {
				return fmt.Errorf("%w: service %q depends on itself", ErrInvalidProfile, svc.Name)
			}
		}
		for envKey, secretName := range svc.SecretEnv {
			if !secretNames[secretName] {
				return fmt.Errorf("%w: service %q binds undeclared secret %q to %s",
					ErrInvalidProfile, svc.Name, secretName, envKey)
			}
		}
		if svc.Probe != nil {
			if err := validateProbe(svc.Name, svc.Probe, secretNames); err != nil {
				return err
			}
		}
	}

	if p.Snapshot != nil {
		if p.Snapshot.After != "" && !names[p.Snapshot.After] {
			return fmt.Errorf("%w: snapshot gates on undeclared service %q",
				ErrInvalidProfile, p.Snapshot.After)
		}
		if !secretNames[p.Snapshot.UsernameSecret] {
			return fmt.Errorf("%w: snapshot references undeclared secret %q",
				ErrInvalidProfile, p.Snapshot.UsernameSecret)
		}
		if !secretNames[p.Snapshot.PasswordSecret] {
			return fmt.Errorf("%w: snapshot references undeclared secret %q",
				ErrInvalidProfile, p.Snapshot.PasswordSecret)
		}
	}

	if p.Ingress != nil && !names[p.Ingress.Backend] {
		return fmt.Errorf("%w: ingress backend %q is not a declared service",
			ErrInvalidProfile, p.Ingress.Backend)
	}

	return nil
}

// validateProbe checks the variant-specific required fields.
func validateProbe(service string, probe *ProbeSpec, secrets map[string]bool) error {
	switch probe.Type {
	case "http":
		if probe.URL == "" {
			return fmt.Errorf("%w: service %q http probe needs url", ErrInvalidProfile, service)
		}
	case "exec":
		if len(probe.Command) == 0 {
			return fmt.Errorf("%w: service %q exec probe needs command", ErrInvalidProfile, service)
		}
	case "tcp":
		if probe.Address == "" {
			return fmt.Errorf("%w: service %q tcp probe needs address", ErrInvalidProfile, service)
		}
	case "delay":
		if probe.Delay <= 0 {
			return fmt.Errorf("%w: service %q delay probe needs positive delay", ErrInvalidProfile, service)
		}
	}
	if probe.BasicAuthSecret != "" {
		for _, name := range splitAuthSecret(probe.BasicAuthSecret) {
			if !secrets[name] {
				return fmt.Errorf("%w: service %q probe references undeclared secret %q",
					ErrInvalidProfile, service, name)
			}
		}
	}
	return nil
}

// splitAuthSecret splits "user-secret:password-secret" into its parts.
// A name without a colon refers to a single combined secret.
func splitAuthSecret(ref string) []string {
	return strings.SplitN(ref, ":", 2)
}

func writeDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}
	profile := DefaultProfile()
	data, err := yaml.Marshal(profile)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
