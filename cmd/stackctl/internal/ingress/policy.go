// Package ingress models the edge routing policy: one external
// hostname, TLS termination backed by a named secret, request
// filtering toggles, and a catch-all route to the application service.
//
// The filter rulesets themselves are external to the orchestrator.
// This package carries their toggles as validated configuration data
// and renders the complete routing declaration for the edge layer.
package ingress

import (
	"errors"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/genomehub/stackctl/cmd/stackctl/config"
)

// ErrInvalidPolicy wraps every policy validation failure.
var ErrInvalidPolicy = errors.New("invalid ingress policy")

// Policy is the resolved edge routing policy.
type Policy struct {
	// Hostname is the single external hostname.
	Hostname string

	// TLSSecretName names the secret holding the certificate and key.
	TLSSecretName string

	// BackendService receives all traffic for Hostname, matched paths
	// and unmatched alike.
	BackendService string

	// BackendPort is the backend's service port.
	BackendPort int

	// Filters are the request filtering toggles, keyed by ruleset
	// name. Requests failing an enabled ruleset are rejected before
	// reaching the backend.
	Filters map[string]bool

	// PreserveDestinationHeaders forwards mesh sidecar destination
	// override headers unchanged.
	PreserveDestinationHeaders bool
}

// FromSpec converts the profile's ingress section to a Policy.
func FromSpec(spec *config.IngressSpec) Policy {
	filters := make(map[string]bool, len(spec.Filters))
	for name, enabled := range spec.Filters {
		filters[name] = enabled
	}
	return Policy{
		Hostname:                   spec.Hostname,
		TLSSecretName:              spec.TLSSecret,
		BackendService:             spec.Backend,
		BackendPort:                spec.BackendPort,
		Filters:                    filters,
		PreserveDestinationHeaders: spec.PreserveDestinationHeaders,
	}
}

// Validate checks the policy is complete enough to route traffic.
func (p Policy) Validate() error {
	if p.Hostname == "" {
		return fmt.Errorf("%w: hostname is required", ErrInvalidPolicy)
	}
	if p.TLSSecretName == "" {
		return fmt.Errorf("%w: tls secret is required for %s", ErrInvalidPolicy, p.Hostname)
	}
	if p.BackendService == "" {
		return fmt.Errorf("%w: backend service is required for %s", ErrInvalidPolicy, p.Hostname)
	}
	if p.BackendPort < 1 || p.BackendPort > 65535 {
		return fmt.Errorf("%w: backend port %d out of range", ErrInvalidPolicy, p.BackendPort)
	}
	return nil
}

// EnabledFilters returns the enabled ruleset names, sorted.
func (p Policy) EnabledFilters() []string {
	out := make([]string, 0, len(p.Filters))
	for name, enabled := range p.Filters {
		if enabled {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// routeDocument is the rendered routing declaration.
type routeDocument struct {
	Host    string        `yaml:"host"`
	TLS     tlsSection    `yaml:"tls"`
	Filters filterSection `yaml:"filters"`
	Routes  []routeRule   `yaml:"routes"`
	Headers headerSection `yaml:"headers"`
}

type tlsSection struct {
	SecretName string `yaml:"secret_name"`
}

type filterSection struct {
	Enabled []string `yaml:"enabled"`
}

type routeRule struct {
	Path    string       `yaml:"path"`
	Backend routeBackend `yaml:"backend"`
}

type routeBackend struct {
	Service string `yaml:"service"`
	Port    int    `yaml:"port"`
}

type headerSection struct {
	PreserveDestinationOverrides bool `yaml:"preserve_destination_overrides"`
}

// RenderYAML emits the routing declaration consumed by the edge layer.
// The single catch-all route sends every path, matched or not, to the
// backend service.
func (p Policy) RenderYAML() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	doc := routeDocument{
		Host: p.Hostname,
		TLS:  tlsSection{SecretName: p.TLSSecretName},
		Filters: filterSection{
			Enabled: p.EnabledFilters(),
		},
		Routes: []routeRule{
			{
				Path: "/*",
				Backend: routeBackend{
					Service: p.BackendService,
					Port:    p.BackendPort,
				},
			},
		},
		Headers: headerSection{
			PreserveDestinationOverrides: p.PreserveDestinationHeaders,
		},
	}
	return yaml.Marshal(doc)
}
