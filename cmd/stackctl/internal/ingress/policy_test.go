package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/genomehub/stackctl/cmd/stackctl/config"
)

// ============================================================================
// Test Helpers
// ============================================================================

func testPolicy() Policy {
	return Policy{
		Hostname:       "seqr.example.org",
		TLSSecretName:  "seqr-tls",
		BackendService: "seqr",
		BackendPort:    8000,
		Filters: map[string]bool{
			"sqli": true,
			"xss":  true,
			"rce":  false,
		},
		PreserveDestinationHeaders: true,
	}
}

// ============================================================================
// FromSpec Tests
// ============================================================================

func TestFromSpec(t *testing.T) {
	spec := &config.IngressSpec{
		Hostname:                   "seqr.example.org",
		TLSSecret:                  "seqr-tls",
		Backend:                    "seqr",
		BackendPort:                8000,
		Filters:                    map[string]bool{"sqli": true},
		PreserveDestinationHeaders: true,
	}

	p := FromSpec(spec)

	assert.Equal(t, "seqr.example.org", p.Hostname)
	assert.Equal(t, "seqr-tls", p.TLSSecretName)
	assert.Equal(t, "seqr", p.BackendService)
	assert.Equal(t, 8000, p.BackendPort)
	assert.True(t, p.PreserveDestinationHeaders)

	// The policy owns its own filter map.
	spec.Filters["sqli"] = false
	assert.True(t, p.Filters["sqli"])
}

// ============================================================================
// Validate Tests
// ============================================================================

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Policy)
		valid  bool
	}{
		{"complete policy", func(p *Policy) {}, true},
		{"missing hostname", func(p *Policy) { p.Hostname = "" }, false},
		{"missing tls secret", func(p *Policy) { p.TLSSecretName = "" }, false},
		{"missing backend", func(p *Policy) { p.BackendService = "" }, false},
		{"zero port", func(p *Policy) { p.BackendPort = 0 }, false},
		{"port too large", func(p *Policy) { p.BackendPort = 70000 }, false},
		{"no filters is fine", func(p *Policy) { p.Filters = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testPolicy()
			tt.mutate(&p)
			err := p.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidPolicy)
			}
		})
	}
}

// ============================================================================
// EnabledFilters Tests
// ============================================================================

func TestPolicy_EnabledFilters(t *testing.T) {
	p := testPolicy()
	assert.Equal(t, []string{"sqli", "xss"}, p.EnabledFilters())

	p.Filters = nil
	assert.Empty(t, p.EnabledFilters())
}

// ============================================================================
// RenderYAML Tests
// ============================================================================

func TestPolicy_RenderYAML(t *testing.T) {
	out, err := testPolicy().RenderYAML()
	require.NoError(t, err)

	var doc struct {
		Host string `yaml:"host"`
		TLS  struct {
			SecretName string `yaml:"secret_name"`
		} `yaml:"tls"`
		Filters struct {
			Enabled []string `yaml:"enabled"`
		} `yaml:"filters"`
		Routes []struct {
			Path    string `yaml:"path"`
			Backend struct {
				Service string `yaml:"service"`
				Port    int    `yaml:"port"`
			} `yaml:"backend"`
		} `yaml:"routes"`
		Headers struct {
			PreserveDestinationOverrides bool `yaml:"preserve_destination_overrides"`
		} `yaml:"headers"`
	}
	require.NoError(t, yaml.Unmarshal(out, &doc))

	assert.Equal(t, "seqr.example.org", doc.Host)
	assert.Equal(t, "seqr-tls", doc.TLS.SecretName)
	assert.Equal(t, []string{"sqli", "xss"}, doc.Filters.Enabled)
	require.Len(t, doc.Routes, 1)
	assert.Equal(t, "/*", doc.Routes[0].Path)
	assert.Equal(t, "seqr", doc.Routes[0].Backend.Service)
	assert.Equal(t, 8000, doc.Routes[0].Backend.Port)
	assert.True(t, doc.Headers.PreserveDestinationOverrides)
}

func TestPolicy_RenderYAML_InvalidPolicy(t *testing.T) {
	p := testPolicy()
	p.Hostname = ""

	out, err := p.RenderYAML()
	assert.Nil(t, out)
	assert.ErrorIs(t, err, ErrInvalidPolicy)
}
