package config

import "time"

// DefaultProfile returns the stock genomics stack profile: three leaf
// data-tier services, Kibana over Elasticsearch, and the application
// with its database proxy sidecar gated on the whole data tier.
func DefaultProfile() Profile {
	return Profile{
		Name:        "seqr-local",
		ComposeFile: "docker-compose.yml",
		ProjectName: "seqr",
		Services: []ServiceSpec{
			{
				Name: "postgres",
				Host: "postgres",
				Port: 5432,
				SecretEnv: map[string]string{
					"POSTGRES_PASSWORD": "postgres-password",
				},
				Probe: &ProbeSpec{
					Type:    "exec",
					Command: []string{"pg_isready", "-U", "postgres"},
				},
			},
			{
				Name: "elasticsearch",
				Host: "elasticsearch",
				Port: 9200,
				Env: map[string]string{
					"discovery.type": "single-node",
				},
				SecretEnv: map[string]string{
					"ELASTIC_PASSWORD": "es-password",
				},
				Probe: &ProbeSpec{
					Type:            "http",
					URL:             "http://localhost:9200/",
					BasicAuthSecret: "es-username:es-password",
					// Shard recovery can take a while on a cold index.
					MaxAttempts: 60,
					Interval:    Duration(5 * time.Second),
				},
			},
			{
				Name: "redis",
				Host: "redis",
				Port: 6379,
				Probe: &ProbeSpec{
					Type:    "exec",
					Command: []string{"redis-cli", "ping"},
				},
			},
			{
				Name:      "kibana",
				DependsOn: []string{"elasticsearch"},
				Host:      "kibana",
				Port:      5601,
				SecretEnv: map[string]string{
					"ELASTICSEARCH_PASSWORD": "kibana-password",
				},
				Probe: &ProbeSpec{
					Type: "http",
					URL:  "http://localhost:5601/api/status",
				},
			},
			{
				Name:      "seqr",
				DependsOn: []string{"postgres", "elasticsearch", "redis"},
				Host:      "seqr",
				Port:      8000,
				Env: map[string]string{
					"POSTGRES_SERVICE_HOSTNAME":      "postgres",
					"ELASTICSEARCH_SERVICE_HOSTNAME": "elasticsearch",
					"REDIS_SERVICE_HOSTNAME":         "redis",
				},
				SecretEnv: map[string]string{
					"POSTGRES_PASSWORD": "postgres-password",
					"SEQR_ES_PASSWORD":  "es-password",
					"DJANGO_KEY":        "django-key",
				},
				Sidecars: []string{"cloudsql-proxy"},
				Probe: &ProbeSpec{
					Type:    "exec",
					Command: []string{"./readiness_probe"},
				},
			},
		},
		Secrets: []SecretSpec{
			{Name: "postgres-password", FromEnv: "POSTGRES_PASSWORD", Required: true},
			{Name: "es-username", FromEnv: "SEQR_ES_USERNAME"},
			{Name: "es-password", FromEnv: "SEQR_ES_PASSWORD", Required: true},
			{Name: "kibana-password", FromEnv: "KIBANA_ES_PASSWORD", Required: true},
			{Name: "django-key", FromEnv: "DJANGO_KEY", Required: true},
		},
		Snapshot: &SnapshotSpec{
			After:          "elasticsearch",
			Endpoint:       "http://localhost:9200",
			Repository:     "callsets",
			Type:           "gcs",
			Bucket:         "seqr-es-snapshots",
			UsernameSecret: "es-username",
			PasswordSecret: "es-password",
			MaxAttempts:    4,
		},
		Ingress: &IngressSpec{
			Hostname:    "seqr.example.org",
			TLSSecret:   "seqr-tls",
			Backend:     "seqr",
			BackendPort: 8000,
			Filters: map[string]bool{
				"sqli": true,
				"xss":  true,
			},
			PreserveDestinationHeaders: true,
		},
		LogDump: []string{"postgres", "elasticsearch", "redis", "seqr"},
	}
}
