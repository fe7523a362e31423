package snapshot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRegistrar returns a registrar with a near-zero backoff so retry
// tests stay quick.
func fastRegistrar(client HTTPDoer) *Registrar {
	r := NewRegistrar(client, nil)
	r.backoff = time.Millisecond
	return r
}

func testRegistration(endpoint string) Registration {
	return Registration{
		Endpoint:   endpoint,
		Repository: "callsets",
		Type:       "gcs",
		Bucket:     "seqr-es-snapshots",
		Username:   "elastic",
		Password:   "changeme",
	}
}

// =============================================================================
// Register Tests
// =============================================================================

func TestRegistrar_Register_BodyAndAuth(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody repositoryBody
	var gotUser, gotPass string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotUser, gotPass, _ = r.BasicAuth()
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := fastRegistrar(srv.Client()).Register(context.Background(), testRegistration(srv.URL))
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/_snapshot/callsets", gotPath)
	assert.Equal(t, "elastic", gotUser)
	assert.Equal(t, "changeme", gotPass)
	assert.Equal(t, "gcs", gotBody.Type)
	assert.Equal(t, "seqr-es-snapshots", gotBody.Settings.Bucket)
	assert.Equal(t, "default", gotBody.Settings.Client)
	assert.True(t, gotBody.Settings.Compress)
}

// TestRegistrar_Register_Idempotent verifies the double-run property:
// registering the same repository twice succeeds both times.
func TestRegistrar_Register_Idempotent(t *testing.T) {
	var puts atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		puts.Add(1)
		// Create-or-replace: the second PUT acknowledges the same way.
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	registrar := fastRegistrar(srv.Client())
	reg := testRegistration(srv.URL)

	require.NoError(t, registrar.Register(context.Background(), reg))
	require.NoError(t, registrar.Register(context.Background(), reg))
	assert.Equal(t, int64(2), puts.Load())
}

func TestRegistrar_Register_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := fastRegistrar(srv.Client()).Register(context.Background(), testRegistration(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestRegistrar_Register_BudgetExhausted(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	reg := testRegistration(srv.URL)
	reg.MaxAttempts = 3

	err := fastRegistrar(srv.Client()).Register(context.Background(), reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistrationFailed)
	// The failure must identify the target for the operator.
	assert.Contains(t, err.Error(), "callsets")
	assert.Contains(t, err.Error(), srv.URL)
	assert.Equal(t, int64(3), calls.Load())
}

func TestRegistrar_Register_RejectionNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"unknown repository type"}`))
	}))
	defer srv.Close()

	err := fastRegistrar(srv.Client()).Register(context.Background(), testRegistration(srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistrationRejected)
	assert.Equal(t, int64(1), calls.Load(), "4xx must not be retried")
}

func TestRegistrar_Register_NetworkErrorRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // all attempts now fail at dial

	reg := testRegistration(srv.URL)
	reg.MaxAttempts = 2

	err := fastRegistrar(nil).Register(context.Background(), reg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestRegistrar_Register_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Registration)
	}{
		{"empty endpoint", func(r *Registration) { r.Endpoint = "" }},
		{"empty repository", func(r *Registration) { r.Repository = "" }},
		{"empty type", func(r *Registration) { r.Type = "" }},
		{"empty bucket", func(r *Registration) { r.Bucket = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := testRegistration("http://localhost:9200")
			tt.mutate(&reg)

			err := fastRegistrar(nil).Register(context.Background(), reg)
			assert.ErrorIs(t, err, ErrRegistrationRejected)
		})
	}
}

func TestValidateRegistration_DefaultsAttempts(t *testing.T) {
	reg := testRegistration("http://localhost:9200")
	require.NoError(t, validateRegistration(&reg))
	assert.Equal(t, DefaultMaxAttempts, reg.MaxAttempts)
}
