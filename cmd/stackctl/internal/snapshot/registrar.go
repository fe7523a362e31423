// Package snapshot registers a snapshot repository with the search
// service after it becomes ready.
//
// Registration is a one-shot job with create-or-replace semantics on
// the search side: re-running it after a prior success acknowledges
// again rather than erroring, so the job is safe to repeat across
// deployments.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/genomehub/stackctl/pkg/logging"
)

var (
	// ErrRegistrationFailed is returned when the retry budget is
	// exhausted without an acknowledged response.
	ErrRegistrationFailed = errors.New("snapshot repository registration failed")

	// ErrRegistrationRejected is returned for 4xx responses, which
	// repeat on retry and fail immediately instead.
	ErrRegistrationRejected = errors.New("snapshot repository registration rejected")
)

// DefaultMaxAttempts is the registration retry budget when the
// profile does not set one.
const DefaultMaxAttempts = 4

// Registration describes one repository to register.
type Registration struct {
	// Endpoint is the search service base URL.
	Endpoint string

	// Repository is the repository name, used as the idempotency key
	// by the search service.
	Repository string

	// Type is the storage backend, e.g. "gcs".
	Type string

	// Bucket is the remote storage bucket.
	Bucket string

	// Username and Password authenticate the call.
	Username string
	Password string

	// MaxAttempts bounds retries. Zero uses DefaultMaxAttempts.
	MaxAttempts int
}

// repositoryBody is the search service's registration payload.
type repositoryBody struct {
	Type     string             `json:"type"`
	Settings repositorySettings `json:"settings"`
}

type repositorySettings struct {
	Bucket   string `json:"bucket"`
	Client   string `json:"client"`
	Compress bool   `json:"compress"`
}

// HTTPDoer is the slice of http.Client the registrar needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registrar issues snapshot repository registrations with a bounded
// retry budget.
type Registrar struct {
	client  HTTPDoer
	logger  *logging.Logger
	backoff time.Duration
}

// NewRegistrar builds a Registrar. A nil client uses a default client
// with a 10 second timeout; a nil logger discards output.
func NewRegistrar(client HTTPDoer, logger *logging.Logger) *Registrar {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logging.New(logging.Config{Quiet: true})
	}
	return &Registrar{
		client:  client,
		logger:  logger,
		backoff: time.Second,
	}
}

// Register PUTs the repository definition against the search service.
//
// Any 2xx response is an acknowledgment and means success, including
// when the repository already exists. Network errors and 5xx responses
// are retried with exponential backoff up to the attempt budget; 4xx
// responses fail immediately since retrying a rejected payload cannot
// help. Exhausting the budget returns ErrRegistrationFailed and is
// fatal to the deployment, never swallowed.
func (r *Registrar) Register(ctx context.Context, reg Registration) error {
	if err := validateRegistration(&reg); err != nil {
		return err
	}

	endpoint, err := url.JoinPath(reg.Endpoint, "_snapshot", reg.Repository)
	if err != nil {
		return fmt.Errorf("building registration url: %w", err)
	}

	body, err := json.Marshal(repositoryBody{
		Type: reg.Type,
		Settings: repositorySettings{
			Bucket:   reg.Bucket,
			Client:   "default",
			Compress: true,
		},
	})
	if err != nil {
		return fmt.Errorf("encoding registration body: %w", err)
	}

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(reg.MaxAttempts-1), retry.NewExponential(r.backoff))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := r.attempt(ctx, endpoint, reg, body); err != nil {
			if errors.Is(err, ErrRegistrationRejected) {
				return err
			}
			r.logger.Warn("snapshot registration attempt failed",
				"repository", reg.Repository,
				"endpoint", reg.Endpoint,
				"attempt", attempt,
				"max_attempts", reg.MaxAttempts,
				"error", err.Error(),
			)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRegistrationRejected) {
			return err
		}
		return fmt.Errorf("%w: repository %q at %s after %d attempts: %v",
			ErrRegistrationFailed, reg.Repository, reg.Endpoint, attempt, err)
	}

	r.logger.Info("snapshot repository registered",
		"repository", reg.Repository,
		"bucket", reg.Bucket,
		"type", reg.Type,
		"attempts", attempt,
	)
	return nil
}

// attempt issues a single PUT and classifies the response.
func (r *Registrar) attempt(ctx context.Context, endpoint string, reg Registration, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(reg.Username, reg.Password)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s: %s", ErrRegistrationRejected, resp.Status, bytes.TrimSpace(detail))
	default:
		return fmt.Errorf("unexpected response %s", resp.Status)
	}
}

func validateRegistration(reg *Registration) error {
	if reg.Endpoint == "" {
		return fmt.Errorf("%w: empty endpoint", ErrRegistrationRejected)
	}
	if reg.Repository == "" {
		return fmt.Errorf("%w: empty repository name", ErrRegistrationRejected)
	}
	if reg.Type == "" || reg.Bucket == "" {
		return fmt.Errorf("%w: type and bucket are required", ErrRegistrationRejected)
	}
	if reg.MaxAttempts <= 0 {
		reg.MaxAttempts = DefaultMaxAttempts
	}
	return nil
}
