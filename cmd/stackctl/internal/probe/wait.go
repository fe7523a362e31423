package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/genomehub/stackctl/pkg/logging"
)

// ErrNotReady is returned when a service's probe never succeeds within
// its attempt budget.
var ErrNotReady = fmt.Errorf("service not ready within attempt budget")

// WaitOptions tunes the readiness wait loop. Both the interval and the
// attempt budget are configuration, overridable per service for flaky
// dependencies.
type WaitOptions struct {
	// Interval is the pause between attempts.
	Interval time.Duration

	// MaxAttempts bounds the retry budget. Must be at least 1.
	MaxAttempts int

	// Jitter randomizes each pause by up to this fraction of Interval,
	// range 0 to 1.
	Jitter float64

	// AttemptTimeout bounds a single probe call. Zero means no
	// per-attempt deadline beyond the parent context.
	AttemptTimeout time.Duration
}

// WaitResult records how a readiness wait ended.
type WaitResult struct {
	Service   string
	Ready     bool
	Attempts  int
	Elapsed   time.Duration
	LastState Result
}

// WaitReady polls checker until it reports ready, the attempt budget
// is exhausted, or ctx is cancelled.
//
// Probe errors are retried the same as not-ready but logged at Warn
// instead of Debug. The total wall time is bounded by roughly
// MaxAttempts * (AttemptTimeout + Interval * (1 + Jitter)).
func WaitReady(ctx context.Context, service string, checker Checker, opts WaitOptions, logger *logging.Logger) (*WaitResult, error) {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Interval <= 0 {
		// retry.NewConstant rejects non-positive intervals.
		opts.Interval = time.Millisecond
	}
	if logger == nil {
		logger = logging.New(logging.Config{Quiet: true})
	}

	start := time.Now()
	result := &WaitResult{Service: service}

	backoff := retry.Backoff(retry.NewConstant(opts.Interval))
	if pct := uint64(opts.Jitter * 100); pct > 0 {
		backoff = retry.WithJitterPercent(pct, backoff)
	}
	backoff = retry.WithMaxRetries(uint64(opts.MaxAttempts-1), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx := ctx
		var cancel context.CancelFunc
		if opts.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.AttemptTimeout)
		}
		state := checker.Check(attemptCtx)
		if cancel != nil {
			cancel()
		}

		result.Attempts++
		result.LastState = state

		switch state.Outcome {
		case OutcomeReady:
			result.Ready = true
			return nil
		case OutcomeError:
			logger.Warn("readiness probe errored",
				"service", service,
				"check", checker.Describe(),
				"attempt", result.Attempts,
				"max_attempts", opts.MaxAttempts,
				"detail", state.Detail,
			)
		default:
			logger.Debug("service not ready",
				"service", service,
				"attempt", result.Attempts,
				"max_attempts", opts.MaxAttempts,
				"detail", state.Detail,
			)
		}
		return retry.RetryableError(fmt.Errorf("%s: %s", state.Outcome, state.Detail))
	})

	result.Elapsed = time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return result, fmt.Errorf("waiting for %s: %w", service, ctx.Err())
		}
		return result, fmt.Errorf("%w: %s after %d attempts (last: %s %s)",
			ErrNotReady, service, result.Attempts, result.LastState.Outcome, result.LastState.Detail)
	}

	logger.Info("service ready",
		"service", service,
		"check", checker.Describe(),
		"attempts", result.Attempts,
		"elapsed", result.Elapsed.Round(time.Millisecond).String(),
	)
	return result, nil
}
