package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

// scriptedChecker returns canned results in sequence; the last result
// repeats.
type scriptedChecker struct {
	results []Result
	calls   int
}

func (s *scriptedChecker) Check(ctx context.Context) Result {
	i := s.calls
	s.calls++
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]
}

func (s *scriptedChecker) Describe() string { return "scripted" }

// =============================================================================
// WaitReady Tests
// =============================================================================

// TestWaitReady_EventualSuccess verifies retries until ready.
func TestWaitReady_EventualSuccess(t *testing.T) {
	checker := &scriptedChecker{results: []Result{
		{Outcome: OutcomeNotReady},
		{Outcome: OutcomeError, Detail: "connection reset"},
		{Outcome: OutcomeReady},
	}}

	result, err := WaitReady(context.Background(), "elasticsearch", checker, WaitOptions{
		Interval:    time.Millisecond,
		MaxAttempts: 10,
	}, nil)
	if err != nil {
		t.Fatalf("WaitReady() returned error: %v", err)
	}

	if !result.Ready {
		t.Error("result.Ready = false")
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

// TestWaitReady_BudgetExhausted verifies ErrNotReady after the budget.
func TestWaitReady_BudgetExhausted(t *testing.T) {
	checker := &scriptedChecker{results: []Result{{Outcome: OutcomeNotReady, Detail: "still starting"}}}

	result, err := WaitReady(context.Background(), "postgres", checker, WaitOptions{
		Interval:    time.Millisecond,
		MaxAttempts: 4,
	}, nil)
	if err == nil {
		t.Fatal("WaitReady() should fail when probe never succeeds")
	}
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("error should wrap ErrNotReady, got: %v", err)
	}
	if result.Attempts != 4 {
		t.Errorf("Attempts = %d, want 4", result.Attempts)
	}
	if checker.calls != 4 {
		t.Errorf("checker called %d times, want 4", checker.calls)
	}
}

// TestWaitReady_BoundedTime verifies the loop never hangs past the
// budget: max_attempts * interval plus a small epsilon.
func TestWaitReady_BoundedTime(t *testing.T) {
	checker := &scriptedChecker{results: []Result{{Outcome: OutcomeNotReady}}}
	opts := WaitOptions{
		Interval:    10 * time.Millisecond,
		MaxAttempts: 5,
	}

	start := time.Now()
	_, err := WaitReady(context.Background(), "svc", checker, opts, nil)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("unexpected error: %v", err)
	}
	budget := time.Duration(opts.MaxAttempts)*opts.Interval + 500*time.Millisecond
	if elapsed > budget {
		t.Errorf("WaitReady took %v, budget %v", elapsed, budget)
	}
}

// TestWaitReady_ContextCancel verifies prompt exit on cancellation.
func TestWaitReady_ContextCancel(t *testing.T) {
	checker := &scriptedChecker{results: []Result{{Outcome: OutcomeNotReady}}}
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := WaitReady(ctx, "svc", checker, WaitOptions{
		Interval:    time.Hour, // only a context cancel can end the sleep
		MaxAttempts: 3,
	}, nil)
	if err == nil {
		t.Fatal("WaitReady() should fail when context is cancelled")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error should wrap context.Canceled, got: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation was not prompt")
	}
}

// TestWaitReady_ErrorRetriedLikeNotReady verifies probe errors consume
// attempts but do not abort.
func TestWaitReady_ErrorRetriedLikeNotReady(t *testing.T) {
	checker := &scriptedChecker{results: []Result{
		{Outcome: OutcomeError, Detail: "dial timeout"},
		{Outcome: OutcomeError, Detail: "dial timeout"},
		{Outcome: OutcomeReady},
	}}

	result, err := WaitReady(context.Background(), "kibana", checker, WaitOptions{
		Interval:    time.Millisecond,
		MaxAttempts: 5,
	}, nil)
	if err != nil {
		t.Fatalf("WaitReady() returned error: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

// =============================================================================
// Jitter Tests
// =============================================================================

// TestWaitReady_JitterBounded verifies jittered pauses stay within the
// wall-time budget the doc comment promises.
func TestWaitReady_JitterBounded(t *testing.T) {
	checker := &scriptedChecker{results: []Result{{Outcome: OutcomeNotReady}}}
	opts := WaitOptions{
		Interval:    10 * time.Millisecond,
		MaxAttempts: 5,
		Jitter:      0.5,
	}

	start := time.Now()
	result, err := WaitReady(context.Background(), "svc", checker, opts, nil)
	elapsed := time.Since(start)

	if !errors.Is(err, ErrNotReady) {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Attempts != opts.MaxAttempts {
		t.Errorf("Attempts = %d, want %d", result.Attempts, opts.MaxAttempts)
	}
	budget := time.Duration(float64(opts.MaxAttempts)*float64(opts.Interval)*(1+opts.Jitter)) + 500*time.Millisecond
	if elapsed > budget {
		t.Errorf("WaitReady took %v, budget %v", elapsed, budget)
	}
}

// TestWaitReady_ZeroIntervalDefaults verifies a zero interval is
// floored instead of rejected.
func TestWaitReady_ZeroIntervalDefaults(t *testing.T) {
	checker := &scriptedChecker{results: []Result{
		{Outcome: OutcomeNotReady},
		{Outcome: OutcomeReady},
	}}

	result, err := WaitReady(context.Background(), "svc", checker, WaitOptions{
		MaxAttempts: 3,
	}, nil)
	if err != nil {
		t.Fatalf("WaitReady() returned error: %v", err)
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
}
