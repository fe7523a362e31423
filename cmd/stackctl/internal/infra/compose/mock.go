package compose

import (
	"context"
	"io"
	"sync"
)

// MockExecutor is a test double for Executor. Configure by setting
// function fields; unset fields make the corresponding method a no-op
// success rather than a panic, since most orchestration tests only
// care about a subset of calls.
type MockExecutor struct {
	UpFunc     func(ctx context.Context, opts UpOptions) error
	StopFunc   func(ctx context.Context, opts StopOptions) error
	DownFunc   func(ctx context.Context, opts DownOptions) error
	LogsFunc   func(ctx context.Context, service string, w io.Writer) error
	ExecFunc   func(ctx context.Context, service string, command []string) ([]byte, error)
	StatusFunc func(ctx context.Context) ([]ServiceStatus, error)

	// Calls records all method invocations in order.
	Calls []ExecutorCall

	mu sync.Mutex
}

// ExecutorCall records a single method invocation.
type ExecutorCall struct {
	Method   string
	Services []string
	Command  []string
	Env      map[string]string
}

// Up delegates to UpFunc and records the call.
func (m *MockExecutor) Up(ctx context.Context, opts UpOptions) error {
	m.record(ExecutorCall{Method: "Up", Services: opts.Services, Env: opts.Env})
	if m.UpFunc == nil {
		return nil
	}
	return m.UpFunc(ctx, opts)
}

// Stop delegates to StopFunc and records the call.
func (m *MockExecutor) Stop(ctx context.Context, opts StopOptions) error {
	m.record(ExecutorCall{Method: "Stop", Services: opts.Services})
	if m.StopFunc == nil {
		return nil
	}
	return m.StopFunc(ctx, opts)
}

// Down delegates to DownFunc and records the call.
func (m *MockExecutor) Down(ctx context.Context, opts DownOptions) error {
	m.record(ExecutorCall{Method: "Down"})
	if m.DownFunc == nil {
		return nil
	}
	return m.DownFunc(ctx, opts)
}

// Logs delegates to LogsFunc and records the call.
func (m *MockExecutor) Logs(ctx context.Context, service string, w io.Writer) error {
	m.record(ExecutorCall{Method: "Logs", Services: []string{service}})
	if m.LogsFunc == nil {
		return nil
	}
	return m.LogsFunc(ctx, service, w)
}

// Exec delegates to ExecFunc and records the call.
func (m *MockExecutor) Exec(ctx context.Context, service string, command []string) ([]byte, error) {
	m.record(ExecutorCall{Method: "Exec", Services: []string{service}, Command: command})
	if m.ExecFunc == nil {
		return nil, nil
	}
	return m.ExecFunc(ctx, service, command)
}

// Status delegates to StatusFunc and records the call.
func (m *MockExecutor) Status(ctx context.Context) ([]ServiceStatus, error) {
	m.record(ExecutorCall{Method: "Status"})
	if m.StatusFunc == nil {
		return nil, nil
	}
	return m.StatusFunc(ctx)
}

func (m *MockExecutor) record(call ExecutorCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, call)
}

// GetCalls returns a copy of all recorded calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ExecutorCall, len(m.Calls))
	copy(out, m.Calls)
	return out
}

// CallsTo returns the recorded calls for one method.
func (m *MockExecutor) CallsTo(method string) []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ExecutorCall
	for _, c := range m.Calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// Compile-time interface compliance check.
var _ Executor = (*MockExecutor)(nil)
