// Package probe answers "is this service ready to receive dependent
// traffic?" via pluggable checks.
//
// A probe attempt returns a ternary outcome: ready, not ready, or
// probe error. A probe error (network failure, timeout, exec
// infrastructure failure) is retried exactly like not-ready but is
// logged distinctly so an operator can tell a slow service from a
// broken probe.
package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/genomehub/stackctl/cmd/stackctl/internal/util"
)

// Outcome is the result category of a single probe attempt.
type Outcome int

const (
	// OutcomeReady means the service can serve dependent traffic.
	OutcomeReady Outcome = iota

	// OutcomeNotReady means the check ran but the service is not yet
	// serving. Retried until the attempt budget runs out.
	OutcomeNotReady

	// OutcomeError means the check itself failed. Retried like
	// not-ready, logged distinctly.
	OutcomeError
)

// String returns "ready", "not-ready", or "probe-error".
func (o Outcome) String() string {
	switch o {
	case OutcomeReady:
		return "ready"
	case OutcomeNotReady:
		return "not-ready"
	case OutcomeError:
		return "probe-error"
	default:
		return "unknown"
	}
}

// Result is one probe attempt's outcome with diagnostics.
type Result struct {
	Outcome Outcome
	Detail  string
	Latency time.Duration
}

// Checker is a single service's readiness check. Check must respect
// ctx and return within the caller's per-attempt deadline.
type Checker interface {
	Check(ctx context.Context) Result

	// Describe names the check for logs, e.g. "http http://localhost:9200/".
	Describe() string
}

// HTTPDoer is the slice of http.Client the HTTP probe needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExecRunner runs a command inside a service's runtime context. The
// compose executor satisfies this.
type ExecRunner interface {
	Exec(ctx context.Context, service string, command []string) ([]byte, error)
}

// -----------------------------------------------------------------------------
// HTTP probe
// -----------------------------------------------------------------------------

// HTTPProbe reports ready on any 2xx or 3xx response from a URL.
type HTTPProbe struct {
	URL      string
	Username string
	Password string
	Client   HTTPDoer
}

// NewHTTP creates an HTTP probe. A nil client uses http.DefaultClient;
// empty credentials disable basic auth.
func NewHTTP(url, username, password string, client HTTPDoer) *HTTPProbe {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPProbe{URL: url, Username: username, Password: password, Client: client}
}

// Check issues a GET and classifies the response status.
func (p *HTTPProbe) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Result{Outcome: OutcomeError, Detail: err.Error(), Latency: time.Since(start)}
	}
	if p.Username != "" || p.Password != "" {
		req.SetBasicAuth(p.Username, p.Password)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return Result{Outcome: OutcomeError, Detail: err.Error(), Latency: time.Since(start)}
	}
	defer resp.Body.Close()

	result := Result{Latency: time.Since(start), Detail: resp.Status}
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Outcome = OutcomeReady
	} else {
		result.Outcome = OutcomeNotReady
	}
	return result
}

// Describe implements Checker.
func (p *HTTPProbe) Describe() string {
	return fmt.Sprintf("http %s", p.URL)
}

// -----------------------------------------------------------------------------
// Exec probe
// -----------------------------------------------------------------------------

// ExecProbe runs a command inside the service container and reports
// ready on exit status zero, mirroring a readiness_probe script.
type ExecProbe struct {
	Service string
	Command []string
	Runner  ExecRunner
}

// NewExec creates an exec probe for the named service.
func NewExec(runner ExecRunner, service string, command []string) *ExecProbe {
	return &ExecProbe{Service: service, Command: command, Runner: runner}
}

// Check runs the command. A non-zero exit is not-ready; any other
// failure (container missing, control plane unreachable) is a probe
// error. The runner encodes exit failures as *util.CommandError with a
// non-negative exit code, which is how the two are told apart.
func (p *ExecProbe) Check(ctx context.Context) Result {
	start := time.Now()

	out, err := p.Runner.Exec(ctx, p.Service, p.Command)
	latency := time.Since(start)
	if err == nil {
		return Result{Outcome: OutcomeReady, Latency: latency}
	}

	if code, ok := commandExitCode(err); ok && code > 0 {
		return Result{Outcome: OutcomeNotReady, Detail: trimDetail(out, err), Latency: latency}
	}
	return Result{Outcome: OutcomeError, Detail: err.Error(), Latency: latency}
}

// Describe implements Checker.
func (p *ExecProbe) Describe() string {
	return fmt.Sprintf("exec %s: %v", p.Service, p.Command)
}

// -----------------------------------------------------------------------------
// TCP probe
// -----------------------------------------------------------------------------

// TCPProbe reports ready when a TCP connection to Address succeeds.
// Connection refused or timed out means not-ready, the service just is
// not listening yet. A malformed address or a resolver failure is a
// probe error: retrying cannot make a bad address start resolving, and
// the distinct logging points the operator at the profile.
type TCPProbe struct {
	Address string
	Dialer  *net.Dialer
}

// NewTCP creates a TCP probe for a host:port address.
func NewTCP(address string) *TCPProbe {
	return &TCPProbe{Address: address, Dialer: &net.Dialer{}}
}

// Check dials the address and closes the connection.
func (p *TCPProbe) Check(ctx context.Context) Result {
	start := time.Now()

	conn, err := p.Dialer.DialContext(ctx, "tcp", p.Address)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() != nil || isAddressError(err) {
			return Result{Outcome: OutcomeError, Detail: err.Error(), Latency: latency}
		}
		return Result{Outcome: OutcomeNotReady, Detail: err.Error(), Latency: latency}
	}
	_ = conn.Close()
	return Result{Outcome: OutcomeReady, Latency: latency}
}

// isAddressError reports whether a dial failure came from the address
// itself rather than the remote socket's state.
func isAddressError(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var addrErr *net.AddrError
	if errors.As(err, &addrErr) {
		return true
	}
	var invalidErr net.InvalidAddrError
	return errors.As(err, &invalidErr)
}

// Describe implements Checker.
func (p *TCPProbe) Describe() string {
	return fmt.Sprintf("tcp %s", p.Address)
}

// -----------------------------------------------------------------------------
// Delay probe
// -----------------------------------------------------------------------------

// DelayProbe is the fixed-delay fallback for services without a
// structured check: not-ready until the configured delay has elapsed
// since the first attempt, then ready.
type DelayProbe struct {
	Delay time.Duration

	firstCheck time.Time
}

// NewDelay creates a fixed-delay probe.
func NewDelay(delay time.Duration) *DelayProbe {
	return &DelayProbe{Delay: delay}
}

// Check reports ready once Delay has elapsed since the first call.
func (p *DelayProbe) Check(ctx context.Context) Result {
	now := time.Now()
	if p.firstCheck.IsZero() {
		p.firstCheck = now
	}
	elapsed := now.Sub(p.firstCheck)
	if elapsed >= p.Delay {
		return Result{Outcome: OutcomeReady}
	}
	return Result{
		Outcome: OutcomeNotReady,
		Detail:  fmt.Sprintf("waiting fixed delay, %v remaining", (p.Delay - elapsed).Round(time.Millisecond)),
	}
}

// Describe implements Checker.
func (p *DelayProbe) Describe() string {
	return fmt.Sprintf("delay %v", p.Delay)
}

// commandExitCode extracts an exit code from an error chain produced
// by the process manager.
func commandExitCode(err error) (int, bool) {
	var ce *util.CommandError
	if errors.As(err, &ce) {
		return ce.ExitCode, true
	}
	return 0, false
}

func trimDetail(out []byte, err error) string {
	if len(out) > 0 {
		const max = 200
		s := string(out)
		if len(s) > max {
			s = s[:max] + "..."
		}
		return s
	}
	return err.Error()
}
