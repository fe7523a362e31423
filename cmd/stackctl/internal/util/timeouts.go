package util

import (
	"fmt"
	"time"
)

// Floor values for configurable timeouts. Anything below these is a
// configuration mistake, not a tuning choice.
const (
	MinProbeInterval   = 100 * time.Millisecond
	MinProbeTimeout    = 500 * time.Millisecond
	MinCommandTimeout  = 1 * time.Second
	MinShutdownTimeout = 1 * time.Second
)

// Defaults applied when a profile omits a timeout.
const (
	DefaultProbeInterval   = 2 * time.Second
	DefaultProbeTimeout    = 5 * time.Second
	DefaultCommandTimeout  = 2 * time.Minute
	DefaultShutdownTimeout = 30 * time.Second
)

// ErrTimeoutTooShort is returned when a configured timeout is below its
// permitted floor.
var ErrTimeoutTooShort = fmt.Errorf("timeout below minimum")

// TimeoutConfig groups the timeouts the orchestrator applies to probes,
// external commands, and shutdown.
type TimeoutConfig struct {
	// ProbeInterval is the pause between readiness probe attempts.
	ProbeInterval time.Duration

	// ProbeTimeout bounds a single probe attempt.
	ProbeTimeout time.Duration

	// CommandTimeout bounds a single compose or exec invocation.
	CommandTimeout time.Duration

	// ShutdownTimeout bounds graceful teardown before force cleanup.
	ShutdownTimeout time.Duration
}

// DefaultTimeouts returns a TimeoutConfig populated with the package
// defaults.
func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		ProbeInterval:   DefaultProbeInterval,
		ProbeTimeout:    DefaultProbeTimeout,
		CommandTimeout:  DefaultCommandTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// Validated returns a copy with zero fields replaced by defaults, or an
// error if any non-zero field is below its floor.
func (t TimeoutConfig) Validated() (TimeoutConfig, error) {
	out := t
	checks := []struct {
		name string
		val  *time.Duration
		min  time.Duration
		def  time.Duration
	}{
		{"probe interval", &out.ProbeInterval, MinProbeInterval, DefaultProbeInterval},
		{"probe timeout", &out.ProbeTimeout, MinProbeTimeout, DefaultProbeTimeout},
		{"command timeout", &out.CommandTimeout, MinCommandTimeout, DefaultCommandTimeout},
		{"shutdown timeout", &out.ShutdownTimeout, MinShutdownTimeout, DefaultShutdownTimeout},
	}
	for _, c := range checks {
		if *c.val == 0 {
			*c.val = c.def
			continue
		}
		if *c.val < c.min {
			return TimeoutConfig{}, fmt.Errorf("%w: %s %v is less than %v",
				ErrTimeoutTooShort, c.name, *c.val, c.min)
		}
	}
	return out, nil
}
