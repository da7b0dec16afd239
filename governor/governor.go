// Package governor implements the resource ceilings a worker enforces
// across every VM it owns (spec.md §4.8, component C9): memory, stack,
// execution and wait wall-clock, and idle-lifetime reclaim.
package governor

import (
	"fmt"
	"time"

	"github.com/scriptcore/runtime/rterr"
)

const (
	// DefaultMemoryLimitBytes is the per-VM allocator ceiling.
	DefaultMemoryLimitBytes = 3 * 1024 * 1024
	// DefaultStackSizeBytes is the per-worker-thread stack reservation.
	DefaultStackSizeBytes = 8 * 1024 * 1024
	// DefaultExecutionTimeout bounds a single invocation's wall-clock time.
	DefaultExecutionTimeout = 5 * time.Minute
	// DefaultWaitTimeout bounds how long a dispatch waits on external I/O.
	DefaultWaitTimeout = 10 * time.Second
	// DefaultMaxIdleLifetime is how long an idle VM survives before it
	// becomes eligible for eviction.
	DefaultMaxIdleLifetime = 15 * time.Minute
)

// Config holds the configurable ceilings. A zero Config is invalid; use
// NewConfig to get the documented defaults.
type Config struct {
	MemoryLimitBytes int64
	StackSizeBytes   int64
	ExecutionTimeout time.Duration
	WaitTimeout      time.Duration
	MaxIdleLifetime  time.Duration
}

// Option customises a Config built by NewConfig, following the functional-
// options idiom the rest of this module uses for its constructors.
type Option func(*Config)

// WithMemoryLimitBytes overrides the per-VM memory ceiling.
func WithMemoryLimitBytes(n int64) Option { return func(c *Config) { c.MemoryLimitBytes = n } }

// WithStackSizeBytes overrides the per-worker-thread stack reservation.
func WithStackSizeBytes(n int64) Option { return func(c *Config) { c.StackSizeBytes = n } }

// WithExecutionTimeout overrides the per-invocation wall-clock cap.
func WithExecutionTimeout(d time.Duration) Option { return func(c *Config) { c.ExecutionTimeout = d } }

// WithWaitTimeout overrides the per-dispatch external-wait cap.
func WithWaitTimeout(d time.Duration) Option { return func(c *Config) { c.WaitTimeout = d } }

// WithMaxIdleLifetime overrides the idle-reclaim threshold.
func WithMaxIdleLifetime(d time.Duration) Option { return func(c *Config) { c.MaxIdleLifetime = d } }

// NewConfig builds a Config from the documented defaults, applying opts in
// order.
func NewConfig(opts ...Option) Config {
	c := Config{
		MemoryLimitBytes: DefaultMemoryLimitBytes,
		StackSizeBytes:   DefaultStackSizeBytes,
		ExecutionTimeout: DefaultExecutionTimeout,
		WaitTimeout:      DefaultWaitTimeout,
		MaxIdleLifetime:  DefaultMaxIdleLifetime,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Governor evaluates a worker's resource ceilings against live VM state.
// It holds no VM references itself; callers pass in the facts it needs so
// it stays usable from both the scheduler (per-task) and the worker's
// periodic liveness scan.
type Governor struct {
	cfg Config
}

// New builds a Governor from cfg.
func New(cfg Config) *Governor {
	return &Governor{cfg: cfg}
}

// Config returns the governor's effective ceilings.
func (g *Governor) Config() Config {
	return g.cfg
}

// CheckSleep validates a script-requested sleep against the VM's effective
// lifetime: now + duration must not exceed lastExecutionTime +
// MaxIdleLifetime. Rejecting here prevents a script from parking past the
// point its VM would otherwise be reclaimed.
func (g *Governor) CheckSleep(now time.Time, duration time.Duration, lastExecutionTime time.Time) error {
	deadline := lastExecutionTime.Add(g.cfg.MaxIdleLifetime)
	if now.Add(duration).After(deadline) {
		return fmt.Errorf("%w: sleep of %s from %s would exceed vm lifetime ending %s",
			rterr.ErrSleepExceedsLifetime, duration, now, deadline)
	}
	return nil
}

// CheckMemory reports whether usedBytes breaches the configured ceiling.
// The caller marks the VM broken after the current task completes, per
// spec.md §4.8 ("breach => VM marked broken after current task").
func (g *Governor) CheckMemory(usedBytes int64) error {
	if usedBytes > g.cfg.MemoryLimitBytes {
		return fmt.Errorf("%w: used %d bytes exceeds limit %d", rterr.ErrMemoryLimitExceeded, usedBytes, g.cfg.MemoryLimitBytes)
	}
	return nil
}

// IdleCandidate describes one VM's liveness state for a ClearInactiveTenants
// scan.
type IdleCandidate struct {
	LastExecutionTime time.Time
	InFlight          bool
}

// IsIdle reports whether c has been inactive long enough, and has no
// in-flight task, to be eligible for eviction.
func (g *Governor) IsIdle(now time.Time, c IdleCandidate) bool {
	if c.InFlight {
		return false
	}
	return now.Sub(c.LastExecutionTime) >= g.cfg.MaxIdleLifetime
}

// ScanIdle filters candidates down to the ids eligible for eviction, for
// the worker's ClearInactiveTenants request handler.
func ScanIdle[ID comparable](g *Governor, now time.Time, candidates map[ID]IdleCandidate) []ID {
	var idle []ID
	for id, c := range candidates {
		if g.IsIdle(now, c) {
			idle = append(idle, id)
		}
	}
	return idle
}
