// Package runtimeconfig assembles the top-level Config a host passes when
// constructing the runtime: worker count, per-VM resource ceilings, the
// capability rate budget, and the bytecode cache capacity. It follows the
// functional-options idiom eventloop.LoopOption uses for Loop construction.
package runtimeconfig

import (
	"time"

	"github.com/scriptcore/runtime/bytecode"
	"github.com/scriptcore/runtime/capability"
	"github.com/scriptcore/runtime/governor"
	"github.com/scriptcore/runtime/pool"
)

// config holds the resolved settings an Option mutates.
type config struct {
	workerCount     int
	shardFn         pool.ShardFunc
	bytecodeCap     int
	governorCfg     governor.Config
	capabilityRates map[time.Duration]int
	enableBuiltins  bool
}

// Config is the fully-resolved construction input: a worker count, the
// shard function routing tenants to workers, the shared bytecode cache
// capacity, the per-VM governor ceilings, and the capability rate budget.
type Config struct {
	WorkerCount       int
	ShardFunc         pool.ShardFunc
	BytecodeCapacity  int
	Governor          governor.Config
	CapabilityLimiter *capability.Limiter
	// EnableBuiltins mirrors spec.md §6's enable_builtins: when true, a
	// tenant with no user templates falls back to the host-provided builtin
	// template set instead of an empty dispatch, per template.NewRegistry.
	EnableBuiltins bool
}

// DefaultWorkerCount matches runtime.NumCPU in spirit but is left as a fixed,
// conservative default since the runtime has no dependency on package
// runtime's CPU count here — a host sizing a production deployment is
// expected to pass WithWorkerCount explicitly.
const DefaultWorkerCount = 4

// DefaultBytecodeCapacity mirrors bytecode.DefaultCapacity.
const DefaultBytecodeCapacity = bytecode.DefaultCapacity

// Option configures a Config.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithWorkerCount fixes the pool's worker vector size. Must be > 0.
func WithWorkerCount(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.workerCount = n
		}
	})
}

// WithShardFunc overrides the default Discord-style tenant→worker routing.
func WithShardFunc(fn pool.ShardFunc) Option {
	return optionFunc(func(c *config) { c.shardFn = fn })
}

// WithBytecodeCapacity overrides the process-wide compiled-artifact cache's
// entry capacity.
func WithBytecodeCapacity(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.bytecodeCap = n
		}
	})
}

// WithMemoryLimitBytes overrides the default per-VM memory ceiling.
func WithMemoryLimitBytes(bytes int64) Option {
	return optionFunc(func(c *config) {
		c.governorCfg = governor.NewConfig(
			governor.WithMemoryLimitBytes(bytes),
			governor.WithStackSizeBytes(c.governorCfg.StackSizeBytes),
			governor.WithExecutionTimeout(c.governorCfg.ExecutionTimeout),
			governor.WithWaitTimeout(c.governorCfg.WaitTimeout),
			governor.WithMaxIdleLifetime(c.governorCfg.MaxIdleLifetime),
		)
	})
}

// WithExecutionTimeout overrides the default per-invocation execution cap.
func WithExecutionTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.governorCfg = governor.NewConfig(
			governor.WithMemoryLimitBytes(c.governorCfg.MemoryLimitBytes),
			governor.WithStackSizeBytes(c.governorCfg.StackSizeBytes),
			governor.WithExecutionTimeout(d),
			governor.WithWaitTimeout(c.governorCfg.WaitTimeout),
			governor.WithMaxIdleLifetime(c.governorCfg.MaxIdleLifetime),
		)
	})
}

// WithMaxIdleLifetime overrides how long an idle VM survives before
// ClearInactiveTenants reclaims it.
func WithMaxIdleLifetime(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.governorCfg = governor.NewConfig(
			governor.WithMemoryLimitBytes(c.governorCfg.MemoryLimitBytes),
			governor.WithStackSizeBytes(c.governorCfg.StackSizeBytes),
			governor.WithExecutionTimeout(c.governorCfg.ExecutionTimeout),
			governor.WithWaitTimeout(c.governorCfg.WaitTimeout),
			governor.WithMaxIdleLifetime(d),
		)
	})
}

// WithCapabilityRates overrides capability.DefaultRates, the sliding-window
// budget the one process-wide capability.Limiter applies separately to each
// (tenant, domain, action).
func WithCapabilityRates(rates map[time.Duration]int) Option {
	return optionFunc(func(c *config) {
		if len(rates) > 0 {
			c.capabilityRates = rates
		}
	})
}

// WithEnableBuiltins toggles the builtin template fallback (spec.md §6's
// enable_builtins), off by default.
func WithEnableBuiltins(enabled bool) Option {
	return optionFunc(func(c *config) { c.enableBuiltins = enabled })
}

// Resolve applies opts over the documented defaults and returns the
// finished Config, constructing the shared capability.Limiter along the
// way (one limiter is meant to be shared process-wide, per
// capability.Limiter's own doc comment).
func Resolve(opts ...Option) Config {
	c := &config{
		workerCount:     DefaultWorkerCount,
		shardFn:         pool.DefaultShardFunc,
		bytecodeCap:     DefaultBytecodeCapacity,
		governorCfg:     governor.NewConfig(),
		capabilityRates: capability.DefaultRates,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.apply(c)
		}
	}
	return Config{
		WorkerCount:       c.workerCount,
		ShardFunc:         c.shardFn,
		BytecodeCapacity:  c.bytecodeCap,
		Governor:          c.governorCfg,
		CapabilityLimiter: capability.NewLimiter(c.capabilityRates),
		EnableBuiltins:    c.enableBuiltins,
	}
}
