// Package rterr holds the runtime's fixed error taxonomy (spec.md §7) as
// sentinel values, wrapped with context at each layer boundary via
// fmt.Errorf("...: %w", err) in the style of eventloop/errors.go. Most of
// these kinds also appear as event.Kind values on per-template Outcome;
// the sentinels here are for the subset of failures returned as Go errors
// from whole-dispatch or whole-cache operations, and for errors.Is checks
// deep in the call stack (e.g. "was this a memory error").
package rterr

import "errors"

var (
	// ErrWorkerGone is returned when a target worker's request channel is
	// closed; the whole dispatch fails, not a single template.
	ErrWorkerGone = errors.New("rterr: worker gone")

	// ErrStoreFailure wraps a template or key-value store I/O failure.
	ErrStoreFailure = errors.New("rterr: store failure")

	// ErrCompileFailure is returned to every bytecode cache waiter when the
	// loader fails; it is never cached.
	ErrCompileFailure = errors.New("rterr: compile failure")

	// ErrMemoryLimitExceeded marks the sole script-level condition, besides
	// panics, that forces a VM to be invalidated rather than merely
	// surfacing a per-template ScriptError.
	ErrMemoryLimitExceeded = errors.New("rterr: memory limit exceeded")

	// ErrVMBroken is returned by VM-manager operations attempted against a
	// VM already marked broken.
	ErrVMBroken = errors.New("rterr: vm broken")

	// ErrSleepExceedsLifetime is returned to a script requesting a sleep
	// that would outlive its VM's maximum lifetime (spec.md §4.6).
	ErrSleepExceedsLifetime = errors.New("rterr: sleep exceeds vm lifetime")

	// ErrExecutionTimeout is the error a task finishes with when it is
	// cancelled at its invocation deadline; dispatch reports it as a Timeout
	// outcome carrying this error's message.
	ErrExecutionTimeout = errors.New("rterr: execution timeout")
)
