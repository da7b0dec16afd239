// Package scheduler implements the cooperative scheduler that runs script
// tasks on a worker's single-threaded event loop (spec.md §4.6, component
// C4), bridging eventloop.Loop and gojaeventloop.Adapter to per-template
// task execution with deadline cancellation and VM lifetime enforcement.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/scriptcore/runtime/eventloop"
	"github.com/scriptcore/runtime/gojaeventloop"

	"github.com/scriptcore/runtime/governor"
	"github.com/scriptcore/runtime/logiface"
	"github.com/scriptcore/runtime/rterr"
	"github.com/scriptcore/runtime/scriptvm"
)

// interruptReason is the sentinel value handed to goja's Interrupt so the
// resulting InterruptedError can be told apart from a host panic.
type interruptReason struct{ err error }

// Result is what a spawned task yields through its one-shot channel.
type Result struct {
	Value any
	Err   error
}

// Scheduler runs script tasks for every VM hosted by one worker, all on a
// single shared event loop. Tasks for distinct tenants interleave
// cooperatively; the scheduler enforces the absolute execution cap per
// spec.md §4.5/§4.6 fairness requirements.
type Scheduler struct {
	loop *eventloop.Loop
	gov  *governor.Governor
	log  *logiface.Logger[logiface.Event]

	mu       sync.Mutex
	adapters map[*scriptvm.VM]*gojaeventloop.Adapter
}

// New builds a Scheduler driving loop, enforcing gov's ceilings. log may be
// nil.
func New(loop *eventloop.Loop, gov *governor.Governor, log *logiface.Logger[logiface.Event]) *Scheduler {
	return &Scheduler{
		loop:     loop,
		gov:      gov,
		log:      log,
		adapters: make(map[*scriptvm.VM]*gojaeventloop.Adapter),
	}
}

// Loop returns the underlying event loop, for the worker thread's Run call.
func (s *Scheduler) Loop() *eventloop.Loop {
	return s.loop
}

// Adapt binds vm's Runtime to the shared loop's timer and promise globals,
// memoising the adapter so repeat calls for the same VM are free. Must be
// called once before any task is spawned for vm.
func (s *Scheduler) Adapt(vm *scriptvm.VM) (*gojaeventloop.Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.adapters[vm]; ok {
		return a, nil
	}
	a, err := gojaeventloop.New(s.loop, vm.Runtime())
	if err != nil {
		return nil, fmt.Errorf("scheduler: adapt vm: %w", err)
	}
	if err := a.Bind(); err != nil {
		return nil, fmt.Errorf("scheduler: bind vm globals: %w", err)
	}
	s.adapters[vm] = a
	return a, nil
}

// Forget drops a VM's adapter, e.g. after the VM manager invalidates it.
func (s *Scheduler) Forget(vm *scriptvm.VM) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.adapters, vm)
}

// TaskFunc is a script task body. It runs synchronously on the loop
// goroutine up to its first suspension point, then returns; any
// asynchronous continuation (a capability call's promise settling, a timer
// firing) eventually calls done exactly once with the task's final result.
// This mirrors the suspension-point model of spec.md §4.6: a TaskFunc never
// blocks the loop goroutine waiting on I/O.
type TaskFunc func(vm *scriptvm.VM, done func(any, error))

// Spawn submits fn to run on the event loop against vm, cancelling it if it
// has not completed by deadline. The returned channel receives exactly one
// Result, however long fn's asynchronous continuation takes to call done.
func (s *Scheduler) Spawn(vm *scriptvm.VM, deadline time.Time, fn TaskFunc) (<-chan Result, error) {
	out := make(chan Result, 1)

	var once sync.Once
	var timerID eventloop.TimerID
	var timerSet bool
	var mu sync.Mutex

	vm.BeginTask()

	finish := func(value any, err error) {
		once.Do(func() {
			defer vm.EndTask()

			mu.Lock()
			id, set := timerID, timerSet
			mu.Unlock()
			if set {
				_ = s.loop.CancelTimer(id)
			}

			vm.Touch(time.Now())
			if err == nil {
				if memErr := s.gov.CheckMemory(vm.UsedMemory()); memErr != nil {
					vm.MarkBroken(memErr)
					out <- Result{Err: memErr}
					return
				}
			}
			out <- Result{Value: value, Err: err}
		})
	}

	if d := time.Until(deadline); d > 0 {
		id, err := s.loop.ScheduleTimer(d, func() {
			vm.Interrupt(interruptReason{err: rterr.ErrExecutionTimeout})
			finish(nil, rterr.ErrExecutionTimeout)
		})
		if err != nil {
			return nil, fmt.Errorf("scheduler: schedule deadline: %w", err)
		}
		mu.Lock()
		timerID, timerSet = id, true
		mu.Unlock()
	}

	submitErr := s.loop.Submit(func() {
		s.runProtected(vm, fn, finish)
	})
	if submitErr != nil {
		finish(nil, submitErr)
		return nil, fmt.Errorf("scheduler: submit task: %w", submitErr)
	}

	return out, nil
}

// runProtected invokes fn's synchronous portion, converting a goja
// interrupt or an arbitrary script panic into a call to done instead of
// letting it escape onto the loop goroutine — the worker thread must
// survive any single task's failure.
func (s *Scheduler) runProtected(vm *scriptvm.VM, fn TaskFunc, done func(any, error)) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*goja.InterruptedError); ok {
				if reason, ok := ie.Value().(interruptReason); ok && reason.err != nil {
					done(nil, reason.err)
					return
				}
				done(nil, rterr.ErrExecutionTimeout)
				return
			}
			cause := fmt.Errorf("scriptvm: panic: %v", r)
			vm.MarkBroken(cause)
			s.log.Err().Str("tenant", vm.Tenant.String()).Interface("panic", r).Log("script task panicked, vm marked broken")
			done(nil, fmt.Errorf("%w: %v", rterr.ErrVMBroken, r))
		}
	}()
	vm.ClearInterrupt()
	fn(vm, done)
}

// Sleep schedules a script-requested pause of duration, rejecting it
// outright if it would outlive the VM's configured lifetime relative to
// lastExecutionTime. The returned channel is closed when the sleep elapses.
func (s *Scheduler) Sleep(lastExecutionTime time.Time, duration time.Duration) (<-chan struct{}, error) {
	if err := s.gov.CheckSleep(time.Now(), duration, lastExecutionTime); err != nil {
		return nil, err
	}
	done := make(chan struct{})
	if _, err := s.loop.ScheduleTimer(duration, func() { close(done) }); err != nil {
		return nil, fmt.Errorf("scheduler: schedule sleep: %w", err)
	}
	return done, nil
}
