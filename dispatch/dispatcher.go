package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/scriptcore/runtime/capability"
	"github.com/scriptcore/runtime/event"
	"github.com/scriptcore/runtime/eventloop"
	"github.com/scriptcore/runtime/rterr"
	"github.com/scriptcore/runtime/scheduler"
	"github.com/scriptcore/runtime/scriptvm"
	"github.com/scriptcore/runtime/store"
	"github.com/scriptcore/runtime/template"
	"github.com/scriptcore/runtime/tenant"
)

// DefaultExecutionTimeout bounds a single template invocation, per spec.md
// §4.5 ("default 5 minutes execution").
const DefaultExecutionTimeout = 5 * time.Minute

// DefaultWaitTimeout bounds how long Dispatch waits for the whole batch of
// templates to finish, per spec.md §4.5 ("10 seconds default return wait").
const DefaultWaitTimeout = 10 * time.Second

// Dispatcher resolves events to interested templates and runs each on its
// tenant's VM, per spec.md §4.5, component C5.
type Dispatcher struct {
	registry  *template.Registry
	manager   *scriptvm.Manager
	sched     *scheduler.Scheduler
	limiter   *capability.Limiter
	proxies   Proxies
	telemetry store.Telemetry

	ExecutionTimeout time.Duration
	WaitTimeout      time.Duration
}

// New builds a Dispatcher wiring the template registry, VM manager and
// scheduler for one worker's shard. telemetry may be nil, in which case
// every outcome is reported to store.NoopTelemetry{}.
func New(registry *template.Registry, manager *scriptvm.Manager, sched *scheduler.Scheduler, limiter *capability.Limiter, proxies Proxies, telemetry store.Telemetry) *Dispatcher {
	if telemetry == nil {
		telemetry = store.NoopTelemetry{}
	}
	return &Dispatcher{
		registry:         registry,
		manager:          manager,
		sched:            sched,
		limiter:          limiter,
		proxies:          proxies,
		telemetry:        telemetry,
		ExecutionTimeout: DefaultExecutionTimeout,
		WaitTimeout:      DefaultWaitTimeout,
	}
}

// Dispatch runs every template interested in evt against id's templates,
// unscoped, per spec.md §4.5.
func (d *Dispatcher) Dispatch(ctx context.Context, id tenant.ID, evt *event.Envelope) (event.MultiResult, error) {
	return d.dispatch(ctx, id, evt, nil)
}

// DispatchScoped restricts dispatch to templates whose scope filter
// intersects scopes.
func (d *Dispatcher) DispatchScoped(ctx context.Context, id tenant.ID, evt *event.Envelope, scopes []template.Scope) (event.MultiResult, error) {
	return d.dispatch(ctx, id, evt, scopes)
}

// fullGrants is the capability set handed to an ad-hoc RunScript invocation:
// every action the built-in capability proxies expose. RunScript is internal
// tooling (operator consoles, benchmarking), not tenant-authored code
// reached through the template registry, so it is trusted with the complete
// surface rather than an explicit per-template grant list.
var fullGrants = capability.NewSet([]string{
	string(capability.New(capability.DomainKV, "get")),
	string(capability.New(capability.DomainKV, "set")),
	string(capability.New(capability.DomainKV, "delete")),
	string(capability.New(capability.DomainMessage, "send")),
	string(capability.New(capability.DomainTime, "sleep")),
})

// RunScript compiles and runs source directly against the tenant's VM,
// bypassing the template registry entirely, per spec.md §4.1's internal
// tooling contract. name identifies the ad-hoc unit for logs and the
// bytecode cache; it need not correspond to any registered template.
func (d *Dispatcher) RunScript(ctx context.Context, id tenant.ID, name, code string, evt *event.Envelope) (event.Outcome, error) {
	tmpl := template.Template{Name: name}

	ch, err := d.spawn(ctx, id, tmpl, evt, fullGrants, func(vm *scriptvm.VM) (goja.Value, error) {
		return vm.RunAdHoc("adhoc/"+name, code)
	})
	if err != nil {
		return event.Outcome{}, err
	}

	select {
	case r := <-ch:
		return toOutcome(r), nil
	case <-time.After(d.ExecutionTimeout):
		return event.Outcome{Kind: event.Timeout, Message: rterr.ErrExecutionTimeout.Error()}, nil
	case <-ctx.Done():
		return event.Outcome{Kind: event.Timeout, Message: ctx.Err().Error()}, nil
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, id tenant.ID, evt *event.Envelope, scopes []template.Scope) (event.MultiResult, error) {
	set, err := d.registry.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrStoreFailure, err)
	}
	if set.Empty() {
		return event.MultiResult{}, nil
	}

	matching := set.MatchingEvent(evt.Name, scopes)
	if len(matching) == 0 {
		return event.MultiResult{}, nil
	}

	type pending struct {
		name string
		ch   <-chan scheduler.Result
	}
	spawned := make([]pending, 0, len(matching))

	for _, tmpl := range matching {
		ch, err := d.spawnTemplate(ctx, id, tmpl, evt)
		if err != nil {
			spawned = append(spawned, pending{name: tmpl.Name, ch: immediateResult(scheduler.Result{Err: err})})
			continue
		}
		spawned = append(spawned, pending{name: tmpl.Name, ch: ch})
	}

	// A single time.After channel only ever delivers once; reused across
	// every pending template in this loop, the first slow template to wake
	// up would consume it and leave the rest with no timeout signal at all.
	// context.WithTimeout's Done() is a closed channel instead, so every
	// iteration observes it.
	waitCtx, cancel := context.WithTimeout(ctx, d.WaitTimeout)
	defer cancel()

	results := make(event.MultiResult, 0, len(spawned))
	for _, p := range spawned {
		select {
		case r := <-p.ch:
			outcome := toOutcome(r)
			results = append(results, event.TemplateOutcome{Template: p.name, Outcome: outcome})
			d.telemetry.Event(ctx, "dispatch.outcome", map[string]any{"template": p.name, "kind": outcome.Kind.String()})
		case <-waitCtx.Done():
			outcome := event.Outcome{Kind: event.Timeout, Message: waitErrMessage(waitCtx)}
			results = append(results, event.TemplateOutcome{Template: p.name, Outcome: outcome})
			d.telemetry.Event(ctx, "dispatch.outcome", map[string]any{"template": p.name, "kind": outcome.Kind.String()})
		}
	}
	return results, nil
}

// waitErrMessage distinguishes WaitTimeout's own deadline from the caller's
// context being cancelled out from under the dispatch.
func waitErrMessage(waitCtx context.Context) string {
	if errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return rterr.ErrExecutionTimeout.Error()
	}
	return waitCtx.Err().Error()
}

func (d *Dispatcher) spawnTemplate(ctx context.Context, id tenant.ID, tmpl template.Template, evt *event.Envelope) (<-chan scheduler.Result, error) {
	grants := capability.NewSet(tmpl.CapabilityGrants)
	return d.spawn(ctx, id, tmpl, evt, grants, func(vm *scriptvm.VM) (goja.Value, error) {
		return vm.RequireTemplate(tmpl.Name)
	})
}

// spawn schedules one invocation of a template (or ad-hoc script) against
// id's VM. load resolves the entry point's exports once the VM and its
// capability proxies are ready — RequireTemplate for a registered
// template, RunAdHoc for RunScript's bypass path.
func (d *Dispatcher) spawn(ctx context.Context, id tenant.ID, tmpl template.Template, evt *event.Envelope, grants capability.Set, load func(*scriptvm.VM) (goja.Value, error)) (<-chan scheduler.Result, error) {
	vm, err := d.manager.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if broken, cause := vm.Broken(); broken {
		return nil, fmt.Errorf("%w: %v", rterr.ErrVMBroken, cause)
	}

	adapter, err := d.sched.Adapt(vm)
	if err != nil {
		return nil, err
	}

	invocation := NewInvocationContextWithGrants(id, tmpl, evt, grants, d.limiter, d.proxies)
	deadline := time.Now().Add(d.ExecutionTimeout)

	return d.sched.Spawn(vm, deadline, func(vm *scriptvm.VM, done func(any, error)) {
		eventProxy, contextProxy, err := invocation.BuildProxies(ctx, vm, d.sched, adapter.NewPromise)
		if err != nil {
			done(nil, err)
			return
		}

		exports, err := load(vm)
		if err != nil {
			done(nil, err)
			return
		}

		handler, ok := resolveHandler(vm.Runtime(), exports)
		if !ok {
			done(nil, fmt.Errorf("dispatch: template %s does not export a callable entry point", tmpl.Name))
			return
		}

		ret, err := handler(goja.Undefined(), eventProxy, contextProxy)
		if err != nil {
			done(nil, err)
			return
		}

		if promise, ok := asChainedPromise(ret); ok {
			promise.Then(
				func(v eventloop.Result) eventloop.Result { done(v, nil); return v },
				func(v eventloop.Result) eventloop.Result {
					done(nil, scriptErrorFromRejection(v))
					return v
				},
			)
			return
		}
		done(collectReturn(ret), nil)
	})
}

// asChainedPromise recognises a value returned by gojaeventloop.Adapter's
// Promise implementation: an object carrying an internal ChainedPromise.
// A template's entry point may return one when it awaits capability calls
// before replying.
func asChainedPromise(v goja.Value) (*eventloop.ChainedPromise, bool) {
	obj, ok := v.(*goja.Object)
	if !ok {
		return nil, false
	}
	p, ok := obj.Get("_internalPromise").Export().(*eventloop.ChainedPromise)
	return p, ok
}

func scriptErrorFromRejection(reason any) error {
	if err, ok := reason.(error); ok {
		return err
	}
	return fmt.Errorf("%s", reason)
}

// resolveHandler finds the callable a template exports, accepting either a
// bare function export (module.exports = function(...){}) or an object with
// a "default", "handler" or "onEvent" property (checked in that order).
func resolveHandler(runtime *goja.Runtime, exports goja.Value) (goja.Callable, bool) {
	if fn, ok := goja.AssertFunction(exports); ok {
		return fn, true
	}
	obj := exports.ToObject(runtime)
	if obj == nil {
		return nil, false
	}
	for _, name := range []string{"default", "handler", "onEvent"} {
		if fn, ok := goja.AssertFunction(obj.Get(name)); ok {
			return fn, true
		}
	}
	return nil, false
}

// collectReturn serialises a script's return value back to a host-native
// value, per spec.md §4.5: "if the script returns multiple values, they are
// collected as an array" — goja functions return a single Value, so a
// script wanting multiple values returns them as an array itself; this just
// exports whatever came back.
func collectReturn(v goja.Value) any {
	if v == nil {
		return nil
	}
	return v.Export()
}

func toOutcome(r scheduler.Result) event.Outcome {
	if r.Err == nil {
		return event.Outcome{Kind: event.Ok, Value: r.Value}
	}
	switch {
	case errors.Is(r.Err, rterr.ErrVMBroken), errors.Is(r.Err, rterr.ErrMemoryLimitExceeded):
		return event.Outcome{Kind: event.VmBroken, Message: r.Err.Error()}
	case errors.Is(r.Err, capability.ErrDenied):
		return event.Outcome{Kind: event.CapabilityDenied, Message: r.Err.Error()}
	case errors.Is(r.Err, capability.ErrRateLimited):
		return event.Outcome{Kind: event.RateLimited, Message: r.Err.Error()}
	case errors.Is(r.Err, rterr.ErrExecutionTimeout):
		return event.Outcome{Kind: event.Timeout, Message: r.Err.Error()}
	default:
		return event.Outcome{Kind: event.ScriptError, Message: r.Err.Error()}
	}
}

func immediateResult(r scheduler.Result) <-chan scheduler.Result {
	ch := make(chan scheduler.Result, 1)
	ch <- r
	return ch
}
