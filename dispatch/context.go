// Package dispatch implements the event dispatcher (spec.md §4.5, component
// C5): resolving (tenant, event) to interested templates, materialising a
// per-invocation capability context, running each template via the
// scheduler, and aggregating results.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/scriptcore/runtime/capability"
	"github.com/scriptcore/runtime/event"
	"github.com/scriptcore/runtime/scheduler"
	"github.com/scriptcore/runtime/scriptvm"
	"github.com/scriptcore/runtime/store"
	"github.com/scriptcore/runtime/template"
	"github.com/scriptcore/runtime/tenant"
)

// Proxies aggregates the host collaborators a capability proxy may call
// into. Any field may be nil; a call that passes the grant and rate-limit
// gate for a domain whose collaborator is nil is rejected with a plain
// "no ... host configured" error, which classifies as a ScriptError
// outcome rather than capability.ErrDenied.
type Proxies struct {
	KV    store.KVStore
	Chat  store.ChatHost
	Clock store.Clock
}

// InvocationContext is the per-dispatch, per-template object exposed to
// script code: tenant id, template metadata, the event being handled, and
// capability proxies gated by grant and rate limit. It lives only for the
// duration of one script invocation and must not be retained by the script
// past that.
type InvocationContext struct {
	Tenant   tenant.ID
	Template template.Template
	Event    *event.Envelope

	grants  capability.Set
	limiter *capability.Limiter
	proxies Proxies
}

// NewInvocationContext builds a context for one (tenant, template, event)
// invocation, deriving the grant set from the template's declared
// capability_grants.
func NewInvocationContext(id tenant.ID, tmpl template.Template, evt *event.Envelope, limiter *capability.Limiter, proxies Proxies) *InvocationContext {
	return NewInvocationContextWithGrants(id, tmpl, evt, capability.NewSet(tmpl.CapabilityGrants), limiter, proxies)
}

// NewInvocationContextWithGrants builds a context using an explicit grant
// set instead of the template's own declaration, for callers (RunScript)
// that bypass the template registry and its grant list entirely.
func NewInvocationContextWithGrants(id tenant.ID, tmpl template.Template, evt *event.Envelope, grants capability.Set, limiter *capability.Limiter, proxies Proxies) *InvocationContext {
	return &InvocationContext{
		Tenant:   id,
		Template: tmpl,
		Event:    evt,
		grants:   grants,
		limiter:  limiter,
		proxies:  proxies,
	}
}

// gate performs the grant-then-rate-limit check spec.md §4.7 requires
// before any capability call proceeds.
func (c *InvocationContext) gate(domain capability.Domain, action string) error {
	return capability.Gate(c.grants, c.limiter, c.Tenant.String(), domain, action)
}

// newPromiseFunc constructs a promise bound to the invoking VM's runtime
// and loop; see gojaeventloop.Adapter.NewPromise.
type newPromiseFunc func() (resolve func(any), reject func(any), value goja.Value)

// BuildProxies materialises the event_proxy and context_proxy values passed
// to a template's entry point, per spec.md §4.5 step 3(d). Capability
// namespace methods on context_proxy (kv, chat) are async: each returns a
// Promise that host I/O settles from a background goroutine, landing back
// on the owning loop via newPromise.
func (c *InvocationContext) BuildProxies(ctx context.Context, vm *scriptvm.VM, sched *scheduler.Scheduler, newPromise newPromiseFunc) (eventProxy, contextProxy goja.Value, err error) {
	runtime := vm.Runtime()
	scriptForm, err := c.Event.ScriptForm()
	if err != nil {
		return nil, nil, fmt.Errorf("dispatch: decode event payload: %w", err)
	}
	eventObj := runtime.NewObject()
	_ = eventObj.Set("title", c.Event.Title)
	_ = eventObj.Set("base_name", c.Event.BaseName)
	_ = eventObj.Set("name", c.Event.Name)
	_ = eventObj.Set("uid", c.Event.UID)
	_ = eventObj.Set("author", c.Event.Author)
	_ = eventObj.Set("data", scriptForm)

	contextObj := runtime.NewObject()
	_ = contextObj.Set("tenant", uint64(c.Tenant))
	_ = contextObj.Set("template", c.Template.Name)
	_ = contextObj.Set("kv", c.buildKV(ctx, runtime, newPromise))
	_ = contextObj.Set("chat", c.buildChat(ctx, runtime, newPromise))
	_ = contextObj.Set("time", c.buildTime(vm, sched, runtime, newPromise))

	return eventObj, contextObj, nil
}

func (c *InvocationContext) buildTime(vm *scriptvm.VM, sched *scheduler.Scheduler, runtime *goja.Runtime, newPromise newPromiseFunc) *goja.Object {
	obj := runtime.NewObject()

	_ = obj.Set("sleep", func(call goja.FunctionCall) goja.Value {
		resolve, reject, value := newPromise()
		if err := c.gate(capability.DomainTime, "sleep"); err != nil {
			reject(err)
			return value
		}
		ms := call.Argument(0).ToInteger()
		duration := time.Duration(ms) * time.Millisecond
		doneCh, err := sched.Sleep(vm.LastExecutionTime(), duration)
		if err != nil {
			reject(err)
			return value
		}
		go func() {
			<-doneCh
			resolve(nil)
		}()
		return value
	})

	return obj
}

func (c *InvocationContext) buildKV(ctx context.Context, runtime *goja.Runtime, newPromise newPromiseFunc) *goja.Object {
	obj := runtime.NewObject()

	_ = obj.Set("get", func(call goja.FunctionCall) goja.Value {
		resolve, reject, value := newPromise()
		if err := c.gate(capability.DomainKV, "get"); err != nil {
			reject(err)
			return value
		}
		scope := exportScope(call.Argument(0))
		key := call.Argument(1).String()
		go func() {
			if c.proxies.KV == nil {
				reject("dispatch: no kv host configured")
				return
			}
			v, ok, err := c.proxies.KV.Get(ctx, c.Tenant, scope, key)
			if err != nil {
				reject(err)
				return
			}
			if !ok {
				resolve(nil)
				return
			}
			resolve(string(v))
		}()
		return value
	})

	_ = obj.Set("set", func(call goja.FunctionCall) goja.Value {
		resolve, reject, value := newPromise()
		if err := c.gate(capability.DomainKV, "set"); err != nil {
			reject(err)
			return value
		}
		scope := exportScope(call.Argument(0))
		key := call.Argument(1).String()
		val := call.Argument(2).String()
		go func() {
			if c.proxies.KV == nil {
				reject("dispatch: no kv host configured")
				return
			}
			if err := c.proxies.KV.Set(ctx, c.Tenant, scope, key, []byte(val)); err != nil {
				reject(err)
				return
			}
			resolve(nil)
		}()
		return value
	})

	_ = obj.Set("delete", func(call goja.FunctionCall) goja.Value {
		resolve, reject, value := newPromise()
		if err := c.gate(capability.DomainKV, "delete"); err != nil {
			reject(err)
			return value
		}
		scope := exportScope(call.Argument(0))
		key := call.Argument(1).String()
		go func() {
			if c.proxies.KV == nil {
				reject("dispatch: no kv host configured")
				return
			}
			if err := c.proxies.KV.Delete(ctx, c.Tenant, scope, key); err != nil {
				reject(err)
				return
			}
			resolve(nil)
		}()
		return value
	})

	return obj
}

func (c *InvocationContext) buildChat(ctx context.Context, runtime *goja.Runtime, newPromise newPromiseFunc) *goja.Object {
	obj := runtime.NewObject()

	_ = obj.Set("send", func(call goja.FunctionCall) goja.Value {
		resolve, reject, value := newPromise()
		if err := c.gate(capability.DomainMessage, "send"); err != nil {
			reject(err)
			return value
		}
		payload := []byte(call.Argument(0).String())
		go func() {
			if c.proxies.Chat == nil {
				reject("dispatch: no chat host configured")
				return
			}
			if err := c.proxies.Chat.SendMessage(ctx, c.Tenant, payload); err != nil {
				reject(err)
				return
			}
			resolve(nil)
		}()
		return value
	})

	return obj
}

func exportScope(v goja.Value) []string {
	exported, ok := v.Export().([]any)
	if !ok {
		return nil
	}
	scope := make([]string, 0, len(exported))
	for _, e := range exported {
		if s, ok := e.(string); ok {
			scope = append(scope, s)
		}
	}
	return scope
}
