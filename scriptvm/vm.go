// Package scriptvm implements the per-tenant sandboxed script VM (spec.md
// §4.3, component C3): one goja.Runtime per tenant per worker, a layered
// module filesystem, and the manager that owns VM lifecycle and memory
// ceilings.
package scriptvm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"

	"github.com/scriptcore/runtime/bytecode"
	"github.com/scriptcore/runtime/rterr"
	"github.com/scriptcore/runtime/tenant"
)

// DefaultMaxCallStackSize bounds recursion depth so a runaway script
// overflows a goja error instead of the host's real stack.
const DefaultMaxCallStackSize = 512

// BuiltinFunc constructs a built-in module's exports value fresh for each
// requiring VM, since goja.Value is bound to one Runtime.
type BuiltinFunc func(*goja.Runtime) goja.Value

// VM wraps one goja.Runtime dedicated to a single tenant on a single worker
// thread. It is not safe for concurrent use: the scheduler serialises all
// access through the owning worker's event loop.
type VM struct {
	Tenant tenant.ID

	runtime *goja.Runtime
	vfs     *VFS
	cache   *bytecode.Cache
	modules *moduleRegistry

	broken            atomic.Bool
	brokenCause       atomic.Value // error
	lastExecutionTime atomic.Int64 // UnixNano instant of last task boundary
	memoryLimit       atomic.Int64 // bytes; 0 means unset
	inFlight          atomic.Int64 // count of tasks currently scheduled against this VM

	mu sync.Mutex
}

// Options configures a new VM. Builtins and Patches may be nil.
type Options struct {
	Cache            *bytecode.Cache
	TemplateContent  map[string]string
	BuiltinSources   map[string]string
	PatchSources     map[string]string
	Builtins         map[string]BuiltinFunc
	MaxCallStackSize int
	MemoryLimitBytes int64
}

// New constructs a VM for the given tenant. The returned Runtime has its
// require() global wired to the layered VFS and shares opts.Cache with
// every other VM in the process, so templates with identical content never
// recompile.
func New(id tenant.ID, opts Options) (*VM, error) {
	runtime := goja.New()

	maxStack := opts.MaxCallStackSize
	if maxStack <= 0 {
		maxStack = DefaultMaxCallStackSize
	}
	runtime.SetMaxCallStackSize(maxStack)

	vm := &VM{
		Tenant:  id,
		runtime: runtime,
		vfs:     NewVFS(opts.TemplateContent, opts.BuiltinSources, opts.PatchSources),
		cache:   opts.Cache,
	}
	vm.Touch(time.Now())

	goValueBuiltins := make(map[string]func(*goja.Runtime) goja.Value, len(opts.Builtins))
	for name, fn := range opts.Builtins {
		goValueBuiltins[name] = fn
	}
	vm.modules = newModuleRegistry(vm, goValueBuiltins)

	if err := runtime.Set("require", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		exports, err := vm.modules.require(name)
		if err != nil {
			panic(runtime.NewGoError(err))
		}
		return exports
	}); err != nil {
		return nil, fmt.Errorf("scriptvm: bind require: %w", err)
	}

	if opts.MemoryLimitBytes > 0 {
		if err := vm.SetMemoryLimit(opts.MemoryLimitBytes); err != nil {
			return nil, err
		}
	}

	return vm, nil
}

// Runtime returns the underlying goja.Runtime for the scheduler to drive.
func (v *VM) Runtime() *goja.Runtime {
	return v.runtime
}

// RequireTemplate loads and returns templateName's entry-point module, by
// convention named "main" within that template's own namespaced content
// (see TemplateNamespace). Distinct templates sharing a VM each get their
// own "main", since a tenant's VFS mounts every one of its templates under
// a separate prefix rather than a single flat module space.
func (v *VM) RequireTemplate(templateName string) (goja.Value, error) {
	return v.modules.require(TemplateNamespace(templateName) + "main")
}

// RunAdHoc compiles and executes src directly as a module, without it ever
// needing to be present in the VFS. path only identifies this run for the
// bytecode cache and for require() resolution of any relative imports src
// itself makes; unlike RequireTemplate, each call re-executes src fresh
// rather than memoising it, matching run-once ad-hoc script semantics.
func (v *VM) RunAdHoc(path, src string) (goja.Value, error) {
	return v.modules.runAdHoc(path, src)
}

// Broken reports whether the VM has been permanently disabled, and why.
func (v *VM) Broken() (bool, error) {
	if !v.broken.Load() {
		return false, nil
	}
	cause, _ := v.brokenCause.Load().(error)
	return true, cause
}

// MarkBroken disables the VM irrecoverably; every subsequent dispatch to it
// fails fast with rterr.ErrVMBroken until the manager invalidates and
// recreates it. Matches spec.md §4.9: a panic or memory-limit breach breaks
// only this VM, never the worker thread that hosts it.
func (v *VM) MarkBroken(cause error) {
	if cause == nil {
		cause = rterr.ErrVMBroken
	}
	v.brokenCause.Store(cause)
	v.broken.Store(true)
}

// LastExecutionTime reports the monotonic instant of the VM's last task
// boundary, per spec.md §3's VM Handle data model. The resource governor
// compares this against now to decide idle eviction and sleep ceilings.
func (v *VM) LastExecutionTime() time.Time {
	return time.Unix(0, v.lastExecutionTime.Load())
}

// Touch records now as the VM's most recent task boundary. Called when the
// VM is constructed and by the scheduler when each task finishes, per spec.md §4.3
// ("record last_execution_time = now").
func (v *VM) Touch(now time.Time) {
	v.lastExecutionTime.Store(now.UnixNano())
}

// BeginTask records that one task has been handed to this VM. Paired with
// EndTask around every scheduler.Spawn invocation, it backs InFlight so the
// governor never evicts a VM with work still in its queue (spec.md §4.8).
func (v *VM) BeginTask() {
	v.inFlight.Add(1)
}

// EndTask reverses a prior BeginTask once the task's done callback fires,
// whether it succeeded, failed, or the VM was marked broken mid-task.
func (v *VM) EndTask() {
	v.inFlight.Add(-1)
}

// InFlight reports whether this VM currently has one or more tasks
// scheduled against it, for governor.IdleCandidate.InFlight.
func (v *VM) InFlight() bool {
	return v.inFlight.Load() > 0
}

// MemoryLimit returns the currently configured ceiling in bytes, or 0 if
// unset.
func (v *VM) MemoryLimit() int64 {
	return v.memoryLimit.Load()
}

// SetMemoryLimit installs a new ceiling, returning an error if bytes is not
// positive or the runtime rejects it. It does not return the prior value;
// Manager.SetMemoryLimit, which backs spec.md §4.3's
// set_memory_limit(tenant, bytes) -> prior_bytes operation, does.
func (v *VM) SetMemoryLimit(bytes int64) error {
	if bytes <= 0 {
		return fmt.Errorf("scriptvm: memory limit must be positive, got %d", bytes)
	}
	if err := v.runtime.SetMemoryLimit(bytes); err != nil {
		return fmt.Errorf("scriptvm: set memory limit: %w", err)
	}
	v.memoryLimit.Store(bytes)
	return nil
}

// UsedMemory reports the runtime's current heap estimate, per spec.md
// §4.3's used_memory(tenant) -> bytes operation.
func (v *VM) UsedMemory() int64 {
	return v.runtime.MemoryUsage()
}

// Interrupt asynchronously aborts whatever script call is currently
// executing on this VM's Runtime, surfacing reason as the interrupt value. Safe
// to call from any goroutine; this is the mechanism the scheduler uses to
// enforce per-invocation execution deadlines.
func (v *VM) Interrupt(reason any) {
	v.runtime.Interrupt(reason)
}

// ClearInterrupt resets interrupt state before reusing the VM for the next
// task.
func (v *VM) ClearInterrupt() {
	v.runtime.ClearInterrupt()
}

// Lock and Unlock serialise the Manager's cross-goroutine calls into the
// Runtime (UsedMemory, SetMemoryLimit) with one another. Script execution on
// the event loop does not take this lock, so it does not serialise those
// calls against a running task.
func (v *VM) Lock()   { v.mu.Lock() }
func (v *VM) Unlock() { v.mu.Unlock() }
