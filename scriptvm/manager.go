package scriptvm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/scriptcore/runtime/bytecode"
	"github.com/scriptcore/runtime/rterr"
	"github.com/scriptcore/runtime/template"
	"github.com/scriptcore/runtime/tenant"
)

// DefaultMemoryLimitBytes is the per-VM ceiling applied when a tenant has no
// explicit override, per spec.md §4.3.
const DefaultMemoryLimitBytes = 3 * 1024 * 1024

// ModuleSources supplies the process-wide built-in module sources and
// native built-in functions every VM sees regardless of tenant or
// template — these never vary per tenant, unlike template content, so they
// sit beside template.Registry rather than inside it.
type ModuleSources interface {
	BuiltinSources() map[string]string
	Builtins() map[string]BuiltinFunc
}

// Manager owns one VM per tenant within a single worker, lazily
// materialising, reusing, and invalidating them (spec.md §4.3, component
// C3). A tenant's VM is built from every template in its registry set, each
// mounted under its own namespace (see TemplateNamespace) so templates
// sharing a VM never collide on an entry-point module name. Every method
// takes the Manager's own lock, so it may be called from any goroutine; the
// worker calls it from its dispatch goroutines and from DropTenant's caller.
type Manager struct {
	cache    *bytecode.Cache
	registry *template.Registry
	sources  ModuleSources

	mu          sync.RWMutex
	vms         map[tenant.ID]*VM
	memLimits   map[tenant.ID]int64
	defaultSize int
}

// NewManager builds a Manager sharing the given process-wide bytecode
// cache, sourcing each tenant's template content from registry.
func NewManager(cache *bytecode.Cache, registry *template.Registry, sources ModuleSources) *Manager {
	return &Manager{
		cache:       cache,
		registry:    registry,
		sources:     sources,
		vms:         make(map[tenant.ID]*VM),
		memLimits:   make(map[tenant.ID]int64),
		defaultSize: DefaultMemoryLimitBytes,
	}
}

// GetOrCreate returns the tenant's existing healthy VM, or constructs one
// from its current template set. A VM previously marked broken is
// discarded and rebuilt transparently.
func (m *Manager) GetOrCreate(ctx context.Context, id tenant.ID) (*VM, error) {
	m.mu.RLock()
	vm, ok := m.vms[id]
	m.mu.RUnlock()
	if ok {
		if broken, _ := vm.Broken(); !broken {
			return vm, nil
		}
		m.Invalidate(id)
	}

	set, err := m.registry.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", rterr.ErrStoreFailure, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if vm, ok := m.vms[id]; ok {
		if broken, _ := vm.Broken(); !broken {
			return vm, nil
		}
	}

	limit := m.memLimits[id]
	if limit <= 0 {
		limit = int64(m.defaultSize)
	}

	vm, err = New(id, Options{
		Cache:            m.cache,
		TemplateContent:  namespacedContent(set),
		BuiltinSources:   m.sources.BuiltinSources(),
		Builtins:         m.sources.Builtins(),
		MemoryLimitBytes: limit,
	})
	if err != nil {
		return nil, fmt.Errorf("scriptvm: construct vm for tenant %s: %w", id, err)
	}
	m.vms[id] = vm
	return vm, nil
}

// namespacedContent flattens every template in set into one VFS content map,
// each template's files mounted under its own TemplateNamespace prefix so
// distinct templates never collide on a shared path like "main".
func namespacedContent(set *template.Set) map[string]string {
	combined := make(map[string]string)
	for _, t := range set.All() {
		prefix := TemplateNamespace(t.Name)
		for path, src := range t.Content {
			combined[prefix+path] = src
		}
	}
	return combined
}

// Invalidate marks the tenant's VM broken (if present) and removes it; the
// next GetOrCreate rebuilds from scratch. Called on memory error, panic,
// explicit stop, or a template update for the tenant.
func (m *Manager) Invalidate(id tenant.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if vm, ok := m.vms[id]; ok {
		vm.MarkBroken(nil)
		delete(m.vms, id)
	}
}

// UsedMemory reports the tenant's current VM allocator usage. It returns
// zero with no error if the tenant has no live VM.
func (m *Manager) UsedMemory(id tenant.ID) (int64, error) {
	m.mu.RLock()
	vm, ok := m.vms[id]
	m.mu.RUnlock()
	if !ok {
		return 0, nil
	}
	vm.Lock()
	defer vm.Unlock()
	return vm.UsedMemory(), nil
}

// SetMemoryLimit adjusts the tenant's cap, returning the prior value. The
// new limit applies immediately if a VM is live, and is remembered for the
// next construction otherwise.
func (m *Manager) SetMemoryLimit(id tenant.ID, bytes int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prior := m.memLimits[id]
	if prior <= 0 {
		prior = int64(m.defaultSize)
	}
	m.memLimits[id] = bytes

	if vm, ok := m.vms[id]; ok {
		vm.Lock()
		defer vm.Unlock()
		if err := vm.SetMemoryLimit(bytes); err != nil {
			return prior, err
		}
	}
	return prior, nil
}

// LastExecutionTime reports the tenant's most recent task boundary instant,
// or the zero time if the tenant has no live VM.
func (m *Manager) LastExecutionTime(id tenant.ID) time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vm, ok := m.vms[id]
	if !ok {
		return time.Time{}
	}
	return vm.LastExecutionTime()
}

// InFlight reports whether the tenant's live VM currently has one or more
// tasks scheduled against it. A tenant with no live VM is never in flight.
// Used by the worker's idle-reclaim scan to populate
// governor.IdleCandidate.InFlight, per spec.md §4.8's "no in-flight task"
// eviction safety invariant.
func (m *Manager) InFlight(id tenant.ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vm, ok := m.vms[id]
	if !ok {
		return false
	}
	return vm.InFlight()
}

// Tenants returns the ids of every tenant with a live VM, for the resource
// governor's liveness scans.
func (m *Manager) Tenants() []tenant.ID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]tenant.ID, 0, len(m.vms))
	for id := range m.vms {
		out = append(out, id)
	}
	return out
}
