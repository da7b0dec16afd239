package template

import (
	"context"
	"sync"

	"github.com/scriptcore/runtime/tenant"
)

// Store is the subset of store.TemplateStore the registry depends on,
// declared locally to avoid an import cycle (store imports template for its
// own interface shapes).
type Store interface {
	ListTemplates(ctx context.Context, id tenant.ID) ([]Template, error)
}

// Registry is a read-through, write-invalidated cache in front of the
// external template store: tenant → ordered template set. It is the sole
// owner of the "use built-ins when a tenant has none" decision (spec.md
// §4.5 step 1 / the original's src/worker/builtins.rs).
type Registry struct {
	mu       sync.RWMutex
	store    Store
	sets     map[tenant.ID]*Set
	builtins *Set

	// enableBuiltins mirrors the "enable_builtins" configuration flag.
	enableBuiltins bool
}

// NewRegistry constructs a Registry backed by store, with an optional
// built-in template set used when a tenant has no user templates and
// enableBuiltins is true.
func NewRegistry(store Store, builtins []Template, enableBuiltins bool) *Registry {
	return &Registry{
		store:          store,
		sets:           make(map[tenant.ID]*Set),
		builtins:       NewSet(builtins),
		enableBuiltins: enableBuiltins,
	}
}

// Get returns the tenant's cached template set, or (nil, false) if nothing
// has been loaded for it yet.
func (r *Registry) Get(id tenant.ID) (*Set, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sets[id]
	return s, ok
}

// Load performs the lazy fetch described in spec.md §4.5 step 1: look up the
// cached set; if absent, fetch once from the store; if the store has
// nothing and built-ins are enabled, use the built-in set; otherwise return
// an empty set.
func (r *Registry) Load(ctx context.Context, id tenant.ID) (*Set, error) {
	if s, ok := r.Get(id); ok {
		return s, nil
	}

	templates, err := r.store.ListTemplates(ctx, id)
	if err != nil {
		return nil, err
	}

	var set *Set
	switch {
	case len(templates) > 0:
		set = NewSet(templates)
	case r.enableBuiltins:
		set = r.builtins
	default:
		set = NewSet(nil)
	}

	r.mu.Lock()
	r.sets[id] = set
	r.mu.Unlock()

	return set, nil
}

// Invalidate drops the cached template set for a tenant; the next Load call
// re-fetches from the store. Called when the store emits a change
// notification for that tenant.
func (r *Registry) Invalidate(id tenant.ID) {
	r.mu.Lock()
	delete(r.sets, id)
	r.mu.Unlock()
}

// Put installs a template set directly, bypassing the store. Used by tests;
// the change-notification pump invalidates (via Pool.DropTenant) rather
// than calling Put.
func (r *Registry) Put(id tenant.ID, set *Set) {
	r.mu.Lock()
	r.sets[id] = set
	r.mu.Unlock()
}
