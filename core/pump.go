package core

import (
	"context"

	"github.com/scriptcore/runtime/store"
)

// startChangePump subscribes to st.Changes and, for every notification,
// drops the affected tenant's cached template set and live VM on its owning
// shard — Pool.DropTenant already invalidates both the shared
// template.Registry entry and that shard's scriptvm.Manager VM in one call,
// since every worker.New call in New shares the same *template.Registry.
// The next dispatch for that tenant re-fetches from st and rebuilds.
//
// If st does not support change notifications (Changes returns an error),
// the pump is skipped entirely: polling-only stores still work, they just
// rely on Registry's own cache-miss-on-first-load behavior rather than
// proactive invalidation.
func (r *Runtime) startChangePump(ctx context.Context, st store.TemplateStore) error {
	changes, err := st.Changes(ctx)
	if err != nil {
		return nil
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				<-r.Pool.DropTenant(change.Tenant)
			}
		}
	}()
	return nil
}
