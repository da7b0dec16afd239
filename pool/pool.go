// Package pool implements the worker pool (spec.md §4.1, component C7): a
// fixed vector of worker threads, a deterministic tenant→worker routing
// function, and the external dispatch surface every caller outside the
// runtime core actually sees.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/scriptcore/runtime/event"
	"github.com/scriptcore/runtime/template"
	"github.com/scriptcore/runtime/tenant"
	"github.com/scriptcore/runtime/worker"
)

// ShardFunc maps a tenant to a worker index in [0, n). The default,
// tenant.ID.ShardIndex, matches the Discord-style sharding rule spec.md
// §4.1 names as a reference but does not mandate; callers needing a
// different distribution may supply their own.
type ShardFunc func(id tenant.ID, n int) int

// DefaultShardFunc routes by the tenant id's upper bits modulo worker count.
func DefaultShardFunc(id tenant.ID, n int) int {
	return id.ShardIndex(n)
}

// Pool routes tenant work to a fixed-size vector of workers, keeping the
// tenant→worker mapping stable across the process lifetime: once
// constructed, the worker count never changes, so a tenant's shard index is
// an invariant for the life of the pool.
type Pool struct {
	workers []*worker.Worker
	shardFn ShardFunc

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New builds a Pool over workers, the shard's fully-wired Worker instances
// constructed by the caller (each with its own Scheduler/Manager/Dispatcher,
// per worker.New; core.New gives them all one shared Registry). shardFn may
// be nil, in which case
// DefaultShardFunc is used.
func New(workers []*worker.Worker, shardFn ShardFunc) (*Pool, error) {
	if len(workers) == 0 {
		return nil, fmt.Errorf("pool: at least one worker required")
	}
	if shardFn == nil {
		shardFn = DefaultShardFunc
	}
	return &Pool{workers: workers, shardFn: shardFn}, nil
}

// Start launches every worker's event loop on its own goroutine (each pins
// itself to an OS thread on entry, per worker.Worker.Run). It returns as
// soon as the goroutines are launched, without waiting for any worker to
// reach Running, and returns an error only if the pool was already started.
// Kill stops the whole pool.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return fmt.Errorf("pool: already started")
	}
	p.started = true

	p.cancels = make([]context.CancelFunc, len(p.workers))
	for i, w := range p.workers {
		wctx, cancel := context.WithCancel(ctx)
		p.cancels[i] = cancel
		p.wg.Add(1)
		go func(w *worker.Worker, wctx context.Context) {
			defer p.wg.Done()
			_ = w.Run(wctx)
		}(w, wctx)
	}
	return nil
}

// Len reports the fixed worker count, per spec.md §4.1's len() → int.
func (p *Pool) Len() int {
	return len(p.workers)
}

func (p *Pool) workerFor(id tenant.ID) *worker.Worker {
	return p.workers[p.shardFn(id, len(p.workers))]
}

// Dispatch routes an unscoped event to id's owning worker.
func (p *Pool) Dispatch(ctx context.Context, id tenant.ID, evt *event.Envelope) (<-chan event.MultiResult, error) {
	ch, err := p.workerFor(id).Dispatch(ctx, id, evt)
	if err != nil {
		return nil, err
	}
	return collapseDispatch(ch), nil
}

// DispatchScoped routes a scoped event to id's owning worker.
func (p *Pool) DispatchScoped(ctx context.Context, id tenant.ID, evt *event.Envelope, scopes []template.Scope) (<-chan event.MultiResult, error) {
	ch, err := p.workerFor(id).DispatchScoped(ctx, id, evt, scopes)
	if err != nil {
		return nil, err
	}
	return collapseDispatch(ch), nil
}

// RunScript compiles and runs an ad-hoc script on id's owning worker,
// bypassing the template registry (internal tooling), per spec.md §4.1.
func (p *Pool) RunScript(ctx context.Context, id tenant.ID, name, code string, evt *event.Envelope) (<-chan event.Outcome, error) {
	ch, err := p.workerFor(id).RunScript(ctx, id, name, code, evt)
	if err != nil {
		return nil, err
	}
	out := make(chan event.Outcome, 1)
	go func() {
		r := <-ch
		if r.Err != nil {
			out <- event.Outcome{Kind: event.ScriptError, Message: r.Err.Error()}
			return
		}
		out <- r.Outcome
	}()
	return out, nil
}

// DropTenant evicts the tenant's VM and cached template set on its owning
// worker; the next dispatch reconstructs both from scratch.
func (p *Pool) DropTenant(id tenant.ID) <-chan struct{} {
	return p.workerFor(id).DropTenant(id)
}

// WorkerMetrics pairs a worker's index with its point-in-time snapshot.
type WorkerMetrics struct {
	Index   int
	Metrics worker.Metrics
}

// MetricsAll gathers every worker's current snapshot, one request per
// worker, all concurrently.
func (p *Pool) MetricsAll() <-chan []WorkerMetrics {
	out := make(chan []WorkerMetrics, 1)
	go func() {
		results := make([]WorkerMetrics, len(p.workers))
		var wg sync.WaitGroup
		for i, w := range p.workers {
			wg.Add(1)
			go func(i int, w *worker.Worker) {
				defer wg.Done()
				results[i] = WorkerMetrics{Index: i, Metrics: <-w.GetMetrics()}
			}(i, w)
		}
		wg.Wait()
		out <- results
	}()
	return out
}

// ClearInactiveTenants sweeps every worker for idle tenants, per spec.md
// §4.8, returning the union of dropped tenant ids.
func (p *Pool) ClearInactiveTenants() <-chan []tenant.ID {
	out := make(chan []tenant.ID, 1)
	go func() {
		var mu sync.Mutex
		var all []tenant.ID
		var wg sync.WaitGroup
		for _, w := range p.workers {
			wg.Add(1)
			go func(w *worker.Worker) {
				defer wg.Done()
				dropped := <-w.ClearInactiveTenants()
				mu.Lock()
				all = append(all, dropped...)
				mu.Unlock()
			}(w)
		}
		wg.Wait()
		out <- all
	}()
	return out
}

// Kill terminates every worker, subject to each worker's own DrainTimeout,
// and cancels every Start-launched context. After the returned channel
// closes, every subsequent Dispatch/DispatchScoped/RunScript call fails
// with rterr.ErrWorkerGone.
func (p *Pool) Kill() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for _, w := range p.workers {
			wg.Add(1)
			go func(w *worker.Worker) {
				defer wg.Done()
				w.Kill()
			}(w)
		}
		wg.Wait()

		p.mu.Lock()
		for _, cancel := range p.cancels {
			if cancel != nil {
				cancel()
			}
		}
		p.mu.Unlock()

		p.wg.Wait()
		close(done)
	}()
	return done
}

// collapseDispatch adapts worker.DispatchResult's (outcomes, err) pair to a
// single event.MultiResult channel. A whole-request failure — the template
// store was unreachable, or the worker went away before it could even spawn
// anything — has no per-template identity to attach to, so it is surfaced
// as a single synthetic outcome carrying the original error's message,
// since pool.Dispatch's contract promises only a multi_result future, not a
// side-channel error.
func collapseDispatch(ch <-chan worker.DispatchResult) <-chan event.MultiResult {
	out := make(chan event.MultiResult, 1)
	go func() {
		r := <-ch
		if r.Err != nil {
			out <- event.MultiResult{{
				Template: "",
				Outcome:  event.Outcome{Kind: event.ScriptError, Message: r.Err.Error()},
			}}
			return
		}
		out <- r.Outcomes
	}()
	return out
}
