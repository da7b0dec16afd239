// Package telemetry adapts a host-provided store.Telemetry sink into a
// batching one, coalescing bursts of dispatch/governor events (e.g. every
// template outcome in a single Dispatch call) into small groups before
// handing them to the collaborator, the way a real telemetry backend would
// want them delivered.
package telemetry

import (
	"context"

	"github.com/scriptcore/runtime/microbatch"
	"github.com/scriptcore/runtime/store"
)

// event is one pending store.Telemetry.Event call.
type event struct {
	ctx    context.Context
	name   string
	fields map[string]any
}

// BatchingTelemetry wraps a sink so bursts of Event calls are grouped into
// microbatch.Batcher batches before being flushed, rather than making one
// round trip to the collaborator per event.
type BatchingTelemetry struct {
	sink    store.Telemetry
	batcher *microbatch.Batcher[event]
}

// NewBatching builds a BatchingTelemetry over sink. config is passed through
// to microbatch.NewBatcher and may be nil for its documented defaults (batch
// up to 16 events, or flush every 50ms, whichever comes first).
func NewBatching(sink store.Telemetry, config *microbatch.BatcherConfig) *BatchingTelemetry {
	b := &BatchingTelemetry{sink: sink}
	b.batcher = microbatch.NewBatcher(config, b.flush)
	return b
}

func (b *BatchingTelemetry) flush(_ context.Context, jobs []event) error {
	for _, e := range jobs {
		b.sink.Event(e.ctx, e.name, e.fields)
	}
	return nil
}

// Event implements store.Telemetry, enqueuing the event for the next batch
// flush rather than calling the underlying sink synchronously. Event waits
// until the batcher's run loop accepts the event, so a batcher that is busy
// flushing at its concurrency limit blocks the caller; the event is dropped,
// without an error, only if the batcher is closed or ctx is done first.
func (b *BatchingTelemetry) Event(ctx context.Context, name string, fields map[string]any) {
	_, _ = b.batcher.Submit(ctx, event{ctx: ctx, name: name, fields: fields})
}

// Close stops the batcher, flushing any partial batch first.
func (b *BatchingTelemetry) Close() error {
	return b.batcher.Close()
}

var _ store.Telemetry = (*BatchingTelemetry)(nil)
