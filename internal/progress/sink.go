package progress

import "context"

// Sink receives batches of events drained from the Hub. Implementations must
// tolerate repeated Close calls and should respect ctx deadlines, since the
// Hub applies a per-sink timeout while flushing.
type Sink interface {
	// Consume processes a batch of events. The batch is ordered by arrival
	// and is never empty. Returning an error only logs a warning; the Hub
	// does not retry.
	Consume(ctx context.Context, batch []Event) error

	// Close releases any resources held by the sink.
	Close(ctx context.Context) error
}

// Emitter is the producer side of the Hub, exposed so pipeline workers can
// publish status transitions without depending on the full Hub type.
type Emitter interface {
	Emit(evt Event)
}
