package progress

import "context"

// Sink consumes batches of events. Implementations must tolerate
// out-of-order delivery across batches and be safe for reuse after errors.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}
