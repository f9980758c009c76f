package engine

import (
	"context"
	"time"
)

// Strategy attempts delivery of exactly one URL. The boolean is the attempt
// outcome; the error is diagnostic only and never aborts a run.
type Strategy interface {
	Deliver(ctx context.Context, att Attempt) (bool, error)
}

// Disposer releases externally owned resources (browser targets) that a
// strategy is tracking. Called on Stop and before starting a new run.
type Disposer interface {
	CloseAll()
}

// ResultStore persists task outcomes and run summaries.
type ResultStore interface {
	RecordOutcome(ctx context.Context, rec OutcomeRecord) error
	RecordRun(ctx context.Context, rec RunRecord) error
}

// Publisher pushes run completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
