package sinks

import (
	"context"
	"fmt"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/progress"
)

// StoreSink persists resolved task outcomes through a ResultStore.
type StoreSink struct {
	store engine.ResultStore
}

// NewStoreSink builds a StoreSink.
func NewStoreSink(store engine.ResultStore) *StoreSink {
	return &StoreSink{store: store}
}

// Consume implements progress.Sink. Only TASK_DONE events are persisted;
// per-mirror ATTEMPT_DONE events stay in metrics and logs.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s.store == nil {
		return nil
	}
	for _, evt := range batch {
		if evt.Stage != progress.StageTaskDone {
			continue
		}
		rec := engine.OutcomeRecord{
			RunID:       evt.RunID.String(),
			URL:         evt.URL,
			Mode:        evt.Mode,
			Success:     evt.Success,
			AttemptedAt: evt.TS,
			DurationMs:  evt.Dur.Milliseconds(),
		}
		if err := s.store.RecordOutcome(ctx, rec); err != nil {
			return fmt.Errorf("record outcome: %w", err)
		}
	}
	return nil
}

// Close implements progress.Sink.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
