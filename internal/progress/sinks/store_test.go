package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/progress"
)

type fakeResultStore struct {
	outcomes []engine.OutcomeRecord
	runs     []engine.RunRecord
	err      error
}

func (f *fakeResultStore) RecordOutcome(_ context.Context, rec engine.OutcomeRecord) error {
	if f.err != nil {
		return f.err
	}
	f.outcomes = append(f.outcomes, rec)
	return nil
}

func (f *fakeResultStore) RecordRun(_ context.Context, rec engine.RunRecord) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, rec)
	return nil
}

func TestStoreSinkPersistsTaskDoneOnly(t *testing.T) {
	t.Parallel()

	store := &fakeResultStore{}
	sink := NewStoreSink(store)
	runID := uuid.New()
	ts := time.Unix(1700000000, 0).UTC()

	batch := []progress.Event{
		{RunID: runID, TS: ts, Stage: progress.StageRunStart},
		{RunID: runID, TS: ts, Stage: progress.StageAttemptDone, URL: "https://a.example", Success: true},
		{
			RunID:   runID,
			TS:      ts,
			Stage:   progress.StageTaskDone,
			Mode:    engine.ModeFetch,
			URL:     "https://a.example",
			Success: true,
			Dur:     1500 * time.Millisecond,
		},
	}
	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Len(t, store.outcomes, 1)
	rec := store.outcomes[0]
	require.Equal(t, runID.String(), rec.RunID)
	require.Equal(t, "https://a.example", rec.URL)
	require.Equal(t, engine.ModeFetch, rec.Mode)
	require.True(t, rec.Success)
	require.Equal(t, int64(1500), rec.DurationMs)
}

func TestStoreSinkPropagatesStoreErrors(t *testing.T) {
	t.Parallel()

	store := &fakeResultStore{err: errors.New("db down")}
	sink := NewStoreSink(store)

	batch := []progress.Event{{
		RunID: uuid.New(),
		TS:    time.Unix(1700000000, 0).UTC(),
		Stage: progress.StageTaskDone,
		URL:   "https://a.example",
	}}
	require.Error(t, sink.Consume(context.Background(), batch))
}

func TestStoreSinkNilStoreIsNoop(t *testing.T) {
	t.Parallel()

	sink := NewStoreSink(nil)
	batch := []progress.Event{{
		RunID: uuid.New(),
		TS:    time.Unix(1700000000, 0).UTC(),
		Stage: progress.StageTaskDone,
	}}
	require.NoError(t, sink.Consume(context.Background(), batch))
	require.NoError(t, sink.Close(context.Background()))
}
