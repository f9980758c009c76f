package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/linkforge/linkforge/internal/engine"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	closed bool
	err    error
}

func (r *recordingSink) Consume(_ context.Context, batch []Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, batch...)
	return nil
}

func (r *recordingSink) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *recordingSink) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func validEvent(stage Stage) Event {
	return Event{
		RunID: uuid.New(),
		TS:    time.Unix(1700000000, 0).UTC(),
		Stage: stage,
		Mode:  engine.ModeFetch,
		URL:   "https://example.com",
	}
}

func TestHubDeliversEventsToSinks(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	for i := 0; i < 5; i++ {
		hub.Emit(validEvent(StageAttemptDone))
	}

	require.Eventually(t, func() bool { return sink.count() == 5 },
		2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Close(ctx))
	require.True(t, sink.isClosed())
}

func TestHubCloseFlushesPendingEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	// Long batch wait so events are still buffered when Close runs.
	hub := NewHub(Config{MaxBatchWait: time.Minute}, sink)

	for i := 0; i < 3; i++ {
		hub.Emit(validEvent(StageTaskDone))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Close(ctx))
	require.Equal(t, 3, sink.count())
	require.True(t, sink.isClosed())
}

func TestHubDropsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, sink)

	hub.Emit(Event{})
	hub.Emit(validEvent(StageRunDone))

	require.Eventually(t, func() bool { return sink.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Close(ctx))
}

func TestHubEmitAfterCloseIsNoop(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{}, sink)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Close(ctx))

	hub.Emit(validEvent(StageRunStart))
	require.Zero(t, sink.count())
}

func TestHubSinkErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	failing := &recordingSink{err: errors.New("sink down")}
	healthy := &recordingSink{}
	hub := NewHub(Config{MaxBatchWait: 10 * time.Millisecond}, failing, healthy)

	hub.Emit(validEvent(StageTaskDone))

	require.Eventually(t, func() bool { return healthy.count() == 1 },
		2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, hub.Close(ctx))
}

func TestNilHubEmitIsSafe(t *testing.T) {
	t.Parallel()

	var hub *Hub
	hub.Emit(validEvent(StageRunStart))
	require.NoError(t, hub.Close(context.Background()))
}
