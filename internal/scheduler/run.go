// Package scheduler drives a fixed pool of worker slots over a run-scoped
// task queue.
package scheduler

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/linkforge/linkforge/internal/engine"
)

// Run is the scheduler-facing state of one run: the generation token it was
// created under, the FIFO task queue, the slot busy flags, and the shared
// progress counters. Tasks are consumed at most once.
type Run struct {
	Token int64
	ID    uuid.UUID
	Mode  engine.Mode
	Reuse bool
	Total int
	Board *engine.Board

	ctx      context.Context
	cancel   context.CancelFunc
	onFinish func(token int64)

	mu       sync.Mutex
	queue    []engine.Task
	busy     []bool
	done     int
	finished bool
}

// NewRun builds run state for the scheduler. onFinish fires at most once,
// when the queue is empty and every slot is idle.
func NewRun(
	token int64,
	id uuid.UUID,
	mode engine.Mode,
	reuse bool,
	tasks []engine.Task,
	slotCount int,
	onFinish func(token int64),
) *Run {
	if slotCount < 1 {
		slotCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Run{
		Token:    token,
		ID:       id,
		Mode:     mode,
		Reuse:    reuse,
		Total:    len(tasks),
		Board:    engine.NewBoard(),
		ctx:      ctx,
		cancel:   cancel,
		onFinish: onFinish,
		queue:    append([]engine.Task(nil), tasks...),
		busy:     make([]bool, slotCount),
	}
}

// Context is cancelled when the run is stopped or superseded, propagating
// into every in-flight delivery deadline.
func (r *Run) Context() context.Context {
	return r.ctx
}

// SlotCount returns the configured concurrency.
func (r *Run) SlotCount() int {
	return len(r.busy)
}

// CancelWork clears the queue and cancels the run context. Called by the
// controller on Stop or supersede, after the token has been retired.
func (r *Run) CancelWork() {
	r.mu.Lock()
	r.queue = nil
	r.mu.Unlock()
	r.cancel()
}

// Done returns the completed task count.
func (r *Run) Done() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Snapshot returns the progress counters.
func (r *Run) Snapshot() (done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done, r.Total
}

// QueueLen reports how many tasks remain unclaimed.
func (r *Run) QueueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// next pops the oldest task and marks the slot busy, or reports an empty
// queue.
func (r *Run) next(slotID int) (engine.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		return engine.Task{}, false
	}
	task := r.queue[0]
	r.queue = r.queue[1:]
	r.busy[slotID] = true
	return task, true
}

// release counts one completed task and frees the slot. Exactly one unit
// per task, variant groups included.
func (r *Run) release(slotID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done++
	r.busy[slotID] = false
}

// finishIfIdle fires the completion callback when nothing is queued and no
// slot is busy. At most one caller wins.
func (r *Run) finishIfIdle() {
	r.mu.Lock()
	if r.finished || len(r.queue) > 0 {
		r.mu.Unlock()
		return
	}
	for _, b := range r.busy {
		if b {
			r.mu.Unlock()
			return
		}
	}
	r.finished = true
	cb := r.onFinish
	r.mu.Unlock()

	if cb != nil {
		cb(r.Token)
	}
}
