package scheduler

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/progress"
)

// Scheduler executes run queues through a fixed set of slots. Each slot
// sequentially chains task to task until the queue drains; the number of
// in-flight tasks never exceeds the slot count. Every continuation checks
// generation-token currency before touching shared state, so a superseded
// run's slots fall silent without forcible termination.
type Scheduler struct {
	tokens     *engine.TokenSource
	strategies map[engine.Mode]engine.Strategy
	hub        *progress.Hub
	clock      engine.Clock
	logger     *zap.Logger
}

// New constructs a Scheduler.
func New(
	tokens *engine.TokenSource,
	strategies map[engine.Mode]engine.Strategy,
	hub *progress.Hub,
	clock engine.Clock,
	logger *zap.Logger,
) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		tokens:     tokens,
		strategies: strategies,
		hub:        hub,
		clock:      clock,
		logger:     logger,
	}
}

// Launch starts one goroutine per slot. It returns immediately; completion
// is signaled through the run's finish callback.
func (s *Scheduler) Launch(r *Run) {
	for i := 0; i < r.SlotCount(); i++ {
		go s.slotLoop(r, i)
	}
}

func (s *Scheduler) slotLoop(r *Run, slotID int) {
	for {
		if !s.tokens.IsCurrent(r.Token) {
			return
		}
		task, ok := r.next(slotID)
		if !ok {
			r.finishIfIdle()
			return
		}

		metrics.IncActiveSlots()
		success, resolvedURL, dur := s.executeTask(r, slotID, task)
		metrics.DecActiveSlots()

		if !s.tokens.IsCurrent(r.Token) {
			return
		}
		r.release(slotID)
		done, total := r.Snapshot()
		s.hub.Emit(progress.Event{
			RunID:   r.ID,
			TS:      s.clock.Now(),
			Stage:   progress.StageTaskDone,
			Mode:    task.Mode,
			URL:     resolvedURL,
			Success: success,
			Done:    done,
			Total:   total,
			Dur:     dur,
		})
	}
}

func (s *Scheduler) executeTask(r *Run, slotID int, task engine.Task) (bool, string, time.Duration) {
	if task.IsVariantGroup() {
		return s.executeVariantGroup(r, slotID, task)
	}
	ok, dur := s.attempt(r, slotID, task.Mode, task.URL)
	return ok, task.URL, dur
}

// executeVariantGroup walks the mirror fallback sequence: attempts stop at
// the first success, and mirrors after a stale-token detection are never
// started.
func (s *Scheduler) executeVariantGroup(r *Run, slotID int, task engine.Task) (bool, string, time.Duration) {
	var (
		total    time.Duration
		lastURL  string
		verified bool
	)
	for _, u := range task.VariantURLs {
		if !s.tokens.IsCurrent(r.Token) {
			return false, lastURL, total
		}
		ok, dur := s.attempt(r, slotID, task.Mode, u)
		total += dur
		lastURL = u
		if ok {
			verified = true
			break
		}
	}
	return verified, lastURL, total
}

// attempt resolves one URL through the run's strategy, creating and marking
// its result row. Failures are outcomes, never errors; a stale token skips
// the row mark entirely.
func (s *Scheduler) attempt(r *Run, slotID int, mode engine.Mode, url string) (bool, time.Duration) {
	row := r.Board.Add(url)
	s.hub.Emit(progress.Event{
		RunID: r.ID,
		TS:    s.clock.Now(),
		Stage: progress.StageAttemptStart,
		Mode:  mode,
		URL:   url,
	})

	start := time.Now()
	success, err := s.deliver(r, slotID, mode, url)
	dur := time.Since(start)

	if !s.tokens.IsCurrent(r.Token) {
		return false, dur
	}
	r.Board.Mark(row, success)
	if err != nil {
		s.logger.Debug("delivery attempt resolved with error",
			zap.String("url", url),
			zap.String("mode", string(mode)),
			zap.Error(err),
		)
	}
	s.hub.Emit(progress.Event{
		RunID:   r.ID,
		TS:      s.clock.Now(),
		Stage:   progress.StageAttemptDone,
		Mode:    mode,
		URL:     url,
		Success: success,
		Dur:     dur,
	})
	return success, dur
}

func (s *Scheduler) deliver(r *Run, slotID int, mode engine.Mode, url string) (bool, error) {
	strategy, ok := s.strategies[mode]
	if !ok {
		return false, fmt.Errorf("no strategy configured for mode %q", mode)
	}
	return strategy.Deliver(r.Context(), engine.Attempt{
		Token:  r.Token,
		SlotID: slotID,
		URL:    url,
		Reuse:  r.Reuse,
	})
}
