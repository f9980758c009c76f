// Package run owns the top-level run lifecycle: queue construction, slot
// launch, completion, rerun, and stop.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/progress"
	"github.com/linkforge/linkforge/internal/scheduler"
	"github.com/linkforge/linkforge/internal/templates"
)

// DefaultRerunDelay separates a finished run from its automatic rerun.
const DefaultRerunDelay = 500 * time.Millisecond

// persistTimeout bounds store and publish calls made outside a request.
const persistTimeout = 5 * time.Second

// errSuperseded aborts a launch whose generation was retired by a
// concurrent Start or Stop.
var errSuperseded = errors.New("run superseded")

// Config carries the controller defaults applied when a start request
// leaves a knob unset.
type Config struct {
	SlotCount  int
	Mode       engine.Mode
	Reuse      engine.ReusePolicy
	Rerun      bool
	RerunDelay time.Duration
	Shuffle    bool
}

// Deps bundles the controller's collaborators. Store and Publisher are
// optional; Disposers receive CloseAll on stop and supersede.
type Deps struct {
	Store     engine.ResultStore
	Publisher engine.Publisher
	Topic     string
	Clock     engine.Clock
	IDGen     engine.IDGenerator
	Hub       *progress.Hub
	Logger    *zap.Logger
	Disposers []engine.Disposer
}

// record pairs the externally visible run info with the scheduler state
// backing it.
type record struct {
	info engine.RunInfo
	run  *scheduler.Run
}

// Controller is the run lifecycle state machine. Exactly one run is
// current at a time; starting a new run or stopping retires the current
// generation token, which silences every in-flight continuation.
type Controller struct {
	cfg    Config
	tokens *engine.TokenSource
	sched  *scheduler.Scheduler
	loader *templates.Loader
	deps   Deps
	logger *zap.Logger

	mu         sync.Mutex
	current    *record
	runs       map[string]*record
	rerunTimer *time.Timer
	lastParams engine.RunParameters
}

// NewController constructs a Controller.
func NewController(
	cfg Config,
	tokens *engine.TokenSource,
	sched *scheduler.Scheduler,
	loader *templates.Loader,
	deps Deps,
) *Controller {
	if cfg.SlotCount <= 0 {
		cfg.SlotCount = 5
	}
	if cfg.Mode == "" {
		cfg.Mode = engine.ModeFrame
	}
	if cfg.Reuse == "" {
		cfg.Reuse = engine.ReuseFresh
	}
	if cfg.RerunDelay <= 0 {
		cfg.RerunDelay = DefaultRerunDelay
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		cfg:    cfg,
		tokens: tokens,
		sched:  sched,
		loader: loader,
		deps:   deps,
		logger: logger,
		runs:   make(map[string]*record),
	}
}

// Start validates the raw input, supersedes any current run, builds the
// task queue, and launches the slots. Invalid input leaves all state
// untouched.
func (c *Controller) Start(params engine.RunParameters) (engine.RunInfo, error) {
	return c.start(params, 0, false)
}

// startIfCurrent launches only while prevToken is still the live
// generation, checked under the same lock that mints the next token. The
// rerun timer goes through here so a Stop landing between the timer firing
// and the launch always wins.
func (c *Controller) startIfCurrent(prevToken int64, params engine.RunParameters) (engine.RunInfo, error) {
	return c.start(params, prevToken, true)
}

func (c *Controller) start(params engine.RunParameters, prevToken int64, guarded bool) (engine.RunInfo, error) {
	norm, err := engine.NormalizeURL(params.RawURL)
	if err != nil {
		return engine.RunInfo{}, fmt.Errorf("invalid url: %w", err)
	}
	params = c.applyDefaults(params)

	c.mu.Lock()
	if guarded && !c.tokens.IsCurrent(prevToken) {
		c.mu.Unlock()
		return engine.RunInfo{}, errSuperseded
	}
	c.cancelRerunLocked()
	c.retireCurrentLocked(engine.RunStatusStopped)
	token := c.tokens.Next()
	c.lastParams = params
	c.mu.Unlock()

	// Dispose externally owned browser targets of the superseded run
	// before the new one starts claiming slots.
	c.closeTargets()

	videoID := engine.VideoID(norm)
	tasks := buildTasks(c.loader.Current(), params.Mode, norm, videoID, params.Shuffle)
	metrics.AddRenderedURLs(len(tasks))

	id, err := c.deps.IDGen.NewID()
	if err != nil {
		return engine.RunInfo{}, fmt.Errorf("generate run id: %w", err)
	}
	runUUID, err := uuid.Parse(id)
	if err != nil {
		runUUID = uuid.New()
	}

	rs := scheduler.NewRun(
		token,
		runUUID,
		params.Mode,
		params.Reuse == engine.ReuseSame,
		tasks,
		params.SlotCount,
		c.onFinish,
	)
	info := engine.RunInfo{
		ID:            id,
		Token:         token,
		Status:        engine.RunStatusRunning,
		NormalizedURL: norm,
		VideoID:       videoID,
		Mode:          params.Mode,
		TotalTasks:    len(tasks),
		StartedAt:     c.deps.Clock.Now(),
	}
	rec := &record{info: info, run: rs}

	c.mu.Lock()
	if !c.tokens.IsCurrent(token) {
		// A concurrent Start or Stop won the race; this run never launches.
		c.mu.Unlock()
		return engine.RunInfo{}, errSuperseded
	}
	c.current = rec
	c.runs[id] = rec
	c.mu.Unlock()

	c.deps.Hub.Emit(progress.Event{
		RunID: runUUID,
		TS:    info.StartedAt,
		Stage: progress.StageRunStart,
		Mode:  params.Mode,
		Total: len(tasks),
	})
	c.sched.Launch(rs)
	c.logger.Info("run started",
		zap.String("run_id", id),
		zap.String("url", norm),
		zap.String("mode", string(params.Mode)),
		zap.Int("tasks", len(tasks)),
		zap.Int("slots", params.SlotCount),
	)
	return info, nil
}

// Stop retires the current run: the token is invalidated, the queue is
// cleared, in-flight deadlines are cancelled through the run context, every
// tracked browser target is disposed, and any pending rerun is dropped.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.cancelRerunLocked()
	// Retire the generation even when idle so a rerun timer that already
	// fired cannot start a new run after this call.
	c.tokens.Invalidate()
	rec := c.retireCurrentLocked(engine.RunStatusStopped)
	c.mu.Unlock()

	c.closeTargets()
	if rec == nil {
		return
	}
	c.deps.Hub.Emit(progress.Event{
		RunID: rec.runUUID(),
		TS:    c.deps.Clock.Now(),
		Stage: progress.StageRunStop,
		Mode:  rec.info.Mode,
		Done:  rec.info.DoneCount,
		Total: rec.info.TotalTasks,
	})
	c.persistRun(rec.info)
	c.logger.Info("run stopped",
		zap.String("run_id", rec.info.ID),
		zap.Int("done", rec.info.DoneCount),
		zap.Int("total", rec.info.TotalTasks),
	)
}

// retireCurrentLocked invalidates the current run, cancels its work, and
// freezes its info snapshot with the given terminal status. Returns nil
// when no run is current.
func (c *Controller) retireCurrentLocked(status engine.RunStatus) *record {
	rec := c.current
	if rec == nil {
		return nil
	}
	c.tokens.Invalidate()
	rec.run.CancelWork()
	now := c.deps.Clock.Now()
	rec.info.Status = status
	rec.info.DoneCount = rec.run.Done()
	rec.info.FinishedAt = &now
	c.current = nil
	return rec
}

func (c *Controller) cancelRerunLocked() {
	if c.rerunTimer != nil {
		c.rerunTimer.Stop()
		c.rerunTimer = nil
	}
}

func (c *Controller) closeTargets() {
	for _, d := range c.deps.Disposers {
		if d != nil {
			d.CloseAll()
		}
	}
}

// onFinish is the scheduler's completion callback. A stale token means the
// run was superseded between completion and this call; it then does nothing.
func (c *Controller) onFinish(token int64) {
	c.mu.Lock()
	rec := c.current
	if rec == nil || rec.run.Token != token || !c.tokens.IsCurrent(token) {
		c.mu.Unlock()
		return
	}
	now := c.deps.Clock.Now()
	rec.info.Status = engine.RunStatusFinished
	rec.info.DoneCount = rec.run.Done()
	rec.info.FinishedAt = &now
	c.current = nil
	params := c.lastParams
	rerun := params.Rerun
	if rerun {
		c.rerunTimer = time.AfterFunc(c.cfg.RerunDelay, func() {
			c.rerun(token)
		})
	}
	c.mu.Unlock()

	c.deps.Hub.Emit(progress.Event{
		RunID: rec.runUUID(),
		TS:    now,
		Stage: progress.StageRunDone,
		Mode:  rec.info.Mode,
		Done:  rec.info.DoneCount,
		Total: rec.info.TotalTasks,
		Dur:   now.Sub(rec.info.StartedAt),
	})
	c.persistRun(rec.info)
	c.publishRun(rec.info)
	c.logger.Info("run finished",
		zap.String("run_id", rec.info.ID),
		zap.Int("done", rec.info.DoneCount),
		zap.Int("total", rec.info.TotalTasks),
		zap.Bool("rerun_scheduled", rerun),
	)
}

// rerun fires from the rerun timer. The launch is token-guarded inside
// start's critical section, so a Stop or Start that could not cancel the
// timer in time still retires this generation before it relaunches.
func (c *Controller) rerun(prevToken int64) {
	c.mu.Lock()
	params := c.lastParams
	c.mu.Unlock()
	if _, err := c.startIfCurrent(prevToken, params); err != nil && !errors.Is(err, errSuperseded) {
		c.logger.Warn("rerun start failed", zap.Error(err))
	}
}

// Status returns the info snapshot for a run, with live counters when the
// run is still executing.
func (c *Controller) Status(runID string) (engine.RunInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.runs[runID]
	if !ok {
		return engine.RunInfo{}, false
	}
	info := rec.info
	if info.Status == engine.RunStatusRunning {
		info.DoneCount = rec.run.Done()
	}
	return info, true
}

// Current returns the info of the currently executing run, if any.
func (c *Controller) Current() (engine.RunInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return engine.RunInfo{}, false
	}
	info := c.current.info
	info.DoneCount = c.current.run.Done()
	return info, true
}

// Results returns the ordered result rows for a run.
func (c *Controller) Results(runID string) ([]engine.ResultRow, bool) {
	c.mu.Lock()
	rec, ok := c.runs[runID]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}
	return rec.run.Board.Rows(), true
}

func (c *Controller) persistRun(info engine.RunInfo) {
	if c.deps.Store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	rec := engine.RunRecord{
		ID:            info.ID,
		NormalizedURL: info.NormalizedURL,
		Mode:          info.Mode,
		Status:        info.Status,
		TotalTasks:    info.TotalTasks,
		DoneCount:     info.DoneCount,
		StartedAt:     info.StartedAt,
		FinishedAt:    info.FinishedAt,
	}
	if err := c.deps.Store.RecordRun(ctx, rec); err != nil {
		c.logger.Warn("record run failed", zap.String("run_id", info.ID), zap.Error(err))
	}
}

func (c *Controller) publishRun(info engine.RunInfo) {
	if c.deps.Publisher == nil || c.deps.Topic == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	payload := map[string]any{
		"run_id":    info.ID,
		"url":       info.NormalizedURL,
		"mode":      string(info.Mode),
		"status":    string(info.Status),
		"done":      info.DoneCount,
		"total":     info.TotalTasks,
		"timestamp": c.deps.Clock.Now().Format(time.RFC3339),
	}
	if _, err := c.deps.Publisher.Publish(ctx, c.deps.Topic, payload); err != nil {
		c.logger.Warn("publish run failed", zap.String("run_id", info.ID), zap.Error(err))
	}
}

func (c *Controller) applyDefaults(params engine.RunParameters) engine.RunParameters {
	if params.Mode == "" {
		params.Mode = c.cfg.Mode
	}
	if params.Reuse == "" {
		params.Reuse = c.cfg.Reuse
	}
	if params.SlotCount <= 0 {
		params.SlotCount = c.cfg.SlotCount
	}
	return params
}

func (r *record) runUUID() uuid.UUID {
	return r.run.ID
}
