// Package schedule starts runs on cron expressions.
package schedule

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/config"
	"github.com/linkforge/linkforge/internal/engine"
	"github.com/linkforge/linkforge/internal/run"
)

// Scheduler wraps a cron runner that submits runs to the controller.
type Scheduler struct {
	cron       *cron.Cron
	controller *run.Controller
	logger     *zap.Logger
}

// New builds a Scheduler and registers every configured entry. Invalid
// cron expressions or modes fail construction.
func New(entries []config.ScheduleEntry, controller *run.Controller, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		cron:       cron.New(),
		controller: controller,
		logger:     logger,
	}
	for i, e := range entries {
		mode, err := engine.ParseMode(e.Mode)
		if err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
		params := engine.RunParameters{RawURL: e.URL, Mode: mode, Shuffle: true}
		if _, err := s.cron.AddFunc(e.Cron, s.job(params)); err != nil {
			return nil, fmt.Errorf("schedule entry %d: %w", i, err)
		}
	}
	return s, nil
}

func (s *Scheduler) job(params engine.RunParameters) func() {
	return func() {
		info, err := s.controller.Start(params)
		if err != nil {
			s.logger.Warn("scheduled run failed to start",
				zap.String("url", params.RawURL),
				zap.Error(err),
			)
			return
		}
		s.logger.Info("scheduled run started",
			zap.String("run_id", info.ID),
			zap.String("url", info.NormalizedURL),
		)
	}
}

// Start begins cron evaluation in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts cron evaluation; running jobs are not interrupted.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// EntryCount reports how many schedule entries were registered.
func (s *Scheduler) EntryCount() int {
	return len(s.cron.Entries())
}
