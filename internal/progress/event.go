// Package progress defines the event stream emitted by the delivery engine.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/linkforge/linkforge/internal/engine"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart     Stage = "RUN_START"
	StageRunDone      Stage = "RUN_DONE"
	StageRunStop      Stage = "RUN_STOP"
	StageAttemptStart Stage = "ATTEMPT_START"
	StageAttemptDone  Stage = "ATTEMPT_DONE"
	StageTaskDone     Stage = "TASK_DONE"
)

// Event captures a single milestone of run progress.
type Event struct {
	// RunID identifies the run this event belongs to.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which lifecycle or attempt milestone occurred.
	Stage Stage
	// Mode is the delivery mode of the run.
	Mode engine.Mode
	// URL is the attempted URL for attempt events.
	URL string
	// Success carries the outcome for ATTEMPT_DONE and TASK_DONE.
	Success bool
	// Done and Total mirror the run's progress counters.
	Done  int
	Total int
	// Dur captures execution latency for attempts and run completions.
	Dur time.Duration
	// Note lets emitters attach low-volume debug context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunStop, StageTaskDone:
	case StageAttemptStart, StageAttemptDone:
		if e.URL == "" {
			return errors.New("attempt events require a url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
