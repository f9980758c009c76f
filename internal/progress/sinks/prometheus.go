package sinks

import (
	"context"

	"github.com/linkforge/linkforge/internal/metrics"
	"github.com/linkforge/linkforge/internal/progress"
)

// PrometheusSink translates progress events into Prometheus metrics.
type PrometheusSink struct{}

// NewPrometheusSink initializes the collectors and returns the sink.
func NewPrometheusSink() *PrometheusSink {
	metrics.Init()
	return &PrometheusSink{}
}

// Consume implements progress.Sink.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageAttemptDone:
			metrics.ObserveAttempt(string(evt.Mode), evt.Success, evt.Dur)
		case progress.StageRunDone:
			metrics.ObserveRun("finished")
		case progress.StageRunStop:
			metrics.ObserveRun("stopped")
		}
	}
	return nil
}

// Close implements progress.Sink.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
