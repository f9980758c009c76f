// Package sinks provides progress.Sink implementations.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/linkforge/linkforge/internal/progress"
)

// LogSink writes progress events to a structured logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink builds a LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume implements progress.Sink.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID.String()),
			zap.String("stage", string(evt.Stage)),
			zap.String("mode", string(evt.Mode)),
		}
		switch evt.Stage {
		case progress.StageAttemptStart, progress.StageAttemptDone:
			fields = append(fields,
				zap.String("url", evt.URL),
				zap.Bool("success", evt.Success),
				zap.Duration("dur", evt.Dur),
			)
		default:
			fields = append(fields,
				zap.Int("done", evt.Done),
				zap.Int("total", evt.Total),
			)
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("progress", fields...)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
