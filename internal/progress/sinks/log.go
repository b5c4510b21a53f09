package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/alertdigest/alertdigest/internal/progress"
)

// LogSink emits one structured log line per event. It is useful in verbose
// runs and audits where metrics alone are too coarse.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.Stringer("run_id", evt.RunUUID()),
			zap.String("stage", string(evt.Stage)),
			zap.String("url", evt.URL),
			zap.String("status", string(evt.Status)),
			zap.String("strategy", evt.Strategy),
			zap.Int64("bytes", evt.Bytes),
			zap.Int64("articles", evt.Articles),
			zap.Duration("dur", evt.Dur),
			zap.String("note", evt.Note),
		}
		s.logger.Info("progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
