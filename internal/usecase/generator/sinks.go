package generator

import (
	"context"

	"go.uber.org/zap"

	"connect6_datagen/internal/domain/corpus"
)

// MultiSink fans one progress update out to every sink in order.
type MultiSink []ProgressSink

func (m MultiSink) Publish(ctx context.Context, p corpus.Progress) {
	for _, s := range m {
		if s != nil {
			s.Publish(ctx, p)
		}
	}
}

// LogSink writes a progress line every Every completed games.
type LogSink struct {
	Logger *zap.SugaredLogger
	Every  int
	last   int
}

func NewLogSink(logger *zap.SugaredLogger, every int) *LogSink {
	if every <= 0 {
		every = 1
	}
	return &LogSink{Logger: logger, Every: every}
}

func (s *LogSink) Publish(_ context.Context, p corpus.Progress) {
	if p.Completed == s.last || p.Completed%s.Every != 0 && p.Completed < p.Target {
		return
	}
	s.last = p.Completed
	s.Logger.Infow("generation progress",
		"run_id", p.RunID,
		"completed", p.Completed,
		"target", p.Target,
		"discarded", p.Discarded,
		"failed", p.Failed,
		"examples", p.Examples,
	)
}
