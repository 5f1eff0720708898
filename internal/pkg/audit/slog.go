package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes audit entries to structured logs. Fire-and-forget by
// construction: slog never returns an error to the caller.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger.With(slog.String("channel", "audit"))}
}

func (s *SlogSink) Record(ctx context.Context, event string, actorID string, details map[string]any) {
	attrs := make([]any, 0, 2+len(details)*2)
	attrs = append(attrs, "actor_id", actorID)
	for k, v := range details {
		attrs = append(attrs, k, v)
	}
	s.logger.InfoContext(ctx, event, attrs...)
}
