package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker periodically flushes a Publisher's buffer to its sinks.
type Worker struct {
	publisher *Publisher
	interval  time.Duration
	logger    *slog.Logger
}

func NewWorker(publisher *Publisher, interval time.Duration, logger *slog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{publisher: publisher, interval: interval, logger: logger}
}

// Run flushes on every tick or Emit wake-up until ctx is cancelled, then
// performs a final flush bounded by a short deadline.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			w.flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			w.flush(ctx)
		case <-w.publisher.wake:
			w.flush(ctx)
		}
	}
}

func (w *Worker) flush(ctx context.Context) {
	if err := w.publisher.Flush(ctx); err != nil {
		w.logger.ErrorContext(ctx, "failed to flush audit events", "error", err)
	}
}
