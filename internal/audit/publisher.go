package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Store is a durable sink for events.
type Store interface {
	Append(ctx context.Context, events []Event) error
}

const batchSize = 100

// Publisher writes exactly one log record per event and buffers events for
// durable sinks. Emit never blocks on a sink.
type Publisher struct {
	logger *slog.Logger
	sinks  []Store
	buffer *eventQueue
	wake   chan struct{}
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithSink adds a durable sink. Sinks are flushed by the Worker.
func WithSink(store Store) Option {
	return func(p *Publisher) {
		if store != nil {
			p.sinks = append(p.sinks, store)
		}
	}
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = newEventQueue(n)
	}
}

func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		logger: slog.Default(),
		wake:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.buffer == nil {
		p.buffer = newEventQueue(0)
	}
	return p
}

// Emit records event. It always succeeds; sink failures surface in Flush.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	level := slog.LevelInfo
	if event.Severity != SeverityInfo {
		level = slog.LevelWarn
	}
	p.logger.Log(ctx, level, "security event",
		"action", string(event.Action),
		"reason", event.Reason,
		"subject", event.Subject,
		"ip", event.IP,
		"user_agent", event.UserAgent,
		"request_id", event.RequestID,
		"method", event.Method,
		"path", event.Path,
	)

	if len(p.sinks) == 0 {
		return nil
	}
	p.buffer.push(event)
	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Flush drains buffered events into every sink. A batch that fails in one sink
// is still offered to the others.
func (p *Publisher) Flush(ctx context.Context) error {
	var errs []error
	for {
		batch := p.buffer.take(batchSize)
		if len(batch) == 0 {
			return errors.Join(errs...)
		}
		for _, sink := range p.sinks {
			if err := sink.Append(ctx, batch); err != nil {
				errs = append(errs, fmt.Errorf("append %d audit events: %w", len(batch), err))
			}
		}
	}
}

// Pending returns the number of events waiting for a flush.
func (p *Publisher) Pending() int {
	return p.buffer.len()
}

// Dropped returns how many events were evicted before reaching a sink.
func (p *Publisher) Dropped() int64 {
	return p.buffer.droppedCount()
}
