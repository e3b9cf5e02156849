package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"courier/internal/audit"
)

// Store appends events to the security_events table through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool for url and verifies it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open audit pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit pool ping failed: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const insertEvent = `
	INSERT INTO security_events (
		id, occurred_at, action, reason, subject, ip, user_agent, browser, os, request_id, method, path, severity
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO NOTHING
`

// Append writes the batch in one round trip. Replays are ignored by id.
func (s *Store) Append(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(insertEvent,
			e.ID, e.Timestamp, string(e.Action), e.Reason, e.Subject,
			e.IP, e.UserAgent, e.Browser, e.OS, e.RequestID, e.Method, e.Path, string(e.Severity),
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range events {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert security event: %w", err)
		}
	}
	return nil
}

// ListRecent returns the newest limit events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, occurred_at, action, reason, subject, ip, user_agent, browser, os, request_id, method, path, severity
		FROM security_events ORDER BY occurred_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query security events: %w", err)
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var e audit.Event
		var action, severity string
		if err := rows.Scan(&e.ID, &e.Timestamp, &action, &e.Reason, &e.Subject,
			&e.IP, &e.UserAgent, &e.Browser, &e.OS, &e.RequestID, &e.Method, &e.Path, &severity); err != nil {
			return nil, fmt.Errorf("scan security event: %w", err)
		}
		e.Action = audit.Action(action)
		e.Severity = audit.Severity(severity)
		out = append(out, e)
	}
	return out, rows.Err()
}
