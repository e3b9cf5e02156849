package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"courier/internal/auth/models"
	id "courier/pkg/domain"
	"courier/pkg/platform/sentinel"
)

const uniqueViolation = pq.ErrorCode("23505")

// PostgresUserStore persists principals in the principals table.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Create(ctx context.Context, principal *models.Principal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO principals (id, identity, password_hash, avatar_url, origin_avatar_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(principal.ID), principal.Identity.String(), principal.PasswordHash,
		principal.AvatarURL, principal.OriginAvatarURL, principal.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("identity %s: %w", principal.Identity, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert principal: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.Principal, error) {
	return s.findOne(ctx, `WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresUserStore) FindByIdentity(ctx context.Context, identity id.Identity) (*models.Principal, error) {
	return s.findOne(ctx, `WHERE identity = $1`, identity.String())
}

func (s *PostgresUserStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM principals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count principals: %w", err)
	}
	return n, nil
}

func (s *PostgresUserStore) findOne(ctx context.Context, where string, arg any) (*models.Principal, error) {
	var (
		p        models.Principal
		rawID    string
		identity string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, identity, password_hash, avatar_url, origin_avatar_url, created_at
		FROM principals `+where, arg).
		Scan(&rawID, &identity, &p.PasswordHash, &p.AvatarURL, &p.OriginAvatarURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find principal: %w", err)
	}
	if p.ID, err = id.ParseUserID(rawID); err != nil {
		return nil, fmt.Errorf("principal row: %w", err)
	}
	p.Identity = id.Identity(identity)
	return &p, nil
}
