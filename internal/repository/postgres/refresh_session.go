package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/sessionguard/internal/model"
)

var _ model.RefreshSessionStore = (*RefreshSessionRepository)(nil)

type RefreshSessionRepository struct {
	db *Connection
}

func NewRefreshSessionRepository(db *Connection) *RefreshSessionRepository {
	return &RefreshSessionRepository{db: db}
}

func (r *RefreshSessionRepository) Create(ctx context.Context, session model.RefreshSession) error {
	const query = `
        INSERT INTO refresh_sessions (id, token_hash, principal_id, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}

	_, err := r.db.querier(ctx).Exec(ctx, query,
		session.ID, session.TokenHash, session.PrincipalID, session.ExpiresAt, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create refresh session: %w", err)
	}
	return nil
}

func (r *RefreshSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	const query = `
        SELECT id, token_hash, principal_id, expires_at, created_at
        FROM refresh_sessions WHERE token_hash = $1
    `

	var s model.RefreshSession
	err := r.db.querier(ctx).QueryRow(ctx, query, tokenHash).Scan(
		&s.ID, &s.TokenHash, &s.PrincipalID, &s.ExpiresAt, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RefreshSession{}, model.ErrNotFound
		}
		return model.RefreshSession{}, fmt.Errorf("failed to get refresh session: %w", err)
	}
	return s, nil
}

func (r *RefreshSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM refresh_sessions WHERE token_hash = $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete refresh session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *RefreshSessionRepository) DeleteAllByPrincipal(ctx context.Context, principalID uuid.UUID) (int64, error) {
	const query = `DELETE FROM refresh_sessions WHERE principal_id = $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query, principalID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh sessions by principal: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *RefreshSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM refresh_sessions WHERE expires_at < $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired refresh sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
