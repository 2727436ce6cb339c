package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/model"
)

var _ model.RevocationStore = (*RevocationRepository)(nil)

type RevocationRepository struct {
	db *Connection
}

func NewRevocationRepository(db *Connection) *RevocationRepository {
	return &RevocationRepository{db: db}
}

func (r *RevocationRepository) Create(ctx context.Context, revocation model.Revocation) error {
	const query = `
        INSERT INTO revoked_tokens (id, token_hash, kind, created_at, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (token_hash) DO NOTHING
    `

	if revocation.ID == uuid.Nil {
		revocation.ID = uuid.New()
	}

	_, err := r.db.querier(ctx).Exec(ctx, query,
		revocation.ID, revocation.TokenHash, revocation.Kind, revocation.CreatedAt, revocation.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create revocation: %w", err)
	}
	return nil
}

func (r *RevocationRepository) ExistsByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE token_hash = $1)`

	var exists bool
	if err := r.db.querier(ctx).QueryRow(ctx, query, tokenHash).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return exists, nil
}

func (r *RevocationRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM revoked_tokens WHERE expires_at < $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired revocations: %w", err)
	}
	return tag.RowsAffected(), nil
}
