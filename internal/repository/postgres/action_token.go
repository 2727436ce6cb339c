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

var actionTables = map[model.ActionKind]string{
	model.ActionVerification:  "verification_tokens",
	model.ActionPasswordReset: "password_reset_tokens",
}

var _ model.ActionTokenStore = (*ActionTokenRepository)(nil)

// ActionTokenRepository stores action tokens of one kind in that kind's table.
type ActionTokenRepository struct {
	db    *Connection
	table string
}

func NewActionTokenRepository(db *Connection, kind model.ActionKind) (*ActionTokenRepository, error) {
	table, ok := actionTables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown action token kind %q", kind)
	}
	return &ActionTokenRepository{db: db, table: table}, nil
}

// Create stores the token, replacing any token the principal already holds.
func (r *ActionTokenRepository) Create(ctx context.Context, token model.ActionToken) error {
	query := `INSERT INTO ` + r.table + ` (id, token_hash, principal_id, expires_at, created_at)
			  VALUES ($1, $2, $3, $4, $5)
			  ON CONFLICT (principal_id) DO UPDATE
			  SET token_hash = EXCLUDED.token_hash,
			      expires_at = EXCLUDED.expires_at,
			      created_at = EXCLUDED.created_at`

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.querier(ctx).Exec(ctx, query,
		token.ID, token.TokenHash, token.PrincipalID, token.ExpiresAt, token.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create %s row: %w", r.table, err)
	}
	return nil
}

func (r *ActionTokenRepository) DeleteByPrincipal(ctx context.Context, principalID uuid.UUID) error {
	query := `DELETE FROM ` + r.table + ` WHERE principal_id = $1`

	if _, err := r.db.querier(ctx).Exec(ctx, query, principalID); err != nil {
		return fmt.Errorf("failed to delete %s rows by principal: %w", r.table, err)
	}
	return nil
}

func (r *ActionTokenRepository) GetByTokenHashForUpdate(ctx context.Context, tokenHash string) (model.ActionToken, error) {
	query := `SELECT id, token_hash, principal_id, expires_at, created_at
			  FROM ` + r.table + ` WHERE token_hash = $1 FOR UPDATE`

	var t model.ActionToken
	err := r.db.querier(ctx).QueryRow(ctx, query, tokenHash).Scan(
		&t.ID, &t.TokenHash, &t.PrincipalID, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ActionToken{}, model.ErrNotFound
		}
		return model.ActionToken{}, fmt.Errorf("failed to get %s row: %w", r.table, err)
	}
	return t, nil
}

func (r *ActionTokenRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	query := `DELETE FROM ` + r.table + ` WHERE token_hash = $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to delete %s row: %w", r.table, err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ActionTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM ` + r.table + ` WHERE expires_at < $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired %s rows: %w", r.table, err)
	}
	return tag.RowsAffected(), nil
}
