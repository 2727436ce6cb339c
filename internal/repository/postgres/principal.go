package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dtroode/sessionguard/internal/model"
)

var _ model.PrincipalStore = (*PrincipalRepository)(nil)

type PrincipalRepository struct {
	db *Connection
}

func NewPrincipalRepository(db *Connection) *PrincipalRepository {
	return &PrincipalRepository{db: db}
}

const principalColumns = `id, email, password_hash, role, active, verified, created_at, updated_at`

func scanPrincipal(row pgx.Row) (model.Principal, error) {
	var p model.Principal
	err := row.Scan(&p.ID, &p.Email, &p.PasswordHash, &p.Role, &p.Active, &p.Verified, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *PrincipalRepository) GetByEmail(ctx context.Context, email string) (model.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE email = $1`

	p, err := scanPrincipal(r.db.querier(ctx).QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Principal{}, model.ErrNotFound
		}
		return model.Principal{}, fmt.Errorf("failed to get principal by email: %w", err)
	}

	return p, nil
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id uuid.UUID) (model.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id = $1`

	p, err := scanPrincipal(r.db.querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Principal{}, model.ErrNotFound
		}
		return model.Principal{}, fmt.Errorf("failed to get principal by id: %w", err)
	}

	return p, nil
}

func (r *PrincipalRepository) Create(ctx context.Context, principal model.Principal) (model.Principal, error) {
	query := `INSERT INTO principals (id, email, password_hash, role, active, verified, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING ` + principalColumns

	saved, err := scanPrincipal(r.db.querier(ctx).QueryRow(ctx, query,
		principal.ID, principal.Email, principal.PasswordHash, principal.Role,
		principal.Active, principal.Verified, principal.CreatedAt, principal.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return model.Principal{}, model.ErrDuplicateEmail
		}
		return model.Principal{}, fmt.Errorf("failed to create principal: %w", err)
	}

	return saved, nil
}

func (r *PrincipalRepository) Save(ctx context.Context, principal model.Principal) error {
	query := `UPDATE principals
			  SET password_hash = $2, role = $3, active = $4, verified = $5, updated_at = $6
			  WHERE id = $1`

	tag, err := r.db.querier(ctx).Exec(ctx, query,
		principal.ID, principal.PasswordHash, principal.Role, principal.Active, principal.Verified, principal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save principal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}

	return nil
}
