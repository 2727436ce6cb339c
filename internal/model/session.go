package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshSession is a persisted live refresh token.
type RefreshSession struct {
	ID          uuid.UUID
	TokenHash   string
	PrincipalID uuid.UUID
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// RefreshSessionStore persists refresh sessions keyed by token hash.
type RefreshSessionStore interface {
	Create(ctx context.Context, session RefreshSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (RefreshSession, error)
	// DeleteByTokenHash returns ErrNotFound when no row was deleted.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteAllByPrincipal(ctx context.Context, principalID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
