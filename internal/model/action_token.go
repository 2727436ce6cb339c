package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActionKind identifies a single-use action token family.
type ActionKind string

const (
	ActionVerification  ActionKind = "verification"
	ActionPasswordReset ActionKind = "password_reset"
)

// Default lifetimes of action tokens.
const (
	VerificationTokenTTL  = 24 * time.Hour
	PasswordResetTokenTTL = time.Hour
)

// ActionToken is an opaque single-use token tied to one principal.
type ActionToken struct {
	ID          uuid.UUID
	TokenHash   string
	PrincipalID uuid.UUID
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// ActionTokenStore persists action tokens of one kind.
type ActionTokenStore interface {
	// Create replaces any token the principal already holds.
	Create(ctx context.Context, token ActionToken) error
	DeleteByPrincipal(ctx context.Context, principalID uuid.UUID) error
	// GetByTokenHashForUpdate locks the row for the rest of the enclosing transaction.
	GetByTokenHashForUpdate(ctx context.Context, tokenHash string) (ActionToken, error)
	// DeleteByTokenHash returns ErrNotFound when no row was deleted.
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
