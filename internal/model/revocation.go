package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TokenKind tells which kind of token a revocation entry refers to.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "ACCESS"
	TokenKindRefresh TokenKind = "REFRESH"
)

// Revocation marks a token as rejected until its own expiry.
type Revocation struct {
	ID        uuid.UUID
	TokenHash string
	Kind      TokenKind
	CreatedAt time.Time
	ExpiresAt time.Time
}

// RevocationStore persists revocation entries.
type RevocationStore interface {
	// Create ignores an entry whose token hash is already stored.
	Create(ctx context.Context, revocation Revocation) error
	ExistsByTokenHash(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
