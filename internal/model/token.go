package model

import (
	"context"
	"time"
)

// Token types carried in the "type" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims are the verified claims of a signed token.
type TokenClaims struct {
	ID        string
	Subject   string
	Role      Role
	Type      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and verifies signed tokens.
type TokenCodec interface {
	IssueAccess(subject string, role Role) (string, error)
	IssueRefresh(subject string) (string, error)
	Verify(token string) (TokenClaims, error)
	IsExpired(token string) bool
	ExpiresAt(token string) (time.Time, error)
	IsValid(ctx context.Context, token string) bool
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// TokenPair is returned to clients after login and refresh.
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	TokenType       string
	ExpiresInMillis int64
}
