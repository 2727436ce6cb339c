package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role enumerates principal roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

const authorityPrefix = "ROLE_"

// NormalizeRole strips the authority prefix some callers attach to role names.
func NormalizeRole(role string) Role {
	return Role(strings.TrimPrefix(role, authorityPrefix))
}

// Principal is the identity record tokens are issued for.
type Principal struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	Verified     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PrincipalStore defines persistence operations for principals.
type PrincipalStore interface {
	GetByEmail(ctx context.Context, email string) (Principal, error)
	GetByID(ctx context.Context, id uuid.UUID) (Principal, error)
	Create(ctx context.Context, principal Principal) (Principal, error)
	Save(ctx context.Context, principal Principal) error
}

// Authenticator checks credentials and returns the matching principal.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (Principal, error)
}

// PasswordHasher hashes and compares passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Matches(plain, hash string) bool
}

// Identity is what an access token proves about its bearer.
type Identity struct {
	Subject string
	Role    Role
}
