package security

import (
	"context"
	"errors"
	"fmt"

	"github.com/dtroode/sessionguard/internal/model"
)

// PasswordAuthenticator checks an email and password against the principal store.
type PasswordAuthenticator struct {
	principals model.PrincipalStore
	hasher     model.PasswordHasher
}

func NewPasswordAuthenticator(principals model.PrincipalStore, hasher model.PasswordHasher) *PasswordAuthenticator {
	return &PasswordAuthenticator{principals: principals, hasher: hasher}
}

// Authenticate returns model.ErrAuthenticationFailed for an unknown email and
// for a wrong password alike.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, password string) (model.Principal, error) {
	principal, err := a.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Principal{}, model.ErrAuthenticationFailed
		}
		return model.Principal{}, fmt.Errorf("failed to get principal by email: %w", err)
	}

	if !a.hasher.Matches(password, principal.PasswordHash) {
		return model.Principal{}, model.ErrAuthenticationFailed
	}

	return principal, nil
}
