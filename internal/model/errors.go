package model

import "errors"

// ErrNotFound is returned by stores when no row matches.
var ErrNotFound = errors.New("not found")

// Token errors.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token expired")
	ErrTokenNotFound  = errors.New("token not found")
	ErrMissingClaim   = errors.New("missing token claim")
	ErrWeakSigningKey = errors.New("signing key must be at least 32 bytes")
)

// Principal and flow errors.
var (
	ErrUserInactive         = errors.New("user is inactive")
	ErrUserNotVerified      = errors.New("user email is not verified")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrDuplicateEmail       = errors.New("email is already registered")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// IsTokenError reports whether err belongs to the token part of the taxonomy.
func IsTokenError(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrMissingClaim)
}
