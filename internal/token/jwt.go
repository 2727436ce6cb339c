package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/model"
)

// MinSecretLength is the shortest HMAC key NewJWT accepts.
const MinSecretLength = 32

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

func init() {
	// Sub-second lifetimes must survive encoding.
	jwt.TimePrecision = time.Millisecond
}

// Claims represents JWT claims with role and token type.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
	Type string `json:"type"`
}

// RevocationLookup reports whether a token hash has been revoked.
type RevocationLookup interface {
	ExistsByTokenHash(ctx context.Context, tokenHash string) (bool, error)
}

// Option configures JWT.
type Option func(*JWT)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(j *JWT) { j.accessTTL = ttl }
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(j *JWT) { j.refreshTTL = ttl }
}

// WithClock sets the clock used for issuing and validating tokens.
func WithClock(clock model.Clock) Option {
	return func(j *JWT) { j.clock = clock }
}

var _ model.TokenCodec = (*JWT)(nil)

// JWT implements TokenCodec backed by symmetric HMAC.
type JWT struct {
	secretKey   []byte
	revocations RevocationLookup
	accessTTL   time.Duration
	refreshTTL  time.Duration
	clock       model.Clock
}

// NewJWT creates a new JWT codec. It fails with model.ErrWeakSigningKey
// when the secret is shorter than MinSecretLength bytes.
func NewJWT(secretKey string, revocations RevocationLookup, opts ...Option) (*JWT, error) {
	if len(secretKey) < MinSecretLength {
		return nil, fmt.Errorf("%w: got %d bytes", model.ErrWeakSigningKey, len(secretKey))
	}

	j := &JWT{
		secretKey:   []byte(secretKey),
		revocations: revocations,
		accessTTL:   defaultAccessTTL,
		refreshTTL:  defaultRefreshTTL,
		clock:       model.SystemClock{},
	}
	for _, opt := range opts {
		opt(j)
	}

	return j, nil
}

// AccessTTL returns the access token lifetime.
func (j *JWT) AccessTTL() time.Duration { return j.accessTTL }

// RefreshTTL returns the refresh token lifetime.
func (j *JWT) RefreshTTL() time.Duration { return j.refreshTTL }

// IssueAccess creates a short-lived access token.
func (j *JWT) IssueAccess(subject string, role model.Role) (string, error) {
	tokenString, err := j.issue(subject, model.NormalizeRole(string(role)), model.TokenTypeAccess, j.accessTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return tokenString, nil
}

// IssueRefresh creates a long-lived refresh token.
func (j *JWT) IssueRefresh(subject string) (string, error) {
	tokenString, err := j.issue(subject, "", model.TokenTypeRefresh, j.refreshTTL)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return tokenString, nil
}

func (j *JWT) issue(subject string, role model.Role, tokenType string, ttl time.Duration) (string, error) {
	now := j.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: string(role),
		Type: tokenType,
	})

	return token.SignedString(j.secretKey)
}

// Verify checks signature and expiry and returns the token claims.
// An expired token matches both model.ErrInvalidToken and model.ErrExpiredToken.
func (j *JWT) Verify(tokenString string) (model.TokenClaims, error) {
	claims, err := j.parse(tokenString, jwt.WithExpirationRequired())
	if err != nil {
		return model.TokenClaims{}, err
	}
	return toModel(claims), nil
}

// IsExpired reports whether the token's expiry has passed. Tokens that
// cannot be verified are reported as expired.
func (j *JWT) IsExpired(tokenString string) bool {
	claims, err := j.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil || claims.ExpiresAt == nil {
		return true
	}
	return !j.clock.Now().Before(claims.ExpiresAt.Time)
}

// ExpiresAt returns the signature-verified expiry, whether or not it has passed.
func (j *JWT) ExpiresAt(tokenString string) (time.Time, error) {
	claims, err := j.parse(tokenString, jwt.WithoutClaimsValidation())
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("%w: exp", model.ErrMissingClaim)
	}
	return claims.ExpiresAt.Time, nil
}

// ExtractSubject returns the verified subject claim.
func (j *JWT) ExtractSubject(tokenString string) (string, error) {
	claims, err := j.Verify(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: sub", model.ErrMissingClaim)
	}
	return claims.Subject, nil
}

// ExtractRole returns the verified role claim.
func (j *JWT) ExtractRole(tokenString string) (model.Role, error) {
	claims, err := j.Verify(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Role == "" {
		return "", fmt.Errorf("%w: role", model.ErrMissingClaim)
	}
	return claims.Role, nil
}

// IsValid reports whether the token verifies and has not been revoked.
// It never fails; lookup errors count as invalid.
func (j *JWT) IsValid(ctx context.Context, tokenString string) bool {
	if _, err := j.Verify(tokenString); err != nil {
		return false
	}
	if j.revocations == nil {
		return true
	}
	revoked, err := j.revocations.ExistsByTokenHash(ctx, Hash(tokenString))
	if err != nil {
		return false
	}
	return !revoked
}

func (j *JWT) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.clock.Now),
	)

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secretKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", model.ErrInvalidToken, model.ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidToken, err.Error())
	}

	return claims, nil
}

func toModel(c *Claims) model.TokenClaims {
	out := model.TokenClaims{
		ID:      c.ID,
		Subject: c.Subject,
		Role:    model.Role(c.Role),
		Type:    c.Type,
	}
	if c.IssuedAt != nil {
		out.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		out.ExpiresAt = c.ExpiresAt.Time
	}
	return out
}
