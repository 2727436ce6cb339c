package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/metrics"
	"github.com/dtroode/sessionguard/internal/model"
)

const tokenTypeBearer = "Bearer"

// RateLimiter counts attempts per key.
type RateLimiter interface {
	IsAllowed(key string) bool
	RecordSuccess(key string)
	RecordFailure(key string)
}

// AuthDeps groups the collaborators of Auth.
type AuthDeps struct {
	Codec         model.TokenCodec
	Sessions      *Sessions
	Revocations   *Revocations
	Verifications *ActionTokens
	Resets        *ActionTokens
	Limiter       RateLimiter
	Principals    model.PrincipalStore
	Authenticator model.Authenticator
	Hasher        model.PasswordHasher
	Mail          model.MailSender
	Tx            model.Transactor
	Clock         model.Clock
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	// FrontendURL prefixes the links sent by email.
	FrontendURL string
}

// Auth implements login, refresh rotation, logout and the email driven
// verification and password reset flows.
type Auth struct {
	codec         model.TokenCodec
	sessions      *Sessions
	revocations   *Revocations
	verifications *ActionTokens
	resets        *ActionTokens
	limiter       RateLimiter
	principals    model.PrincipalStore
	authenticator model.Authenticator
	hasher        model.PasswordHasher
	mail          model.MailSender
	tx            model.Transactor
	clock         model.Clock
	metrics       *metrics.Metrics
	logger        *logger.Logger
	frontendURL   string
}

func NewAuth(deps AuthDeps) *Auth {
	return &Auth{
		codec:         deps.Codec,
		sessions:      deps.Sessions,
		revocations:   deps.Revocations,
		verifications: deps.Verifications,
		resets:        deps.Resets,
		limiter:       deps.Limiter,
		principals:    deps.Principals,
		authenticator: deps.Authenticator,
		hasher:        deps.Hasher,
		mail:          deps.Mail,
		tx:            deps.Tx,
		clock:         deps.Clock,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		frontendURL:   strings.TrimRight(deps.FrontendURL, "/"),
	}
}

// RegisterParams contains parameters to register a principal.
type RegisterParams struct {
	Email    string
	Password string
	// ClientIP keys the registration limiter. Empty disables limiting.
	ClientIP string
}

// Register creates an inactive, unverified principal and emails it a
// verification link.
func (a *Auth) Register(ctx context.Context, params RegisterParams) (model.Principal, error) {
	a.logger.Debug("Auth service: registering principal",
		"email", params.Email)

	limitKey := ""
	if params.ClientIP != "" {
		limitKey = "register:" + params.ClientIP
		if !a.limiter.IsAllowed(limitKey) {
			a.metrics.RateLimited("register")
			a.logger.Warn("Auth service: registration rate limited",
				"ip", params.ClientIP)
			return model.Principal{}, model.ErrRateLimitExceeded
		}
	}

	_, err := a.principals.GetByEmail(ctx, params.Email)
	if err == nil {
		a.logger.Info("Auth service: email already registered",
			"email", params.Email)
		return model.Principal{}, model.ErrDuplicateEmail
	}
	if !errors.Is(err, model.ErrNotFound) {
		return model.Principal{}, fmt.Errorf("failed to get principal by email: %w", err)
	}

	hash, err := a.hasher.Hash(params.Password)
	if err != nil {
		return model.Principal{}, fmt.Errorf("failed to hash password: %w", err)
	}

	now := a.clock.Now()
	principal, err := a.principals.Create(ctx, model.Principal{
		ID:           uuid.New(),
		Email:        params.Email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, model.ErrDuplicateEmail) {
			return model.Principal{}, err
		}
		return model.Principal{}, fmt.Errorf("failed to create principal: %w", err)
	}

	a.logger.Info("Auth service: principal registered",
		"email", principal.Email,
		"principal_id", principal.ID)

	if a.sendVerification(ctx, principal) && limitKey != "" {
		a.limiter.RecordSuccess(limitKey)
	}

	return principal, nil
}

// Login checks credentials and opens a new session.
func (a *Auth) Login(ctx context.Context, email, password string) (model.TokenPair, error) {
	key := "login:" + strings.ToLower(email)
	if !a.limiter.IsAllowed(key) {
		a.metrics.RateLimited("login")
		a.metrics.Login(metrics.OutcomeRejected)
		a.logger.Warn("Auth service: login rate limited",
			"email", email)
		return model.TokenPair{}, model.ErrRateLimitExceeded
	}

	pair, err := a.login(ctx, key, email, password)
	if err != nil {
		a.limiter.RecordFailure(key)
		a.metrics.Login(metrics.OutcomeFailure)
		a.logger.Warn("Auth service: login failed",
			"email", email,
			"error", err.Error())
		return model.TokenPair{}, err
	}

	a.metrics.Login(metrics.OutcomeSuccess)
	a.logger.Info("Auth service: login succeeded",
		"email", email)

	return pair, nil
}

func (a *Auth) login(ctx context.Context, limitKey, email, password string) (model.TokenPair, error) {
	principal, err := a.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if errors.Is(err, model.ErrAuthenticationFailed) {
			return model.TokenPair{}, model.ErrAuthenticationFailed
		}
		return model.TokenPair{}, fmt.Errorf("failed to authenticate: %w", err)
	}

	if !principal.Verified {
		return model.TokenPair{}, model.ErrUserNotVerified
	}
	if !principal.Active {
		return model.TokenPair{}, model.ErrUserInactive
	}

	a.limiter.RecordSuccess(limitKey)

	return a.openSession(ctx, principal)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued. Of two concurrent rotations of one token only one succeeds;
// the other fails with model.ErrTokenNotFound.
func (a *Auth) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	pair, err := a.refresh(ctx, refreshToken)
	if err != nil {
		a.metrics.Refresh(metrics.OutcomeFailure)
		a.logger.Info("Auth service: refresh rejected",
			"error", err.Error())
		return model.TokenPair{}, err
	}

	a.metrics.Refresh(metrics.OutcomeSuccess)
	return pair, nil
}

func (a *Auth) refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	if !a.codec.IsValid(ctx, refreshToken) {
		return model.TokenPair{}, model.ErrInvalidToken
	}
	claims, err := a.codec.Verify(refreshToken)
	if err != nil || claims.Type != model.TokenTypeRefresh {
		return model.TokenPair{}, model.ErrInvalidToken
	}

	session, err := a.sessions.FindActive(ctx, refreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}

	if a.clock.Now().After(session.ExpiresAt) {
		if err := a.dropSession(ctx, refreshToken); err != nil {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, model.ErrExpiredToken
	}

	principal, err := a.principals.GetByID(ctx, session.PrincipalID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.TokenPair{}, model.ErrTokenNotFound
		}
		return model.TokenPair{}, fmt.Errorf("failed to get principal: %w", err)
	}

	if !principal.Active {
		if err := a.dropSession(ctx, refreshToken); err != nil {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, model.ErrUserInactive
	}
	if !principal.Verified {
		if err := a.dropSession(ctx, refreshToken); err != nil {
			return model.TokenPair{}, err
		}
		return model.TokenPair{}, model.ErrUserNotVerified
	}

	var pair model.TokenPair
	err = a.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := a.sessions.Revoke(ctx, refreshToken); err != nil {
			return err
		}
		var err error
		pair, err = a.openSession(ctx, principal)
		return err
	})
	if err != nil {
		return model.TokenPair{}, err
	}

	a.logger.Debug("Auth service: refresh token rotated",
		"principal_id", principal.ID)

	return pair, nil
}

// dropSession revokes a session that can no longer be used. A session
// already removed by a concurrent request is not an error.
func (a *Auth) dropSession(ctx context.Context, refreshToken string) error {
	if err := a.sessions.Revoke(ctx, refreshToken); err != nil && !errors.Is(err, model.ErrTokenNotFound) {
		return err
	}
	return nil
}

func (a *Auth) openSession(ctx context.Context, principal model.Principal) (model.TokenPair, error) {
	access, err := a.codec.IssueAccess(principal.Email, principal.Role)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue access token: %w", err)
	}

	refresh, err := a.codec.IssueRefresh(principal.Email)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	if _, err := a.sessions.Create(ctx, principal.ID, refresh); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh,
		TokenType:       tokenTypeBearer,
		ExpiresInMillis: a.codec.AccessTTL().Milliseconds(),
	}, nil
}

// Logout revokes both tokens. Missing, unknown or already invalid tokens
// are ignored so that logging out twice succeeds.
func (a *Auth) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken != "" {
		if _, err := a.codec.Verify(accessToken); err == nil {
			if err := a.revocations.Revoke(ctx, accessToken, model.TokenKindAccess); err != nil {
				return err
			}
		}
	}

	if refreshToken != "" {
		if err := a.sessions.Revoke(ctx, refreshToken); err != nil && !model.IsTokenError(err) {
			return err
		}
	}

	a.logger.Info("Auth service: logout completed")
	return nil
}

// Authenticate resolves the identity behind an access token.
func (a *Auth) Authenticate(ctx context.Context, accessToken string) (model.Identity, error) {
	claims, err := a.codec.Verify(accessToken)
	if err != nil {
		return model.Identity{}, err
	}
	if claims.Type != model.TokenTypeAccess || claims.Subject == "" {
		return model.Identity{}, model.ErrInvalidToken
	}

	revoked, err := a.revocations.IsRevoked(ctx, accessToken)
	if err != nil {
		return model.Identity{}, err
	}
	if revoked {
		return model.Identity{}, model.ErrInvalidToken
	}

	return model.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// VerifyEmail consumes a verification token and activates its principal.
func (a *Auth) VerifyEmail(ctx context.Context, verificationToken string) error {
	err := a.verifications.Consume(ctx, verificationToken, func(ctx context.Context, principalID uuid.UUID) error {
		principal, err := a.principals.GetByID(ctx, principalID)
		if err != nil {
			return fmt.Errorf("failed to get principal: %w", err)
		}

		principal.Active = true
		principal.Verified = true
		principal.UpdatedAt = a.clock.Now()

		if err := a.principals.Save(ctx, principal); err != nil {
			return fmt.Errorf("failed to save principal: %w", err)
		}
		return nil
	})
	if err != nil {
		a.logger.Info("Auth service: email verification failed",
			"error", err.Error())
		return err
	}

	a.logger.Info("Auth service: email verified")
	return nil
}

// ResendVerification emails a fresh verification link. Unknown and already
// verified addresses are ignored silently.
func (a *Auth) ResendVerification(ctx context.Context, email string) error {
	principal, err := a.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.logger.Info("Auth service: verification resend for unknown email",
				"email", email)
			return nil
		}
		return fmt.Errorf("failed to get principal by email: %w", err)
	}

	if principal.Verified {
		a.logger.Info("Auth service: verification resend for verified email",
			"email", email)
		return nil
	}

	a.sendVerification(ctx, principal)
	return nil
}

// RequestPasswordReset emails a reset link. It reports success whether or
// not the address belongs to a principal, and issuing or mailing failures
// are only logged.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	key := "forgot-password:" + strings.ToLower(email)
	if !a.limiter.IsAllowed(key) {
		a.metrics.RateLimited("forgot_password")
		a.logger.Warn("Auth service: password reset rate limited",
			"email", email)
		return nil
	}

	principal, err := a.principals.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.limiter.RecordFailure(key)
			a.logger.Info("Auth service: password reset for unknown email",
				"email", email)
			return nil
		}
		return fmt.Errorf("failed to get principal by email: %w", err)
	}

	// Requests for a known address stay counted so reset mail is capped per window.
	resetToken, err := a.resets.Issue(ctx, principal.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue password reset token",
			"email", principal.Email,
			"error", err.Error())
		return nil
	}

	a.deliver(ctx, model.Message{
		To:      principal.Email,
		Subject: "Reset your password",
		Body:    "Use this link to choose a new password: " + a.link("/reset-password", resetToken),
	})

	return nil
}

// ResetPassword consumes a reset token, sets the new password and ends
// every session of the principal.
func (a *Auth) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	hash, err := a.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = a.resets.Consume(ctx, resetToken, func(ctx context.Context, principalID uuid.UUID) error {
		principal, err := a.principals.GetByID(ctx, principalID)
		if err != nil {
			return fmt.Errorf("failed to get principal: %w", err)
		}

		principal.PasswordHash = hash
		principal.UpdatedAt = a.clock.Now()

		if err := a.principals.Save(ctx, principal); err != nil {
			return fmt.Errorf("failed to save principal: %w", err)
		}

		_, err = a.sessions.RevokeAllForPrincipal(ctx, principalID)
		return err
	})
	if err != nil {
		a.logger.Info("Auth service: password reset failed",
			"error", err.Error())
		return err
	}

	a.logger.Info("Auth service: password reset completed")
	return nil
}

// sendVerification issues a verification token and mails it. Failures are
// logged and reported as false.
func (a *Auth) sendVerification(ctx context.Context, principal model.Principal) bool {
	verificationToken, err := a.verifications.Issue(ctx, principal.ID)
	if err != nil {
		a.logger.Error("Auth service: failed to issue verification token",
			"email", principal.Email,
			"error", err.Error())
		return false
	}

	return a.deliver(ctx, model.Message{
		To:      principal.Email,
		Subject: "Verify your email",
		Body:    "Use this link to verify your email: " + a.link("/verify", verificationToken),
	})
}

func (a *Auth) deliver(ctx context.Context, msg model.Message) bool {
	if err := a.mail.Send(ctx, msg); err != nil {
		a.metrics.MailFailure()
		a.logger.Error("Auth service: failed to send email",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err.Error())
		return false
	}
	return true
}

func (a *Auth) link(path, tokenString string) string {
	return a.frontendURL + path + "?token=" + url.QueryEscape(tokenString)
}
