package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/token"
)

// Sessions tracks which refresh tokens represent a live session.
type Sessions struct {
	store       model.RefreshSessionStore
	revocations *Revocations
	tx          model.Transactor
	clock       model.Clock
	ttl         time.Duration
	single      bool
	logger      *logger.Logger
}

// NewSessions creates Sessions. With singlePerPrincipal set, creating a
// session drops every other session of the same principal.
func NewSessions(
	store model.RefreshSessionStore,
	revocations *Revocations,
	tx model.Transactor,
	clock model.Clock,
	ttl time.Duration,
	singlePerPrincipal bool,
	logger *logger.Logger,
) *Sessions {
	return &Sessions{
		store:       store,
		revocations: revocations,
		tx:          tx,
		clock:       clock,
		ttl:         ttl,
		single:      singlePerPrincipal,
		logger:      logger,
	}
}

// Create persists a session for the refresh token.
func (s *Sessions) Create(ctx context.Context, principalID uuid.UUID, tokenString string) (model.RefreshSession, error) {
	now := s.clock.Now()
	session := model.RefreshSession{
		ID:          uuid.New(),
		TokenHash:   token.Hash(tokenString),
		PrincipalID: principalID,
		ExpiresAt:   now.Add(s.ttl),
		CreatedAt:   now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if s.single {
			if _, err := s.store.DeleteAllByPrincipal(ctx, principalID); err != nil {
				return err
			}
		}
		return s.store.Create(ctx, session)
	})
	if err != nil {
		return model.RefreshSession{}, fmt.Errorf("failed to create refresh session: %w", err)
	}

	return session, nil
}

// FindActive returns the session of the refresh token or model.ErrTokenNotFound.
func (s *Sessions) FindActive(ctx context.Context, tokenString string) (model.RefreshSession, error) {
	session, err := s.store.GetByTokenHash(ctx, token.Hash(tokenString))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.RefreshSession{}, model.ErrTokenNotFound
		}
		return model.RefreshSession{}, fmt.Errorf("failed to find refresh session: %w", err)
	}
	return session, nil
}

// Revoke deletes the session and revokes its token in one transaction.
// It returns model.ErrTokenNotFound when the session is already gone, which
// is how a concurrent second revocation of the same token loses.
func (s *Sessions) Revoke(ctx context.Context, tokenString string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteByTokenHash(ctx, token.Hash(tokenString)); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrTokenNotFound
			}
			return fmt.Errorf("failed to delete refresh session: %w", err)
		}
		return s.revocations.Revoke(ctx, tokenString, model.TokenKindRefresh)
	})
}

// RevokeAllForPrincipal deletes every session of the principal.
func (s *Sessions) RevokeAllForPrincipal(ctx context.Context, principalID uuid.UUID) (int64, error) {
	n, err := s.store.DeleteAllByPrincipal(ctx, principalID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions of principal: %w", err)
	}

	s.logger.Info("Session service: revoked all sessions",
		"principal_id", principalID,
		"count", n)

	return n, nil
}

// PruneExpired deletes sessions that expired before now.
func (s *Sessions) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune refresh sessions: %w", err)
	}
	return n, nil
}
