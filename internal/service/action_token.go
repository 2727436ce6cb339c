package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/token"
)

const actionTokenBytes = 32

// ActionTokens issues and consumes single-use tokens of one kind.
type ActionTokens struct {
	kind   model.ActionKind
	store  model.ActionTokenStore
	tx     model.Transactor
	clock  model.Clock
	ttl    time.Duration
	logger *logger.Logger
}

func NewActionTokens(
	kind model.ActionKind,
	store model.ActionTokenStore,
	tx model.Transactor,
	clock model.Clock,
	ttl time.Duration,
	logger *logger.Logger,
) *ActionTokens {
	return &ActionTokens{kind: kind, store: store, tx: tx, clock: clock, ttl: ttl, logger: logger}
}

// Issue replaces any token the principal holds with a new one and returns it.
func (s *ActionTokens) Issue(ctx context.Context, principalID uuid.UUID) (string, error) {
	tokenString, err := randomToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate %s token: %w", s.kind, err)
	}

	now := s.clock.Now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.store.DeleteByPrincipal(ctx, principalID); err != nil {
			return err
		}
		return s.store.Create(ctx, model.ActionToken{
			ID:          uuid.New(),
			TokenHash:   token.Hash(tokenString),
			PrincipalID: principalID,
			ExpiresAt:   now.Add(s.ttl),
			CreatedAt:   now,
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to store %s token: %w", s.kind, err)
	}

	s.logger.Debug("Action token service: token issued",
		"kind", s.kind,
		"principal_id", principalID)

	return tokenString, nil
}

// Consume deletes the token and runs apply for its principal in the same
// transaction. It fails with model.ErrTokenNotFound for an unknown or
// already consumed token and model.ErrExpiredToken for an expired one.
// If apply fails the token stays usable.
func (s *ActionTokens) Consume(ctx context.Context, tokenString string, apply func(ctx context.Context, principalID uuid.UUID) error) error {
	hash := token.Hash(tokenString)

	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		at, err := s.store.GetByTokenHashForUpdate(ctx, hash)
		if err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrTokenNotFound
			}
			return fmt.Errorf("failed to get %s token: %w", s.kind, err)
		}

		if s.clock.Now().After(at.ExpiresAt) {
			return model.ErrExpiredToken
		}

		if err := s.store.DeleteByTokenHash(ctx, hash); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return model.ErrTokenNotFound
			}
			return fmt.Errorf("failed to delete %s token: %w", s.kind, err)
		}

		return apply(ctx, at.PrincipalID)
	})
}

// PruneExpired deletes tokens that expired before now.
func (s *ActionTokens) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune %s tokens: %w", s.kind, err)
	}
	return n, nil
}

func randomToken() (string, error) {
	b := make([]byte, actionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
