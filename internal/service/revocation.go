package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/metrics"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/token"
)

// Revocations records tokens that must be rejected before their natural expiry.
type Revocations struct {
	store   model.RevocationStore
	codec   model.TokenCodec
	clock   model.Clock
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewRevocations(
	store model.RevocationStore,
	codec model.TokenCodec,
	clock model.Clock,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Revocations {
	return &Revocations{store: store, codec: codec, clock: clock, metrics: metrics, logger: logger}
}

// Revoke stores the token until its own expiry. Revoking the same token
// again is a no-op, and so is revoking a token that has already expired.
func (s *Revocations) Revoke(ctx context.Context, tokenString string, kind model.TokenKind) error {
	expiresAt, err := s.codec.ExpiresAt(tokenString)
	if err != nil {
		return fmt.Errorf("failed to read token expiry: %w", err)
	}

	now := s.clock.Now()
	if !expiresAt.After(now) {
		s.logger.Debug("Revocation service: token already expired, skipping",
			"kind", kind)
		return nil
	}

	err = s.store.Create(ctx, model.Revocation{
		ID:        uuid.New(),
		TokenHash: token.Hash(tokenString),
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		s.logger.Error("Revocation service: failed to store revocation",
			"kind", kind,
			"error", err.Error())
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.metrics.Revocation(string(kind))
	return nil
}

// IsRevoked reports whether the token has been revoked.
func (s *Revocations) IsRevoked(ctx context.Context, tokenString string) (bool, error) {
	revoked, err := s.store.ExistsByTokenHash(ctx, token.Hash(tokenString))
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return revoked, nil
}

// PruneExpired deletes entries whose token expired before now.
func (s *Revocations) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune revocations: %w", err)
	}
	return n, nil
}
