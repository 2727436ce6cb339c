package service

import (
	"context"
	"errors"
	"time"

	"github.com/dtroode/sessionguard/internal/logger"
	"github.com/dtroode/sessionguard/internal/metrics"
	"github.com/dtroode/sessionguard/internal/model"
)

// Sweeper drops stale in-memory state and returns how many entries it removed.
type Sweeper interface {
	Sweep() int
}

type pruner struct {
	name  string
	prune func(ctx context.Context, now time.Time) (int64, error)
}

// Cleanup deletes expired rows from every token store.
type Cleanup struct {
	pruners []pruner
	limiter Sweeper
	clock   model.Clock
	metrics *metrics.Metrics
	logger  *logger.Logger
}

func NewCleanup(
	revocations *Revocations,
	sessions *Sessions,
	verifications *ActionTokens,
	resets *ActionTokens,
	limiter Sweeper,
	clock model.Clock,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *Cleanup {
	return &Cleanup{
		pruners: []pruner{
			{name: "revocations", prune: revocations.PruneExpired},
			{name: "refresh_sessions", prune: sessions.PruneExpired},
			{name: "verification_tokens", prune: verifications.PruneExpired},
			{name: "password_reset_tokens", prune: resets.PruneExpired},
		},
		limiter: limiter,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Run makes one pass over all stores. A failing store does not stop the
// others; all failures are returned joined.
func (c *Cleanup) Run(ctx context.Context) error {
	now := c.clock.Now()

	var errs []error
	for _, p := range c.pruners {
		n, err := p.prune(ctx, now)
		if err != nil {
			c.logger.Error("Cleanup: prune failed",
				"store", p.name,
				"error", err.Error())
			errs = append(errs, err)
			continue
		}
		c.metrics.Pruned(p.name, n)
		c.logger.Debug("Cleanup: pruned expired rows",
			"store", p.name,
			"count", n)
	}

	if c.limiter != nil {
		swept := c.limiter.Sweep()
		c.logger.Debug("Cleanup: swept rate limiter",
			"count", swept)
	}

	return errors.Join(errs...)
}

// Start runs a pass every interval until ctx is done.
func (c *Cleanup) Start(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("Cleanup: started",
		"interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Cleanup: stopped")
			return nil
		case <-ticker.C:
			if err := c.Run(ctx); err != nil {
				c.logger.Warn("Cleanup: pass finished with errors",
					"error", err.Error())
			}
		}
	}
}
