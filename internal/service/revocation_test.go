package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/sessionguard/internal/metrics"
	"github.com/dtroode/sessionguard/internal/mocks"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/testutil"
	"github.com/dtroode/sessionguard/internal/token"
)

func newRevocationsFixture(t *testing.T) (*Revocations, *mocks.RevocationStore, *token.JWT, *testutil.FakeClock) {
	t.Helper()

	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := &mocks.RevocationStore{}
	codec, err := token.NewJWT(testSecret, store, token.WithClock(clock))
	require.NoError(t, err)

	return NewRevocations(store, codec, clock, metrics.New(), testutil.MakeNoopLogger()), store, codec, clock
}

func TestRevocations_Revoke_StoresUntilTokenExpiry(t *testing.T) {
	r, store, codec, clock := newRevocationsFixture(t)

	access, err := codec.IssueAccess("a@b.c", model.RoleUser)
	require.NoError(t, err)

	store.On("Create", mock.Anything, mock.MatchedBy(func(rev model.Revocation) bool {
		return rev.TokenHash == token.Hash(access) &&
			rev.Kind == model.TokenKindAccess &&
			rev.ExpiresAt.Equal(clock.Now().Add(codec.AccessTTL()))
	})).Return(nil)

	require.NoError(t, r.Revoke(context.Background(), access, model.TokenKindAccess))
	store.AssertExpectations(t)
}

func TestRevocations_Revoke_SkipsExpiredToken(t *testing.T) {
	r, store, codec, clock := newRevocationsFixture(t)

	access, err := codec.IssueAccess("a@b.c", model.RoleUser)
	require.NoError(t, err)
	clock.Advance(codec.AccessTTL())

	require.NoError(t, r.Revoke(context.Background(), access, model.TokenKindAccess))
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRevocations_Revoke_RejectsForgedToken(t *testing.T) {
	r, store, _, _ := newRevocationsFixture(t)

	err := r.Revoke(context.Background(), "not.a.jwt", model.TokenKindAccess)
	require.ErrorIs(t, err, model.ErrInvalidToken)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRevocations_IsRevoked(t *testing.T) {
	r, store, _, _ := newRevocationsFixture(t)

	store.On("ExistsByTokenHash", mock.Anything, token.Hash("revoked")).Return(true, nil)
	store.On("ExistsByTokenHash", mock.Anything, token.Hash("fresh")).Return(false, nil)
	store.On("ExistsByTokenHash", mock.Anything, token.Hash("broken")).Return(false, errors.New("conn closed"))

	revoked, err := r.IsRevoked(context.Background(), "revoked")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = r.IsRevoked(context.Background(), "fresh")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = r.IsRevoked(context.Background(), "broken")
	require.Error(t, err)
}

func TestRevocations_PruneExpired(t *testing.T) {
	r, store, _, clock := newRevocationsFixture(t)

	store.On("DeleteExpired", mock.Anything, clock.Now()).Return(int64(4), nil)

	n, err := r.PruneExpired(context.Background(), clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
