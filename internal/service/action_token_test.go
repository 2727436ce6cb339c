package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/sessionguard/internal/mocks"
	"github.com/dtroode/sessionguard/internal/model"
	"github.com/dtroode/sessionguard/internal/testutil"
	"github.com/dtroode/sessionguard/internal/token"
)

func newActionTokens(store model.ActionTokenStore, clock model.Clock) *ActionTokens {
	return NewActionTokens(model.ActionVerification, store, testutil.NoTx{}, clock, model.VerificationTokenTTL, testutil.MakeNoopLogger())
}

func TestActionTokens_Issue(t *testing.T) {
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := &mocks.ActionTokenStore{}
	principalID := uuid.New()

	store.On("DeleteByPrincipal", mock.Anything, principalID).Return(nil).Once()
	store.On("Create", mock.Anything, mock.MatchedBy(func(at model.ActionToken) bool {
		return at.PrincipalID == principalID && at.ExpiresAt.Equal(clock.Now().Add(24*time.Hour))
	})).Return(nil).Once()

	tok, err := newActionTokens(store, clock).Issue(context.Background(), principalID)
	require.NoError(t, err)
	assert.Len(t, tok, 43)
	store.AssertExpectations(t)
}

func TestActionTokens_Issue_StoreFailure(t *testing.T) {
	clock := testutil.NewFakeClock(time.Now())
	store := &mocks.ActionTokenStore{}
	principalID := uuid.New()

	store.On("DeleteByPrincipal", mock.Anything, principalID).Return(errors.New("deadlock"))

	_, err := newActionTokens(store, clock).Issue(context.Background(), principalID)
	require.Error(t, err)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestActionTokens_Consume(t *testing.T) {
	principalID := uuid.New()
	hash := token.Hash("tok")
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setup     func(store *mocks.ActionTokenStore)
		wantErr   error
		wantApply bool
	}{
		{
			name: "success",
			setup: func(store *mocks.ActionTokenStore) {
				store.On("GetByTokenHashForUpdate", mock.Anything, hash).Return(model.ActionToken{PrincipalID: principalID, ExpiresAt: now.Add(time.Minute)}, nil)
				store.On("DeleteByTokenHash", mock.Anything, hash).Return(nil)
			},
			wantApply: true,
		},
		{
			name: "unknown",
			setup: func(store *mocks.ActionTokenStore) {
				store.On("GetByTokenHashForUpdate", mock.Anything, hash).Return(model.ActionToken{}, model.ErrNotFound)
			},
			wantErr: model.ErrTokenNotFound,
		},
		{
			name: "expired",
			setup: func(store *mocks.ActionTokenStore) {
				store.On("GetByTokenHashForUpdate", mock.Anything, hash).Return(model.ActionToken{PrincipalID: principalID, ExpiresAt: now.Add(-time.Second)}, nil)
			},
			wantErr: model.ErrExpiredToken,
		},
		{
			name: "consumed concurrently",
			setup: func(store *mocks.ActionTokenStore) {
				store.On("GetByTokenHashForUpdate", mock.Anything, hash).Return(model.ActionToken{PrincipalID: principalID, ExpiresAt: now.Add(time.Minute)}, nil)
				store.On("DeleteByTokenHash", mock.Anything, hash).Return(model.ErrNotFound)
			},
			wantErr: model.ErrTokenNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mocks.ActionTokenStore{}
			tt.setup(store)

			applied := false
			err := newActionTokens(store, testutil.NewFakeClock(now)).Consume(context.Background(), "tok", func(_ context.Context, id uuid.UUID) error {
				applied = true
				assert.Equal(t, principalID, id)
				return nil
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantApply, applied)
			store.AssertExpectations(t)
		})
	}
}

func TestActionTokens_Consume_ApplyError(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &mocks.ActionTokenStore{}
	hash := token.Hash("tok")

	store.On("GetByTokenHashForUpdate", mock.Anything, hash).Return(model.ActionToken{PrincipalID: uuid.New(), ExpiresAt: now.Add(time.Minute)}, nil)
	store.On("DeleteByTokenHash", mock.Anything, hash).Return(nil)

	applyErr := errors.New("principal save failed")
	err := newActionTokens(store, testutil.NewFakeClock(now)).Consume(context.Background(), "tok", func(context.Context, uuid.UUID) error {
		return applyErr
	})
	require.ErrorIs(t, err, applyErr)
}

func TestActionTokens_SingleUseUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := testutil.NewActionTokenStore()
	tokens := newActionTokens(store, clock)

	tok, err := tokens.Issue(ctx, uuid.New())
	require.NoError(t, err)

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
		lost    int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tokens.Consume(ctx, tok, func(context.Context, uuid.UUID) error {
				mu.Lock()
				applied++
				mu.Unlock()
				return nil
			})
			if errors.Is(err, model.ErrTokenNotFound) {
				mu.Lock()
				lost++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, applied)
	assert.Equal(t, attempts-1, lost)
	assert.Zero(t, store.Len())
}

func TestActionTokens_ConcurrentIssueKeepsOneToken(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := testutil.NewActionTokenStore()
	tokens := newActionTokens(store, clock)
	principalID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tokens.Issue(ctx, principalID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.Len())
}

func TestActionTokens_PruneExpired(t *testing.T) {
	ctx := context.Background()
	clock := testutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := testutil.NewActionTokenStore()
	tokens := newActionTokens(store, clock)

	_, err := tokens.Issue(ctx, uuid.New())
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = tokens.Issue(ctx, uuid.New())
	require.NoError(t, err)

	n, err := tokens.PruneExpired(ctx, clock.Now().Add(23*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.Len())
}
