package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/sessionguard/internal/model"
)

// PrincipalStore is a mock of model.PrincipalStore.
type PrincipalStore struct {
	mock.Mock
}

func (m *PrincipalStore) GetByEmail(ctx context.Context, email string) (model.Principal, error) {
	ret := m.Called(ctx, email)
	return ret.Get(0).(model.Principal), ret.Error(1)
}

func (m *PrincipalStore) GetByID(ctx context.Context, id uuid.UUID) (model.Principal, error) {
	ret := m.Called(ctx, id)
	return ret.Get(0).(model.Principal), ret.Error(1)
}

func (m *PrincipalStore) Create(ctx context.Context, principal model.Principal) (model.Principal, error) {
	ret := m.Called(ctx, principal)
	return ret.Get(0).(model.Principal), ret.Error(1)
}

func (m *PrincipalStore) Save(ctx context.Context, principal model.Principal) error {
	ret := m.Called(ctx, principal)
	return ret.Error(0)
}

// RefreshSessionStore is a mock of model.RefreshSessionStore.
type RefreshSessionStore struct {
	mock.Mock
}

func (m *RefreshSessionStore) Create(ctx context.Context, session model.RefreshSession) error {
	ret := m.Called(ctx, session)
	return ret.Error(0)
}

func (m *RefreshSessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	ret := m.Called(ctx, tokenHash)
	return ret.Get(0).(model.RefreshSession), ret.Error(1)
}

func (m *RefreshSessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	ret := m.Called(ctx, tokenHash)
	return ret.Error(0)
}

func (m *RefreshSessionStore) DeleteAllByPrincipal(ctx context.Context, principalID uuid.UUID) (int64, error) {
	ret := m.Called(ctx, principalID)
	return ret.Get(0).(int64), ret.Error(1)
}

func (m *RefreshSessionStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ret := m.Called(ctx, before)
	return ret.Get(0).(int64), ret.Error(1)
}

// RevocationStore is a mock of model.RevocationStore.
type RevocationStore struct {
	mock.Mock
}

func (m *RevocationStore) Create(ctx context.Context, revocation model.Revocation) error {
	ret := m.Called(ctx, revocation)
	return ret.Error(0)
}

func (m *RevocationStore) ExistsByTokenHash(ctx context.Context, tokenHash string) (bool, error) {
	ret := m.Called(ctx, tokenHash)
	return ret.Bool(0), ret.Error(1)
}

func (m *RevocationStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ret := m.Called(ctx, before)
	return ret.Get(0).(int64), ret.Error(1)
}

// ActionTokenStore is a mock of model.ActionTokenStore.
type ActionTokenStore struct {
	mock.Mock
}

func (m *ActionTokenStore) Create(ctx context.Context, token model.ActionToken) error {
	ret := m.Called(ctx, token)
	return ret.Error(0)
}

func (m *ActionTokenStore) DeleteByPrincipal(ctx context.Context, principalID uuid.UUID) error {
	ret := m.Called(ctx, principalID)
	return ret.Error(0)
}

func (m *ActionTokenStore) GetByTokenHashForUpdate(ctx context.Context, tokenHash string) (model.ActionToken, error) {
	ret := m.Called(ctx, tokenHash)
	return ret.Get(0).(model.ActionToken), ret.Error(1)
}

func (m *ActionTokenStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	ret := m.Called(ctx, tokenHash)
	return ret.Error(0)
}

func (m *ActionTokenStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ret := m.Called(ctx, before)
	return ret.Get(0).(int64), ret.Error(1)
}
