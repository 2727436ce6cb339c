package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/sessionguard/internal/model"
)

// Authenticator is a mock of model.Authenticator.
type Authenticator struct {
	mock.Mock
}

func (m *Authenticator) Authenticate(ctx context.Context, email, password string) (model.Principal, error) {
	ret := m.Called(ctx, email, password)
	return ret.Get(0).(model.Principal), ret.Error(1)
}

// PasswordHasher is a mock of model.PasswordHasher.
type PasswordHasher struct {
	mock.Mock
}

func (m *PasswordHasher) Hash(plain string) (string, error) {
	ret := m.Called(plain)
	return ret.String(0), ret.Error(1)
}

func (m *PasswordHasher) Matches(plain, hash string) bool {
	ret := m.Called(plain, hash)
	return ret.Bool(0)
}

// Storage is a mock of model.Storage.
type Storage struct {
	mock.Mock
}

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	ret := m.Called(ctx, key, reader, size, contentType)
	return ret.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	ret := m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}
