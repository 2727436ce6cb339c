package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/sessionguard/internal/model"
)

// NoTx runs fn directly. Writes made before a failure are not rolled back.
type NoTx struct{}

func (NoTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// PrincipalStore keeps principals in memory.
type PrincipalStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]model.Principal
}

func NewPrincipalStore(principals ...model.Principal) *PrincipalStore {
	s := &PrincipalStore{byID: make(map[uuid.UUID]model.Principal)}
	for _, p := range principals {
		s.byID[p.ID] = p
	}
	return s
}

func (s *PrincipalStore) GetByEmail(_ context.Context, email string) (model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Email == email {
			return p, nil
		}
	}
	return model.Principal{}, model.ErrNotFound
}

func (s *PrincipalStore) GetByID(_ context.Context, id uuid.UUID) (model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.byID[id]
	if !ok {
		return model.Principal{}, model.ErrNotFound
	}
	return p, nil
}

func (s *PrincipalStore) Create(_ context.Context, principal model.Principal) (model.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.byID {
		if p.Email == principal.Email {
			return model.Principal{}, model.ErrDuplicateEmail
		}
	}
	s.byID[principal.ID] = principal
	return principal, nil
}

func (s *PrincipalStore) Save(_ context.Context, principal model.Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[principal.ID]; !ok {
		return model.ErrNotFound
	}
	s.byID[principal.ID] = principal
	return nil
}

// RefreshSessionStore keeps sessions in memory keyed by token hash.
type RefreshSessionStore struct {
	mu     sync.Mutex
	byHash map[string]model.RefreshSession
}

func NewRefreshSessionStore() *RefreshSessionStore {
	return &RefreshSessionStore{byHash: make(map[string]model.RefreshSession)}
}

func (s *RefreshSessionStore) Create(_ context.Context, session model.RefreshSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[session.TokenHash] = session
	return nil
}

func (s *RefreshSessionStore) GetByTokenHash(_ context.Context, tokenHash string) (model.RefreshSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.byHash[tokenHash]
	if !ok {
		return model.RefreshSession{}, model.ErrNotFound
	}
	return session, nil
}

func (s *RefreshSessionStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[tokenHash]; !ok {
		return model.ErrNotFound
	}
	delete(s.byHash, tokenHash)
	return nil
}

func (s *RefreshSessionStore) DeleteAllByPrincipal(_ context.Context, principalID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, session := range s.byHash {
		if session.PrincipalID == principalID {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

func (s *RefreshSessionStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, session := range s.byHash {
		if session.ExpiresAt.Before(before) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Count returns the number of stored sessions of the principal.
func (s *RefreshSessionStore) Count(principalID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, session := range s.byHash {
		if session.PrincipalID == principalID {
			n++
		}
	}
	return n
}

// RevocationStore keeps revocations in memory keyed by token hash.
type RevocationStore struct {
	mu     sync.Mutex
	byHash map[string]model.Revocation
}

func NewRevocationStore() *RevocationStore {
	return &RevocationStore{byHash: make(map[string]model.Revocation)}
}

func (s *RevocationStore) Create(_ context.Context, revocation model.Revocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[revocation.TokenHash]; !ok {
		s.byHash[revocation.TokenHash] = revocation
	}
	return nil
}

func (s *RevocationStore) ExistsByTokenHash(_ context.Context, tokenHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byHash[tokenHash]
	return ok, nil
}

func (s *RevocationStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, r := range s.byHash {
		if r.ExpiresAt.Before(before) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored revocations.
func (s *RevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

// ActionTokenStore keeps action tokens in memory keyed by token hash.
type ActionTokenStore struct {
	mu     sync.Mutex
	byHash map[string]model.ActionToken
}

func NewActionTokenStore() *ActionTokenStore {
	return &ActionTokenStore{byHash: make(map[string]model.ActionToken)}
}

// Create replaces any token the principal already holds.
func (s *ActionTokenStore) Create(_ context.Context, token model.ActionToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, t := range s.byHash {
		if t.PrincipalID == token.PrincipalID {
			delete(s.byHash, hash)
		}
	}
	s.byHash[token.TokenHash] = token
	return nil
}

func (s *ActionTokenStore) DeleteByPrincipal(_ context.Context, principalID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, t := range s.byHash {
		if t.PrincipalID == principalID {
			delete(s.byHash, hash)
		}
	}
	return nil
}

func (s *ActionTokenStore) GetByTokenHashForUpdate(_ context.Context, tokenHash string) (model.ActionToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byHash[tokenHash]
	if !ok {
		return model.ActionToken{}, model.ErrNotFound
	}
	return t, nil
}

func (s *ActionTokenStore) DeleteByTokenHash(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[tokenHash]; !ok {
		return model.ErrNotFound
	}
	delete(s.byHash, tokenHash)
	return nil
}

func (s *ActionTokenStore) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, t := range s.byHash {
		if t.ExpiresAt.Before(before) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored tokens.
func (s *ActionTokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}
