package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryStore implements an in-memory credential store. It is used by
// tests and standalone deployments that do not need persistence.
type memoryStore struct {
	mu         sync.RWMutex
	byUsername map[string]*User
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() Store {
	return &memoryStore{
		byUsername: make(map[string]*User),
	}
}

// FindByUsername implements Store.
func (s *memoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byUsername[username]
	if !ok {
		return nil, ErrUserNotFound
	}

	clone := *user
	return &clone, nil
}

// Create implements Store. The existence check and the insert share
// one critical section, so concurrent creates with the same username
// cannot both succeed.
func (s *memoryStore) Create(_ context.Context, username, passwordHash string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[username]; ok {
		return nil, ErrDuplicateUsername
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	s.byUsername[username] = user

	clone := *user
	return &clone, nil
}

// Close implements Store.
func (s *memoryStore) Close() error {
	return nil
}
