package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov/authgate/internal/observability"
	"github.com/avolkov/authgate/internal/store"
)

// failingStore returns a fixed error from every operation.
type failingStore struct {
	err error
}

func (f *failingStore) FindByUsername(context.Context, string) (*store.User, error) {
	return nil, f.err
}

func (f *failingStore) Create(context.Context, string, string) (*store.User, error) {
	return nil, f.err
}

func (f *failingStore) Close() error { return nil }

func newService(t *testing.T) *Service {
	t.Helper()

	// MinCost keeps hashing fast in tests.
	return NewService(store.NewMemoryStore(), WithBcryptCost(bcrypt.MinCost))
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	t.Parallel()

	s := newService(t)
	ctx := context.Background()

	user, err := s.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	got, err := s.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
}

func TestService_Register_Duplicate(t *testing.T) {
	t.Parallel()

	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = s.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, store.ErrDuplicateUsername)
}

func TestService_Register_EmptyInput(t *testing.T) {
	t.Parallel()

	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "", "s3cret")
	assert.ErrorIs(t, err, ErrEmptyCredentials)

	_, err = s.Register(ctx, "alice", "")
	assert.ErrorIs(t, err, ErrEmptyCredentials)
}

func TestService_Authenticate_Failures(t *testing.T) {
	t.Parallel()

	s := newService(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "wrong"},
		{name: "unknown user", username: "bob", password: "s3cret"},
		{name: "empty username", username: "", password: "s3cret"},
		{name: "empty password", username: "alice", password: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.Authenticate(ctx, tt.username, tt.password)
			// Every failure mode collapses into the same error.
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestService_StoreFailurePropagates(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection reset")
	s := NewService(&failingStore{err: storeErr})
	ctx := context.Background()

	_, err := s.Authenticate(ctx, "alice", "s3cret")
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Register(ctx, "alice", "s3cret")
	assert.ErrorIs(t, err, storeErr)
}

func TestService_MetricsRecorded(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("auth_service_test")
	s := NewService(store.NewMemoryStore(),
		WithBcryptCost(bcrypt.MinCost),
		WithMetrics(m),
		WithLogger(observability.NopLogger()),
	)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = s.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestWithBcryptCost_OutOfRangeIgnored(t *testing.T) {
	t.Parallel()

	s := NewService(store.NewMemoryStore(), WithBcryptCost(100))
	assert.Equal(t, bcrypt.DefaultCost, s.bcryptCost)
}
