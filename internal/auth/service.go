// Package auth verifies and registers user credentials.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/avolkov/authgate/internal/observability"
	"github.com/avolkov/authgate/internal/store"
)

// Service authenticates username/password pairs against a credential
// store and registers new users.
type Service struct {
	store      store.Store
	bcryptCost int
	logger     observability.Logger
	metrics    *observability.Metrics
}

// ServiceOption is a functional option for the service.
type ServiceOption func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger observability.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics for the service.
func WithMetrics(metrics *observability.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithBcryptCost sets the bcrypt work factor for new password hashes.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// NewService creates a new authentication service.
func NewService(st store.Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:      st,
		bcryptCost: bcrypt.DefaultCost,
		logger:     observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Authenticate verifies a username/password pair. It returns the user
// record on success and ErrInvalidCredentials on any mismatch; the
// caller cannot tell an unknown username from a wrong password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*store.User, error) {
	if username == "" || password == "" {
		s.recordAuth("failure")
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			s.recordAuth("failure")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.recordAuth("failure")
		return nil, ErrInvalidCredentials
	}

	s.recordAuth("success")
	return user, nil
}

// Register creates a new user with a freshly salted password hash.
// There is no auto-login: registration has no side effect beyond the
// store insert.
func (s *Service) Register(ctx context.Context, username, password string) (*store.User, error) {
	if username == "" || password == "" {
		return nil, ErrEmptyCredentials
	}

	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return nil, store.ErrDuplicateUsername
	} else if !errors.Is(err, store.ErrUserNotFound) {
		return nil, fmt.Errorf("username check failed: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("password hashing failed: %w", err)
	}

	// The store enforces uniqueness atomically, so a concurrent create
	// that slipped past the check above still fails here.
	user, err := s.store.Create(ctx, username, string(hash))
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		observability.String("username", user.Username),
		observability.String("user_id", user.ID),
	)

	return user, nil
}

// recordAuth records an authentication outcome when metrics are wired.
func (s *Service) recordAuth(result string) {
	if s.metrics != nil {
		s.metrics.RecordAuthAttempt(result)
	}
}
