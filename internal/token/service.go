// Package token issues and validates signed session tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/avolkov/authgate/internal/config"
	"github.com/avolkov/authgate/internal/observability"
)

// TokenType is the token-type label returned alongside issued tokens.
const TokenType = "bearer"

// signingMethod is the only accepted signing algorithm. Validation
// pins the algorithm, so a token signed any other way is rejected
// before its claims are considered.
var signingMethod = jwt.SigningMethodHS256

// Claims is the claims set carried by a session token.
type Claims struct {
	jwt.RegisteredClaims

	// UserID is the stable identifier of the user record.
	UserID string `json:"id,omitempty"`
}

// Identity is the verified identity extracted from a valid token.
type Identity struct {
	Username string
	UserID   string
}

// Service issues and validates session tokens. The signing secret and
// TTL are fixed at construction and immutable afterwards; rotating the
// secret requires a restart and invalidates all outstanding tokens.
type Service struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	logger  observability.Logger
	metrics *observability.Metrics
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

// NewService creates a new token service from immutable configuration.
func NewService(cfg *config.TokenConfig, opts ...ServiceOption) (*Service, error) {
	if cfg == nil || cfg.Secret == "" {
		return nil, fmt.Errorf("token service requires a signing secret")
	}

	ttl := cfg.TTL.Duration()
	if ttl <= 0 {
		ttl = config.DefaultTokenTTL
	}

	s := &Service{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// TTL returns the fixed lifetime of issued tokens.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token for the given subject and user ID.
func (s *Service) Issue(subject, userID string) (string, error) {
	now := time.Now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID: userID,
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("token signing failed: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordTokenIssued()
	}
	s.logger.Debug("token issued",
		observability.String("subject", subject),
		observability.Time("expires_at", now.Add(s.ttl)),
	)

	return signed, nil
}

// Validate verifies a token's signature, algorithm, and expiry, and
// checks that the subject and user ID claims are present. On success
// it returns the identity carried by the token.
func (s *Service) Validate(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, s.reject(ErrEmptyToken)
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
	)
	if err != nil {
		return nil, s.reject(mapParseError(err))
	}

	if claims.Subject == "" || claims.UserID == "" {
		return nil, s.reject(ErrTokenMissingClaim)
	}

	if s.metrics != nil {
		s.metrics.RecordTokenValidation("valid")
	}

	return &Identity{
		Username: claims.Subject,
		UserID:   claims.UserID,
	}, nil
}

// reject records a failed validation and returns the error.
func (s *Service) reject(err error) error {
	if s.metrics != nil {
		s.metrics.RecordTokenValidation("invalid")
	}
	return err
}

// mapParseError converts jwt library errors to this package's
// sentinel errors.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenInvalidSignature
	default:
		return ErrTokenMalformed
	}
}
