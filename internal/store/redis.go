package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/avolkov/authgate/internal/config"
	"github.com/avolkov/authgate/internal/observability"
)

// Default Redis store settings.
const (
	// DefaultKeyPrefix is the prefix applied to all keys.
	DefaultKeyPrefix = "authgate:"

	// defaultConnectTimeout bounds the startup connectivity check.
	defaultConnectTimeout = 5 * time.Second
)

// redisStore implements a Redis-backed credential store. A user is a
// hash at <prefix>user:<id>; a username index key <prefix>username:<name>
// maps to the id and is written with SETNX, which makes username
// uniqueness atomic even under concurrent signups.
type redisStore struct {
	client    *redis.Client
	keyPrefix string
	logger    observability.Logger
}

// RedisStoreOption is a functional option for the Redis store.
type RedisStoreOption func(*redisStore)

// WithRedisStoreLogger sets the logger for the Redis store.
func WithRedisStoreLogger(logger observability.Logger) RedisStoreOption {
	return func(s *redisStore) {
		s.logger = logger
	}
}

// NewRedisStore creates a new Redis-backed store and verifies
// connectivity with a ping.
func NewRedisStore(cfg *config.RedisConfig, opts ...RedisStoreOption) (Store, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("redis store requires a url")
	}

	redisOpts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	if cfg.PoolSize > 0 {
		redisOpts.PoolSize = cfg.PoolSize
	}
	if cfg.ConnectTimeout > 0 {
		redisOpts.DialTimeout = cfg.ConnectTimeout.Duration()
	}
	if cfg.ReadTimeout > 0 {
		redisOpts.ReadTimeout = cfg.ReadTimeout.Duration()
	}
	if cfg.WriteTimeout > 0 {
		redisOpts.WriteTimeout = cfg.WriteTimeout.Duration()
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	s := &redisStore{
		client:    redis.NewClient(redisOpts),
		keyPrefix: keyPrefix,
		logger:    observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return s, nil
}

// userKey returns the key of the user record hash.
func (s *redisStore) userKey(id string) string {
	return s.keyPrefix + "user:" + id
}

// usernameKey returns the key of the username index entry.
func (s *redisStore) usernameKey(username string) string {
	return s.keyPrefix + "username:" + username
}

// FindByUsername implements Store.
func (s *redisStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	id, err := s.client.Get(ctx, s.usernameKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}

	fields, err := s.client.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read user record: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	user := &User{
		ID:           id,
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
	}
	if raw, ok := fields["created_at"]; ok {
		if ts, parseErr := time.Parse(time.RFC3339Nano, raw); parseErr == nil {
			user.CreatedAt = ts
		}
	}

	return user, nil
}

// Create implements Store. The SETNX on the username index is the
// uniqueness barrier; the record hash is only written after the index
// claim succeeds.
func (s *redisStore) Create(ctx context.Context, username, passwordHash string) (*User, error) {
	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}

	claimed, err := s.client.SetNX(ctx, s.usernameKey(username), user.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim username: %w", err)
	}
	if !claimed {
		return nil, ErrDuplicateUsername
	}

	err = s.client.HSet(ctx, s.userKey(user.ID),
		"username", user.Username,
		"password_hash", user.PasswordHash,
		"created_at", user.CreatedAt.Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		// Release the index claim so the username is not permanently
		// burned by a half-written record.
		if delErr := s.client.Del(ctx, s.usernameKey(username)).Err(); delErr != nil {
			s.logger.Warn("failed to release username claim",
				observability.String("username", username),
				observability.Error(delErr),
			)
		}
		return nil, fmt.Errorf("failed to write user record: %w", err)
	}

	return user, nil
}

// Close implements Store.
func (s *redisStore) Close() error {
	return s.client.Close()
}
