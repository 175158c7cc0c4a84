// Package store provides persistence for user credential records.
package store

import (
	"context"
	"errors"
	"time"
)

// User is a persisted user identity record. Records are created at
// signup and never mutated or deleted afterwards.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Sentinel errors for store operations.
var (
	// ErrUserNotFound indicates that no record exists for the username.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateUsername indicates that the username is already taken.
	// Uniqueness is enforced atomically at the store layer.
	ErrDuplicateUsername = errors.New("username already exists")
)

// Store defines the interface for credential persistence.
type Store interface {
	// FindByUsername returns the user record for the given username,
	// or ErrUserNotFound.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create inserts a new user record with a generated ID. It fails
	// with ErrDuplicateUsername when the username is already taken,
	// including under concurrent creation.
	Create(ctx context.Context, username, passwordHash string) (*User, error)

	// Close closes the store and releases resources.
	Close() error
}
