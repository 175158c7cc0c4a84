package auth

import "errors"

// Sentinel errors for authentication operations.
var (
	// ErrInvalidCredentials indicates a failed credential check. An
	// unknown username and a wrong password both produce this error,
	// so callers cannot enumerate usernames.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrEmptyCredentials indicates that a username or password was empty.
	ErrEmptyCredentials = errors.New("username and password are required")
)
