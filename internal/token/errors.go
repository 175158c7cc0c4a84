package token

import "errors"

// Sentinel errors for token operations. The HTTP boundary collapses
// all validation failures into one uniform response, so none of these
// reach clients directly.
var (
	// ErrEmptyToken indicates that the token string is empty.
	ErrEmptyToken = errors.New("token is empty")

	// ErrTokenMalformed indicates that the token is malformed.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrTokenExpired indicates that the token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalidSignature indicates that the signature does not
	// verify or the signing algorithm does not match.
	ErrTokenInvalidSignature = errors.New("token signature is invalid")

	// ErrTokenMissingClaim indicates that a required claim is missing.
	ErrTokenMissingClaim = errors.New("required claim is missing")
)

// Errors for token extraction from requests.
var (
	// ErrMissingHeader indicates a missing authorization header.
	ErrMissingHeader = errors.New("missing authorization header")

	// ErrInvalidPrefix indicates an authorization header without the
	// expected scheme prefix.
	ErrInvalidPrefix = errors.New("invalid authorization prefix")
)
