// Package common defines shared constants and sentinel errors used across
// client and server layers of FastChat. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Protocol errors (malformed or unsupported command; session continues).
	ErrProtocol = errors.New("protocol error")

	// Registration and presence conflicts.
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateSession  = errors.New("connection already registered")
	ErrUsernameOnline    = errors.New("username already online")
	ErrUserOffline       = errors.New("user not online")

	// E2E layer errors. Both are hard failures for the operation that
	// produced them; neither is retryable and neither downgrades to
	// plaintext operation.
	ErrUnknownPeerKey        = errors.New("no public key for peer")
	ErrAuthenticationFailure = errors.New("message authentication failed")
)
