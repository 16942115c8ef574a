// Package common defines shared constants and sentinel errors used across
// client and server layers of GophChat. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")

	// ErrForbidden is returned for non-members and unknown rooms alike.
	ErrForbidden = errors.New("forbidden")

	// ErrUsernameTaken is returned to the losing writer of a registration race.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrDanglingReply means a reply target is missing or lives in another room.
	ErrDanglingReply = errors.New("reply target not found in room")

	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUpstreamUnavailable wraps failures of the backing ledger.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// Upstream wraps a ledger error as ErrUpstreamUnavailable, keeping the cause
// in the message. Domain sentinels pass through untouched.
func Upstream(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrorNotFound, ErrValidation, ErrForbidden, ErrUsernameTaken,
		ErrDanglingReply, ErrInvalidCredentials, ErrUpstreamUnavailable,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}
