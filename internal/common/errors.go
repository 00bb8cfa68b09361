// Package common defines shared constants and sentinel errors used across
// the addrhub client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Auth errors.
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnauthorized     = errors.New("unauthorized")

	// Deep-link / OAuth callback errors.
	ErrMalformedCallback = errors.New("malformed callback url")

	// Network service errors.
	ErrUnavailable = errors.New("server unavailable")
	ErrValidation  = errors.New("request rejected by server")
)
