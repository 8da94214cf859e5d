package service

import "errors"

// Errors returned by Manager. The HTTP layer collapses the security errors into a single 401.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingToken       = errors.New("refresh token missing")
	ErrInvalidSession     = errors.New("invalid session")
	ErrReuseDetected      = errors.New("refresh token reuse detected")
	ErrDeviceMismatch     = errors.New("device mismatch")
	ErrConflict           = errors.New("conflict")
	ErrNotFound           = errors.New("not found")
	ErrTooManyAttempts    = errors.New("too many login attempts")
)

// IsUnauthorized reports whether err carries one of the security failures that map to 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrInvalidSession) ||
		errors.Is(err, ErrReuseDetected) ||
		errors.Is(err, ErrDeviceMismatch)
}
