// Package engine decides session lifetimes, either from static configuration or from a Rego policy.
package engine

import (
	"context"
	"time"
)

// Reference lifetimes for a new login session.
const (
	DefaultSessionTTL    = 7 * 24 * time.Hour
	DefaultRememberMeTTL = 15 * 24 * time.Hour
)

// LifetimePolicy returns how long a new session (and its refresh token) stays valid.
type LifetimePolicy interface {
	SessionLifetime(ctx context.Context, rememberMe bool, role string) (time.Duration, error)
}

// StaticLifetime returns Default, or RememberMe when the user asked to be remembered.
type StaticLifetime struct {
	Default    time.Duration
	RememberMe time.Duration
}

// NewStaticLifetime fills zero durations with the reference defaults.
func NewStaticLifetime(def, rememberMe time.Duration) StaticLifetime {
	if def <= 0 {
		def = DefaultSessionTTL
	}
	if rememberMe <= 0 {
		rememberMe = DefaultRememberMeTTL
	}
	return StaticLifetime{Default: def, RememberMe: rememberMe}
}

func (s StaticLifetime) SessionLifetime(_ context.Context, rememberMe bool, _ string) (time.Duration, error) {
	if rememberMe {
		return s.RememberMe, nil
	}
	return s.Default, nil
}
