package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Badrul886/riverside/internal/session/domain"
)

var (
	// ErrNotFound is returned when no session matches, including a failed compare-and-swap in UpdateRotate.
	ErrNotFound = errors.New("session not found")
	// ErrConflict is returned when a refresh token hash is already stored.
	ErrConflict = errors.New("session conflict")
)

// Repository persists sessions. Every method is a single atomic operation.
type Repository interface {
	// Create inserts s. Returns ErrConflict if s.RefreshTokenHash already exists.
	Create(ctx context.Context, s *domain.Session) error
	// FindByRefreshToken returns the session whose current token hash is tokenHash, or ErrNotFound.
	FindByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error)
	// UpdateRotate replaces the token hash and expiry of sessionID only while oldHash is still current.
	// Returns ErrNotFound if the row is gone or was already rotated.
	UpdateRotate(ctx context.Context, sessionID, oldHash, newHash string, newExpiresAt time.Time) error
	// Revoke marks sessionID revoked. Idempotent; unknown ids are not an error.
	Revoke(ctx context.Context, sessionID, reason string) error
	// RevokeAllInFamily revokes every non-revoked session of a token family.
	RevokeAllInFamily(ctx context.Context, family, reason string) (int64, error)
	// RevokeAllForUser revokes every non-revoked session of userID.
	RevokeAllForUser(ctx context.Context, userID, reason string) (int64, error)
	// ListForUser returns the user's sessions ordered by creation time.
	ListForUser(ctx context.Context, userID string) ([]domain.SessionSummary, error)
	// DeleteExpired removes revoked sessions that expired before the cutoff. Live rows are
	// kept so a late replay can still be tied to its family. Used by the janitor command only.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
