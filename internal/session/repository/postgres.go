package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Badrul886/riverside/internal/db"
	"github.com/Badrul886/riverside/internal/session/domain"
)

const sessionColumns = `id, user_id, refresh_token_hash, token_family, device_fingerprint,
	user_agent, ip_address, expires_at, revoked, revoked_at, revoked_reason, created_at, rotated_at`

// PostgresRepository stores sessions in the sessions table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session repository backed by conn (usually a *pgxpool.Pool).
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create inserts s.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.TokenFamily, s.DeviceFingerprint,
		s.UserAgent, s.IPAddress, s.ExpiresAt, s.Revoked, s.RevokedAt, s.RevokedReason, s.CreatedAt, s.RotatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindByRefreshToken returns the session whose current token hash is tokenHash.
func (r *PostgresRepository) FindByRefreshToken(ctx context.Context, tokenHash string) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, tokenHash)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return s, nil
}

// UpdateRotate swaps the token hash only if oldHash is still current.
func (r *PostgresRepository) UpdateRotate(ctx context.Context, sessionID, oldHash, newHash string, newExpiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions
		SET refresh_token_hash = $3, expires_at = $4, rotated_at = $5
		WHERE id = $1 AND refresh_token_hash = $2 AND NOT revoked`,
		sessionID, oldHash, newHash, newExpiresAt, time.Now().UTC(),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("rotate session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Revoke marks the session revoked. Already revoked or missing rows are left alone.
func (r *PostgresRepository) Revoke(ctx context.Context, sessionID, reason string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = TRUE, revoked_at = $2, revoked_reason = $3
		WHERE id = $1 AND NOT revoked`,
		sessionID, time.Now().UTC(), reason,
	)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// RevokeAllInFamily revokes every live session in family.
func (r *PostgresRepository) RevokeAllInFamily(ctx context.Context, family, reason string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = TRUE, revoked_at = $2, revoked_reason = $3
		WHERE token_family = $1 AND NOT revoked`,
		family, time.Now().UTC(), reason,
	)
	if err != nil {
		return 0, fmt.Errorf("revoke family: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RevokeAllForUser revokes every live session of userID.
func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID, reason string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE sessions SET revoked = TRUE, revoked_at = $2, revoked_reason = $3
		WHERE user_id = $1 AND NOT revoked`,
		userID, time.Now().UTC(), reason,
	)
	if err != nil {
		return 0, fmt.Errorf("revoke user sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListForUser returns the user's sessions oldest first.
func (r *PostgresRepository) ListForUser(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionSummary
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, s.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// DeleteExpired removes revoked rows that expired before the cutoff.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1 AND revoked`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.UserID, &s.RefreshTokenHash, &s.TokenFamily, &s.DeviceFingerprint,
		&s.UserAgent, &s.IPAddress, &s.ExpiresAt, &s.Revoked, &s.RevokedAt, &s.RevokedReason, &s.CreatedAt, &s.RotatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
