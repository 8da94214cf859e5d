package repository

import (
	"context"

	"github.com/Badrul886/riverside/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByUser returns the newest entries for userID first, at most limit rows.
	ListByUser(ctx context.Context, userID string, limit int32) ([]*domain.AuditLog, error)
}
