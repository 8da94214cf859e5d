//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Badrul886/riverside/internal/audit/domain"
	"github.com/Badrul886/riverside/internal/db/dbtest"
)

func TestPostgresRepository_CreateAndList(t *testing.T) {
	pool := dbtest.StartPostgres(t)
	repo := NewPostgresRepository(pool)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	for i, action := range []string{"login_success", "refresh", "logout"} {
		require.NoError(t, repo.Create(ctx, &domain.AuditLog{
			ID:        action,
			UserID:    "u1",
			Action:    action,
			Resource:  "session",
			IP:        "127.0.0.1",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Create(ctx, &domain.AuditLog{ID: "other", UserID: "u2", Action: "logout", Resource: "session", CreatedAt: base}))

	list, err := repo.ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "logout", list[0].Action)
	require.Equal(t, "refresh", list[1].Action)
}
