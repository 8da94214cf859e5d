//go:build integration

package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Badrul886/riverside/internal/db"
	"github.com/Badrul886/riverside/internal/db/migrate"
)

// StartPostgres runs postgres in a container, applies the embedded migrations and returns a pool.
// The container and pool are released through t.Cleanup.
func StartPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "riverside",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/riverside?sslmode=disable", host, port.Port())

	require.NoError(t, migrate.Run(dsn, "up"))

	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: dsn, MaxConns: 5, MinConns: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// Reset truncates every table so subtests start from an empty schema.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(), `TRUNCATE audit_logs, sessions, users`)
	require.NoError(t, err)
}

// InsertUser adds a minimal user row for tables that reference users.
func InsertUser(t *testing.T, pool *pgxpool.Pool, id string) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, name, email, password_hash) VALUES ($1, $1, $1 || '@example.com', 'x')`, id)
	require.NoError(t, err)
}
