package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Badrul886/riverside/internal/audit"
	auditrepo "github.com/Badrul886/riverside/internal/audit/repository"
	"github.com/Badrul886/riverside/internal/config"
	"github.com/Badrul886/riverside/internal/db"
	"github.com/Badrul886/riverside/internal/logger"
	"github.com/Badrul886/riverside/internal/security"
	sessionrepo "github.com/Badrul886/riverside/internal/session/repository"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
	userrepo "github.com/Badrul886/riverside/internal/user/repository"
)

// env is the wiring shared by the database-backed commands.
type env struct {
	cfg      *config.Config
	log      *slog.Logger
	pool     *pgxpool.Pool
	users    *userrepo.PostgresRepository
	sessions *sessionrepo.PostgresRepository
	audit    *auditrepo.PostgresRepository
	hasher   *security.PasswordHasher
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Writer: os.Stderr})
	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DatabaseURL, MaxConns: 2, MinConns: 1}, log)
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:      cfg,
		log:      log,
		pool:     pool,
		users:    userrepo.NewPostgresRepository(pool),
		sessions: sessionrepo.NewPostgresRepository(pool),
		audit:    auditrepo.NewPostgresRepository(pool),
		hasher: security.NewPasswordHasher(security.Argon2Params{
			MemoryKiB:   cfg.Argon2MemoryKiB,
			Iterations:  cfg.Argon2Iterations,
			Parallelism: cfg.Argon2Parallelism,
		}),
	}, nil
}

func (e *env) Close() { e.pool.Close() }

func (e *env) auditLogger() audit.AuditLogger {
	return audit.NewLogger(e.audit, func(context.Context) string { return "sessionctl" }, e.log)
}

// manager builds a session manager over the Postgres stores so revocations are audited
// exactly as the server records them.
func (e *env) manager() (*sessionservice.Manager, error) {
	tokens, err := security.NewTokenSigner(security.TokenSignerConfig{
		AccessSecret:  []byte(e.cfg.JWTAccessSecret),
		RefreshSecret: []byte(e.cfg.JWTRefreshSecret),
		Issuer:        e.cfg.JWTIssuer,
		AccessTTL:     e.cfg.AccessTTL(),
	})
	if err != nil {
		return nil, err
	}
	return sessionservice.NewManager(sessionservice.Deps{
		Users:    e.users,
		Sessions: e.sessions,
		Hasher:   e.hasher,
		Tokens:   tokens,
		Audit:    e.auditLogger(),
		Logger:   e.log,
	})
}
