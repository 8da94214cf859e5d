package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"
	"google.golang.org/grpc"

	"github.com/Badrul886/riverside/internal/audit"
	auditrepo "github.com/Badrul886/riverside/internal/audit/repository"
	"github.com/Badrul886/riverside/internal/config"
	"github.com/Badrul886/riverside/internal/db"
	"github.com/Badrul886/riverside/internal/db/migrate"
	healthhandler "github.com/Badrul886/riverside/internal/health/handler"
	identityservice "github.com/Badrul886/riverside/internal/identity/service"
	"github.com/Badrul886/riverside/internal/logger"
	"github.com/Badrul886/riverside/internal/policy/engine"
	"github.com/Badrul886/riverside/internal/ratelimit"
	"github.com/Badrul886/riverside/internal/security"
	"github.com/Badrul886/riverside/internal/server"
	"github.com/Badrul886/riverside/internal/server/httpapi"
	"github.com/Badrul886/riverside/internal/server/interceptors"
	sessionrepo "github.com/Badrul886/riverside/internal/session/repository"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
	telemetry "github.com/Badrul886/riverside/internal/telemetry/otel"
	userrepo "github.com/Badrul886/riverside/internal/user/repository"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", tint.Err(err))
		os.Exit(1)
	}
	log := logger.ForEnv(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", tint.Err(err))
		os.Exit(1)
	}
}

type userStore interface {
	sessionservice.UserRepo
	identityservice.UserRepo
}

type stores struct {
	users    userStore
	sessions sessionrepo.Repository
	audit    auditrepo.Repository
	pool     *pgxpool.Pool
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		log.Warn("DATABASE_URL not set, using in-memory stores")
		return &stores{
			users:    userrepo.NewMemoryRepository(),
			sessions: sessionrepo.NewMemoryRepository(),
		}, nil
	}
	if cfg.MigrateOnStart {
		if err := migrate.Run(cfg.DatabaseURL, "up"); err != nil {
			return nil, err
		}
		log.Info("migrations applied")
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DatabaseURL}, log)
	if err != nil {
		return nil, err
	}
	return &stores{
		users:    userrepo.NewPostgresRepository(pool),
		sessions: sessionrepo.NewPostgresRepository(pool),
		audit:    auditrepo.NewPostgresRepository(pool),
		pool:     pool,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	providers, err := telemetry.NewProviders(ctx, telemetry.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.OTelServiceName,
		Insecure:    !cfg.IsProduction(),
	}, log)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(sctx); err != nil {
			log.Error("telemetry shutdown", tint.Err(err))
		}
	}()
	metrics, err := telemetry.NewSessionMetrics(providers.MeterProvider)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	var pingers []healthhandler.Pinger
	if st.pool != nil {
		defer st.pool.Close()
		pingers = append(pingers, healthhandler.PingerFunc(st.pool.Ping))
	}

	limiterCfg := ratelimit.Config{MaxAttempts: cfg.LoginMaxAttempts, Window: cfg.LoginWindowDuration()}
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(limiterCfg)
	if cfg.RedisURL != "" {
		rc, err := ratelimit.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rc.Close()
		limiter = ratelimit.NewRedisLimiter(rc, limiterCfg)
		pingers = append(pingers, healthhandler.PingerFunc(func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}))
	}

	static := engine.NewStaticLifetime(cfg.SessionLifetime(), cfg.RememberMeLifetime())
	var lifetime engine.LifetimePolicy = static
	var policyCheck healthhandler.PolicyChecker
	if cfg.SessionPolicy == "opa" {
		opa, err := engine.NewOPAEvaluator(ctx, engine.DefaultRegoPolicy, static, log)
		if err != nil {
			return err
		}
		lifetime, policyCheck = opa, opa
	}
	health := healthhandler.NewServer(policyCheck, pingers...)

	tokens, err := security.NewTokenSigner(security.TokenSignerConfig{
		AccessSecret:  []byte(cfg.JWTAccessSecret),
		RefreshSecret: []byte(cfg.JWTRefreshSecret),
		Issuer:        cfg.JWTIssuer,
		AccessTTL:     cfg.AccessTTL(),
	})
	if err != nil {
		return err
	}
	hasher := security.NewPasswordHasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	auditLogger := telemetry.NewAuditEmitter(
		audit.NewLogger(st.audit, interceptors.ClientIP, log),
		providers.LoggerProvider,
	)

	mgr, err := sessionservice.NewManager(sessionservice.Deps{
		Users:    st.users,
		Sessions: st.sessions,
		Hasher:   hasher,
		Tokens:   tokens,
		Lifetime: lifetime,
		Audit:    auditLogger,
		Limiter:  limiter,
		Metrics:  metrics,
		Logger:   log,
	})
	if err != nil {
		return err
	}

	cookies := httpapi.CookieConfig{
		Domain: httpapi.ResolveCookieDomain(cfg.CookieDomain, cfg.CookieDomains()),
		Secure: cfg.IsProduction(),
	}
	router, err := httpapi.NewRouter(httpapi.Deps{
		Sessions:       mgr,
		Registrar:      identityservice.NewAuthService(st.users, hasher, auditLogger),
		Tokens:         tokens,
		Health:         health,
		Metrics:        httpapi.NewMetrics(),
		Cookies:        cookies,
		CORSOrigins:    cfg.CORSOrigins(),
		TrustedProxies: cfg.TrustedProxyList(),
		Logger:         log,
	})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcSrv = server.NewGRPCServer(server.Deps{
			Sessions: mgr,
			Health:   health,
			Tokens:   tokens,
			Audit:    auditLogger,
			Logger:   log,
		})
		go func() {
			log.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				errCh <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := httpSrv.Shutdown(sctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
