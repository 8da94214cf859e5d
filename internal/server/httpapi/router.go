package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	identityservice "github.com/Badrul886/riverside/internal/identity/service"
	"github.com/Badrul886/riverside/internal/security"
	"github.com/Badrul886/riverside/internal/session/domain"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
)

// SessionManager is the session lifecycle the auth routes drive.
type SessionManager interface {
	Login(ctx context.Context, in sessionservice.LoginInput) (*sessionservice.TokenPair, error)
	Refresh(ctx context.Context, token string, meta security.RequestMetadata) (*sessionservice.TokenPair, error)
	Logout(ctx context.Context, token string) error
	InvalidateAll(ctx context.Context, userID string) (int64, error)
	ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error)
}

// Registrar creates accounts.
type Registrar interface {
	Register(ctx context.Context, in identityservice.RegisterInput) (string, error)
}

// Readier reports whether dependencies are reachable.
type Readier interface {
	Ready(ctx context.Context) error
}

// Deps are the collaborators of the HTTP boundary.
type Deps struct {
	Sessions  SessionManager
	Registrar Registrar
	Tokens    *security.TokenSigner
	Health    Readier
	Metrics   *Metrics
	Cookies   CookieConfig
	// CORSOrigins lists the origins allowed to send credentialed requests.
	CORSOrigins []string
	// TrustedProxies are the proxy CIDRs whose forwarding headers are honored. Empty trusts none.
	TrustedProxies []string
	Logger         *slog.Logger
	Now            func() time.Time
}

// NewRouter builds the gin engine with every route mounted and wraps it in CORS.
func NewRouter(d Deps) (http.Handler, error) {
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}

	r := gin.New()
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(gin.Recovery(), d.Metrics.Middleware(), clientIP(), requestLogger(d.Logger))

	h := &handlers{
		sessions:  d.Sessions,
		registrar: d.Registrar,
		health:    d.Health,
		metrics:   d.Metrics,
		cookies:   d.Cookies,
		log:       d.Logger,
		now:       d.Now,
	}

	r.GET("/healthz", h.healthz)
	r.GET("/readyz", h.readyz)
	r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	auth := r.Group("/api/v1/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/refresh", h.refresh)
	auth.POST("/logout", h.logout)

	authed := auth.Group("", requireAccessToken(d.Tokens))
	authed.POST("/logout-all", h.logoutAll)
	authed.GET("/sessions", h.listSessions)
	authed.GET("/me", h.me)

	c := cors.New(cors.Options{
		AllowedOrigins:   d.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(r), nil
}
