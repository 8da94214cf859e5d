// Package server assembles the admin gRPC server: health, session administration and the
// interceptor chain.
package server

import (
	"log/slog"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Badrul886/riverside/internal/audit"
	healthhandler "github.com/Badrul886/riverside/internal/health/handler"
	"github.com/Badrul886/riverside/internal/security"
	"github.com/Badrul886/riverside/internal/server/interceptors"
	sessionhandler "github.com/Badrul886/riverside/internal/session/handler"
	userdomain "github.com/Badrul886/riverside/internal/user/domain"
)

// Deps holds the dependencies of the gRPC services.
type Deps struct {
	// Sessions backs SessionAdmin. If nil, its RPCs return Unimplemented.
	Sessions sessionhandler.SessionService
	// Health answers grpc.health.v1.Health. If nil, a dependency-free health server is used.
	Health *healthhandler.Server
	Tokens *security.TokenSigner
	Audit  audit.AuditLogger
	Logger *slog.Logger
}

// publicMethods do not require a Bearer token.
var publicMethods = map[string]bool{
	healthpb.Health_Check_FullMethodName: true,
}

// NewGRPCServer builds a server with otelgrpc instrumentation, request logging, admin-role
// authentication and auditing, and registers all services.
func NewGRPCServer(deps Deps, opts ...grpc.ServerOption) *grpc.Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	auditLogger := deps.Audit
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.LoggingUnary(logger, publicMethods),
			interceptors.AuthUnary(deps.Tokens, publicMethods, userdomain.RoleAdmin),
			interceptors.AuditUnary(auditLogger, publicMethods),
		),
	}
	s := grpc.NewServer(append(base, opts...)...)
	RegisterServices(s, deps)
	return s
}

// RegisterServices registers every service with s.
//
//   - grpc.health.v1.Health               → internal/health/handler
//   - riverside.session.v1.SessionAdmin   → internal/session/handler
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) {
	health := deps.Health
	if health == nil {
		health = healthhandler.NewServer(nil)
	}
	healthpb.RegisterHealthServer(s, health)
	sessionhandler.RegisterSessionAdminServer(s, sessionhandler.NewServer(deps.Sessions))
}
