// Package handler reports readiness for the gRPC health service and the HTTP /readyz probe.
package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

const checkTimeout = 2 * time.Second

// Pinger checks a backing store (pgxpool.Pool satisfies it).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger, e.g. a Redis client ping.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// PolicyChecker checks the policy engine (the OPA evaluator satisfies it).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server implements grpc.health.v1.Health for readiness and liveness.
type Server struct {
	healthpb.UnimplementedHealthServer
	pingers []Pinger
	policy  PolicyChecker
}

// NewServer returns a health server. Nil dependencies are skipped.
func NewServer(policy PolicyChecker, pingers ...Pinger) *Server {
	s := &Server{policy: policy}
	for _, p := range pingers {
		if p != nil {
			s.pingers = append(s.pingers, p)
		}
	}
	return s
}

// Ready runs every check with a short timeout and returns the first failure.
func (s *Server) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	for i, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			return fmt.Errorf("store %d: %w", i, err)
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}
	return nil
}

// Check reports SERVING when Ready succeeds. Only the overall service ("") is known.
func (s *Server) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if req.GetService() != "" {
		return nil, status.Error(codes.NotFound, "unknown service")
	}
	if err := s.Ready(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, status.FromContextError(err).Err()
		}
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil
}
