package handler

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) Ping(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func check(t *testing.T, srv *Server) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	return resp.GetStatus()
}

func TestCheck_NoDependencies(t *testing.T) {
	if got := check(t, NewServer(nil)); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestCheck_AllHealthy(t *testing.T) {
	srv := NewServer(&mockPolicyChecker{}, &mockPinger{}, PingerFunc(func(context.Context) error { return nil }))
	if got := check(t, srv); got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v, want SERVING", got)
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	srv := NewServer(nil, &mockPinger{}, &mockPinger{pingErr: errors.New("connection refused")})
	if got := check(t, srv); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
	if err := srv.Ready(context.Background()); err == nil {
		t.Error("Ready should report the pinger failure")
	}
}

func TestCheck_PolicyFailure(t *testing.T) {
	srv := NewServer(&mockPolicyChecker{healthErr: errors.New("policy compile failed")}, &mockPinger{})
	if got := check(t, srv); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
}

func TestCheck_UnknownService(t *testing.T) {
	_, err := NewServer(nil).Check(context.Background(), &healthpb.HealthCheckRequest{Service: "other"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code = %v, want NotFound", status.Code(err))
	}
}

func TestNewServer_SkipsNilPingers(t *testing.T) {
	srv := NewServer(nil, nil, &mockPinger{})
	if len(srv.pingers) != 1 {
		t.Errorf("pingers = %d, want 1", len(srv.pingers))
	}
}
