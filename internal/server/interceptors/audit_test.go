package interceptors

import (
	"context"
	"errors"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type auditEvent struct {
	userID, action, resource, metadata string
}

type recordingAudit struct {
	events []auditEvent
}

func (r *recordingAudit) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	r.events = append(r.events, auditEvent{userID, action, resource, metadata})
}

func TestAuditUnary_SkipMethod(t *testing.T) {
	rec := &recordingAudit{}
	interceptor := AuditUnary(rec, map[string]bool{"/grpc.health.v1.Health/Check": true})

	ctx := WithIdentity(context.Background(), Identity{UserID: "user-1", Role: "admin"})
	if _, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("audit events = %d, want 0", len(rec.events))
	}
}

func TestAuditUnary_UnauthenticatedNotAudited(t *testing.T) {
	rec := &recordingAudit{}
	interceptor := AuditUnary(rec, nil)
	if _, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/riverside.session.v1.SessionAdmin/ListSessions"}, okHandler); err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("audit events = %d, want 0", len(rec.events))
	}
}

func TestAuditUnary_AuthenticatedRequest(t *testing.T) {
	rec := &recordingAudit{}
	interceptor := AuditUnary(rec, nil)

	ctx := WithIdentity(context.Background(), Identity{UserID: "admin-1", Role: "admin"})
	handlerErr := status.Error(codes.NotFound, "user not found")
	failing := func(ctx context.Context, req interface{}) (interface{}, error) { return nil, handlerErr }

	_, err := interceptor(ctx, "request", &grpc.UnaryServerInfo{
		FullMethod: "/riverside.session.v1.SessionAdmin/RevokeAllSessions",
	}, failing)
	if !errors.Is(err, handlerErr) {
		t.Fatalf("handler error not passed through: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("audit events = %d, want 1", len(rec.events))
	}
	want := auditEvent{"admin-1", "revoke", "session", "code=NotFound"}
	if rec.events[0] != want {
		t.Errorf("event = %+v, want %+v", rec.events[0], want)
	}
}

func TestClientIP(t *testing.T) {
	addr := &net.TCPAddr{IP: net.ParseIP("10.0.0.9"), Port: 5555}
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{"none", context.Background(), "unknown"},
		{"explicit", WithClientIP(context.Background(), "198.51.100.1"), "198.51.100.1"},
		{"forwarded", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-forwarded-for", "203.0.113.5, 10.0.0.1")), "203.0.113.5"},
		{"real ip", metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-real-ip", "203.0.113.6")), "203.0.113.6"},
		{"peer", peer.NewContext(context.Background(), &peer.Peer{Addr: addr}), "10.0.0.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClientIP(tt.ctx); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
