package interceptors

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoggingUnary(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	interceptor := LoggingUnary(log, map[string]bool{"/grpc.health.v1.Health/Check": true})

	_, _ = interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}, okHandler)
	if buf.Len() != 0 {
		t.Errorf("skipped method was logged: %s", buf.String())
	}

	failing := func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Internal, "boom")
	}
	_, _ = interceptor(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: "/riverside.session.v1.SessionAdmin/ListSessions"}, failing)
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "code=Internal") {
		t.Errorf("log line = %q", out)
	}
}
