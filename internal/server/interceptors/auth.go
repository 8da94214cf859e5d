package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/Badrul886/riverside/internal/security"
)

const bearerPrefix = "bearer "

// AuthUnary returns a unary server interceptor that validates the Bearer access token from gRPC
// metadata and sets the caller Identity in context. publicMethods skip authentication.
// When requiredRole is non-empty, protected methods also require that role.
func AuthUnary(tokens *security.TokenSigner, publicMethods map[string]bool, requiredRole string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := ParseBearer(firstMetadata(ctx, "authorization"))
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		if requiredRole != "" && claims.Role != requiredRole {
			return nil, status.Error(codes.PermissionDenied, "insufficient role")
		}
		ctx = WithIdentity(ctx, Identity{UserID: claims.Subject, Role: claims.Role, SessionID: claims.SessionID})
		return handler(ctx, req)
	}
}

// ParseBearer returns the token of an "Authorization: Bearer <token>" value, or "" if malformed.
func ParseBearer(v string) string {
	v = strings.TrimSpace(v)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}
