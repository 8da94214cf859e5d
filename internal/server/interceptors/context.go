package interceptors

import "context"

type contextKey struct{ name string }

var (
	identityKey = contextKey{"identity"}
	clientIPKey = contextKey{"client_ip"}
)

// Identity is the verified caller established from an access token.
type Identity struct {
	UserID    string
	Role      string
	SessionID string
}

// WithIdentity returns a context carrying id. Handlers read it via IdentityFrom or the Get helpers.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity in ctx and true if set.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok || id.UserID == "" {
		return "", false
	}
	return id.UserID, true
}

// GetRole returns the role from context and true if set.
func GetRole(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok || id.Role == "" {
		return "", false
	}
	return id.Role, true
}

// GetSessionID returns the session_id from context and true if set.
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	if !ok || id.SessionID == "" {
		return "", false
	}
	return id.SessionID, true
}

// WithClientIP records the resolved client address, e.g. by the HTTP middleware.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}
