// Package audit records security events (logins, rotations, revocations) for later review.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/Badrul886/riverside/internal/audit/domain"
	auditrepo "github.com/Badrul886/riverside/internal/audit/repository"
)

// Actions emitted by the session core.
const (
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionLoginThrottled = "login_throttled"
	ActionRegister       = "register"
	ActionRefresh        = "refresh"
	ActionReuseDetected  = "reuse_detected"
	ActionDeviceMismatch = "device_mismatch"
	ActionLogout         = "logout"
	ActionInvalidateAll  = "invalidate_all"

	ResourceSession = "session"
	ResourceUser    = "user"
)

// IPExtractor returns the client IP carried by the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event. LogEvent is best-effort: failures are logged and
// do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// Logger implements AuditLogger. Every event goes to the structured log; it is also
// persisted when a repository is configured.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	log         *slog.Logger
}

// NewLogger returns a Logger. repo and ipExtractor may be nil.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log.With("component", "audit")}
}

// LogEvent records one event.
func (l *Logger) LogEvent(ctx context.Context, userID, action, resource, metadata string) {
	ip := "unknown"
	if l.ipExtractor != nil {
		if v := l.ipExtractor(ctx); v != "" {
			ip = v
		}
	}
	l.log.InfoContext(ctx, "audit event",
		"action", action, "resource", resource, "user_id", userID, "ip", ip, "metadata", metadata)
	if l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.ErrorContext(ctx, "failed to persist audit event", "action", action, tint.Err(err))
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) LogEvent(context.Context, string, string, string, string) {}
