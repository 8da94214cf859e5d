// Package service implements the session lifecycle: login, refresh rotation with reuse
// detection, logout and bulk revocation.
package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Badrul886/riverside/internal/audit"
	"github.com/Badrul886/riverside/internal/policy/engine"
	"github.com/Badrul886/riverside/internal/ratelimit"
	"github.com/Badrul886/riverside/internal/security"
	"github.com/Badrul886/riverside/internal/session/domain"
	"github.com/Badrul886/riverside/internal/session/repository"
	telemetry "github.com/Badrul886/riverside/internal/telemetry/otel"
	userdomain "github.com/Badrul886/riverside/internal/user/domain"
)

// UserRepo is the part of the user store the manager needs. Lookups return (nil, nil) when missing.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// Deps are the collaborators of a Manager. Users, Sessions, Hasher and Tokens are required.
type Deps struct {
	Users    UserRepo
	Sessions repository.Repository
	Hasher   *security.PasswordHasher
	Tokens   *security.TokenSigner
	// Lifetime defaults to the static 7d/15d policy.
	Lifetime engine.LifetimePolicy
	Audit    audit.AuditLogger
	// Limiter is optional; nil disables login throttling.
	Limiter ratelimit.Limiter
	Metrics *telemetry.SessionMetrics
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string
}

// LoginInput is a password login request.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	Meta       security.RequestMetadata
}

// TokenPair is returned by Login and Refresh. RefreshToken is delivered to the client as a cookie.
type TokenPair struct {
	AccessToken      string
	AccessExpiresIn  int64 // seconds
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	SessionID        string
	UserID           string
	Role             string
}

// Manager orchestrates the session lifecycle. It holds no mutable state; all durable state is in
// the session store, so one Manager serves concurrent requests.
type Manager struct {
	users     UserRepo
	sessions  repository.Repository
	hasher    *security.PasswordHasher
	tokens    *security.TokenSigner
	lifetime  engine.LifetimePolicy
	audit     audit.AuditLogger
	limiter   ratelimit.Limiter
	metrics   *telemetry.SessionMetrics
	log       *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string
	dummyHash string
}

// NewManager validates deps and fills optional ones.
func NewManager(d Deps) (*Manager, error) {
	if d.Users == nil || d.Sessions == nil || d.Hasher == nil || d.Tokens == nil {
		return nil, errors.New("session: users, sessions, hasher and tokens are required")
	}
	if d.Lifetime == nil {
		d.Lifetime = engine.NewStaticLifetime(0, 0)
	}
	if d.Audit == nil {
		d.Audit = audit.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.New(slog.DiscardHandler)
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	// Unknown emails are verified against this so both failure paths cost one hash.
	dummy, err := d.Hasher.Hash("riverside-timing-equalizer")
	if err != nil {
		return nil, fmt.Errorf("session: dummy hash: %w", err)
	}
	return &Manager{
		users:     d.Users,
		sessions:  d.Sessions,
		hasher:    d.Hasher,
		tokens:    d.Tokens,
		lifetime:  d.Lifetime,
		audit:     d.Audit,
		limiter:   d.Limiter,
		metrics:   d.Metrics,
		log:       d.Logger.With("component", "session"),
		tracer:    otel.Tracer("github.com/Badrul886/riverside/session"),
		now:       d.Now,
		newID:     d.NewID,
		dummyHash: dummy,
	}, nil
}

// Login authenticates email and password and opens a new session with a fresh token family.
func (m *Manager) Login(ctx context.Context, in LoginInput) (_ *TokenPair, err error) {
	ctx, span := m.tracer.Start(ctx, "session.Login", trace.WithAttributes(attribute.Bool("remember_me", in.RememberMe)))
	defer func() { endSpan(span, err) }()

	email := userdomain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		m.metrics.Login(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}
	throttleKey := "login:" + email
	if !m.allow(ctx, throttleKey) {
		m.audit.LogEvent(ctx, "", audit.ActionLoginThrottled, audit.ResourceUser, "email="+email)
		m.metrics.Login(ctx, "throttled")
		return nil, ErrTooManyAttempts
	}

	user, err := m.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("login: lookup user: %w", err)
	}
	if user == nil {
		m.hasher.Verify(in.Password, m.dummyHash)
		m.loginFailed(ctx, throttleKey, "", email)
		return nil, ErrInvalidCredentials
	}
	if !m.hasher.Verify(in.Password, user.PasswordHash) {
		m.loginFailed(ctx, throttleKey, user.ID, email)
		return nil, ErrInvalidCredentials
	}
	m.resetThrottle(ctx, throttleKey)

	ttl, err := m.lifetime.SessionLifetime(ctx, in.RememberMe, user.Role)
	if err != nil {
		return nil, fmt.Errorf("login: session lifetime: %w", err)
	}

	sessionID, family := m.newID(), m.newID()
	refresh, refreshExp, err := m.tokens.IssueRefresh(security.RefreshBinding{UserID: user.ID, SessionID: sessionID, Family: family}, ttl)
	if err != nil {
		return nil, fmt.Errorf("login: issue refresh: %w", err)
	}
	access, accessExp, err := m.tokens.IssueAccess(user.ID, user.Role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("login: issue access: %w", err)
	}

	now := m.now().UTC()
	sess := &domain.Session{
		ID:                sessionID,
		UserID:            user.ID,
		RefreshTokenHash:  security.HashRefreshToken(refresh),
		TokenFamily:       family,
		DeviceFingerprint: security.Fingerprint(in.Meta),
		UserAgent:         in.Meta.UserAgent,
		IPAddress:         in.Meta.IPAddress,
		ExpiresAt:         refreshExp,
		CreatedAt:         now,
	}
	if err := m.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("login: create session: %w", err)
	}

	if err := m.users.RecordLogin(ctx, user.ID, now); err != nil {
		m.log.WarnContext(ctx, "record last login failed", "user_id", user.ID, tint.Err(err))
	}
	m.upgradeHash(ctx, user, in.Password)

	span.SetAttributes(attribute.String("session.id", sessionID), attribute.String("user.id", user.ID))
	m.audit.LogEvent(ctx, user.ID, audit.ActionLoginSuccess, audit.ResourceSession, "session="+sessionID)
	m.metrics.Login(ctx, "success")

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  int64(m.tokens.AccessTTL() / time.Second),
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sessionID,
		UserID:           user.ID,
		Role:             user.Role,
	}, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the session in place.
// Replaying a rotated-away token, presenting an expired one, or losing a concurrent
// rotation revokes the whole family. A device fingerprint change revokes only this session.
func (m *Manager) Refresh(ctx context.Context, token string, meta security.RequestMetadata) (_ *TokenPair, err error) {
	ctx, span := m.tracer.Start(ctx, "session.Refresh")
	defer func() {
		endSpan(span, err)
		m.metrics.Refresh(ctx, outcome(err))
	}()

	if token == "" {
		return nil, ErrMissingToken
	}
	// Claims come back only for a valid signature, possibly alongside ErrTokenExpired.
	claims, verr := m.tokens.VerifyRefresh(token)
	if claims == nil {
		return nil, ErrInvalidSession
	}
	oldHash := security.HashRefreshToken(token)
	sess, err := m.sessions.FindByRefreshToken(ctx, oldHash)
	if errors.Is(err, repository.ErrNotFound) {
		// Signed by us but no longer stored: it was rotated away.
		if claims.Family == "" {
			return nil, ErrInvalidSession
		}
		return nil, m.reuseDetected(ctx, claims.Subject, claims.Family, "replay")
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: find session: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sess.ID))

	if errors.Is(verr, security.ErrTokenExpired) {
		return nil, m.reuseDetected(ctx, sess.UserID, sess.TokenFamily, "expired")
	}

	now := m.now().UTC()
	if !sess.Usable(now) || sess.UserID != claims.Subject {
		return nil, ErrInvalidSession
	}

	fp := security.Fingerprint(meta)
	if subtle.ConstantTimeCompare([]byte(fp), []byte(sess.DeviceFingerprint)) != 1 {
		m.audit.LogEvent(ctx, sess.UserID, audit.ActionDeviceMismatch, audit.ResourceSession, "session="+sess.ID)
		if rerr := m.sessions.Revoke(ctx, sess.ID, domain.ReasonDeviceMismatch); rerr != nil {
			return nil, errors.Join(ErrDeviceMismatch, fmt.Errorf("refresh: revoke session: %w", rerr))
		}
		m.metrics.Revoked(ctx, domain.ReasonDeviceMismatch, 1)
		return nil, ErrDeviceMismatch
	}

	user, err := m.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("refresh: lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidSession
	}

	binding := security.RefreshBinding{UserID: user.ID, SessionID: sess.ID, Family: sess.TokenFamily}
	refresh, refreshExp, err := m.tokens.IssueRefresh(binding, rotationWindow(claims))
	if err != nil {
		return nil, fmt.Errorf("refresh: issue refresh: %w", err)
	}
	err = m.sessions.UpdateRotate(ctx, sess.ID, oldHash, security.HashRefreshToken(refresh), refreshExp)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrConflict) {
		return nil, m.reuseDetected(ctx, sess.UserID, sess.TokenFamily, "rotation_lost")
	}
	if err != nil {
		return nil, fmt.Errorf("refresh: rotate session: %w", err)
	}
	access, accessExp, err := m.tokens.IssueAccess(user.ID, user.Role, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh: issue access: %w", err)
	}

	m.audit.LogEvent(ctx, user.ID, audit.ActionRefresh, audit.ResourceSession, "session="+sess.ID)
	return &TokenPair{
		AccessToken:      access,
		AccessExpiresIn:  int64(m.tokens.AccessTTL() / time.Second),
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
		SessionID:        sess.ID,
		UserID:           user.ID,
		Role:             user.Role,
	}, nil
}

// Logout revokes the session holding token. Missing, unknown and already revoked tokens succeed.
func (m *Manager) Logout(ctx context.Context, token string) (err error) {
	ctx, span := m.tracer.Start(ctx, "session.Logout")
	defer func() { endSpan(span, err) }()

	if token == "" {
		return nil
	}
	sess, err := m.sessions.FindByRefreshToken(ctx, security.HashRefreshToken(token))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("logout: find session: %w", err)
	}
	if sess.Revoked {
		return nil
	}
	if err := m.sessions.Revoke(ctx, sess.ID, domain.ReasonLogout); err != nil {
		return fmt.Errorf("logout: revoke session: %w", err)
	}
	m.audit.LogEvent(ctx, sess.UserID, audit.ActionLogout, audit.ResourceSession, "session="+sess.ID)
	m.metrics.Revoked(ctx, domain.ReasonLogout, 1)
	return nil
}

// InvalidateAll revokes every live session of userID and returns how many were revoked.
func (m *Manager) InvalidateAll(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := m.tracer.Start(ctx, "session.InvalidateAll", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { endSpan(span, err) }()

	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("invalidate all: lookup user: %w", err)
	}
	if user == nil {
		return 0, ErrNotFound
	}
	n, err := m.sessions.RevokeAllForUser(ctx, userID, domain.ReasonInvalidateAll)
	if err != nil {
		return 0, fmt.Errorf("invalidate all: %w", err)
	}
	m.audit.LogEvent(ctx, userID, audit.ActionInvalidateAll, audit.ResourceSession, fmt.Sprintf("revoked=%d", n))
	m.metrics.Revoked(ctx, domain.ReasonInvalidateAll, n)
	return n, nil
}

// ListSessions returns the user's sessions ordered by creation time, without token material.
func (m *Manager) ListSessions(ctx context.Context, userID string) (_ []domain.SessionSummary, err error) {
	ctx, span := m.tracer.Start(ctx, "session.ListSessions", trace.WithAttributes(attribute.String("user.id", userID)))
	defer func() { endSpan(span, err) }()

	out, err := m.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// reuseDetected revokes the whole family and returns ErrReuseDetected, joined with the
// store fault if the revocation failed.
func (m *Manager) reuseDetected(ctx context.Context, userID, family, cause string) error {
	m.audit.LogEvent(ctx, userID, audit.ActionReuseDetected, audit.ResourceSession,
		fmt.Sprintf("family=%s cause=%s", family, cause))
	n, err := m.sessions.RevokeAllInFamily(ctx, family, domain.ReasonReuseDetected)
	if err != nil {
		return errors.Join(ErrReuseDetected, fmt.Errorf("refresh: revoke family: %w", err))
	}
	m.log.WarnContext(ctx, "refresh token reuse", "user_id", userID, "family", family, "cause", cause, "revoked", n)
	m.metrics.Revoked(ctx, domain.ReasonReuseDetected, n)
	return ErrReuseDetected
}

func (m *Manager) loginFailed(ctx context.Context, key, userID, email string) {
	if m.limiter != nil {
		if err := m.limiter.Hit(ctx, key); err != nil {
			m.log.WarnContext(ctx, "login throttle hit failed", tint.Err(err))
		}
	}
	m.audit.LogEvent(ctx, userID, audit.ActionLoginFailure, audit.ResourceUser, "email="+email)
	m.metrics.Login(ctx, "invalid_credentials")
}

// allow fails open when the limiter store is unreachable.
func (m *Manager) allow(ctx context.Context, key string) bool {
	if m.limiter == nil {
		return true
	}
	ok, err := m.limiter.Allow(ctx, key)
	if err != nil {
		m.log.WarnContext(ctx, "login throttle unavailable", tint.Err(err))
		return true
	}
	return ok
}

func (m *Manager) resetThrottle(ctx context.Context, key string) {
	if m.limiter == nil {
		return
	}
	if err := m.limiter.Reset(ctx, key); err != nil {
		m.log.WarnContext(ctx, "login throttle reset failed", tint.Err(err))
	}
}

// upgradeHash re-hashes legacy or weaker hashes with the current argon2id parameters.
func (m *Manager) upgradeHash(ctx context.Context, user *userdomain.User, password string) {
	if !m.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := m.hasher.Hash(password)
	if err == nil {
		err = m.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		m.log.WarnContext(ctx, "password rehash failed", "user_id", user.ID, tint.Err(err))
	}
}

// rotationWindow keeps the lifetime granted at the last issuance, so a remember-me session
// stays a remember-me session across rotations.
func rotationWindow(c *security.Claims) time.Duration {
	if c.IssuedAt != nil && c.ExpiresAt != nil {
		if w := c.ExpiresAt.Sub(c.IssuedAt.Time); w > 0 {
			return w
		}
	}
	return engine.DefaultSessionTTL
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrReuseDetected):
		return "reuse_detected"
	case errors.Is(err, ErrDeviceMismatch):
		return "device_mismatch"
	case IsUnauthorized(err):
		return "invalid"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
