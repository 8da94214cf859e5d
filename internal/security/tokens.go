package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

var (
	// ErrTokenMalformed is returned when a token cannot be parsed or carries the wrong claims.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenSignatureInvalid is returned when the signature does not match the secret.
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	// ErrTokenExpired is returned when the token's exp is in the past.
	ErrTokenExpired = errors.New("token expired")
)

// Token kinds carried in the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// DefaultAccessTTL is the access token lifetime when the config leaves it unset.
const DefaultAccessTTL = 15 * time.Minute

// Claims holds the JWT claims for both access and refresh tokens.
// Role is only set on access tokens; Family only on refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Type      string `json:"typ"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
	Family    string `json:"fam,omitempty"`
}

// RefreshBinding ties a refresh token to the session row and token family it was issued for.
type RefreshBinding struct {
	UserID    string
	SessionID string
	Family    string
}

// TokenSignerConfig is the explicit signing configuration. Secrets must be non-empty and distinct.
type TokenSignerConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
}

// TokenSigner issues and verifies HS256 access and refresh tokens under separate secrets.
type TokenSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	accessTTL     time.Duration
	now           func() time.Time
}

// NewTokenSigner validates cfg and returns a signer.
func NewTokenSigner(cfg TokenSignerConfig) (*TokenSigner, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("security: access and refresh secrets are required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("security: access and refresh secrets must differ")
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = DefaultAccessTTL
	}
	return &TokenSigner{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		issuer:        cfg.Issuer,
		accessTTL:     ttl,
		now:           time.Now,
	}, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenSigner) AccessTTL() time.Duration {
	return s.accessTTL
}

// AccessSecret returns the secret used for access tokens. Exposed for Verify callers.
func (s *TokenSigner) AccessSecret() []byte {
	return s.accessSecret
}

// RefreshSecret returns the secret used for refresh tokens.
func (s *TokenSigner) RefreshSecret() []byte {
	return s.refreshSecret
}

// IssueAccess signs a short-lived access token for userID.
func (s *TokenSigner) IssueAccess(userID, role, sessionID string) (token string, expiresAt time.Time, err error) {
	now := s.now().UTC()
	expiresAt = now.Add(s.accessTTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        NewTokenID(),
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type:      TokenTypeAccess,
		Role:      role,
		SessionID: sessionID,
	}
	token, err = sign(claims, s.accessSecret)
	return token, expiresAt, err
}

// IssueRefresh signs a refresh token for b with a fresh jti, valid for ttl.
func (s *TokenSigner) IssueRefresh(b RefreshBinding, ttl time.Duration) (token string, expiresAt time.Time, err error) {
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("security: refresh ttl must be positive, got %s", ttl)
	}
	now := s.now().UTC()
	expiresAt = now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        NewTokenID(),
			Subject:   b.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Type:      TokenTypeRefresh,
		SessionID: b.SessionID,
		Family:    b.Family,
	}
	token, err = sign(claims, s.refreshSecret)
	return token, expiresAt, err
}

// Verify parses token with secret and returns its claims, or one of
// ErrTokenMalformed, ErrTokenSignatureInvalid, ErrTokenExpired. With ErrTokenExpired the
// signature has been checked and the claims are returned alongside the error.
func (s *TokenSigner) Verify(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		mapped := mapJWTError(err)
		if mapped == ErrTokenExpired && claims.Subject != "" && (s.issuer == "" || claims.Issuer == s.issuer) {
			return claims, mapped
		}
		return nil, mapped
	}
	if claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

// VerifyAccess verifies an access token with the access secret.
func (s *TokenSigner) VerifyAccess(token string) (*Claims, error) {
	return s.verifyKind(token, s.accessSecret, TokenTypeAccess)
}

// VerifyRefresh verifies a refresh token with the refresh secret.
func (s *TokenSigner) VerifyRefresh(token string) (*Claims, error) {
	return s.verifyKind(token, s.refreshSecret, TokenTypeRefresh)
}

func (s *TokenSigner) verifyKind(token string, secret []byte, kind string) (*Claims, error) {
	claims, err := s.Verify(token, secret)
	if claims == nil {
		return nil, err
	}
	if claims.Type != kind {
		return nil, ErrTokenMalformed
	}
	return claims, err
}

// NewTokenID returns a fresh, lexically sortable per-issuance identifier.
func NewTokenID() string {
	return ulid.Make().String()
}

func sign(claims Claims, secret []byte) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return ErrTokenMalformed
	}
}
