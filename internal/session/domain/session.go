package domain

import "time"

// Revocation reasons recorded on a session.
const (
	ReasonLogout         = "logout"
	ReasonReuseDetected  = "reuse_detected"
	ReasonDeviceMismatch = "device_mismatch"
	ReasonInvalidateAll  = "invalidate_all"
)

// Session is one refresh-token lineage member. The row is rotated in place on refresh;
// TokenFamily never changes and Revoked never goes back to false.
type Session struct {
	ID                string
	UserID            string
	RefreshTokenHash  string // SHA-256 of the current refresh token
	TokenFamily       string
	DeviceFingerprint string
	UserAgent         string
	IPAddress         string
	ExpiresAt         time.Time
	Revoked           bool
	RevokedAt         *time.Time // nil when not revoked
	RevokedReason     string
	CreatedAt         time.Time
	RotatedAt         *time.Time // nil until the first refresh
}

// Usable reports whether the session may be refreshed or trusted at now.
func (s *Session) Usable(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}

// Summary returns the listing projection of s (no token material).
func (s *Session) Summary() SessionSummary {
	return SessionSummary{
		ID:          s.ID,
		UserID:      s.UserID,
		TokenFamily: s.TokenFamily,
		UserAgent:   s.UserAgent,
		IPAddress:   s.IPAddress,
		ExpiresAt:   s.ExpiresAt,
		Revoked:     s.Revoked,
		RevokedAt:   s.RevokedAt,
		CreatedAt:   s.CreatedAt,
		RotatedAt:   s.RotatedAt,
	}
}

// SessionSummary is the read model returned by listings.
type SessionSummary struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	TokenFamily string     `json:"tokenFamily"`
	UserAgent   string     `json:"userAgent"`
	IPAddress   string     `json:"ipAddress"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Revoked     bool       `json:"revoked"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	RotatedAt   *time.Time `json:"rotatedAt,omitempty"`
	Current     bool       `json:"current"`
}
