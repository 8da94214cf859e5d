package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RefreshCookieName is the cookie that carries the refresh token.
const RefreshCookieName = "refreshToken"

const fallbackCookieDomain = "localhost"

// CookieConfig scopes the refresh cookie.
type CookieConfig struct {
	Domain string
	// Secure is set in production.
	Secure bool
}

// ResolveCookieDomain returns configured when it is in allowlist, otherwise localhost.
func ResolveCookieDomain(configured string, allowlist []string) string {
	configured = strings.TrimSpace(configured)
	for _, d := range allowlist {
		if configured != "" && strings.EqualFold(configured, d) {
			return configured
		}
	}
	return fallbackCookieDomain
}

func setRefreshCookie(c *gin.Context, cfg CookieConfig, token string, expiresAt, now time.Time) {
	maxAge := int(expiresAt.Sub(now) / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, token, maxAge, "/", cfg.Domain, cfg.Secure, true)
}

func clearRefreshCookie(c *gin.Context, cfg CookieConfig) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(RefreshCookieName, "", -1, "/", cfg.Domain, cfg.Secure, true)
}

func refreshCookie(c *gin.Context) string {
	v, err := c.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return v
}
