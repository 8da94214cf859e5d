package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Badrul886/riverside/internal/security"
	"github.com/Badrul886/riverside/internal/server/interceptors"
)

// clientIP stores the resolved client address in the request context for audit records.
func clientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := interceptors.WithClientIP(c.Request.Context(), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requestLogger logs each request once it completes; 5xx at error, 4xx at warn.
func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if userID, ok := interceptors.GetUserID(c.Request.Context()); ok {
			args = append(args, "user_id", userID)
		}
		status := c.Writer.Status()
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("HTTP request completed with server error", args...)
		case status >= http.StatusBadRequest:
			log.Warn("HTTP request completed with client error", args...)
		default:
			log.Debug("HTTP request completed", args...)
		}
	}
}

// requireAccessToken verifies the Bearer access token and places the caller Identity in the
// request context.
func requireAccessToken(tokens *security.TokenSigner) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := interceptors.ParseBearer(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		claims, err := tokens.VerifyAccess(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		ctx := interceptors.WithIdentity(c.Request.Context(), interceptors.Identity{
			UserID:    claims.Subject,
			Role:      claims.Role,
			SessionID: claims.SessionID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
