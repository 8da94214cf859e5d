package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"

	identityservice "github.com/Badrul886/riverside/internal/identity/service"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps a service error to an HTTP status and a client-safe message.
// Every security failure collapses to the same 401 body.
func statusFor(err error) (int, string) {
	switch {
	case sessionservice.IsUnauthorized(err):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, sessionservice.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many attempts"
	case errors.Is(err, sessionservice.ErrConflict):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, identityservice.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, sessionservice.ErrNotFound):
		return http.StatusNotFound, "not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(c *gin.Context, log *slog.Logger, err error) {
	code, msg := statusFor(err)
	switch {
	case code >= http.StatusInternalServerError:
		log.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), tint.Err(err))
	case code == http.StatusUnauthorized && !isBareSentinel(err):
		// The security outcome stands, but a store fault rode along with it.
		log.ErrorContext(c.Request.Context(), "revocation side effect failed", "path", c.FullPath(), tint.Err(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(code, errorResponse{Error: msg})
}

func isBareSentinel(err error) bool {
	switch err {
	case sessionservice.ErrInvalidCredentials, sessionservice.ErrMissingToken, sessionservice.ErrInvalidSession,
		sessionservice.ErrReuseDetected, sessionservice.ErrDeviceMismatch:
		return true
	}
	return false
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: msg})
}
