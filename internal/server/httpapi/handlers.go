package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"

	identityservice "github.com/Badrul886/riverside/internal/identity/service"
	"github.com/Badrul886/riverside/internal/security"
	sessionservice "github.com/Badrul886/riverside/internal/session/service"
	"github.com/Badrul886/riverside/internal/server/interceptors"
	userdomain "github.com/Badrul886/riverside/internal/user/domain"
)

type handlers struct {
	sessions  SessionManager
	registrar Registrar
	health    Readier
	metrics   *Metrics
	cookies   CookieConfig
	log       *slog.Logger
	now       func() time.Time
}

type registerRequest struct {
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type loginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type meResponse struct {
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
}

func (h *handlers) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) readyz(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	if err := h.health.Ready(c.Request.Context()); err != nil {
		h.log.WarnContext(c.Request.Context(), "readiness check failed", tint.Err(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// register always creates a plain user; admins are provisioned out of band.
func (h *handlers) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name, email, password and confirmPassword are required")
		return
	}
	id, err := h.registrar.Register(c.Request.Context(), identityservice.RegisterInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		Role:            userdomain.RoleUser,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *handlers) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	pair, err := h.sessions.Login(c.Request.Context(), sessionservice.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
		Meta:       security.RequestMetadataFromHTTP(c.Request, c.ClientIP()),
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.issue(c, pair)
}

func (h *handlers) refresh(c *gin.Context) {
	token := refreshCookie(c)
	pair, err := h.sessions.Refresh(c.Request.Context(), token, security.RequestMetadataFromHTTP(c.Request, c.ClientIP()))
	if err != nil {
		h.clearCookie(c)
		writeError(c, h.log, err)
		return
	}
	h.issue(c, pair)
}

// logout succeeds whatever the state of the presented cookie.
func (h *handlers) logout(c *gin.Context) {
	if token := refreshCookie(c); token != "" {
		if err := h.sessions.Logout(c.Request.Context(), token); err != nil {
			h.log.ErrorContext(c.Request.Context(), "logout failed", tint.Err(err))
		}
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) logoutAll(c *gin.Context) {
	userID, _ := interceptors.GetUserID(c.Request.Context())
	n, err := h.sessions.InvalidateAll(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.clearCookie(c)
	c.JSON(http.StatusOK, gin.H{"revoked": n})
}

func (h *handlers) listSessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID, _ := interceptors.GetUserID(ctx)
	current, _ := interceptors.GetSessionID(ctx)
	list, err := h.sessions.ListSessions(ctx, userID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	for i := range list {
		list[i].Current = list[i].ID == current
	}
	c.JSON(http.StatusOK, gin.H{"sessions": list})
}

func (h *handlers) me(c *gin.Context) {
	id, ok := interceptors.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, meResponse{UserID: id.UserID, Role: id.Role, SessionID: id.SessionID})
}

func (h *handlers) issue(c *gin.Context, pair *sessionservice.TokenPair) {
	setRefreshCookie(c, h.cookies, pair.RefreshToken, pair.RefreshExpiresAt, h.now())
	h.metrics.cookie("set")
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken, ExpiresIn: pair.AccessExpiresIn})
}

func (h *handlers) clearCookie(c *gin.Context) {
	clearRefreshCookie(c, h.cookies)
	h.metrics.cookie("cleared")
}
