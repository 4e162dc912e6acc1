package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/middleware"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	identity *services.IdentityService
	verifier *auth.TokenVerifier
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identity *services.IdentityService, verifier *auth.TokenVerifier) *AuthHandler {
	return &AuthHandler{
		identity: identity,
		verifier: verifier,
	}
}

// CreateSession exchanges a provider bearer token for a session cookie.
func (h *AuthHandler) CreateSession(c *gin.Context) {
	token, ok := middleware.BearerToken(c)
	if !ok {
		apierrors.Unauthorized(c, "Bearer token required")
		return
	}
	if !h.verifier.Configured() {
		apierrors.ServiceUnavailable(c, "Token verification is not configured")
		return
	}

	principal, err := h.verifier.Verify(token)
	if err != nil {
		apierrors.Unauthorized(c, "Invalid token")
		return
	}

	user, err := h.identity.Resolve(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	session := sessions.Default(c)
	if err := middleware.SetSessionPrincipal(session, principal); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// DeleteSession removes the authentication session.
func (h *AuthHandler) DeleteSession(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user, creating it on first access.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	user, err := h.identity.Resolve(c.Request.Context(), principal)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}
