package middleware

import (
	"encoding/json"
	"log"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/constants"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
)

// RequireAuth resolves the principal from the session cookie, falling back to a bearer token
func RequireAuth(verifier *auth.TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := SessionPrincipal(c)
		if !ok {
			principal, ok = bearerPrincipal(c, verifier)
		}

		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		// Store principal in context for easy access in handlers
		c.Set(constants.ContextKeyPrincipal, principal)
		c.Next()
	}
}

// GetPrincipal retrieves the current principal from context
func GetPrincipal(c *gin.Context) (auth.Principal, bool) {
	value, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return auth.Principal{}, false
	}

	principal, ok := value.(auth.Principal)
	if !ok || principal.IsZero() {
		return auth.Principal{}, false
	}
	return principal, true
}

// SetSessionPrincipal stores the principal in the session. The caller saves the session.
func SetSessionPrincipal(session sessions.Session, principal auth.Principal) error {
	encoded, err := json.Marshal(principal)
	if err != nil {
		return err
	}
	session.Set(constants.SessionKeyPrincipal, string(encoded))
	return nil
}

// SessionPrincipal reads the principal stored by SetSessionPrincipal
func SessionPrincipal(c *gin.Context) (auth.Principal, bool) {
	raw, ok := sessions.Default(c).Get(constants.SessionKeyPrincipal).(string)
	if !ok || raw == "" {
		return auth.Principal{}, false
	}

	var principal auth.Principal
	if err := json.Unmarshal([]byte(raw), &principal); err != nil || principal.IsZero() {
		return auth.Principal{}, false
	}
	return principal, true
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if header == "" || token == header || token == "" {
		return "", false
	}
	return token, true
}

func bearerPrincipal(c *gin.Context, verifier *auth.TokenVerifier) (auth.Principal, bool) {
	token, ok := BearerToken(c)
	if !ok || !verifier.Configured() {
		return auth.Principal{}, false
	}

	principal, err := verifier.Verify(token)
	if err != nil {
		log.Printf("[auth] rejected bearer token: %v", err)
		return auth.Principal{}, false
	}
	return principal, true
}
