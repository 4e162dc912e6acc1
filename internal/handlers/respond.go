package handlers

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/auth"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/middleware"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

// respondError maps a service error onto an HTTP response. Unknown failures are logged.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case apierrors.KindOf(err) == apierrors.KindUnknown:
		log.Printf("[handlers] %s %s: %v", c.Request.Method, c.FullPath(), err)
		apierrors.InternalError(c, "")
	default:
		apierrors.Respond(c, err)
	}
}

// principalOrAbort returns the principal set by RequireAuth, writing a 401 when absent
func principalOrAbort(c *gin.Context) (auth.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return auth.Principal{}, false
	}
	return principal, true
}
