package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/auth"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	identity *services.IdentityService
	verifier *auth.WebhookVerifier
}

// NewWebhookHandler creates a WebhookHandler. A nil verifier disables the endpoint.
func NewWebhookHandler(identity *services.IdentityService, verifier *auth.WebhookVerifier) *WebhookHandler {
	return &WebhookHandler{
		identity: identity,
		verifier: verifier,
	}
}

// HandleAuthEvent applies a signed user lifecycle event
func (h *WebhookHandler) HandleAuthEvent(c *gin.Context) {
	if h.verifier == nil {
		apierrors.ServiceUnavailable(c, "Webhooks are not configured")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		apierrors.BadRequest(c, "Failed to read request body")
		return
	}

	event, err := h.verifier.Verify(payload, c.Request.Header)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidSignature) {
			apierrors.RespondWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeInvalidSignature, "Invalid webhook signature"))
			return
		}
		apierrors.BadRequest(c, "Invalid webhook payload")
		return
	}

	if err := h.identity.SyncUser(c.Request.Context(), *event); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("[webhook] applied %s for %s", event.Type, event.Data.ID)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
