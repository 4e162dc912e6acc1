package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/services"
	"github.com/yukikurage/freelance-crm-api/internal/utils"
)

type CommunicationHandler struct {
	communications *services.CommunicationService
}

func NewCommunicationHandler(communications *services.CommunicationService) *CommunicationHandler {
	return &CommunicationHandler{
		communications: communications,
	}
}

// ListCommunications returns communications, most recent first
// Can filter by client_id, project_id and type; limit caps the row count
func (h *CommunicationHandler) ListCommunications(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	communications, err := h.communications.ListCommunications(c.Request.Context(), principal, services.ListCommunicationsInput{
		ClientID:  c.Query("client_id"),
		ProjectID: c.Query("project_id"),
		Type:      c.Query("type"),
		Limit:     utils.GetLimitParam(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"communications": communications})
}

// CreateCommunication logs a communication with its attachments
func (h *CommunicationHandler) CreateCommunication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req services.CreateCommunicationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	communication, err := h.communications.CreateCommunication(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, communication)
}

// GetCommunication returns a communication with its attachments
func (h *CommunicationHandler) GetCommunication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	communication, err := h.communications.GetCommunication(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, communication)
}

// UpdateCommunication replaces a communication and appends attachments
func (h *CommunicationHandler) UpdateCommunication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req services.UpdateCommunicationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	communication, err := h.communications.UpdateCommunication(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, communication)
}

// DeleteCommunication deletes a communication and its attachments
func (h *CommunicationHandler) DeleteCommunication(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	if err := h.communications.DeleteCommunication(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Communication deleted successfully"})
}
