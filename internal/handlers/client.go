package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/services"
	"github.com/yukikurage/freelance-crm-api/internal/utils"
)

type ClientHandler struct {
	clients        *services.ClientService
	projects       *services.ProjectService
	communications *services.CommunicationService
}

func NewClientHandler(clients *services.ClientService, projects *services.ProjectService, communications *services.CommunicationService) *ClientHandler {
	return &ClientHandler{
		clients:        clients,
		projects:       projects,
		communications: communications,
	}
}

// ListClients returns the current user's clients
// Filter by ?filter=ACTIVE|ARCHIVED|ALL (default ACTIVE)
func (h *ClientHandler) ListClients(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	clients, err := h.clients.ListClients(c.Request.Context(), principal, c.Query("filter"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

// CreateClient creates a new client
func (h *ClientHandler) CreateClient(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req services.CreateClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	client, err := h.clients.CreateClient(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, client)
}

// GetClient returns a specific client by ID
func (h *ClientHandler) GetClient(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	client, err := h.clients.GetClient(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

// UpdateClient applies a partial update
func (h *ClientHandler) UpdateClient(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req services.UpdateClientInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	client, err := h.clients.UpdateClient(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

// ArchiveClient archives an active client
func (h *ClientHandler) ArchiveClient(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	client, err := h.clients.ArchiveClient(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

// UnarchiveClient restores an archived client
func (h *ClientHandler) UnarchiveClient(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	client, err := h.clients.UnarchiveClient(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, client)
}

// ListClientProjects returns the projects of one client
func (h *ClientHandler) ListClientProjects(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	// 404 for a foreign client rather than an empty list
	if _, err := h.clients.GetClient(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	projects, err := h.projects.ListProjects(c.Request.Context(), principal, services.ListProjectsInput{
		ClientID: c.Param("id"),
		Status:   c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// ListClientCommunications returns the most recent communications with one client
func (h *ClientHandler) ListClientCommunications(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	if _, err := h.clients.GetClient(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	communications, err := h.communications.ListCommunications(c.Request.Context(), principal, services.ListCommunicationsInput{
		ClientID: c.Param("id"),
		Type:     c.Query("type"),
		Limit:    utils.GetLimitParam(c),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"communications": communications})
}

// DraftFollowUp drafts the next message to a client with AI
func (h *ClientHandler) DraftFollowUp(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	draft, err := h.communications.DraftFollowUp(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, draft)
}
