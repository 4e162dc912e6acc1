package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

type ProjectHandler struct {
	projects *services.ProjectService
}

func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
	}
}

// ListProjects returns the current user's projects
// Can filter by client_id and status
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var query services.ListProjectsInput
	if err := c.ShouldBindQuery(&query); err != nil {
		apierrors.BadRequest(c, "Invalid query parameters")
		return
	}

	projects, err := h.projects.ListProjects(c.Request.Context(), principal, query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// CreateProject creates a new project
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req services.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projects.CreateProject(c.Request.Context(), principal, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// GetProject returns a specific project by ID
func (h *ProjectHandler) GetProject(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	project, err := h.projects.GetProject(c.Request.Context(), principal, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// UpdateProject replaces a project's fields
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req services.ProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projects.UpdateProject(c.Request.Context(), principal, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// DeleteProject deletes a project and its communications
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	principal, ok := principalOrAbort(c)
	if !ok {
		return
	}

	if err := h.projects.DeleteProject(c.Request.Context(), principal, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}
