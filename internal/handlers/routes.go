package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/middleware"
)

// Router groups the handlers mounted under /api
type Router struct {
	Verifier       *auth.TokenVerifier
	Auth           *AuthHandler
	Webhooks       *WebhookHandler
	Clients        *ClientHandler
	Projects       *ProjectHandler
	Communications *CommunicationHandler
}

// Register mounts every API route on r. Session middleware must already be installed.
func (rt *Router) Register(r *gin.Engine) {
	requireAuth := middleware.RequireAuth(rt.Verifier)

	api := r.Group("/api")
	{
		// Auth routes
		authRoutes := api.Group("/auth")
		{
			authRoutes.POST("/session", rt.Auth.CreateSession)
			authRoutes.DELETE("/session", rt.Auth.DeleteSession)
			authRoutes.GET("/me", requireAuth, rt.Auth.GetCurrentUser)
		}

		// Webhooks are authenticated by signature, not session
		api.POST("/webhooks/auth", rt.Webhooks.HandleAuthEvent)

		clients := api.Group("/clients")
		clients.Use(requireAuth)
		{
			clients.GET("", rt.Clients.ListClients)
			clients.POST("", rt.Clients.CreateClient)
			clients.GET("/:id", rt.Clients.GetClient)
			clients.PATCH("/:id", rt.Clients.UpdateClient)
			clients.POST("/:id/archive", rt.Clients.ArchiveClient)
			clients.POST("/:id/unarchive", rt.Clients.UnarchiveClient)
			clients.GET("/:id/projects", rt.Clients.ListClientProjects)
			clients.GET("/:id/communications", rt.Clients.ListClientCommunications)
			clients.POST("/:id/communications/draft", rt.Clients.DraftFollowUp)
		}

		projects := api.Group("/projects")
		projects.Use(requireAuth)
		{
			projects.GET("", rt.Projects.ListProjects)
			projects.POST("", rt.Projects.CreateProject)
			projects.GET("/:id", rt.Projects.GetProject)
			projects.PUT("/:id", rt.Projects.UpdateProject)
			projects.DELETE("/:id", rt.Projects.DeleteProject)
		}

		communications := api.Group("/communications")
		communications.Use(requireAuth)
		{
			communications.GET("", rt.Communications.ListCommunications)
			communications.POST("", rt.Communications.CreateCommunication)
			communications.GET("/:id", rt.Communications.GetCommunication)
			communications.PUT("/:id", rt.Communications.UpdateCommunication)
			communications.DELETE("/:id", rt.Communications.DeleteCommunication)
		}
	}
}
