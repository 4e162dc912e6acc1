package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/config"
	"github.com/yukikurage/freelance-crm-api/internal/constants"
	"github.com/yukikurage/freelance-crm-api/internal/database"
	"github.com/yukikurage/freelance-crm-api/internal/handlers"
	"github.com/yukikurage/freelance-crm-api/internal/repository"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize Gin router
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	// Identity provider
	verifier, err := auth.NewTokenVerifier(cfg.AuthJWTSecret, cfg.AuthJWTPublicKey)
	if err != nil {
		log.Fatalf("Failed to configure token verification: %v", err)
	}
	if !verifier.Configured() {
		log.Println("[auth] no AUTH_JWT_SECRET or AUTH_JWT_PUBLIC_KEY set; bearer tokens will be rejected")
	}

	var webhookVerifier *auth.WebhookVerifier
	if cfg.AuthWebhookSecret != "" {
		webhookVerifier, err = auth.NewWebhookVerifier(cfg.AuthWebhookSecret)
		if err != nil {
			log.Fatalf("Failed to configure webhook verification: %v", err)
		}
	}

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Repositories and services
	db := database.GetDB()
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	commRepo := repository.NewCommunicationRepository(db)

	identity := services.NewIdentityService(userRepo)
	clientService := services.NewClientService(clientRepo, identity)
	projectService := services.NewProjectService(projectRepo, clientRepo, identity)
	commService := services.NewCommunicationService(commRepo, clientRepo, projectRepo, identity, aiService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Freelance CRM API is running",
		})
	})

	router := &handlers.Router{
		Verifier:       verifier,
		Auth:           handlers.NewAuthHandler(identity, verifier),
		Webhooks:       handlers.NewWebhookHandler(identity, webhookVerifier),
		Clients:        handlers.NewClientHandler(clientService, projectService, commService),
		Projects:       handlers.NewProjectHandler(projectService),
		Communications: handlers.NewCommunicationHandler(commService),
	}
	router.Register(r)

	// Start server
	addr := ":" + cfg.Port
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
