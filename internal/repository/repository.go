package repository

import (
	"context"
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by internal ID
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByExternalID finds a user by the auth provider's ID
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// Update saves profile changes
	Update(ctx context.Context, user *models.User) error

	// DeleteWithData removes a user and everything they own in one transaction
	DeleteWithData(ctx context.Context, userID string) error
}

// ClientRepository defines the interface for client data access
type ClientRepository interface {
	// Create creates a new client
	Create(ctx context.Context, client *models.Client) error

	// FindOwned finds a client by ID that belongs to userID
	FindOwned(ctx context.Context, id, userID string) (*models.Client, error)

	// List retrieves a user's clients, most recently updated first
	List(ctx context.Context, filter ClientFilter) ([]models.Client, error)

	// Update saves a client's mutable fields
	Update(ctx context.Context, client *models.Client) error

	// TransitionStatus moves an owned client from one status to another.
	// It reports false when no client matched in the from status.
	TransitionStatus(ctx context.Context, id, userID string, from, to models.ClientStatus) (bool, error)

	// LatestContacts returns the most recent communication time per client
	LatestContacts(ctx context.Context, clientIDs []string) (map[string]time.Time, error)
}

// ClientFilter holds filtering options for listing clients
type ClientFilter struct {
	UserID string
	Status *models.ClientStatus
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// FindOwned finds a project by ID that belongs to userID, with its client
	FindOwned(ctx context.Context, id, userID string) (*models.Project, error)

	// List retrieves a user's projects, most recently updated first
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, error)

	// Update saves a project's mutable fields
	Update(ctx context.Context, project *models.Project) error

	// Delete removes a project with its communications and their attachments
	Delete(ctx context.Context, id string) error

	// Activity returns communication statistics per project
	Activity(ctx context.Context, projectIDs []string) (map[string]ProjectActivity, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	UserID   string
	ClientID *string
	Status   *models.ProjectStatus
}

// ProjectActivity summarises the communications tagged to a project
type ProjectActivity struct {
	LastSentAt         *time.Time
	CommunicationCount int
}

// CommunicationRepository defines the interface for communication data access
type CommunicationRepository interface {
	// CreateWithAttachments inserts a communication and its attachments atomically
	CreateWithAttachments(ctx context.Context, communication *models.Communication, attachments []models.Attachment) error

	// FindOwned finds a communication whose client belongs to userID
	FindOwned(ctx context.Context, id, userID string) (*models.Communication, error)

	// List retrieves a user's communications, most recent first
	List(ctx context.Context, filter CommunicationFilter) ([]models.Communication, error)

	// UpdateWithAttachments saves a communication and appends new attachments atomically
	UpdateWithAttachments(ctx context.Context, communication *models.Communication, attachments []models.Attachment) error

	// Delete removes a communication and its attachments
	Delete(ctx context.Context, id string) error
}

// CommunicationFilter holds filtering options for listing communications
type CommunicationFilter struct {
	UserID    string
	ClientID  *string
	ProjectID *string
	Type      *models.CommunicationType
	Limit     int
}
