package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"github.com/yukikurage/freelance-crm-api/internal/repository"
	"github.com/yukikurage/freelance-crm-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrClientNotFound = fmt.Errorf("client %w", apierrors.ErrNotFoundKind)
)

// ClientService handles client business logic
type ClientService struct {
	clientRepo repository.ClientRepository
	identity   *IdentityService
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo repository.ClientRepository, identity *IdentityService) *ClientService {
	return &ClientService{
		clientRepo: clientRepo,
		identity:   identity,
	}
}

// CreateClientInput represents input for creating a client.
// Tags is free-form delimited text.
type CreateClientInput struct {
	Name    string `json:"name" validate:"required,max=255"`
	Email   string `json:"email" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone" validate:"max=64"`
	Company string `json:"company" validate:"max=255"`
	Notes   string `json:"notes"`
	Tags    string `json:"tags"`
}

// UpdateClientInput represents a partial client update. Nil fields are left unchanged.
type UpdateClientInput struct {
	Name    *string `json:"name" validate:"omitnil,max=255"`
	Email   *string `json:"email" validate:"omitempty,email,max=255"`
	Phone   *string `json:"phone" validate:"omitnil,max=64"`
	Company *string `json:"company" validate:"omitnil,max=255"`
	Notes   *string `json:"notes"`
	Tags    *string `json:"tags"`
}

// ParseClientFilter normalises a list filter. An empty filter means ACTIVE.
func ParseClientFilter(raw string) (models.ClientFilter, error) {
	switch filter := models.ClientFilter(strings.ToUpper(strings.TrimSpace(raw))); filter {
	case "":
		return models.ClientFilterActive, nil
	case models.ClientFilterActive, models.ClientFilterArchived, models.ClientFilterAll:
		return filter, nil
	default:
		return "", apierrors.NewValidationError("filter", "must be one of ACTIVE ARCHIVED ALL")
	}
}

// ListClients returns the principal's clients, most recently updated first
func (s *ClientService) ListClients(ctx context.Context, principal auth.Principal, filter string) ([]dto.ClientDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseClientFilter(filter)
	if err != nil {
		return nil, err
	}

	listFilter := repository.ClientFilter{UserID: user.ID}
	if parsed != models.ClientFilterAll {
		status := models.ClientStatus(parsed)
		listFilter.Status = &status
	}

	clients, err := s.clientRepo.List(ctx, listFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	return s.toDTOs(ctx, clients)
}

// GetClient returns one owned client
func (s *ClientService) GetClient(ctx context.Context, principal auth.Principal, id string) (*dto.ClientDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	client, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	return s.toDTO(ctx, *client)
}

// CreateClient creates a new active client
func (s *ClientService) CreateClient(ctx context.Context, principal auth.Principal, input CreateClientInput) (*dto.ClientDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	client := &models.Client{
		UserID:  user.ID,
		Name:    input.Name,
		Email:   input.Email,
		Phone:   strings.TrimSpace(input.Phone),
		Company: strings.TrimSpace(input.Company),
		Notes:   input.Notes,
		Tags:    utils.ParseTags(input.Tags),
		Status:  models.ClientStatusActive,
	}

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return s.toDTO(ctx, *client)
}

// UpdateClient applies a partial update to an owned client
func (s *ClientService) UpdateClient(ctx context.Context, principal auth.Principal, id string, input UpdateClientInput) (*dto.ClientDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apierrors.NewValidationError("name", "is required")
		}
		input.Name = &name
	}
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		input.Email = &email
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	client, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		client.Name = *input.Name
	}
	if input.Email != nil {
		client.Email = *input.Email
	}
	if input.Phone != nil {
		client.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Company != nil {
		client.Company = strings.TrimSpace(*input.Company)
	}
	if input.Notes != nil {
		client.Notes = *input.Notes
	}
	if input.Tags != nil {
		client.Tags = utils.ParseTags(*input.Tags)
	}

	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}

	return s.toDTO(ctx, *client)
}

// ArchiveClient moves an ACTIVE client to ARCHIVED
func (s *ClientService) ArchiveClient(ctx context.Context, principal auth.Principal, id string) (*dto.ClientDTO, error) {
	return s.transition(ctx, principal, id, models.ClientStatusActive, models.ClientStatusArchived)
}

// UnarchiveClient moves an ARCHIVED client back to ACTIVE
func (s *ClientService) UnarchiveClient(ctx context.Context, principal auth.Principal, id string) (*dto.ClientDTO, error) {
	return s.transition(ctx, principal, id, models.ClientStatusArchived, models.ClientStatusActive)
}

// transition reports NotFound for a missing client, a foreign client and a client in the wrong status alike
func (s *ClientService) transition(ctx context.Context, principal auth.Principal, id string, from, to models.ClientStatus) (*dto.ClientDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	ok, err := s.clientRepo.TransitionStatus(ctx, id, user.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to change client status: %w", err)
	}
	if !ok {
		return nil, ErrClientNotFound
	}

	client, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	return s.toDTO(ctx, *client)
}

func (s *ClientService) findOwned(ctx context.Context, id, userID string) (*models.Client, error) {
	client, err := s.clientRepo.FindOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return client, nil
}

func (s *ClientService) toDTO(ctx context.Context, client models.Client) (*dto.ClientDTO, error) {
	dtos, err := s.toDTOs(ctx, []models.Client{client})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *ClientService) toDTOs(ctx context.Context, clients []models.Client) ([]dto.ClientDTO, error) {
	ids := make([]string, len(clients))
	for i, client := range clients {
		ids[i] = client.ID
	}

	contacts, err := s.clientRepo.LatestContacts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load last contact: %w", err)
	}

	dtos := make([]dto.ClientDTO, len(clients))
	for i, client := range clients {
		var lastSentAt *time.Time
		if sentAt, ok := contacts[client.ID]; ok {
			lastSentAt = &sentAt
		}
		dtos[i] = dto.ToClientDTO(client, lastSentAt)
	}
	return dtos, nil
}
