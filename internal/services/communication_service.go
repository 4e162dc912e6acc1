package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/constants"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"github.com/yukikurage/freelance-crm-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommunicationNotFound  = fmt.Errorf("communication %w", apierrors.ErrNotFoundKind)
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
)

// CommunicationService handles communication business logic
type CommunicationService struct {
	commRepo    repository.CommunicationRepository
	clientRepo  repository.ClientRepository
	projectRepo repository.ProjectRepository
	identity    *IdentityService
	aiService   *AIService
	now         func() time.Time
}

// NewCommunicationService creates a new CommunicationService. aiService may be nil.
func NewCommunicationService(
	commRepo repository.CommunicationRepository,
	clientRepo repository.ClientRepository,
	projectRepo repository.ProjectRepository,
	identity *IdentityService,
	aiService *AIService,
) *CommunicationService {
	return &CommunicationService{
		commRepo:    commRepo,
		clientRepo:  clientRepo,
		projectRepo: projectRepo,
		identity:    identity,
		aiService:   aiService,
		now:         time.Now,
	}
}

// ListCommunicationsInput represents filters for listing communications
type ListCommunicationsInput struct {
	ClientID  string `form:"client_id"`
	ProjectID string `form:"project_id"`
	Type      string `form:"type"`
	Limit     int    `form:"limit"`
}

// AttachmentInput describes an already-uploaded file to link to a communication
type AttachmentInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	URL      string `json:"url" validate:"required,url,max=2048"`
	Size     int64  `json:"size" validate:"gte=0"`
	MimeType string `json:"mime_type" validate:"max=255"`
}

// CreateCommunicationInput represents input for logging a communication
type CreateCommunicationInput struct {
	ClientID    string            `json:"client_id" validate:"required"`
	ProjectID   *string           `json:"project_id"`
	Type        string            `json:"type" validate:"required"`
	Subject     string            `json:"subject" validate:"required,max=255"`
	Content     string            `json:"content" validate:"required"`
	SentAt      *time.Time        `json:"sent_at"`
	Attachments []AttachmentInput `json:"attachments" validate:"dive"`
}

// UpdateCommunicationInput replaces a communication's fields and appends attachments.
// A nil SentAt keeps the stored time; a nil ProjectID removes the project link.
type UpdateCommunicationInput struct {
	ProjectID   *string           `json:"project_id"`
	Type        string            `json:"type" validate:"required"`
	Subject     string            `json:"subject" validate:"required,max=255"`
	Content     string            `json:"content" validate:"required"`
	SentAt      *time.Time        `json:"sent_at"`
	Attachments []AttachmentInput `json:"attachments" validate:"dive"`
}

// NormalizeCommunicationType upper-cases raw and checks it against the known types
func NormalizeCommunicationType(raw string) (models.CommunicationType, error) {
	normalized := models.CommunicationType(strings.ToUpper(strings.TrimSpace(raw)))
	for _, t := range models.CommunicationTypes {
		if normalized == t {
			return t, nil
		}
	}
	return "", apierrors.NewValidationError("type", "must be one of EMAIL CALL MEETING MESSAGE NOTE OTHER")
}

// ListCommunications returns the principal's communications, most recent first
func (s *CommunicationService) ListCommunications(ctx context.Context, principal auth.Principal, input ListCommunicationsInput) ([]dto.CommunicationDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	filter := repository.CommunicationFilter{UserID: user.ID, Limit: input.Limit}
	switch {
	case filter.Limit == 0:
		filter.Limit = constants.DefaultCommunicationLimit
	case filter.Limit < 0 || filter.Limit > constants.MaxCommunicationLimit:
		return nil, apierrors.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", constants.MaxCommunicationLimit))
	}
	if input.ClientID != "" {
		filter.ClientID = &input.ClientID
	}
	if input.ProjectID != "" {
		filter.ProjectID = &input.ProjectID
	}
	if input.Type != "" {
		commType, err := NormalizeCommunicationType(input.Type)
		if err != nil {
			return nil, err
		}
		filter.Type = &commType
	}

	communications, err := s.commRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list communications: %w", err)
	}

	dtos := make([]dto.CommunicationDTO, len(communications))
	for i, communication := range communications {
		dtos[i] = dto.ToCommunicationDTO(communication)
	}
	return dtos, nil
}

// GetCommunication returns one owned communication with its attachments
func (s *CommunicationService) GetCommunication(ctx context.Context, principal auth.Principal, id string) (*dto.CommunicationDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	communication, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	result := dto.ToCommunicationDTO(*communication)
	return &result, nil
}

// CreateCommunication logs a communication and its attachments in one transaction
func (s *CommunicationService) CreateCommunication(ctx context.Context, principal auth.Principal, input CreateCommunicationInput) (*dto.CommunicationDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	input.ClientID = strings.TrimSpace(input.ClientID)
	input.Subject = strings.TrimSpace(input.Subject)
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	commType, err := NormalizeCommunicationType(input.Type)
	if err != nil {
		return nil, err
	}

	if _, err := s.clientRepo.FindOwned(ctx, input.ClientID, user.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	projectID, err := s.resolveProject(ctx, user.ID, input.ClientID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	sentAt := s.now()
	if input.SentAt != nil {
		sentAt = *input.SentAt
	}

	communication := &models.Communication{
		ClientID:  input.ClientID,
		ProjectID: projectID,
		Type:      commType,
		Subject:   input.Subject,
		Content:   input.Content,
		SentAt:    sentAt,
	}

	if err := s.commRepo.CreateWithAttachments(ctx, communication, toAttachments(input.Attachments)); err != nil {
		return nil, fmt.Errorf("failed to create communication: %w", err)
	}

	return s.reload(ctx, communication.ID, user.ID)
}

// UpdateCommunication replaces an owned communication's fields and appends new attachments
func (s *CommunicationService) UpdateCommunication(ctx context.Context, principal auth.Principal, id string, input UpdateCommunicationInput) (*dto.CommunicationDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	communication, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	input.Subject = strings.TrimSpace(input.Subject)
	input.Content = strings.TrimSpace(input.Content)
	if err := validateInput(input); err != nil {
		return nil, err
	}
	commType, err := NormalizeCommunicationType(input.Type)
	if err != nil {
		return nil, err
	}

	projectID, err := s.resolveProject(ctx, user.ID, communication.ClientID, input.ProjectID)
	if err != nil {
		return nil, err
	}

	communication.ProjectID = projectID
	communication.Type = commType
	communication.Subject = input.Subject
	communication.Content = input.Content
	if input.SentAt != nil {
		communication.SentAt = *input.SentAt
	}

	if err := s.commRepo.UpdateWithAttachments(ctx, communication, toAttachments(input.Attachments)); err != nil {
		return nil, fmt.Errorf("failed to update communication: %w", err)
	}

	return s.reload(ctx, communication.ID, user.ID)
}

// DeleteCommunication removes an owned communication and its attachments
func (s *CommunicationService) DeleteCommunication(ctx context.Context, principal auth.Principal, id string) error {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return err
	}

	communication, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return err
	}

	if err := s.commRepo.Delete(ctx, communication.ID); err != nil {
		return fmt.Errorf("failed to delete communication: %w", err)
	}

	return nil
}

// DraftFollowUp asks the AI service for the next message to an owned client
func (s *CommunicationService) DraftFollowUp(ctx context.Context, principal auth.Principal, clientID string) (*dto.FollowUpDraftDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	client, err := s.clientRepo.FindOwned(ctx, clientID, user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	history, err := s.commRepo.List(ctx, repository.CommunicationFilter{
		UserID:   user.ID,
		ClientID: &client.ID,
		Limit:    constants.RecentCommunicationsForAI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load communication history: %w", err)
	}

	draft, err := s.aiService.DraftFollowUp(ctx, *client, history)
	if err != nil {
		return nil, fmt.Errorf("failed to draft follow-up: %w", err)
	}

	return &dto.FollowUpDraftDTO{Subject: draft.Subject, Content: draft.Content}, nil
}

// resolveProject checks an optional project link. A project the user does not own is NotFound;
// an owned project of another client is a validation failure.
func (s *CommunicationService) resolveProject(ctx context.Context, userID, clientID string, projectID *string) (*string, error) {
	if projectID == nil || strings.TrimSpace(*projectID) == "" {
		return nil, nil
	}

	project, err := s.projectRepo.FindOwned(ctx, strings.TrimSpace(*projectID), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if project.ClientID != clientID {
		return nil, apierrors.NewValidationError("project_id", "must belong to the same client")
	}

	return &project.ID, nil
}

func (s *CommunicationService) findOwned(ctx context.Context, id, userID string) (*models.Communication, error) {
	communication, err := s.commRepo.FindOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommunicationNotFound
		}
		return nil, fmt.Errorf("failed to find communication: %w", err)
	}
	return communication, nil
}

func (s *CommunicationService) reload(ctx context.Context, id, userID string) (*dto.CommunicationDTO, error) {
	communication, err := s.findOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	result := dto.ToCommunicationDTO(*communication)
	return &result, nil
}

func toAttachments(inputs []AttachmentInput) []models.Attachment {
	attachments := make([]models.Attachment, len(inputs))
	for i, in := range inputs {
		attachments[i] = models.Attachment{
			Name:     strings.TrimSpace(in.Name),
			URL:      in.URL,
			Size:     in.Size,
			MimeType: in.MimeType,
		}
	}
	return attachments
}
