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
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound = fmt.Errorf("project %w", apierrors.ErrNotFoundKind)
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo repository.ProjectRepository
	clientRepo  repository.ClientRepository
	identity    *IdentityService
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo repository.ProjectRepository, clientRepo repository.ClientRepository, identity *IdentityService) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		clientRepo:  clientRepo,
		identity:    identity,
	}
}

// ListProjectsInput represents filters for listing projects
type ListProjectsInput struct {
	ClientID string `form:"client_id"`
	Status   string `form:"status"`
}

// ProjectInput carries every mutable project field. It is used for create and for full-replace updates.
type ProjectInput struct {
	Name        string     `json:"name" validate:"required,max=255"`
	ClientID    string     `json:"client_id" validate:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
}

// NormalizeProjectStatus maps loose spellings such as "on hold" or "on-hold" onto a ProjectStatus
func NormalizeProjectStatus(raw string) (models.ProjectStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)

	for _, status := range models.ProjectStatuses {
		if models.ProjectStatus(normalized) == status {
			return status, nil
		}
	}
	return "", apierrors.NewValidationError("status", "must be one of PROPOSAL ACTIVE ON_HOLD COMPLETED CANCELED")
}

// ListProjects returns the principal's projects, most recently updated first
func (s *ProjectService) ListProjects(ctx context.Context, principal auth.Principal, input ListProjectsInput) ([]dto.ProjectDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	filter := repository.ProjectFilter{UserID: user.ID}
	if input.ClientID != "" {
		filter.ClientID = &input.ClientID
	}
	if input.Status != "" {
		status, err := NormalizeProjectStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	projects, err := s.projectRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	return s.toDTOs(ctx, projects)
}

// GetProject returns one owned project
func (s *ProjectService) GetProject(ctx context.Context, principal auth.Principal, id string) (*dto.ProjectDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	project, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	return s.toDTO(ctx, *project)
}

// CreateProject creates a project for an owned client. Status defaults to PROPOSAL.
func (s *ProjectService) CreateProject(ctx context.Context, principal auth.Principal, input ProjectInput) (*dto.ProjectDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	status, err := s.checkInput(&input, models.ProjectStatusProposal)
	if err != nil {
		return nil, err
	}

	if err := s.ensureClientOwned(ctx, input.ClientID, user.ID); err != nil {
		return nil, err
	}

	project := &models.Project{
		UserID:      user.ID,
		ClientID:    input.ClientID,
		Name:        input.Name,
		Description: input.Description,
		Status:      status,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return s.reload(ctx, project.ID, user.ID)
}

// UpdateProject replaces every mutable field of an owned project.
// Any status in the set is accepted; an empty status keeps the current one.
func (s *ProjectService) UpdateProject(ctx context.Context, principal auth.Principal, id string, input ProjectInput) (*dto.ProjectDTO, error) {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return nil, err
	}

	project, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return nil, err
	}

	status, err := s.checkInput(&input, project.Status)
	if err != nil {
		return nil, err
	}

	if input.ClientID != project.ClientID {
		if err := s.ensureClientOwned(ctx, input.ClientID, user.ID); err != nil {
			return nil, err
		}
		// communications are filed under the project's client
		activity, err := s.projectRepo.Activity(ctx, []string{project.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to load project activity: %w", err)
		}
		if activity[project.ID].CommunicationCount > 0 {
			return nil, apierrors.NewValidationError("client_id", "cannot change while the project has communications")
		}
	}

	project.ClientID = input.ClientID
	project.Name = input.Name
	project.Description = input.Description
	project.Status = status
	project.StartDate = input.StartDate
	project.EndDate = input.EndDate

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	return s.reload(ctx, project.ID, user.ID)
}

// DeleteProject removes an owned project with its communications and their attachments
func (s *ProjectService) DeleteProject(ctx context.Context, principal auth.Principal, id string) error {
	user, err := s.identity.Resolve(ctx, principal)
	if err != nil {
		return err
	}

	project, err := s.findOwned(ctx, id, user.ID)
	if err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	return nil
}

// checkInput trims and validates input, returning the normalised status
func (s *ProjectService) checkInput(input *ProjectInput, fallback models.ProjectStatus) (models.ProjectStatus, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.ClientID = strings.TrimSpace(input.ClientID)
	if err := validateInput(input); err != nil {
		return "", err
	}

	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return "", apierrors.NewValidationError("end_date", "must not be before start_date")
	}

	if strings.TrimSpace(input.Status) == "" {
		return fallback, nil
	}
	return NormalizeProjectStatus(input.Status)
}

func (s *ProjectService) ensureClientOwned(ctx context.Context, clientID, userID string) error {
	if _, err := s.clientRepo.FindOwned(ctx, clientID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to find client: %w", err)
	}
	return nil
}

func (s *ProjectService) findOwned(ctx context.Context, id, userID string) (*models.Project, error) {
	project, err := s.projectRepo.FindOwned(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// reload reads a project back with its client so derived fields are populated
func (s *ProjectService) reload(ctx context.Context, id, userID string) (*dto.ProjectDTO, error) {
	project, err := s.findOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, *project)
}

func (s *ProjectService) toDTO(ctx context.Context, project models.Project) (*dto.ProjectDTO, error) {
	dtos, err := s.toDTOs(ctx, []models.Project{project})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *ProjectService) toDTOs(ctx context.Context, projects []models.Project) ([]dto.ProjectDTO, error) {
	ids := make([]string, len(projects))
	for i, project := range projects {
		ids[i] = project.ID
	}

	activity, err := s.projectRepo.Activity(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load project activity: %w", err)
	}

	dtos := make([]dto.ProjectDTO, len(projects))
	for i, project := range projects {
		a := activity[project.ID]
		dtos[i] = dto.ToProjectDTO(project, a.LastSentAt, a.CommunicationCount)
	}
	return dtos, nil
}
