package queries

import (
	"context"

	"github.com/yukikurage/freelance-crm-api/internal/auth"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

// ClientBackend is the authoritative source for clients
type ClientBackend interface {
	ListClients(ctx context.Context, filter string) ([]dto.ClientDTO, error)
	GetClient(ctx context.Context, id string) (*dto.ClientDTO, error)
	CreateClient(ctx context.Context, input services.CreateClientInput) (*dto.ClientDTO, error)
	UpdateClient(ctx context.Context, id string, input services.UpdateClientInput) (*dto.ClientDTO, error)
	ArchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error)
	UnarchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error)
}

// ProjectBackend is the authoritative source for projects
type ProjectBackend interface {
	ListProjects(ctx context.Context, input services.ListProjectsInput) ([]dto.ProjectDTO, error)
	GetProject(ctx context.Context, id string) (*dto.ProjectDTO, error)
	CreateProject(ctx context.Context, input services.ProjectInput) (*dto.ProjectDTO, error)
	UpdateProject(ctx context.Context, id string, input services.ProjectInput) (*dto.ProjectDTO, error)
	DeleteProject(ctx context.Context, id string) error
}

// CommunicationBackend is the authoritative source for communications
type CommunicationBackend interface {
	ListCommunications(ctx context.Context, input services.ListCommunicationsInput) ([]dto.CommunicationDTO, error)
	GetCommunication(ctx context.Context, id string) (*dto.CommunicationDTO, error)
	CreateCommunication(ctx context.Context, input services.CreateCommunicationInput) (*dto.CommunicationDTO, error)
	UpdateCommunication(ctx context.Context, id string, input services.UpdateCommunicationInput) (*dto.CommunicationDTO, error)
	DeleteCommunication(ctx context.Context, id string) error
}

// LocalBackend runs the domain services in-process on behalf of one principal
type LocalBackend struct {
	Principal      auth.Principal
	Clients        *services.ClientService
	Projects       *services.ProjectService
	Communications *services.CommunicationService
}

func (b *LocalBackend) ListClients(ctx context.Context, filter string) ([]dto.ClientDTO, error) {
	return b.Clients.ListClients(ctx, b.Principal, filter)
}

func (b *LocalBackend) GetClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	return b.Clients.GetClient(ctx, b.Principal, id)
}

func (b *LocalBackend) CreateClient(ctx context.Context, input services.CreateClientInput) (*dto.ClientDTO, error) {
	return b.Clients.CreateClient(ctx, b.Principal, input)
}

func (b *LocalBackend) UpdateClient(ctx context.Context, id string, input services.UpdateClientInput) (*dto.ClientDTO, error) {
	return b.Clients.UpdateClient(ctx, b.Principal, id, input)
}

func (b *LocalBackend) ArchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	return b.Clients.ArchiveClient(ctx, b.Principal, id)
}

func (b *LocalBackend) UnarchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	return b.Clients.UnarchiveClient(ctx, b.Principal, id)
}

func (b *LocalBackend) ListProjects(ctx context.Context, input services.ListProjectsInput) ([]dto.ProjectDTO, error) {
	return b.Projects.ListProjects(ctx, b.Principal, input)
}

func (b *LocalBackend) GetProject(ctx context.Context, id string) (*dto.ProjectDTO, error) {
	return b.Projects.GetProject(ctx, b.Principal, id)
}

func (b *LocalBackend) CreateProject(ctx context.Context, input services.ProjectInput) (*dto.ProjectDTO, error) {
	return b.Projects.CreateProject(ctx, b.Principal, input)
}

func (b *LocalBackend) UpdateProject(ctx context.Context, id string, input services.ProjectInput) (*dto.ProjectDTO, error) {
	return b.Projects.UpdateProject(ctx, b.Principal, id, input)
}

func (b *LocalBackend) DeleteProject(ctx context.Context, id string) error {
	return b.Projects.DeleteProject(ctx, b.Principal, id)
}

func (b *LocalBackend) ListCommunications(ctx context.Context, input services.ListCommunicationsInput) ([]dto.CommunicationDTO, error) {
	return b.Communications.ListCommunications(ctx, b.Principal, input)
}

func (b *LocalBackend) GetCommunication(ctx context.Context, id string) (*dto.CommunicationDTO, error) {
	return b.Communications.GetCommunication(ctx, b.Principal, id)
}

func (b *LocalBackend) CreateCommunication(ctx context.Context, input services.CreateCommunicationInput) (*dto.CommunicationDTO, error) {
	return b.Communications.CreateCommunication(ctx, b.Principal, input)
}

func (b *LocalBackend) UpdateCommunication(ctx context.Context, id string, input services.UpdateCommunicationInput) (*dto.CommunicationDTO, error) {
	return b.Communications.UpdateCommunication(ctx, b.Principal, id, input)
}

func (b *LocalBackend) DeleteCommunication(ctx context.Context, id string) error {
	return b.Communications.DeleteCommunication(ctx, b.Principal, id)
}
