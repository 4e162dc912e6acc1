package queries

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/yukikurage/freelance-crm-api/internal/dto"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

// fakeBackend is an in-memory backend that counts reads
type fakeBackend struct {
	clients        []dto.ClientDTO
	projects       []dto.ProjectDTO
	communications []dto.CommunicationDTO

	clientLists  int
	clientGets   int
	projectLists int
	projectGets  int
	commLists    int
	commGets     int

	// fail is returned by every mutation when set
	fail error
	seq  int
	now  time.Time
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (b *fakeBackend) tick() time.Time {
	b.now = b.now.Add(time.Minute)
	return b.now
}

func (b *fakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-new-%d", prefix, b.seq)
}

func (b *fakeBackend) ListClients(ctx context.Context, filter string) ([]dto.ClientDTO, error) {
	b.clientLists++
	var out []dto.ClientDTO
	for _, c := range b.clients {
		if admits(models.ClientFilter(filter), c.Status) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (b *fakeBackend) GetClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	b.clientGets++
	for _, c := range b.clients {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, services.ErrClientNotFound
}

func (b *fakeBackend) CreateClient(ctx context.Context, input services.CreateClientInput) (*dto.ClientDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	now := b.tick()
	client := dto.ClientDTO{ID: b.nextID("c"), Name: input.Name, Status: models.ClientStatusActive, Tags: []string{}, CreatedAt: now, UpdatedAt: now, LastContact: now}
	b.clients = append(b.clients, client)
	return &client, nil
}

func (b *fakeBackend) UpdateClient(ctx context.Context, id string, input services.UpdateClientInput) (*dto.ClientDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	for i := range b.clients {
		if b.clients[i].ID == id {
			if input.Name != nil {
				b.clients[i].Name = *input.Name
			}
			b.clients[i].UpdatedAt = b.tick()
			client := b.clients[i]
			return &client, nil
		}
	}
	return nil, services.ErrClientNotFound
}

func (b *fakeBackend) ArchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	return b.setStatus(id, models.ClientStatusActive, models.ClientStatusArchived)
}

func (b *fakeBackend) UnarchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	return b.setStatus(id, models.ClientStatusArchived, models.ClientStatusActive)
}

func (b *fakeBackend) setStatus(id string, from, to models.ClientStatus) (*dto.ClientDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	for i := range b.clients {
		if b.clients[i].ID == id && b.clients[i].Status == from {
			b.clients[i].Status = to
			b.clients[i].UpdatedAt = b.tick()
			client := b.clients[i]
			return &client, nil
		}
	}
	return nil, services.ErrClientNotFound
}

func (b *fakeBackend) ListProjects(ctx context.Context, input services.ListProjectsInput) ([]dto.ProjectDTO, error) {
	b.projectLists++
	var out []dto.ProjectDTO
	for _, p := range b.projects {
		if input.ClientID == "" || p.ClientID == input.ClientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *fakeBackend) GetProject(ctx context.Context, id string) (*dto.ProjectDTO, error) {
	b.projectGets++
	for _, p := range b.projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, services.ErrProjectNotFound
}

func (b *fakeBackend) CreateProject(ctx context.Context, input services.ProjectInput) (*dto.ProjectDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	now := b.tick()
	project := dto.ProjectDTO{ID: b.nextID("p"), ClientID: input.ClientID, Name: input.Name, Status: models.ProjectStatusProposal, CreatedAt: now, UpdatedAt: now}
	b.projects = append(b.projects, project)
	return &project, nil
}

func (b *fakeBackend) UpdateProject(ctx context.Context, id string, input services.ProjectInput) (*dto.ProjectDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	for i := range b.projects {
		if b.projects[i].ID == id {
			b.projects[i].Name = input.Name
			b.projects[i].ClientID = input.ClientID
			b.projects[i].UpdatedAt = b.tick()
			project := b.projects[i]
			return &project, nil
		}
	}
	return nil, services.ErrProjectNotFound
}

func (b *fakeBackend) DeleteProject(ctx context.Context, id string) error {
	if b.fail != nil {
		return b.fail
	}
	var kept []dto.ProjectDTO
	for _, p := range b.projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(b.projects) {
		return services.ErrProjectNotFound
	}
	b.projects = kept

	var comms []dto.CommunicationDTO
	for _, c := range b.communications {
		if c.ProjectID == nil || *c.ProjectID != id {
			comms = append(comms, c)
		}
	}
	b.communications = comms
	return nil
}

func (b *fakeBackend) ListCommunications(ctx context.Context, input services.ListCommunicationsInput) ([]dto.CommunicationDTO, error) {
	b.commLists++
	var out []dto.CommunicationDTO
	for _, c := range b.communications {
		if input.ClientID == "" || c.ClientID == input.ClientID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.After(out[j].SentAt) })
	return out, nil
}

func (b *fakeBackend) GetCommunication(ctx context.Context, id string) (*dto.CommunicationDTO, error) {
	b.commGets++
	for _, c := range b.communications {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, services.ErrCommunicationNotFound
}

func (b *fakeBackend) CreateCommunication(ctx context.Context, input services.CreateCommunicationInput) (*dto.CommunicationDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	now := b.tick()
	sentAt := now
	if input.SentAt != nil {
		sentAt = *input.SentAt
	}
	comm := dto.CommunicationDTO{
		ID:          b.nextID("m"),
		ClientID:    input.ClientID,
		ProjectID:   input.ProjectID,
		Type:        models.CommunicationType(input.Type),
		Subject:     input.Subject,
		Content:     input.Content,
		SentAt:      sentAt,
		Attachments: []dto.AttachmentDTO{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	b.communications = append(b.communications, comm)
	for i := range b.clients {
		if b.clients[i].ID == comm.ClientID && sentAt.After(b.clients[i].LastContact) {
			b.clients[i].LastContact = sentAt
		}
	}
	return &comm, nil
}

func (b *fakeBackend) UpdateCommunication(ctx context.Context, id string, input services.UpdateCommunicationInput) (*dto.CommunicationDTO, error) {
	if b.fail != nil {
		return nil, b.fail
	}
	for i := range b.communications {
		if b.communications[i].ID == id {
			b.communications[i].Subject = input.Subject
			b.communications[i].Content = input.Content
			if input.SentAt != nil {
				b.communications[i].SentAt = *input.SentAt
			}
			b.communications[i].UpdatedAt = b.tick()
			comm := b.communications[i]
			return &comm, nil
		}
	}
	return nil, services.ErrCommunicationNotFound
}

func (b *fakeBackend) DeleteCommunication(ctx context.Context, id string) error {
	if b.fail != nil {
		return b.fail
	}
	var kept []dto.CommunicationDTO
	for _, c := range b.communications {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(b.communications) {
		return services.ErrCommunicationNotFound
	}
	b.communications = kept
	return nil
}
