package queries

import (
	"context"

	"github.com/yukikurage/freelance-crm-api/internal/cache"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	"github.com/yukikurage/freelance-crm-api/internal/models"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

func clientID(c dto.ClientDTO) string { return c.ID }

// Clients returns the client list for filter (ACTIVE, ARCHIVED or ALL; empty means ACTIVE)
func (q *Queries) Clients(ctx context.Context, filter string) ([]dto.ClientDTO, error) {
	parsed, err := services.ParseClientFilter(filter)
	if err != nil {
		return nil, err
	}

	return cache.FetchAs(ctx, q.cache, ClientListKey(string(parsed)), func(ctx context.Context) ([]dto.ClientDTO, error) {
		return q.clients.ListClients(ctx, string(parsed))
	})
}

// Client returns one client through its detail entry, revalidated with GetClient when stale.
// On the first lookup the entry is seeded from any cached list, else from one fetch of the ALL list.
func (q *Queries) Client(ctx context.Context, id string) (*dto.ClientDTO, error) {
	key := ClientKey(id)
	if _, ok := q.cache.Get(key); !ok {
		if err := q.seedClient(ctx, id); err != nil {
			return nil, err
		}
	}

	client, err := cache.FetchAs(ctx, q.cache, key, func(ctx context.Context) (dto.ClientDTO, error) {
		found, err := q.clients.GetClient(ctx, id)
		if err != nil {
			return dto.ClientDTO{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (q *Queries) seedClient(ctx context.Context, id string) error {
	if client, stale, ok := q.listedClient(id); ok {
		q.seed(ClientKey(id), client, stale)
		return nil
	}

	all, err := q.Clients(ctx, string(models.ClientFilterAll))
	if err != nil {
		return err
	}
	client, ok := find(all, id, clientID)
	if !ok {
		return services.ErrClientNotFound
	}
	q.cache.Set(ClientKey(id), client)
	return nil
}

func (q *Queries) CreateClient(ctx context.Context, input services.CreateClientInput) (*dto.ClientDTO, error) {
	client, err := q.clients.CreateClient(ctx, input)
	if err != nil {
		return nil, err
	}
	q.writeClient(*client)
	return client, nil
}

func (q *Queries) UpdateClient(ctx context.Context, id string, input services.UpdateClientInput) (*dto.ClientDTO, error) {
	client, err := q.clients.UpdateClient(ctx, id, input)
	if err != nil {
		return nil, err
	}
	q.writeClient(*client)

	// projects and communications carry the client's name
	q.cache.Invalidate(ClientProjectsKey(id))
	q.cache.Invalidate(ProjectListKey())
	q.cache.Invalidate(ClientCommunicationsKey(id))
	return client, nil
}

func (q *Queries) ArchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	client, err := q.clients.ArchiveClient(ctx, id)
	if err != nil {
		return nil, err
	}
	q.moveClient(*client)
	return client, nil
}

func (q *Queries) UnarchiveClient(ctx context.Context, id string) (*dto.ClientDTO, error) {
	client, err := q.clients.UnarchiveClient(ctx, id)
	if err != nil {
		return nil, err
	}
	q.moveClient(*client)
	return client, nil
}

// moveClient files a client under its new status and drops its dependent lists
func (q *Queries) moveClient(client dto.ClientDTO) {
	q.writeClient(client)
	q.cache.Remove(ClientProjectsKey(client.ID))
	q.cache.Remove(ClientCommunicationsKey(client.ID))
}

// writeClient puts client at the head of every cached list whose filter admits it,
// removes it from the others and refreshes its detail entry
func (q *Queries) writeClient(client dto.ClientDTO) {
	q.cache.UpdateAll(clientListPrefix, func(key cache.Key, old interface{}) (interface{}, bool) {
		items, ok := old.([]dto.ClientDTO)
		if !ok {
			return old, false
		}
		if admits(models.ClientFilter(lastSegment(key)), client.Status) {
			return upsertFront(items, client, clientID), true
		}
		return without(items, client.ID, clientID)
	})
	q.cache.Set(ClientKey(client.ID), client)
}

// listedClient finds a client in the cached lists
func (q *Queries) listedClient(id string) (dto.ClientDTO, bool, bool) {
	for _, entry := range q.cache.Scan(clientListPrefix) {
		items, ok := entry.Value.([]dto.ClientDTO)
		if !ok {
			continue
		}
		if client, ok := find(items, id, clientID); ok {
			return client, entry.Stale, true
		}
	}
	return dto.ClientDTO{}, false, false
}

func admits(filter models.ClientFilter, status models.ClientStatus) bool {
	switch filter {
	case models.ClientFilterAll:
		return true
	case models.ClientFilterArchived:
		return status == models.ClientStatusArchived
	default:
		return status == models.ClientStatusActive
	}
}
