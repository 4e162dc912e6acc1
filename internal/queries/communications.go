package queries

import (
	"context"
	"sort"

	"github.com/yukikurage/freelance-crm-api/internal/cache"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

func communicationID(c dto.CommunicationDTO) string { return c.ID }

// ClientCommunications returns a client's communications, most recent first
func (q *Queries) ClientCommunications(ctx context.Context, clientID string) ([]dto.CommunicationDTO, error) {
	return cache.FetchAs(ctx, q.cache, ClientCommunicationsKey(clientID), func(ctx context.Context) ([]dto.CommunicationDTO, error) {
		return q.communications.ListCommunications(ctx, services.ListCommunicationsInput{ClientID: clientID})
	})
}

// Communication returns one communication through its detail entry, revalidated with
// GetCommunication when stale. On the first lookup the entry is seeded from a cached list.
func (q *Queries) Communication(ctx context.Context, id string) (*dto.CommunicationDTO, error) {
	key := CommunicationKey(id)
	if _, ok := q.cache.Get(key); !ok {
		if comm, stale, ok := q.listedCommunication(id); ok {
			q.seed(key, comm, stale)
		}
	}

	comm, err := cache.FetchAs(ctx, q.cache, key, func(ctx context.Context) (dto.CommunicationDTO, error) {
		found, err := q.communications.GetCommunication(ctx, id)
		if err != nil {
			return dto.CommunicationDTO{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &comm, nil
}

func (q *Queries) CreateCommunication(ctx context.Context, input services.CreateCommunicationInput) (*dto.CommunicationDTO, error) {
	comm, err := q.communications.CreateCommunication(ctx, input)
	if err != nil {
		return nil, err
	}
	q.writeCommunication(*comm)
	q.touchDerived(comm.ClientID)
	return comm, nil
}

func (q *Queries) UpdateCommunication(ctx context.Context, id string, input services.UpdateCommunicationInput) (*dto.CommunicationDTO, error) {
	comm, err := q.communications.UpdateCommunication(ctx, id, input)
	if err != nil {
		return nil, err
	}
	q.writeCommunication(*comm)
	q.touchDerived(comm.ClientID)
	return comm, nil
}

func (q *Queries) DeleteCommunication(ctx context.Context, id string) error {
	cached, known := q.cachedCommunication(id)

	if err := q.communications.DeleteCommunication(ctx, id); err != nil {
		return err
	}

	q.cache.UpdateAll(clientCommsPrefix, func(key cache.Key, old interface{}) (interface{}, bool) {
		items, ok := old.([]dto.CommunicationDTO)
		if !ok {
			return old, false
		}
		return without(items, id, communicationID)
	})
	q.cache.Remove(CommunicationKey(id))

	if known {
		q.touchDerived(cached.ClientID)
	} else {
		q.touchDerived("")
	}
	return nil
}

// writeCommunication files comm into its client's list in sent_at order
func (q *Queries) writeCommunication(comm dto.CommunicationDTO) {
	q.cache.UpdateAll(clientCommsPrefix, func(key cache.Key, old interface{}) (interface{}, bool) {
		items, ok := old.([]dto.CommunicationDTO)
		if !ok {
			return old, false
		}
		if lastSegment(key) != comm.ClientID {
			return without(items, comm.ID, communicationID)
		}
		out := upsertFront(items, comm, communicationID)
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].SentAt.After(out[j].SentAt)
		})
		return out, true
	})
	q.cache.Set(CommunicationKey(comm.ID), comm)
}

// touchDerived marks stale every entry whose last_contact, last_activity or
// communication_count depends on the client's communications.
// An empty clientID touches every client.
func (q *Queries) touchDerived(clientID string) {
	q.cache.Invalidate(clientListPrefix)
	if clientID == "" {
		q.cache.Invalidate(clientDetailPrefix)
	} else {
		q.cache.Invalidate(ClientKey(clientID))
	}
	q.cache.Invalidate(projectsPrefix)
}

// cachedCommunication finds a communication in any cached entry without fetching
func (q *Queries) cachedCommunication(id string) (dto.CommunicationDTO, bool) {
	if comm, ok := cache.GetAs[dto.CommunicationDTO](q.cache, CommunicationKey(id)); ok {
		return comm, true
	}
	comm, _, ok := q.listedCommunication(id)
	return comm, ok
}

// listedCommunication finds a communication in the cached client lists
func (q *Queries) listedCommunication(id string) (dto.CommunicationDTO, bool, bool) {
	for _, entry := range q.cache.Scan(clientCommsPrefix) {
		items, ok := entry.Value.([]dto.CommunicationDTO)
		if !ok {
			continue
		}
		if comm, ok := find(items, id, communicationID); ok {
			return comm, entry.Stale, true
		}
	}
	return dto.CommunicationDTO{}, false, false
}
