package queries

import (
	"context"

	"github.com/yukikurage/freelance-crm-api/internal/cache"
	"github.com/yukikurage/freelance-crm-api/internal/dto"
	"github.com/yukikurage/freelance-crm-api/internal/services"
)

func projectID(p dto.ProjectDTO) string { return p.ID }

// Projects returns every project of the principal
func (q *Queries) Projects(ctx context.Context) ([]dto.ProjectDTO, error) {
	return cache.FetchAs(ctx, q.cache, ProjectListKey(), func(ctx context.Context) ([]dto.ProjectDTO, error) {
		return q.projects.ListProjects(ctx, services.ListProjectsInput{})
	})
}

// ClientProjects returns the projects of one client
func (q *Queries) ClientProjects(ctx context.Context, clientID string) ([]dto.ProjectDTO, error) {
	return cache.FetchAs(ctx, q.cache, ClientProjectsKey(clientID), func(ctx context.Context) ([]dto.ProjectDTO, error) {
		return q.projects.ListProjects(ctx, services.ListProjectsInput{ClientID: clientID})
	})
}

// Project returns one project through its detail entry, revalidated with GetProject when stale.
// On the first lookup the entry is seeded from any cached list, else from one fetch of the full list.
func (q *Queries) Project(ctx context.Context, id string) (*dto.ProjectDTO, error) {
	key := ProjectKey(id)
	if _, ok := q.cache.Get(key); !ok {
		if err := q.seedProject(ctx, id); err != nil {
			return nil, err
		}
	}

	project, err := cache.FetchAs(ctx, q.cache, key, func(ctx context.Context) (dto.ProjectDTO, error) {
		found, err := q.projects.GetProject(ctx, id)
		if err != nil {
			return dto.ProjectDTO{}, err
		}
		return *found, nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (q *Queries) seedProject(ctx context.Context, id string) error {
	if project, stale, ok := q.listedProject(id); ok {
		q.seed(ProjectKey(id), project, stale)
		return nil
	}

	all, err := q.Projects(ctx)
	if err != nil {
		return err
	}
	project, ok := find(all, id, projectID)
	if !ok {
		return services.ErrProjectNotFound
	}
	q.cache.Set(ProjectKey(id), project)
	return nil
}

func (q *Queries) CreateProject(ctx context.Context, input services.ProjectInput) (*dto.ProjectDTO, error) {
	project, err := q.projects.CreateProject(ctx, input)
	if err != nil {
		return nil, err
	}
	q.writeProject(*project)
	return project, nil
}

func (q *Queries) UpdateProject(ctx context.Context, id string, input services.ProjectInput) (*dto.ProjectDTO, error) {
	project, err := q.projects.UpdateProject(ctx, id, input)
	if err != nil {
		return nil, err
	}
	q.writeProject(*project)
	// communications show the project name
	q.cache.Invalidate(clientCommsPrefix)
	return project, nil
}

// DeleteProject removes the project everywhere and drops the owning client's
// project and communication lists, since its communications are gone too
func (q *Queries) DeleteProject(ctx context.Context, id string) error {
	cached, known := q.cachedProject(id)

	if err := q.projects.DeleteProject(ctx, id); err != nil {
		return err
	}

	drop := func(key cache.Key, old interface{}) (interface{}, bool) {
		items, ok := old.([]dto.ProjectDTO)
		if !ok {
			return old, false
		}
		return without(items, id, projectID)
	}
	q.cache.UpdateAll(ProjectListKey(), drop)
	q.cache.UpdateAll(clientProjectsPrefix, drop)
	q.cache.Remove(ProjectKey(id))

	if known {
		q.cache.Remove(ClientProjectsKey(cached.ClientID))
		q.cache.Remove(ClientCommunicationsKey(cached.ClientID))
		q.cache.Invalidate(ClientKey(cached.ClientID))
	} else {
		q.cache.Remove(clientProjectsPrefix)
		q.cache.Remove(clientCommsPrefix)
		q.cache.Invalidate(clientDetailPrefix)
	}

	for _, entry := range q.cache.Scan(commDetailPrefix) {
		comm, ok := entry.Value.(dto.CommunicationDTO)
		if ok && comm.ProjectID != nil && *comm.ProjectID == id {
			q.cache.Remove(entry.Key)
		}
	}
	q.cache.Invalidate(clientListPrefix)
	return nil
}

// writeProject puts project at the head of the full list and its client's list,
// removes it from other clients' lists and refreshes its detail entry
func (q *Queries) writeProject(project dto.ProjectDTO) {
	q.cache.Update(ProjectListKey(), func(old interface{}) interface{} {
		items, _ := old.([]dto.ProjectDTO)
		return upsertFront(items, project, projectID)
	})
	q.cache.UpdateAll(clientProjectsPrefix, func(key cache.Key, old interface{}) (interface{}, bool) {
		items, ok := old.([]dto.ProjectDTO)
		if !ok {
			return old, false
		}
		if lastSegment(key) == project.ClientID {
			return upsertFront(items, project, projectID), true
		}
		return without(items, project.ID, projectID)
	})
	q.cache.Set(ProjectKey(project.ID), project)
}

// cachedProject finds a project in any cached entry without fetching
func (q *Queries) cachedProject(id string) (dto.ProjectDTO, bool) {
	if project, ok := cache.GetAs[dto.ProjectDTO](q.cache, ProjectKey(id)); ok {
		return project, true
	}
	project, _, ok := q.listedProject(id)
	return project, ok
}

// listedProject finds a project in the cached lists
func (q *Queries) listedProject(id string) (dto.ProjectDTO, bool, bool) {
	for _, entry := range q.cache.Scan(projectsPrefix) {
		items, ok := entry.Value.([]dto.ProjectDTO)
		if !ok {
			continue
		}
		if project, ok := find(items, id, projectID); ok {
			return project, entry.Stale, true
		}
	}
	return dto.ProjectDTO{}, false, false
}
