// Package queries keeps a client-side view of clients, projects and communications in a
// cache.Cache and writes mutation results into every entry that holds the changed record.
package queries

import (
	"github.com/yukikurage/freelance-crm-api/internal/cache"
	apierrors "github.com/yukikurage/freelance-crm-api/internal/errors"
)

// Key families
var (
	clientListPrefix     = cache.Key{"clients", "list"}
	clientDetailPrefix   = cache.Key{"clients", "detail"}
	projectsPrefix       = cache.Key{"projects"}
	clientProjectsPrefix = cache.Key{"projects", "client"}
	clientCommsPrefix    = cache.Key{"communications", "client"}
	commDetailPrefix     = cache.Key{"communications", "detail"}
)

func ClientListKey(filter string) cache.Key { return cache.Key{"clients", "list", filter} }

func ClientKey(id string) cache.Key { return cache.Key{"clients", "detail", id} }

func ProjectListKey() cache.Key { return cache.Key{"projects", "list"} }

func ClientProjectsKey(clientID string) cache.Key { return cache.Key{"projects", "client", clientID} }

func ProjectKey(id string) cache.Key { return cache.Key{"projects", "detail", id} }

func ClientCommunicationsKey(clientID string) cache.Key {
	return cache.Key{"communications", "client", clientID}
}

func CommunicationKey(id string) cache.Key { return cache.Key{"communications", "detail", id} }

// Queries is the typed front of a cache.Cache
type Queries struct {
	cache          *cache.Cache
	clients        ClientBackend
	projects       ProjectBackend
	communications CommunicationBackend
}

// New creates Queries over c. LocalBackend satisfies all three backends.
func New(c *cache.Cache, clients ClientBackend, projects ProjectBackend, communications CommunicationBackend) *Queries {
	return &Queries{
		cache:          c,
		clients:        clients,
		projects:       projects,
		communications: communications,
	}
}

// Cache exposes the underlying store for subscriptions and state
func (q *Queries) Cache() *cache.Cache {
	return q.cache
}

// Reason classifies err for display
func Reason(err error) apierrors.Kind {
	return apierrors.KindOf(err)
}

// seed copies a record found in a cached list into its detail entry.
// A stale list yields a stale detail entry, so the next read revalidates it.
func (q *Queries) seed(key cache.Key, value interface{}, stale bool) {
	q.cache.Set(key, value)
	if stale {
		q.cache.Invalidate(key)
	}
}

// upsertFront returns a copy of items with item first and any older copy removed
func upsertFront[T any](items []T, item T, idOf func(T) string) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	for _, it := range items {
		if idOf(it) != idOf(item) {
			out = append(out, it)
		}
	}
	return out
}

// without returns a copy of items minus the element with id, and whether one was dropped
func without[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	return out, len(out) != len(items)
}

func find[T any](items []T, id string, idOf func(T) string) (T, bool) {
	for _, it := range items {
		if idOf(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// lastSegment is the id a per-parent list key ends with
func lastSegment(key cache.Key) string {
	if len(key) == 0 {
		return ""
	}
	return key[len(key)-1]
}
