package contacts

import (
	"sort"
	"sync"
)

// Registry hands out one Store per org, creating stores on first use.
type Registry struct {
	mu     sync.Mutex
	stores map[string]*Store
	build  func(orgID string) *Store
}

// NewRegistry creates a registry. build may be nil, in which case stores are
// created with NewStore().
func NewRegistry(build func(orgID string) *Store) *Registry {
	if build == nil {
		build = func(string) *Store { return NewStore() }
	}
	return &Registry{
		stores: make(map[string]*Store),
		build:  build,
	}
}

// For returns the store of orgID.
func (r *Registry) For(orgID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[orgID]
	if !ok {
		s = r.build(orgID)
		r.stores[orgID] = s
	}
	return s
}

// Lookup returns the store of orgID without creating it.
func (r *Registry) Lookup(orgID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stores[orgID]
	return s, ok
}

// OrgIDs lists the orgs that have a store, sorted.
func (r *Registry) OrgIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
