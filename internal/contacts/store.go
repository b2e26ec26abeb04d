package contacts

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangeOp names the kind of mutation reported to a Listener.
type ChangeOp string

const (
	OpCreated  ChangeOp = "created"
	OpUpdated  ChangeOp = "updated"
	OpDeleted  ChangeOp = "deleted"
	OpAssigned ChangeOp = "assigned"
	OpRestored ChangeOp = "restored"
)

// Change describes one completed mutation.
type Change struct {
	Op  ChangeOp
	IDs []string
}

// Listener is notified after every mutation that touched at least one contact.
// It runs outside the store lock and may read from the store.
type Listener interface {
	ContactsChanged(change Change)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Change)

func (f ListenerFunc) ContactsChanged(change Change) { f(change) }

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the identifier generator (uuid v4 by default).
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides the time source used for createdOn.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithListener registers a change listener. May be given more than once.
func WithListener(l Listener) Option {
	return func(s *Store) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

// Store owns a contact collection and its session filters. Each Store is
// independent; the zero value is not usable, use NewStore.
type Store struct {
	mu       sync.RWMutex
	contacts []Contact
	index    map[string]int
	filters  Filters
	state    State
	inflight int

	newID     func() string
	now       func() time.Time
	listeners []Listener
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		index:   make(map[string]int),
		filters: Filters{Tags: []string{}},
		newID:   uuid.NewString,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add creates one contact with a fresh id and createdOn.
func (s *Store) Add(data NewContact) Contact {
	s.mu.Lock()
	c := s.insertLocked(data, s.now())
	s.mu.Unlock()

	s.notify(Change{Op: OpCreated, IDs: []string{c.ID}})
	return c.clone()
}

// BulkAdd creates every record in order. All records share one timestamp but
// each gets its own id.
func (s *Store) BulkAdd(data []NewContact) []Contact {
	if len(data) == 0 {
		return []Contact{}
	}
	s.mu.Lock()
	now := s.now()
	created := make([]Contact, 0, len(data))
	ids := make([]string, 0, len(data))
	for _, d := range data {
		c := s.insertLocked(d, now)
		created = append(created, c.clone())
		ids = append(ids, c.ID)
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpCreated, IDs: ids})
	return created
}

func (s *Store) insertLocked(data NewContact, createdOn time.Time) Contact {
	source := data.Source
	if source == "" {
		source = SourceManual
	}
	tags := cloneStrings(data.Tags)
	if tags == nil {
		tags = []string{}
	}
	c := Contact{
		ID:            s.uniqueIDLocked(),
		Name:          data.Name,
		Email:         data.Email,
		Phone:         data.Phone,
		AssignedAgent: normalizeAgent(data.AssignedAgent),
		Campaign:      data.Campaign,
		Tags:          tags,
		CreatedOn:     createdOn,
		Source:        source,
		Notes:         data.Notes,
	}
	if data.LastContactedAt != nil {
		ts := *data.LastContactedAt
		c.LastContactedAt = &ts
	}
	s.index[c.ID] = len(s.contacts)
	s.contacts = append(s.contacts, c)
	return c
}

// uniqueIDLocked draws ids until one is free. A custom generator that keeps
// colliding gets a uuid suffix.
func (s *Store) uniqueIDLocked() string {
	for attempt := 0; attempt < 8; attempt++ {
		id := s.newID()
		if _, taken := s.index[id]; id != "" && !taken {
			return id
		}
	}
	for {
		id := s.newID() + "-" + uuid.NewString()[:8]
		if _, taken := s.index[id]; !taken {
			return id
		}
	}
}

// Update merges patch into the contact with id. It reports false and changes
// nothing when the id is unknown.
func (s *Store) Update(id string, patch ContactPatch) (Contact, bool) {
	s.mu.Lock()
	pos, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return Contact{}, false
	}
	patch.apply(&s.contacts[pos])
	updated := s.contacts[pos].clone()
	s.mu.Unlock()

	s.notify(Change{Op: OpUpdated, IDs: []string{id}})
	return updated, true
}

// Delete removes the contact with id, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	return s.BulkDelete([]string{id}) == 1
}

// BulkDelete removes every contact whose id is listed and returns how many went.
func (s *Store) BulkDelete(ids []string) int {
	want := idSet(ids)
	if len(want) == 0 {
		return 0
	}

	s.mu.Lock()
	kept := s.contacts[:0]
	var removed []string
	for _, c := range s.contacts {
		if _, drop := want[c.ID]; drop {
			removed = append(removed, c.ID)
			continue
		}
		kept = append(kept, c)
	}
	// clear the tail so dropped records can be collected
	for i := len(kept); i < len(s.contacts); i++ {
		s.contacts[i] = Contact{}
	}
	s.contacts = kept
	s.reindexLocked()
	s.mu.Unlock()

	if len(removed) > 0 {
		s.notify(Change{Op: OpDeleted, IDs: removed})
	}
	return len(removed)
}

// BulkAssignAgent sets the agent on every listed contact. Unknown ids are ignored.
func (s *Store) BulkAssignAgent(ids []string, agentID string) int {
	agentID = normalizeAgent(agentID)
	return s.assign(ids, func(c *Contact) { c.AssignedAgent = agentID })
}

// BulkAssignCampaign sets the campaign on every listed contact. Unknown ids are ignored.
func (s *Store) BulkAssignCampaign(ids []string, campaignID string) int {
	campaignID = strings.TrimSpace(campaignID)
	return s.assign(ids, func(c *Contact) { c.Campaign = campaignID })
}

func (s *Store) assign(ids []string, set func(*Contact)) int {
	s.mu.Lock()
	var touched []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		pos, ok := s.index[id]
		if !ok {
			continue
		}
		set(&s.contacts[pos])
		touched = append(touched, id)
	}
	s.mu.Unlock()

	if len(touched) > 0 {
		s.notify(Change{Op: OpAssigned, IDs: touched})
	}
	return len(touched)
}

// Restore replaces the whole collection, keeping ids and timestamps as given.
// Records with an empty or duplicate id get a fresh one.
func (s *Store) Restore(contacts []Contact) {
	s.mu.Lock()
	s.contacts = make([]Contact, 0, len(contacts))
	s.index = make(map[string]int, len(contacts))
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		c = c.clone()
		if _, dup := s.index[c.ID]; c.ID == "" || dup {
			c.ID = s.uniqueIDLocked()
		}
		if c.Tags == nil {
			c.Tags = []string{}
		}
		c.AssignedAgent = normalizeAgent(c.AssignedAgent)
		s.index[c.ID] = len(s.contacts)
		s.contacts = append(s.contacts, c)
		ids = append(ids, c.ID)
	}
	s.mu.Unlock()

	s.notify(Change{Op: OpRestored, IDs: ids})
}

// Get returns a copy of the contact with id.
func (s *Store) Get(id string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pos, ok := s.index[id]
	if !ok {
		return Contact{}, false
	}
	return s.contacts[pos].clone(), true
}

// All returns a snapshot of every contact in insertion order.
func (s *Store) All() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(func(Contact) bool { return true })
}

// Len returns the collection size.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// SetFilters merges patch into the session filters and returns the result.
func (s *Store) SetFilters(patch FiltersPatch) Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	patch.apply(&s.filters)
	return s.filters.clone()
}

// ClearFilters resets the session filters to the empty baseline.
func (s *Store) ClearFilters() Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = Filters{Tags: []string{}}
	return s.filters.clone()
}

// Filters returns the session filters.
func (s *Store) Filters() Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters.clone()
}

// SetLoading flips the loading flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	s.state.Loading = loading
	s.mu.Unlock()
}

// SetError records the last asynchronous failure; "" clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.state.Error = msg
	s.mu.Unlock()
}

// State returns the loading/error pair. Loading is also true while a
// Service call is in flight.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Loading = st.Loading || s.inflight > 0
	return st
}

func (s *Store) beginCall() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Store) endCall(err error) {
	s.mu.Lock()
	s.inflight--
	if err != nil {
		s.state.Error = err.Error()
	} else {
		s.state.Error = ""
	}
	s.mu.Unlock()
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]int, len(s.contacts))
	for i, c := range s.contacts {
		s.index[c.ID] = i
	}
}

func (s *Store) selectLocked(keep func(Contact) bool) []Contact {
	out := make([]Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		if keep(c) {
			out = append(out, c.clone())
		}
	}
	return out
}

func (s *Store) notify(change Change) {
	for _, l := range s.listeners {
		l.ContactsChanged(change)
	}
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
