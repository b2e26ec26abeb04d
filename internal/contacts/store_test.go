package contacts

import (
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

var fixedNow = time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)

func newTestStore(opts ...Option) *Store {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewStore(opts...)
}

func TestStoreAddAssignsIDAndDefaults(t *testing.T) {
	s := newTestStore()
	c := s.Add(NewContact{Name: "Ada", Email: "ada@example.com"})

	if c.ID == "" {
		t.Fatalf("expected id to be generated")
	}
	if !c.CreatedOn.Equal(fixedNow) {
		t.Fatalf("expected createdOn %v, got %v", fixedNow, c.CreatedOn)
	}
	if c.Source != SourceManual {
		t.Fatalf("expected default source manual, got %q", c.Source)
	}
	if c.Tags == nil || len(c.Tags) != 0 {
		t.Fatalf("expected empty non-nil tags, got %#v", c.Tags)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 contact, got %d", s.Len())
	}
}

func TestStoreIDsUniqueWithinSameInstant(t *testing.T) {
	s := newTestStore()
	batch := []NewContact{
		{Name: "A", Email: "a@example.com"},
		{Name: "B", Email: "b@example.com"},
		{Name: "C", Email: "c@example.com"},
	}
	first := s.BulkAdd(batch)
	second := s.BulkAdd(batch)
	single := s.Add(batch[0])

	seen := map[string]bool{}
	for _, c := range append(append(first, second...), single) {
		if seen[c.ID] {
			t.Fatalf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true
		if !c.CreatedOn.Equal(fixedNow) {
			t.Fatalf("expected shared timestamp, got %v", c.CreatedOn)
		}
	}
	if len(seen) != 7 {
		t.Fatalf("expected 7 distinct ids, got %d", len(seen))
	}
}

func TestStoreIDGeneratorCollisionsAreResolved(t *testing.T) {
	s := newTestStore(WithIDGenerator(func() string { return "same" }))
	a := s.Add(NewContact{Name: "A", Email: "a@example.com"})
	b := s.Add(NewContact{Name: "B", Email: "b@example.com"})

	if a.ID != "same" {
		t.Fatalf("expected first id to be used as-is, got %q", a.ID)
	}
	if b.ID == a.ID {
		t.Fatalf("expected second id to differ")
	}
}

func TestStoreUpdateKeepsIdentity(t *testing.T) {
	s := newTestStore()
	c := s.Add(NewContact{Name: "Ada", Email: "ada@example.com"})

	name := "X"
	updated, ok := s.Update(c.ID, ContactPatch{Name: &name})
	if !ok {
		t.Fatalf("expected update to find contact")
	}
	if updated.ID != c.ID || !updated.CreatedOn.Equal(c.CreatedOn) {
		t.Fatalf("identity fields changed: %+v", updated)
	}
	if updated.Name != "X" {
		t.Fatalf("expected name X, got %q", updated.Name)
	}
	if updated.Email != c.Email {
		t.Fatalf("expected untouched email, got %q", updated.Email)
	}
}

func TestStoreMissingIDIsNoOp(t *testing.T) {
	s := newTestStore()
	s.Add(NewContact{Name: "Ada", Email: "ada@example.com"})
	before := s.All()

	name := "X"
	if _, ok := s.Update("nonexistent", ContactPatch{Name: &name}); ok {
		t.Fatalf("expected update of unknown id to report false")
	}
	if s.Delete("nonexistent") {
		t.Fatalf("expected delete of unknown id to report false")
	}
	if after := s.All(); !reflect.DeepEqual(before, after) {
		t.Fatalf("collection changed:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestStoreBulkDeleteKeepsOrder(t *testing.T) {
	s := newTestStore()
	created := s.BulkAdd([]NewContact{
		{Name: "A", Email: "a@example.com"},
		{Name: "B", Email: "b@example.com"},
		{Name: "C", Email: "c@example.com"},
		{Name: "D", Email: "d@example.com"},
	})

	n := s.BulkDelete([]string{created[1].ID, created[3].ID, "missing"})
	if n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	remaining := s.All()
	if len(remaining) != 2 || remaining[0].Name != "A" || remaining[1].Name != "C" {
		t.Fatalf("unexpected remaining contacts %+v", remaining)
	}
	if _, ok := s.Get(created[2].ID); !ok {
		t.Fatalf("expected index to be rebuilt after delete")
	}
}

func TestStoreBulkAssign(t *testing.T) {
	s := newTestStore()
	created := s.BulkAdd([]NewContact{
		{Name: "A", Email: "a@example.com"},
		{Name: "B", Email: "b@example.com", AssignedAgent: "2"},
	})

	if n := s.BulkAssignAgent([]string{created[0].ID, created[0].ID, "missing"}, "7"); n != 1 {
		t.Fatalf("expected 1 assigned, got %d", n)
	}
	if got, _ := s.Get(created[0].ID); got.AssignedAgent != "7" {
		t.Fatalf("expected agent 7, got %q", got.AssignedAgent)
	}

	if n := s.BulkAssignAgent([]string{created[1].ID}, "unassigned"); n != 1 {
		t.Fatalf("expected 1 unassigned, got %d", n)
	}
	if got, _ := s.Get(created[1].ID); got.Assigned() {
		t.Fatalf("expected sentinel to clear agent, got %q", got.AssignedAgent)
	}

	if n := s.BulkAssignCampaign([]string{created[0].ID, created[1].ID}, " spring "); n != 2 {
		t.Fatalf("expected 2 in campaign, got %d", n)
	}
	for _, c := range s.All() {
		if c.Campaign != "spring" {
			t.Fatalf("expected campaign spring, got %q", c.Campaign)
		}
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	s := newTestStore()
	c := s.Add(NewContact{Name: "A", Email: "a@example.com", Tags: []string{"Hot"}})
	c.Tags[0] = "mutated"

	got, _ := s.Get(c.ID)
	if got.Tags[0] != "Hot" {
		t.Fatalf("store state leaked through returned contact")
	}
}

func TestStoreNotifiesListeners(t *testing.T) {
	var changes []Change
	s := newTestStore(WithListener(ListenerFunc(func(c Change) { changes = append(changes, c) })))

	c := s.Add(NewContact{Name: "A", Email: "a@example.com"})
	s.BulkAssignAgent([]string{c.ID}, "1")
	s.BulkDelete([]string{"missing"})
	s.Delete(c.ID)

	want := []ChangeOp{OpCreated, OpAssigned, OpDeleted}
	if len(changes) != len(want) {
		t.Fatalf("expected %d changes, got %+v", len(want), changes)
	}
	for i, op := range want {
		if changes[i].Op != op {
			t.Fatalf("change %d: expected %q, got %q", i, op, changes[i].Op)
		}
	}
}

func TestStoreRestoreKeepsIdentityAndFixesDuplicates(t *testing.T) {
	s := newTestStore()
	created := fixedNow.Add(-48 * time.Hour)
	s.Restore([]Contact{
		{ID: "a", Name: "A", Email: "a@example.com", CreatedOn: created, Source: SourceCSV},
		{ID: "a", Name: "Dup", Email: "dup@example.com", CreatedOn: created},
		{Name: "NoID", Email: "noid@example.com", AssignedAgent: "unassigned"},
	})

	all := s.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 contacts, got %d", len(all))
	}
	if all[0].ID != "a" || !all[0].CreatedOn.Equal(created) {
		t.Fatalf("expected first record kept verbatim, got %+v", all[0])
	}
	if all[1].ID == "a" || all[2].ID == "" {
		t.Fatalf("expected fresh ids for duplicate and empty ids, got %q and %q", all[1].ID, all[2].ID)
	}
	if all[2].Assigned() {
		t.Fatalf("expected sentinel agent normalised on restore")
	}
}

func TestStoreFilters(t *testing.T) {
	s := newTestStore()
	if f := s.Filters(); !f.IsZero() || f.Tags == nil {
		t.Fatalf("expected empty baseline filters, got %+v", f)
	}

	search := "ada"
	tags := []string{"Hot"}
	s.SetFilters(FiltersPatch{Search: &search})
	f := s.SetFilters(FiltersPatch{Tags: &tags})
	if f.Search != "ada" || len(f.Tags) != 1 {
		t.Fatalf("expected merged filters, got %+v", f)
	}

	if cleared := s.ClearFilters(); !cleared.IsZero() {
		t.Fatalf("expected cleared filters, got %+v", cleared)
	}
}

func TestStoreStateTracksInflightCalls(t *testing.T) {
	s := newTestStore()
	s.beginCall()
	if !s.State().Loading {
		t.Fatalf("expected loading while a call is in flight")
	}
	s.endCall(fmt.Errorf("boom"))
	st := s.State()
	if st.Loading || st.Error != "boom" {
		t.Fatalf("unexpected state %+v", st)
	}
	s.beginCall()
	s.endCall(nil)
	if s.State().Error != "" {
		t.Fatalf("expected success to clear the error")
	}

	s.SetLoading(true)
	s.SetError("manual")
	if st := s.State(); !st.Loading || st.Error != "manual" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestStoreConcurrentWrites(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.BulkAdd([]NewContact{
				{Name: fmt.Sprintf("A%d", i), Email: "a@example.com"},
				{Name: fmt.Sprintf("B%d", i), Email: "b@example.com"},
			})
			s.Query()
		}(i)
	}
	wg.Wait()

	if s.Len() != 40 {
		t.Fatalf("expected 40 contacts, got %d", s.Len())
	}
	seen := map[string]bool{}
	for _, c := range s.All() {
		if seen[c.ID] {
			t.Fatalf("duplicate id %q", c.ID)
		}
		seen[c.ID] = true
	}
}
