package contacts

const (
	TagHot = "Hot"
	TagVIP = "VIP"
)

// Stats aggregates the full, unfiltered collection.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return computeStats(s.contacts)
}

func computeStats(contacts []Contact) Stats {
	st := Stats{
		Total:      len(contacts),
		ByAgent:    make(map[string]int),
		ByCampaign: make(map[string]int),
	}
	for _, c := range contacts {
		if c.Assigned() {
			st.Assigned++
			st.ByAgent[c.AssignedAgent]++
		}
		if c.Campaign != "" {
			st.ByCampaign[c.Campaign]++
		}
		if c.HasTag(TagHot) {
			st.HotLeads++
		}
		if c.HasTag(TagVIP) {
			st.VIPCustomers++
		}
	}
	st.Unassigned = st.Total - st.Assigned
	return st
}
