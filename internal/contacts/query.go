package contacts

import "strings"

// Query returns the contacts matching the session filters, in insertion order.
func (s *Store) Query() []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(newMatcher(s.filters).match)
}

// QueryWith runs the filter engine with explicit criteria, leaving the session
// filters alone.
func (s *Store) QueryWith(f Filters) []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(newMatcher(f).match)
}

// ContactsByAgent returns every contact assigned to agentID, ignoring filters.
// "unassigned" and "" both select contacts without an agent.
func (s *Store) ContactsByAgent(agentID string) []Contact {
	agentID = normalizeAgent(agentID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(func(c Contact) bool { return c.AssignedAgent == agentID })
}

// ContactsByCampaign returns every contact in campaignID, ignoring filters.
func (s *Store) ContactsByCampaign(campaignID string) []Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectLocked(func(c Contact) bool { return c.Campaign == campaignID })
}

// matcher is Filters compiled once per query.
type matcher struct {
	search      string
	searchLower string
	agent       string
	agentSet    bool
	campaign    string
	tags        map[string]struct{}
	source      Source
}

func newMatcher(f Filters) matcher {
	m := matcher{
		search:      f.Search,
		searchLower: strings.ToLower(f.Search),
		campaign:    f.Campaign,
		source:      f.Source,
	}
	if f.AssignedAgent != "" {
		m.agentSet = true
		m.agent = normalizeAgent(f.AssignedAgent)
	}
	for _, t := range f.Tags {
		if t == "" {
			continue
		}
		if m.tags == nil {
			m.tags = make(map[string]struct{}, len(f.Tags))
		}
		m.tags[t] = struct{}{}
	}
	return m
}

func (m matcher) match(c Contact) bool {
	if m.search != "" && !m.matchSearch(c) {
		return false
	}
	if m.agentSet && c.AssignedAgent != m.agent {
		return false
	}
	if m.campaign != "" && c.Campaign != m.campaign {
		return false
	}
	if m.tags != nil && !m.matchTags(c) {
		return false
	}
	if m.source != "" && c.Source != m.source {
		return false
	}
	return true
}

// Name and email compare case-insensitively; phone is a raw substring.
func (m matcher) matchSearch(c Contact) bool {
	return strings.Contains(strings.ToLower(c.Name), m.searchLower) ||
		strings.Contains(strings.ToLower(c.Email), m.searchLower) ||
		strings.Contains(c.Phone, m.search)
}

func (m matcher) matchTags(c Contact) bool {
	for _, t := range c.Tags {
		if _, ok := m.tags[t]; ok {
			return true
		}
	}
	return false
}
