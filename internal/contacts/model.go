package contacts

import (
	"regexp"
	"strings"
	"time"
)

// Source records where a contact came from.
type Source string

const (
	SourceManual Source = "manual"
	SourceCSV    Source = "csv"
	SourceAPI    Source = "api"
)

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceManual, SourceCSV, SourceAPI:
		return true
	}
	return false
}

// UnassignedAgent is the sentinel callers may send instead of an empty agent.
const UnassignedAgent = "unassigned"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the basic local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Contact is a lead or customer tracked by the platform.
type Contact struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	AssignedAgent   string     `json:"assignedAgent,omitempty"`
	Campaign        string     `json:"campaign,omitempty"`
	Tags            []string   `json:"tags"`
	CreatedOn       time.Time  `json:"createdOn"`
	Source          Source     `json:"source"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	Notes           string     `json:"notes,omitempty"`
}

// Assigned reports whether the contact has an agent.
func (c Contact) Assigned() bool {
	return c.AssignedAgent != ""
}

// HasTag reports whether the contact carries tag.
func (c Contact) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (c Contact) clone() Contact {
	out := c
	out.Tags = cloneStrings(c.Tags)
	if c.LastContactedAt != nil {
		ts := *c.LastContactedAt
		out.LastContactedAt = &ts
	}
	return out
}

// NewContact carries the caller-supplied fields of a contact being created.
type NewContact struct {
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone"`
	AssignedAgent   string     `json:"assignedAgent"`
	Campaign        string     `json:"campaign"`
	Tags            []string   `json:"tags"`
	Source          Source     `json:"source"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	Notes           string     `json:"notes"`
}

// Validate checks a request coming from outside the process. The store
// does not call it.
func (n *NewContact) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return ErrInvalidName
	}
	if !ValidEmail(n.Email) {
		return ErrInvalidEmail
	}
	if n.Source != "" && !n.Source.Valid() {
		return ErrInvalidSource
	}
	return nil
}

// ContactPatch is a partial update. Nil fields are left untouched.
// Identity fields (id, createdOn) are deliberately absent.
type ContactPatch struct {
	Name            *string    `json:"name,omitempty"`
	Email           *string    `json:"email,omitempty"`
	Phone           *string    `json:"phone,omitempty"`
	AssignedAgent   *string    `json:"assignedAgent,omitempty"`
	Campaign        *string    `json:"campaign,omitempty"`
	Tags            *[]string  `json:"tags,omitempty"`
	Source          *Source    `json:"source,omitempty"`
	LastContactedAt *time.Time `json:"lastContactedAt,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

func (p ContactPatch) apply(c *Contact) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.AssignedAgent != nil {
		c.AssignedAgent = normalizeAgent(*p.AssignedAgent)
	}
	if p.Campaign != nil {
		c.Campaign = *p.Campaign
	}
	if p.Tags != nil {
		c.Tags = cloneStrings(*p.Tags)
	}
	if p.Source != nil {
		c.Source = *p.Source
	}
	if p.LastContactedAt != nil {
		ts := *p.LastContactedAt
		c.LastContactedAt = &ts
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
}

// Filters is the set of active query predicates.
type Filters struct {
	Search        string   `json:"search"`
	AssignedAgent string   `json:"assignedAgent"`
	Campaign      string   `json:"campaign"`
	Tags          []string `json:"tags"`
	Source        Source   `json:"source"`
}

// IsZero reports whether no predicate is active.
func (f Filters) IsZero() bool {
	return f.Search == "" && f.AssignedAgent == "" && f.Campaign == "" && len(f.Tags) == 0 && f.Source == ""
}

func (f Filters) clone() Filters {
	out := f
	out.Tags = cloneStrings(f.Tags)
	if out.Tags == nil {
		out.Tags = []string{}
	}
	return out
}

// FiltersPatch merges into the current filters. Nil fields are kept.
type FiltersPatch struct {
	Search        *string   `json:"search,omitempty"`
	AssignedAgent *string   `json:"assignedAgent,omitempty"`
	Campaign      *string   `json:"campaign,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Source        *Source   `json:"source,omitempty"`
}

func (p FiltersPatch) apply(f *Filters) {
	if p.Search != nil {
		f.Search = *p.Search
	}
	if p.AssignedAgent != nil {
		f.AssignedAgent = *p.AssignedAgent
	}
	if p.Campaign != nil {
		f.Campaign = *p.Campaign
	}
	if p.Tags != nil {
		f.Tags = cloneStrings(*p.Tags)
	}
	if p.Source != nil {
		f.Source = *p.Source
	}
}

// Stats aggregates the full collection.
type Stats struct {
	Total        int            `json:"total"`
	Assigned     int            `json:"assigned"`
	Unassigned   int            `json:"unassigned"`
	HotLeads     int            `json:"hotLeads"`
	VIPCustomers int            `json:"vipCustomers"`
	ByAgent      map[string]int `json:"byAgent"`
	ByCampaign   map[string]int `json:"byCampaign"`
}

// State is the loading/error pair set by asynchronous callers.
type State struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// normalizeAgent folds the "unassigned" sentinel into the empty value. The
// match is exact so agent ids differing only in case are kept.
func normalizeAgent(agentID string) string {
	trimmed := strings.TrimSpace(agentID)
	if trimmed == UnassignedAgent {
		return ""
	}
	return trimmed
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
