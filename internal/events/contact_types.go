package events

import "time"

// ContactsChangedV1 is emitted after every contact store mutation.
type ContactsChangedV1 struct {
	OrgID      string    `json:"org_id"`
	Op         string    `json:"op"`
	ContactIDs []string  `json:"contact_ids"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (ContactsChangedV1) EventType() string {
	return "contacts.changed.v1"
}
