package tenancy

import (
	"context"
	"strings"
)

type ctxKey string

const orgKey ctxKey = "contacts.org_id"

// WithOrgID stores the org id in context. Surrounding whitespace is dropped.
func WithOrgID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, orgKey, strings.TrimSpace(orgID))
}

// OrgIDFromContext extracts the org id if present.
func OrgIDFromContext(ctx context.Context) (string, bool) {
	orgID, ok := ctx.Value(orgKey).(string)
	return orgID, ok && orgID != ""
}
