package router

import (
	"net/http"
	"strings"

	"github.com/me-karanm/cerebro-ai-sub001/internal/tenancy"
)

const orgHeader = "X-Org-Id"

// requireOrgID selects the tenant whose contact book a request works on.
func requireOrgID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID := strings.TrimSpace(r.Header.Get(orgHeader))
		if orgID == "" {
			http.Error(w, "missing X-Org-Id", http.StatusBadRequest)
			return
		}
		ctx := tenancy.WithOrgID(r.Context(), orgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
