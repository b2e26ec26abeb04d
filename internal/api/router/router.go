package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/internal/csvimport"
	httpmiddleware "github.com/me-karanm/cerebro-ai-sub001/internal/http/middleware"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	ContactsHandler    *contacts.Handler
	ImportHandler      *csvimport.Handler
	ImportLimiter      *httpmiddleware.RateLimiter
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", healthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Tenant-scoped API routes
	r.Group(func(tenant chi.Router) {
		tenant.Use(requireOrgID)

		if cfg.ContactsHandler != nil {
			h := cfg.ContactsHandler
			tenant.Route("/contacts", func(r chi.Router) {
				r.Get("/", h.ListContacts)
				r.Post("/", h.CreateContact)

				r.Get("/stats", h.GetStats)
				r.Get("/state", h.GetState)

				r.Get("/filters", h.GetFilters)
				r.Put("/filters", h.SetFilters)
				r.Delete("/filters", h.ClearFilters)

				r.Post("/bulk/delete", h.BulkDelete)
				r.Post("/bulk/assign-agent", h.BulkAssignAgent)
				r.Post("/bulk/assign-campaign", h.BulkAssignCampaign)

				r.Get("/export", h.ExportContacts)
				r.Post("/export/archive", h.ArchiveExport)

				r.Get("/by-agent/{agentID}", h.ContactsByAgent)
				r.Get("/by-campaign/{campaignID}", h.ContactsByCampaign)

				if cfg.ImportHandler != nil {
					if cfg.ImportLimiter != nil {
						r.With(httpmiddleware.RateLimit(cfg.ImportLimiter)).Post("/import", cfg.ImportHandler.Import)
					} else {
						r.Post("/import", cfg.ImportHandler.Import)
					}
				}

				r.Route("/{contactID}", func(r chi.Router) {
					r.Get("/", h.GetContact)
					r.Patch("/", h.UpdateContact)
					r.Delete("/", h.DeleteContact)
				})
			})
		}
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
