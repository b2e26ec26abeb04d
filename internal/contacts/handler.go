package contacts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me-karanm/cerebro-ai-sub001/internal/tenancy"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ExportArchiver stores rendered exports somewhere durable.
type ExportArchiver interface {
	Enabled() bool
	ArchiveExport(ctx context.Context, orgID, ext, contentType string, body []byte) (string, error)
}

// Handler serves the contacts API for the org found in the request context.
type Handler struct {
	registry *Registry
	latency  time.Duration
	archiver ExportArchiver
	logger   *logging.Logger
	now      func() time.Time
}

// NewHandler creates a contacts handler. archiver may be nil.
func NewHandler(registry *Registry, latency time.Duration, archiver ExportArchiver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		registry: registry,
		latency:  latency,
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
	}
}

// ServiceFor returns the service of the org on the request, writing a 400
// when the org is missing.
func (h *Handler) ServiceFor(w http.ResponseWriter, r *http.Request) (*Service, string, bool) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing org context", http.StatusBadRequest)
		return nil, "", false
	}
	return NewService(h.registry.For(orgID), h.latency, h.logger), orgID, true
}

// ListContactsResponse is the response for listing contacts
type ListContactsResponse struct {
	Contacts []Contact `json:"contacts"`
	Count    int       `json:"count"`
	Total    int       `json:"total"`
	Offset   int       `json:"offset"`
	Limit    int       `json:"limit"`
}

// ListContacts handles GET /contacts. Explicit filter params win over the
// session filters held by the store.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}

	limit, offset := pageParams(r.URL.Query())
	matched, err := h.query(r.Context(), svc, r.URL.Query())
	if err != nil {
		h.logger.Error("failed to list contacts", "error", err, "org_id", orgID)
		http.Error(w, "failed to list contacts", http.StatusServiceUnavailable)
		return
	}

	page := []Contact{}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page = matched[offset:end]
	}

	writeJSON(w, http.StatusOK, ListContactsResponse{
		Contacts: page,
		Count:    len(page),
		Total:    len(matched),
		Offset:   offset,
		Limit:    limit,
	})
}

// CreateContact handles POST /contacts
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}

	var req NewContact
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	contact, err := svc.Add(r.Context(), req)
	if err != nil {
		h.logger.Error("failed to create contact", "error", err, "org_id", orgID)
		http.Error(w, "failed to create contact", http.StatusServiceUnavailable)
		return
	}

	h.logger.Info("contact created", "id", contact.ID, "org_id", orgID)
	writeJSON(w, http.StatusCreated, contact)
}

// GetContact handles GET /contacts/{contactID}
func (h *Handler) GetContact(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	contact, found := svc.Store().Get(chi.URLParam(r, "contactID"))
	if !found {
		http.Error(w, ErrContactNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// UpdateContact handles PATCH /contacts/{contactID}. id and createdOn in the
// body are ignored.
func (h *Handler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}

	var patch ContactPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		http.Error(w, ErrInvalidName.Error(), http.StatusBadRequest)
		return
	}
	if patch.Email != nil && !ValidEmail(*patch.Email) {
		http.Error(w, ErrInvalidEmail.Error(), http.StatusBadRequest)
		return
	}
	if patch.Source != nil && !patch.Source.Valid() {
		http.Error(w, ErrInvalidSource.Error(), http.StatusBadRequest)
		return
	}

	id := chi.URLParam(r, "contactID")
	contact, found, err := svc.Update(r.Context(), id, patch)
	if err != nil {
		h.logger.Error("failed to update contact", "error", err, "org_id", orgID, "contact_id", id)
		http.Error(w, "failed to update contact", http.StatusServiceUnavailable)
		return
	}
	if !found {
		http.Error(w, ErrContactNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// DeleteContact handles DELETE /contacts/{contactID}. Unknown ids still get 204.
func (h *Handler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "contactID")
	found, err := svc.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete contact", "error", err, "org_id", orgID, "contact_id", id)
		http.Error(w, "failed to delete contact", http.StatusServiceUnavailable)
		return
	}
	if found {
		h.logger.Info("contact deleted", "id", id, "org_id", orgID)
	}
	w.WriteHeader(http.StatusNoContent)
}

type bulkRequest struct {
	IDs        []string `json:"ids"`
	AgentID    string   `json:"agentId"`
	CampaignID string   `json:"campaignId"`
}

// BulkResponse reports how many contacts a bulk call touched.
type BulkResponse struct {
	Affected int `json:"affected"`
}

// BulkDelete handles POST /contacts/bulk/delete
func (h *Handler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk delete", func(ctx context.Context, svc *Service, req bulkRequest) (int, error) {
		return svc.BulkDelete(ctx, req.IDs)
	})
}

// BulkAssignAgent handles POST /contacts/bulk/assign-agent
func (h *Handler) BulkAssignAgent(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk assign agent", func(ctx context.Context, svc *Service, req bulkRequest) (int, error) {
		return svc.BulkAssignAgent(ctx, req.IDs, req.AgentID)
	})
}

// BulkAssignCampaign handles POST /contacts/bulk/assign-campaign
func (h *Handler) BulkAssignCampaign(w http.ResponseWriter, r *http.Request) {
	h.bulk(w, r, "bulk assign campaign", func(ctx context.Context, svc *Service, req bulkRequest) (int, error) {
		return svc.BulkAssignCampaign(ctx, req.IDs, req.CampaignID)
	})
}

func (h *Handler) bulk(w http.ResponseWriter, r *http.Request, name string, run func(context.Context, *Service, bulkRequest) (int, error)) {
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) == 0 {
		http.Error(w, "ids are required", http.StatusBadRequest)
		return
	}
	n, err := run(r.Context(), svc, req)
	if err != nil {
		h.logger.Error(name+" failed", "error", err, "org_id", orgID)
		http.Error(w, name+" failed", http.StatusServiceUnavailable)
		return
	}
	h.logger.Info(name, "org_id", orgID, "requested", len(req.IDs), "affected", n)
	writeJSON(w, http.StatusOK, BulkResponse{Affected: n})
}

// GetStats handles GET /contacts/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().Stats())
}

// GetState handles GET /contacts/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().State())
}

// GetFilters handles GET /contacts/filters
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().Filters())
}

// SetFilters handles PUT /contacts/filters with a partial body.
func (h *Handler) SetFilters(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	var patch FiltersPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().SetFilters(patch))
}

// ClearFilters handles DELETE /contacts/filters
func (h *Handler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().ClearFilters())
}

// ContactsByAgent handles GET /contacts/by-agent/{agentID}
func (h *Handler) ContactsByAgent(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().ContactsByAgent(chi.URLParam(r, "agentID")))
}

// ContactsByCampaign handles GET /contacts/by-campaign/{campaignID}
func (h *Handler) ContactsByCampaign(w http.ResponseWriter, r *http.Request) {
	svc, _, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, svc.Store().ContactsByCampaign(chi.URLParam(r, "campaignID")))
}

// ExportContacts handles GET /contacts/export?format=csv|json. It exports the
// filtered collection, unpaginated.
func (h *Handler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	matched, err := h.query(r.Context(), svc, r.URL.Query())
	if err != nil {
		http.Error(w, "failed to export contacts", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName(h.now())))
	if err := Export(w, format, matched); err != nil {
		h.logger.Error("failed to write export", "error", err, "org_id", orgID)
	}
}

// ArchiveExportResponse is returned after an export was archived.
type ArchiveExportResponse struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// ArchiveExport handles POST /contacts/export/archive
func (h *Handler) ArchiveExport(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil || !h.archiver.Enabled() {
		http.Error(w, "export archive not configured", http.StatusServiceUnavailable)
		return
	}
	svc, orgID, ok := h.ServiceFor(w, r)
	if !ok {
		return
	}
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	matched, err := h.query(r.Context(), svc, r.URL.Query())
	if err != nil {
		http.Error(w, "failed to export contacts", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := Export(&buf, format, matched); err != nil {
		h.logger.Error("failed to render export", "error", err, "org_id", orgID)
		http.Error(w, "failed to render export", http.StatusInternalServerError)
		return
	}
	key, err := h.archiver.ArchiveExport(r.Context(), orgID, string(format), format.ContentType(), buf.Bytes())
	if err != nil {
		h.logger.Error("failed to archive export", "error", err, "org_id", orgID)
		http.Error(w, "failed to archive export", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, ArchiveExportResponse{Key: key, Count: len(matched)})
}

var filterParams = []string{"search", "assignedAgent", "campaign", "tags", "source"}

func (h *Handler) query(ctx context.Context, svc *Service, q url.Values) ([]Contact, error) {
	f, explicit := filtersFromQuery(q)
	if !explicit {
		return svc.Refresh(ctx)
	}
	var out []Contact
	err := svc.Do(ctx, "query", func() error {
		out = svc.Store().QueryWith(f)
		return nil
	})
	return out, err
}

func filtersFromQuery(q url.Values) (Filters, bool) {
	explicit := false
	for _, key := range filterParams {
		if q.Has(key) {
			explicit = true
			break
		}
	}
	f := Filters{
		Search:        q.Get("search"),
		AssignedAgent: q.Get("assignedAgent"),
		Campaign:      q.Get("campaign"),
		Source:        Source(q.Get("source")),
	}
	for _, tag := range strings.Split(q.Get("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			f.Tags = append(f.Tags, tag)
		}
	}
	return f, explicit
}

func pageParams(q url.Values) (limit, offset int) {
	limit = defaultPageSize
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxPageSize {
			limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
