package csvimport

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/internal/observability/metrics"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

const fileField = "file"

// Handler serves POST /contacts/import.
type Handler struct {
	contacts *contacts.Handler
	maxBytes int64
	logger   *logging.Logger
	metrics  *metrics.ContactMetrics
}

// NewHandler creates an import handler that resolves stores through h.
func NewHandler(h *contacts.Handler, maxBytes int64, logger *logging.Logger, m *metrics.ContactMetrics) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{
		contacts: h,
		maxBytes: maxBytes,
		logger:   logger,
		metrics:  m,
	}
}

// Import accepts either a multipart form with a "file" field or the raw CSV
// as the request body. agentId and campaignId query params override the
// corresponding columns.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	svc, orgID, ok := h.contacts.ServiceFor(w, r)
	if !ok {
		return
	}

	opts := Options{
		AgentID:    r.URL.Query().Get("agentId"),
		CampaignID: r.URL.Query().Get("campaignId"),
	}

	body, closeBody, err := h.payload(r)
	if err != nil {
		h.logger.Error("failed to open import payload", "error", err, "org_id", orgID)
		writeResult(w, http.StatusBadRequest, failed(err))
		return
	}
	defer closeBody()

	importer := New(svc.Store(), h.logger.With("org_id", orgID), h.metrics).WithMaxBytes(h.maxBytes)
	var res Result
	if err := svc.Do(r.Context(), "import", func() error {
		res = importer.ImportReader(r.Context(), body, opts)
		return nil
	}); err != nil {
		writeResult(w, http.StatusServiceUnavailable, failed(err))
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadRequest
	}
	writeResult(w, status, res)
}

func (h *Handler) payload(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if !strings.HasPrefix(mediaType, "multipart/") {
		return r.Body, func() {}, nil
	}
	// parts beyond the import cap spill to disk
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile(fileField)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func writeResult(w http.ResponseWriter, status int, res Result) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}
