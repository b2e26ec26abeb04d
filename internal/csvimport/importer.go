package csvimport

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/internal/observability/metrics"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

// DefaultMaxBytes caps ImportReader payloads.
const DefaultMaxBytes int64 = 5 << 20

// BulkAdder receives accepted rows. *contacts.Store satisfies it.
type BulkAdder interface {
	BulkAdd(data []contacts.NewContact) []contacts.Contact
}

// Result reports the outcome of one import call. Success stays true when only
// some rows were rejected.
type Result struct {
	Success  bool     `json:"success"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
}

// Importer validates CSV payloads and hands accepted rows to a BulkAdder.
type Importer struct {
	adder    BulkAdder
	maxBytes int64
	logger   *logging.Logger
	metrics  *metrics.ContactMetrics
}

// New creates an importer. logger and m may be nil.
func New(adder BulkAdder, logger *logging.Logger, m *metrics.ContactMetrics) *Importer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Importer{
		adder:    adder,
		maxBytes: DefaultMaxBytes,
		logger:   logger,
		metrics:  m,
	}
}

// WithMaxBytes sets the ImportReader payload cap. Non-positive values keep
// the current cap.
func (i *Importer) WithMaxBytes(n int64) *Importer {
	if n > 0 {
		i.maxBytes = n
	}
	return i
}

// Import parses content and submits every accepted row in a single BulkAdd call.
func (i *Importer) Import(content string, opts Options) Result {
	start := time.Now()
	records, rowErrs, err := Parse(content, opts)
	if err != nil {
		i.logger.Warn("csv import rejected", "error", err)
		i.metrics.ObserveImport(false, time.Since(start).Seconds())
		return failed(err)
	}

	if len(records) > 0 {
		i.adder.BulkAdd(records)
	}

	res := Result{Success: true, Imported: len(records), Errors: make([]string, 0, len(rowErrs))}
	for _, re := range rowErrs {
		res.Errors = append(res.Errors, re.Error())
	}

	i.metrics.ObserveImportRows(len(records), len(rowErrs))
	i.metrics.ObserveImport(true, time.Since(start).Seconds())
	i.logger.Info("csv import completed",
		"imported", res.Imported,
		"rejected", len(rowErrs),
		"agent_override", opts.AgentID != "",
		"campaign_override", opts.CampaignID != "",
	)
	return res
}

// ImportReader reads the whole payload from r, then imports it. A read
// failure or an oversized payload fails the import without touching the store.
func (i *Importer) ImportReader(ctx context.Context, r io.Reader, opts Options) Result {
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	data, err := io.ReadAll(io.LimitReader(r, i.maxBytes+1))
	if err != nil {
		return failed(fmt.Errorf("read CSV file: %w", err))
	}
	if int64(len(data)) > i.maxBytes {
		return failed(fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, i.maxBytes))
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}
	return i.Import(string(data), opts)
}

func failed(err error) Result {
	return Result{Success: false, Imported: 0, Errors: []string{err.Error()}}
}
