package contacts

import (
	"context"
	"time"

	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/me-karanm/cerebro-ai-sub001/internal/contacts"

// Service puts an asynchronous boundary in front of a Store: every call marks
// the store as loading, waits out the configured latency, runs the store
// operation and records its error (or clears the previous one).
//
// A call cancelled while waiting never reaches the store. Once the store
// operation starts it runs to completion.
type Service struct {
	store   *Store
	latency time.Duration
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewService wraps store. A zero latency skips the wait.
func NewService(store *Store, latency time.Duration, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:   store,
		latency: latency,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Store exposes the wrapped store for reads.
func (s *Service) Store() *Store {
	return s.store
}

// Do runs fn behind the boundary. Collaborators outside this package (the CSV
// importer) use it to get the same loading/error bookkeeping.
func (s *Service) Do(ctx context.Context, op string, fn func() error) error {
	ctx, span := s.tracer.Start(ctx, "contacts."+op, trace.WithAttributes(attribute.String("contacts.op", op)))
	defer span.End()

	s.store.beginCall()
	err := s.wait(ctx)
	if err == nil {
		err = fn()
	}
	s.store.endCall(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("contact operation failed", "op", op, "error", err)
	}
	return err
}

func (s *Service) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Refresh returns the contacts matching the session filters.
func (s *Service) Refresh(ctx context.Context) ([]Contact, error) {
	var out []Contact
	err := s.Do(ctx, "refresh", func() error {
		out = s.store.Query()
		return nil
	})
	return out, err
}

// Add creates a contact.
func (s *Service) Add(ctx context.Context, data NewContact) (Contact, error) {
	var out Contact
	err := s.Do(ctx, "add", func() error {
		out = s.store.Add(data)
		return nil
	})
	return out, err
}

// Update patches a contact. found is false for an unknown id.
func (s *Service) Update(ctx context.Context, id string, patch ContactPatch) (out Contact, found bool, err error) {
	err = s.Do(ctx, "update", func() error {
		out, found = s.store.Update(id, patch)
		return nil
	})
	return out, found, err
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.Do(ctx, "delete", func() error {
		found = s.store.Delete(id)
		return nil
	})
	return found, err
}

// BulkAdd creates many contacts.
func (s *Service) BulkAdd(ctx context.Context, data []NewContact) ([]Contact, error) {
	var out []Contact
	err := s.Do(ctx, "bulk_add", func() error {
		out = s.store.BulkAdd(data)
		return nil
	})
	return out, err
}

// BulkDelete removes many contacts.
func (s *Service) BulkDelete(ctx context.Context, ids []string) (int, error) {
	var n int
	err := s.Do(ctx, "bulk_delete", func() error {
		n = s.store.BulkDelete(ids)
		return nil
	})
	return n, err
}

// BulkAssignAgent assigns an agent to many contacts.
func (s *Service) BulkAssignAgent(ctx context.Context, ids []string, agentID string) (int, error) {
	var n int
	err := s.Do(ctx, "bulk_assign_agent", func() error {
		n = s.store.BulkAssignAgent(ids, agentID)
		return nil
	})
	return n, err
}

// BulkAssignCampaign assigns a campaign to many contacts.
func (s *Service) BulkAssignCampaign(ctx context.Context, ids []string, campaignID string) (int, error) {
	var n int
	err := s.Do(ctx, "bulk_assign_campaign", func() error {
		n = s.store.BulkAssignCampaign(ids, campaignID)
		return nil
	})
	return n, err
}
