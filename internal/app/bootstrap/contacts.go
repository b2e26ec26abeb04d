package bootstrap

import (
	"context"
	"fmt"

	appconfig "github.com/me-karanm/cerebro-ai-sub001/internal/config"
	"github.com/me-karanm/cerebro-ai-sub001/internal/contacts"
	"github.com/me-karanm/cerebro-ai-sub001/internal/events"
	"github.com/me-karanm/cerebro-ai-sub001/internal/observability/metrics"
	"github.com/me-karanm/cerebro-ai-sub001/pkg/logging"
)

// Snapshotter persists whole contact books. *contacts.SnapshotRepository
// satisfies it.
type Snapshotter interface {
	OrgIDs(ctx context.Context) ([]string, error)
	Load(ctx context.Context, orgID string) ([]contacts.Contact, error)
	Save(ctx context.Context, orgID string, list []contacts.Contact) error
}

// BuildContactRegistry wires per-org stores with metrics and, when given, the
// Redis event publisher. publisher and m may be nil.
func BuildContactRegistry(cfg *appconfig.Config, m *metrics.ContactMetrics, publisher *events.RedisPublisher, logger *logging.Logger) *contacts.Registry {
	if logger == nil {
		logger = logging.Default()
	}
	seed := cfg != nil && cfg.SeedDemoData

	return contacts.NewRegistry(func(orgID string) *contacts.Store {
		opts := []contacts.Option{}
		if m != nil {
			opts = append(opts, contacts.WithListener(m))
		}
		if publisher != nil {
			opts = append(opts, contacts.WithListener(publisher.ForOrg(orgID)))
		}
		store := contacts.NewStore(opts...)
		if seed {
			n := contacts.SeedDemo(store)
			logger.Info("seeded demo contacts", "org_id", orgID, "count", n)
		}
		return store
	})
}

// HydrateRegistry restores every saved org into the registry.
func HydrateRegistry(ctx context.Context, snap Snapshotter, registry *contacts.Registry, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	orgIDs, err := snap.OrgIDs(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: list snapshots: %w", err)
	}
	for _, orgID := range orgIDs {
		list, err := snap.Load(ctx, orgID)
		if err != nil {
			return fmt.Errorf("bootstrap: load snapshot %s: %w", orgID, err)
		}
		registry.For(orgID).Restore(list)
		logger.Info("contact snapshot restored", "org_id", orgID, "count", len(list))
	}
	return nil
}

// SaveRegistry writes every org's contacts back. It keeps going past failures
// and returns the first one.
func SaveRegistry(ctx context.Context, snap Snapshotter, registry *contacts.Registry, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	var firstErr error
	for _, orgID := range registry.OrgIDs() {
		store, ok := registry.Lookup(orgID)
		if !ok {
			continue
		}
		list := store.All()
		if err := snap.Save(ctx, orgID, list); err != nil {
			logger.Error("contact snapshot failed", "error", err, "org_id", orgID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		logger.Info("contact snapshot saved", "org_id", orgID, "count", len(list))
	}
	return firstErr
}
