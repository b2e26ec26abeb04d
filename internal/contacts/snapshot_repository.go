package contacts

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type snapshotQuerier interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// SnapshotRepository saves and restores whole per-org contact books in
// Postgres. The in-memory Store stays authoritative while the process runs.
type SnapshotRepository struct {
	pool snapshotQuerier
}

// NewSnapshotRepository initializes a repo backed by pgxpool.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	if pool == nil {
		panic("contacts: pgx pool required")
	}
	return &SnapshotRepository{pool: pool}
}

func newSnapshotRepositoryWithQuerier(q snapshotQuerier) *SnapshotRepository {
	if q == nil {
		panic("contacts: querier required")
	}
	return &SnapshotRepository{pool: q}
}

// Load returns the saved contacts of orgID in their stored order.
func (r *SnapshotRepository) Load(ctx context.Context, orgID string) ([]Contact, error) {
	query := `
		SELECT id, name, email, phone, assigned_agent, campaign, tags, source, created_on, last_contacted_at, notes
		FROM contacts
		WHERE org_id = $1
		ORDER BY position
	`
	rows, err := r.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("contacts: load snapshot: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var (
			c       Contact
			source  string
			lastHit *time.Time
		)
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Email,
			&c.Phone,
			&c.AssignedAgent,
			&c.Campaign,
			&c.Tags,
			&source,
			&c.CreatedOn,
			&lastHit,
			&c.Notes,
		); err != nil {
			return nil, fmt.Errorf("contacts: scan snapshot: %w", err)
		}
		c.Source = Source(source)
		c.LastContactedAt = lastHit
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("contacts: iterate snapshot: %w", err)
	}
	return out, nil
}

// Save replaces the stored contacts of orgID in one transaction.
func (r *SnapshotRepository) Save(ctx context.Context, orgID string, contacts []Contact) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("contacts: begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM contacts WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("contacts: clear snapshot: %w", err)
	}

	insert := `
		INSERT INTO contacts (org_id, id, position, name, email, phone, assigned_agent, campaign, tags, source, created_on, last_contacted_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	for i, c := range contacts {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		if _, err := tx.Exec(ctx, insert,
			orgID,
			c.ID,
			i,
			c.Name,
			c.Email,
			c.Phone,
			c.AssignedAgent,
			c.Campaign,
			tags,
			string(c.Source),
			c.CreatedOn,
			c.LastContactedAt,
			c.Notes,
		); err != nil {
			return fmt.Errorf("contacts: insert snapshot row %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("contacts: commit snapshot: %w", err)
	}
	return nil
}

// OrgIDs lists the orgs that have a saved snapshot.
func (r *SnapshotRepository) OrgIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT org_id FROM contacts ORDER BY org_id`)
	if err != nil {
		return nil, fmt.Errorf("contacts: list snapshot orgs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("contacts: scan snapshot org: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
