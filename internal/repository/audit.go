package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/plixa/plixa/internal/model"
)

// BulkInsertAuditEvents persists a batch of audit events. The Redis stream
// ID doubles as an idempotency key, so redelivered batches are safe to
// insert again.
func (r *Repository) BulkInsertAuditEvents(ctx context.Context, events []*model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}

	query := `
		INSERT INTO audit_log (
			id, event_id, event_type, reference, organization_id,
			cluster_id, actor_email, amount, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (event_id) DO NOTHING
	`

	for _, event := range events {
		batch.Queue(query,
			event.ID,
			event.EventID,
			event.Type,
			event.Reference,
			event.OrganizationID,
			event.ClusterID,
			event.ActorEmail,
			event.Amount,
			event.OccurredAt,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(events); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert event %d: %w", i, err)
		}
	}

	return nil
}

// ListAuditEvents returns an organization's audit trail, newest first.
func (r *Repository) ListAuditEvents(ctx context.Context, organizationID string, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, event_id, event_type, reference, organization_id, cluster_id, actor_email, amount, occurred_at
		FROM audit_log
		WHERE organization_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, organizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*model.AuditEvent
	for rows.Next() {
		var e model.AuditEvent
		err := rows.Scan(
			&e.ID,
			&e.EventID,
			&e.Type,
			&e.Reference,
			&e.OrganizationID,
			&e.ClusterID,
			&e.ActorEmail,
			&e.Amount,
			&e.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
