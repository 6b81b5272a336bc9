package postgres

import (
	"context"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

// ListPendingEvents returns undispatched outbox rows oldest first.
func (r *Repository) ListPendingEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, topic, event, payload, created_at, dispatched_at
		FROM outbox_events WHERE dispatched_at IS NULL ORDER BY id ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.OutboxEvent, 0)
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.Event, &e.Payload, &e.CreatedAt, &e.DispatchedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// MarkEventsDispatched stamps the given outbox rows as delivered.
func (r *Repository) MarkEventsDispatched(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE outbox_events SET dispatched_at = NOW() WHERE id = ANY($1)`
	_, err := r.pool.Exec(ctx, query, ids)
	return err
}
