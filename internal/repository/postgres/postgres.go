package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository         = (*Repository)(nil)
	_ repository.ProjectRepository      = (*Repository)(nil)
	_ repository.BugRepository          = (*Repository)(nil)
	_ repository.CommentRepository      = (*Repository)(nil)
	_ repository.ActivityRepository     = (*Repository)(nil)
	_ repository.NotificationRepository = (*Repository)(nil)
	_ repository.SavedSearchRepository  = (*Repository)(nil)
	_ repository.OutboxRepository       = (*Repository)(nil)
)

// inTx runs fn inside a transaction, committing on success.
func (r *Repository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// insertFanout persists the side-effect records of a mutation inside the
// mutation's own transaction. A nil fanout is a no-op.
func insertFanout(ctx context.Context, tx pgx.Tx, fx *domain.Fanout) error {
	if fx == nil {
		return nil
	}
	if fx.Activity != nil {
		const query = `INSERT INTO activities (project_id, user_id, type, message, metadata, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		a := fx.Activity
		if _, err := tx.Exec(ctx, query, a.ProjectID, a.UserID, a.Type, a.Message, bytesToNil(a.Metadata), a.CreatedAt); err != nil {
			return err
		}
	}
	if len(fx.Notifications) > 0 {
		const query = `INSERT INTO notifications (id, user_id, type, message, metadata, read, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`
		batch := &pgx.Batch{}
		for _, n := range fx.Notifications {
			batch.Queue(query, n.ID, n.UserID, n.Type, n.Message, bytesToNil(n.Metadata), n.Read, n.CreatedAt)
		}
		if err := flushBatch(ctx, tx, batch, len(fx.Notifications)); err != nil {
			return err
		}
	}
	if len(fx.Events) > 0 {
		const query = `INSERT INTO outbox_events (topic, event, payload, created_at)
			VALUES ($1, $2, $3, NOW())`
		batch := &pgx.Batch{}
		for _, e := range fx.Events {
			batch.Queue(query, e.Topic, e.Event, bytesToNil(e.Payload))
		}
		if err := flushBatch(ctx, tx, batch, len(fx.Events)); err != nil {
			return err
		}
	}
	return nil
}

func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, n int) error {
	br := tx.SendBatch(ctx, batch)
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}

func emptyToNil(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func bytesToNil(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
