package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

// InsertActivity records an activity and its outbox events outside of a
// primary write, for events that have no owning row mutation.
func (r *Repository) InsertActivity(ctx context.Context, activity *domain.Activity, events []domain.OutboxEvent) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		fx := &domain.Fanout{Activity: activity, Events: events}
		return insertFanout(ctx, tx, fx)
	})
}

// ListActivitiesByProject returns a project's feed newest first.
func (r *Repository) ListActivitiesByProject(ctx context.Context, projectID string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, project_id, user_id, type, message, metadata, created_at
		FROM activities WHERE project_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	for rows.Next() {
		var a domain.Activity
		if err := rows.Scan(&a.ID, &a.ProjectID, &a.UserID, &a.Type, &a.Message, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// ActivityTrends counts activities per day since the given time, keyed by
// ISO date. Days with no activity are absent from the map.
func (r *Repository) ActivityTrends(ctx context.Context, projectIDs []string, since time.Time) (map[string]int, error) {
	trends := make(map[string]int)
	if len(projectIDs) == 0 {
		return trends, nil
	}
	const query = `SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD'), COUNT(1)
		FROM activities
		WHERE project_id = ANY($1) AND created_at >= $2
		GROUP BY 1`
	rows, err := r.pool.Query(ctx, query, projectIDs, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day   string
			count int
		)
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		trends[day] = count
	}
	return trends, rows.Err()
}

// TopContributors ranks users by activity volume across the given projects.
func (r *Repository) TopContributors(ctx context.Context, projectIDs []string, limit int) ([]domain.Contributor, error) {
	if len(projectIDs) == 0 {
		return []domain.Contributor{}, nil
	}
	if limit <= 0 {
		limit = 5
	}
	const query = `SELECT a.user_id, u.name, COUNT(1) AS total
		FROM activities a
		JOIN users u ON u.id = a.user_id
		WHERE a.project_id = ANY($1)
		GROUP BY a.user_id, u.name
		ORDER BY total DESC, u.name ASC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, projectIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contributors := make([]domain.Contributor, 0)
	for rows.Next() {
		var c domain.Contributor
		if err := rows.Scan(&c.UserID, &c.Name, &c.Count); err != nil {
			return nil, err
		}
		contributors = append(contributors, c)
	}
	return contributors, rows.Err()
}
