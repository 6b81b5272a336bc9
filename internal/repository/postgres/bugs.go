package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

const bugColumns = `id, project_id, title, description, status, priority, assigned_to, created_by, tags, created_at, updated_at`

var bugSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
}

func scanBug(row pgx.Row) (*domain.Bug, error) {
	var (
		b        domain.Bug
		assigned sql.NullString
		tags     []string
	)
	if err := row.Scan(
		&b.ID,
		&b.ProjectID,
		&b.Title,
		&b.Description,
		&b.Status,
		&b.Priority,
		&assigned,
		&b.CreatedBy,
		&tags,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if assigned.Valid {
		b.AssignedTo = assigned.String
	}
	b.Tags = tags
	return &b, nil
}

// CreateBug inserts a bug and its fanout in one transaction.
func (r *Repository) CreateBug(ctx context.Context, bug *domain.Bug, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `INSERT INTO bugs (id, project_id, title, description, status, priority, assigned_to, created_by, tags, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`
		_, err := tx.Exec(ctx, query,
			bug.ID,
			bug.ProjectID,
			bug.Title,
			bug.Description,
			bug.Status,
			bug.Priority,
			emptyToNil(bug.AssignedTo),
			bug.CreatedBy,
			bug.Tags,
			bug.CreatedAt,
		)
		if err != nil {
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

// GetBugByID loads a bug with its attachment records.
func (r *Repository) GetBugByID(ctx context.Context, bugID string) (*domain.Bug, error) {
	query := `SELECT ` + bugColumns + ` FROM bugs WHERE id = $1`
	bug, err := scanBug(r.pool.QueryRow(ctx, query, bugID))
	if err != nil {
		return nil, err
	}
	attachments, err := r.listAttachments(ctx, bug.ID)
	if err != nil {
		return nil, err
	}
	bug.Attachments = attachments
	return bug, nil
}

// ListBugs applies the filter and returns a page of bugs plus the total
// match count.
func (r *Repository) ListBugs(ctx context.Context, filter repository.BugFilter) ([]domain.Bug, int, error) {
	where, args := buildBugFilter(filter)

	sortColumn := bugSortColumns[filter.SortBy]
	if sortColumn == "" {
		sortColumn = "created_at"
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM bugs %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		bugColumns, where, sortColumn, direction, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	bugs := make([]domain.Bug, 0)
	for rows.Next() {
		var (
			b        domain.Bug
			assigned sql.NullString
			tags     []string
		)
		if err := rows.Scan(&b.ID, &b.ProjectID, &b.Title, &b.Description, &b.Status, &b.Priority, &assigned, &b.CreatedBy, &tags, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if assigned.Valid {
			b.AssignedTo = assigned.String
		}
		b.Tags = tags
		bugs = append(bugs, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	countQuery := `SELECT COUNT(1) FROM bugs ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	return bugs, total, nil
}

func buildBugFilter(filter repository.BugFilter) (string, []any) {
	conditions := []string{"project_id = ANY($1)"}
	args := []any{filter.ProjectIDs}

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filter.ProjectID != "" {
		add("project_id = $%d", filter.ProjectID)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		add("priority = $%d", filter.Priority)
	}
	switch filter.Assignee {
	case "":
	case "unassigned":
		conditions = append(conditions, "assigned_to IS NULL")
	default:
		add("assigned_to = $%d", filter.Assignee)
	}
	if filter.CreatedBy != "" {
		add("created_by = $%d", filter.CreatedBy)
	}
	if len(filter.Tags) > 0 {
		add("tags && $%d", filter.Tags)
	}
	if !filter.From.IsZero() {
		add("created_at >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("created_at <= $%d", filter.To)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// UpdateBug overwrites mutable bug fields and the fanout in one transaction.
func (r *Repository) UpdateBug(ctx context.Context, bug *domain.Bug, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE bugs
			SET title = $2,
				description = $3,
				status = $4,
				priority = $5,
				assigned_to = $6,
				tags = $7,
				updated_at = NOW()
			WHERE id = $1`
		tag, err := tx.Exec(ctx, query,
			bug.ID,
			bug.Title,
			bug.Description,
			bug.Status,
			bug.Priority,
			emptyToNil(bug.AssignedTo),
			bug.Tags,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// DeleteBug removes a bug; comments and attachments cascade.
func (r *Repository) DeleteBug(ctx context.Context, bugID string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `DELETE FROM bugs WHERE id = $1`
		tag, err := tx.Exec(ctx, query, bugID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// AddAttachment appends an attachment record to a bug.
func (r *Repository) AddAttachment(ctx context.Context, attachment *domain.Attachment) error {
	const query = `INSERT INTO bug_attachments (bug_id, filename, url, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.pool.QueryRow(ctx, query,
		attachment.BugID,
		attachment.Filename,
		attachment.URL,
		attachment.UploadedBy,
		attachment.UploadedAt,
	).Scan(&attachment.ID)
}

func (r *Repository) listAttachments(ctx context.Context, bugID string) ([]domain.Attachment, error) {
	const query = `SELECT id, bug_id, filename, url, uploaded_by, uploaded_at
		FROM bug_attachments WHERE bug_id = $1 ORDER BY uploaded_at ASC`
	rows, err := r.pool.Query(ctx, query, bugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attachments := make([]domain.Attachment, 0)
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.BugID, &a.Filename, &a.URL, &a.UploadedBy, &a.UploadedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// BugStats aggregates dashboard counts over the visible projects.
func (r *Repository) BugStats(ctx context.Context, projectIDs []string) (domain.BugStats, error) {
	if len(projectIDs) == 0 {
		return domain.BugStats{}, nil
	}
	const query = `SELECT
			COUNT(1),
			COUNT(1) FILTER (WHERE status = 'Open'),
			COUNT(1) FILTER (WHERE status = 'Closed'),
			COUNT(1) FILTER (WHERE priority = 'High')
		FROM bugs WHERE project_id = ANY($1)`
	var stats domain.BugStats
	if err := r.pool.QueryRow(ctx, query, projectIDs).Scan(&stats.Total, &stats.Open, &stats.Closed, &stats.HighPriority); err != nil {
		return domain.BugStats{}, err
	}
	return stats, nil
}

// ProjectBugCounts returns open/closed counts per visible project, keeping
// projects with zero bugs in the result.
func (r *Repository) ProjectBugCounts(ctx context.Context, projectIDs []string) ([]domain.ProjectBugCount, error) {
	if len(projectIDs) == 0 {
		return []domain.ProjectBugCount{}, nil
	}
	const query = `SELECT
			p.id,
			p.name,
			COUNT(b.id) FILTER (WHERE b.status = 'Open'),
			COUNT(b.id) FILTER (WHERE b.status = 'Closed')
		FROM projects p
		LEFT JOIN bugs b ON b.project_id = p.id
		WHERE p.id = ANY($1)
		GROUP BY p.id, p.name
		ORDER BY p.name ASC`
	rows, err := r.pool.Query(ctx, query, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]domain.ProjectBugCount, 0)
	for rows.Next() {
		var c domain.ProjectBugCount
		if err := rows.Scan(&c.ProjectID, &c.Name, &c.Open, &c.Closed); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
