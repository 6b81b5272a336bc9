package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

const commentColumns = `id, bug_id, author_id, body, created_at, updated_at`

// CreateComment inserts a comment and its fanout in one transaction.
func (r *Repository) CreateComment(ctx context.Context, comment *domain.Comment, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `INSERT INTO comments (id, bug_id, author_id, body, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $5)`
		_, err := tx.Exec(ctx, query,
			comment.ID,
			comment.BugID,
			comment.AuthorID,
			comment.Body,
			comment.CreatedAt,
		)
		if err != nil {
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

func (r *Repository) GetCommentByID(ctx context.Context, commentID string) (*domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	var c domain.Comment
	err := r.pool.QueryRow(ctx, query, commentID).Scan(&c.ID, &c.BugID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListCommentsByBug returns a bug's comments oldest first.
func (r *Repository) ListCommentsByBug(ctx context.Context, bugID string) ([]domain.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE bug_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, bugID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]domain.Comment, 0)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.BugID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (r *Repository) UpdateComment(ctx context.Context, comment *domain.Comment, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE comments SET body = $2, updated_at = NOW() WHERE id = $1`
		tag, err := tx.Exec(ctx, query, comment.ID, comment.Body)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

func (r *Repository) DeleteComment(ctx context.Context, commentID string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `DELETE FROM comments WHERE id = $1`
		tag, err := tx.Exec(ctx, query, commentID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}
