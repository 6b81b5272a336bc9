package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

const savedSearchColumns = `id, user_id, name, search_term, filters, is_default, created_at`

func scanSavedSearch(row pgx.Row) (*domain.SavedSearch, error) {
	var (
		s       domain.SavedSearch
		filters []byte
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Name, &s.SearchTerm, &filters, &s.IsDefault, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(filters) > 0 {
		if err := json.Unmarshal(filters, &s.Filters); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// CreateSavedSearch inserts a saved search; names are unique per user.
func (r *Repository) CreateSavedSearch(ctx context.Context, search *domain.SavedSearch) error {
	filters, err := json.Marshal(search.Filters)
	if err != nil {
		return err
	}
	const query = `INSERT INTO saved_searches (id, user_id, name, search_term, filters, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.pool.Exec(ctx, query,
		search.ID,
		search.UserID,
		search.Name,
		search.SearchTerm,
		filters,
		search.IsDefault,
		search.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

func (r *Repository) GetSavedSearchByID(ctx context.Context, searchID, userID string) (*domain.SavedSearch, error) {
	query := `SELECT ` + savedSearchColumns + ` FROM saved_searches WHERE id = $1 AND user_id = $2`
	return scanSavedSearch(r.pool.QueryRow(ctx, query, searchID, userID))
}

// ListSavedSearchesByUser returns a user's saved searches, default first.
func (r *Repository) ListSavedSearchesByUser(ctx context.Context, userID string) ([]domain.SavedSearch, error) {
	query := `SELECT ` + savedSearchColumns + ` FROM saved_searches WHERE user_id = $1 ORDER BY is_default DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	searches := make([]domain.SavedSearch, 0)
	for rows.Next() {
		var (
			s       domain.SavedSearch
			filters []byte
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.SearchTerm, &filters, &s.IsDefault, &s.CreatedAt); err != nil {
			return nil, err
		}
		if len(filters) > 0 {
			if err := json.Unmarshal(filters, &s.Filters); err != nil {
				return nil, err
			}
		}
		searches = append(searches, s)
	}
	return searches, rows.Err()
}

func (r *Repository) UpdateSavedSearch(ctx context.Context, search *domain.SavedSearch) error {
	filters, err := json.Marshal(search.Filters)
	if err != nil {
		return err
	}
	const query = `UPDATE saved_searches SET name = $3, search_term = $4, filters = $5
		WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, search.ID, search.UserID, search.Name, search.SearchTerm, filters)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteSavedSearch(ctx context.Context, searchID, userID string) error {
	const query = `DELETE FROM saved_searches WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, searchID, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetDefaultSavedSearch marks one search as the user's default and clears
// the flag on the rest in the same transaction.
func (r *Repository) SetDefaultSavedSearch(ctx context.Context, searchID, userID string) (*domain.SavedSearch, error) {
	var search *domain.SavedSearch
	err := r.inTx(ctx, func(tx pgx.Tx) error {
		const clear = `UPDATE saved_searches SET is_default = FALSE WHERE user_id = $1 AND id <> $2`
		if _, err := tx.Exec(ctx, clear, userID, searchID); err != nil {
			return err
		}
		set := `UPDATE saved_searches SET is_default = TRUE WHERE id = $1 AND user_id = $2 RETURNING ` + savedSearchColumns
		updated, err := scanSavedSearch(tx.QueryRow(ctx, set, searchID, userID))
		if err != nil {
			return err
		}
		search = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return search, nil
}
