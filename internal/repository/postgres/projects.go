package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// CreateProject inserts a project, its creator's Owner membership, and the
// fanout records in one transaction.
func (r *Repository) CreateProject(ctx context.Context, project *domain.Project, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `INSERT INTO projects (id, name, description, archived, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`
		if _, err := tx.Exec(ctx, query, project.ID, project.Name, project.Description, project.Archived, project.CreatedBy, project.CreatedAt); err != nil {
			return err
		}
		const memberQuery = `INSERT INTO project_members (project_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)`
		for _, m := range project.Members {
			if _, err := tx.Exec(ctx, memberQuery, project.ID, m.UserID, m.Role, m.CreatedAt); err != nil {
				return err
			}
		}
		return insertFanout(ctx, tx, fx)
	})
}

// GetProjectByID loads a project with its members and pending invites.
func (r *Repository) GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error) {
	const query = `SELECT id, name, description, archived, created_by, created_at
		FROM projects WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, projectID)
	var p domain.Project
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Archived, &p.CreatedBy, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	members, err := r.listMembers(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Members = members
	invites, err := r.listInvites(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.Invites = invites
	return &p, nil
}

// ListProjectsByMember returns non-archived projects the user belongs to,
// newest first, with membership lists attached.
func (r *Repository) ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error) {
	const query = `SELECT p.id, p.name, p.description, p.archived, p.created_by, p.created_at
		FROM projects p
		INNER JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1 AND p.archived = FALSE
		ORDER BY p.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := make([]domain.Project, 0)
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Archived, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range projects {
		members, err := r.listMembers(ctx, projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Members = members
	}
	return projects, nil
}

// ListProjectIDsByMember returns identifiers of every project the user is a
// member of, archived included. This is the visibility set for read-side
// filtering.
func (r *Repository) ListProjectIDsByMember(ctx context.Context, userID string) ([]string, error) {
	const query = `SELECT project_id FROM project_members WHERE user_id = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateProject mutates name and description.
func (r *Repository) UpdateProject(ctx context.Context, project *domain.Project, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE projects SET name = $2, description = $3 WHERE id = $1`
		tag, err := tx.Exec(ctx, query, project.ID, project.Name, project.Description)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// DeleteProject removes a project. Members, invites, bugs, comments, and
// activity rows cascade in the schema; only the project's own fanout is
// recorded here.
func (r *Repository) DeleteProject(ctx context.Context, projectID string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if fx != nil && fx.Activity != nil {
			// The feed entry would cascade away with the project; keep only
			// the broadcast events.
			fx = &domain.Fanout{Notifications: fx.Notifications, Events: fx.Events}
		}
		const query = `DELETE FROM projects WHERE id = $1`
		tag, err := tx.Exec(ctx, query, projectID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// AddMember appends a membership entry. An existing membership maps to
// ErrConflict.
func (r *Repository) AddMember(ctx context.Context, member *domain.Member, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `INSERT INTO project_members (project_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, query, member.ProjectID, member.UserID, member.Role, member.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return repository.ErrConflict
			}
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

// RemoveMember deletes a membership entry.
func (r *Repository) RemoveMember(ctx context.Context, projectID, userID string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`
		tag, err := tx.Exec(ctx, query, projectID, userID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// UpdateMemberRole changes one member's project role.
func (r *Repository) UpdateMemberRole(ctx context.Context, projectID, userID, role string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`
		tag, err := tx.Exec(ctx, query, projectID, userID, role)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// AddInvite records a pending email invite. A duplicate pending invite maps
// to ErrConflict.
func (r *Repository) AddInvite(ctx context.Context, invite *domain.Invite, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `INSERT INTO project_invites (project_id, email, invited_by, invited_at)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, query, invite.ProjectID, strings.ToLower(invite.Email), invite.InvitedBy, invite.InvitedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return repository.ErrConflict
			}
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

// RemoveInvite deletes a pending invite (decline or cancel).
func (r *Repository) RemoveInvite(ctx context.Context, projectID, email string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := deleteInvite(ctx, tx, projectID, email); err != nil {
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

// AcceptInvite atomically removes the pending invite and appends the
// membership entry. A missing invite maps to ErrNotFound, so accepting twice
// cannot produce a duplicate membership.
func (r *Repository) AcceptInvite(ctx context.Context, projectID, email string, member *domain.Member, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := deleteInvite(ctx, tx, projectID, email); err != nil {
			return err
		}
		const query = `INSERT INTO project_members (project_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, query, member.ProjectID, member.UserID, member.Role, member.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return repository.ErrConflict
			}
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

// SetArchived flips the archived flag.
func (r *Repository) SetArchived(ctx context.Context, projectID string, archived bool, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE projects SET archived = $2 WHERE id = $1`
		tag, err := tx.Exec(ctx, query, projectID, archived)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		return insertFanout(ctx, tx, fx)
	})
}

// TransferOwnership moves created_by to the new owner and realigns the
// Owner membership marker: the new owner becomes Owner, the previous owner
// is demoted to Admin.
func (r *Repository) TransferOwnership(ctx context.Context, projectID, fromUserID, toUserID string, fx *domain.Fanout) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		const query = `UPDATE projects SET created_by = $2 WHERE id = $1 AND created_by = $3`
		tag, err := tx.Exec(ctx, query, projectID, toUserID, fromUserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrNotFound
		}
		const promote = `UPDATE project_members SET role = $3 WHERE project_id = $1 AND user_id = $2`
		if _, err := tx.Exec(ctx, promote, projectID, toUserID, domain.MemberRoleOwner); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, promote, projectID, fromUserID, domain.MemberRoleAdmin); err != nil {
			return err
		}
		return insertFanout(ctx, tx, fx)
	})
}

func deleteInvite(ctx context.Context, tx pgx.Tx, projectID, email string) error {
	const query = `DELETE FROM project_invites WHERE project_id = $1 AND email = lower($2)`
	tag, err := tx.Exec(ctx, query, projectID, email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) listMembers(ctx context.Context, projectID string) ([]domain.Member, error) {
	const query = `SELECT project_id, user_id, role, created_at
		FROM project_members WHERE project_id = $1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := make([]domain.Member, 0)
	for rows.Next() {
		var m domain.Member
		if err := rows.Scan(&m.ProjectID, &m.UserID, &m.Role, &m.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *Repository) listInvites(ctx context.Context, projectID string) ([]domain.Invite, error) {
	const query = `SELECT project_id, email, invited_by, invited_at
		FROM project_invites WHERE project_id = $1 ORDER BY invited_at ASC`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invites := make([]domain.Invite, 0)
	for rows.Next() {
		var inv domain.Invite
		if err := rows.Scan(&inv.ProjectID, &inv.Email, &inv.InvitedBy, &inv.InvitedAt); err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	return invites, rows.Err()
}
