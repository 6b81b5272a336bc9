package project

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/policy"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// Service orchestrates projects, memberships, and the invite lifecycle.
type Service struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	engine   policy.Engine
	logger   *slog.Logger
}

// New returns a project service.
func New(projects repository.ProjectRepository, users repository.UserRepository, engine policy.Engine, logger *slog.Logger) Service {
	return Service{projects: projects, users: users, engine: engine, logger: logger}
}

var (
	errNameRequired     = errors.New("project name is required")
	errEmailRequired    = errors.New("email is required")
	errInvalidRole      = errors.New("invalid membership role")
	errAlreadyMember    = errors.New("user is already a member")
	errAlreadyInvited   = errors.New("email already invited")
	errNoPendingInvite  = errors.New("no pending invite for this user")
	errCannotRemoveSelf = errors.New("the project creator cannot be removed")
	errOwnerRoleLocked  = errors.New("the owner's role cannot be changed")
	errNotAMember       = errors.New("user is not a project member")
)

// assignableRoles excludes Owner, which only ownership transfer may grant.
var assignableRoles = map[string]bool{
	domain.MemberRoleAdmin:   true,
	domain.MemberRoleManager: true,
	domain.MemberRoleMember:  true,
	domain.MemberRoleViewer:  true,
}

// Create registers a project with the actor as creator and Owner member.
func (s Service) Create(ctx context.Context, actor policy.Principal, name, description string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errNameRequired
	}
	now := time.Now().UTC()
	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		CreatedBy:   actor.ID,
		Members: []domain.Member{
			{UserID: actor.ID, Role: domain.MemberRoleOwner, CreatedAt: now},
		},
		CreatedAt: now,
	}
	for i := range p.Members {
		p.Members[i].ProjectID = p.ID
	}
	if err := s.projects.CreateProject(ctx, p, policy.ProjectCreated(actor, p)); err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", p.ID, "user_id", actor.ID)
	return p, nil
}

// Get returns a project the actor may read.
func (s Service) Get(ctx context.Context, actor policy.Principal, projectID string) (*domain.Project, error) {
	return s.readable(ctx, actor, projectID)
}

// List returns the actor's visible, non-archived projects.
func (s Service) List(ctx context.Context, actor policy.Principal) ([]domain.Project, error) {
	return s.projects.ListProjectsByMember(ctx, actor.ID)
}

// Update changes project name and description.
func (s Service) Update(ctx context.Context, actor policy.Principal, projectID, name, description string) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectUpdate, projectID)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errNameRequired
	}
	p.Name = name
	p.Description = strings.TrimSpace(description)
	if err := s.projects.UpdateProject(ctx, p, policy.ProjectUpdated(actor, p)); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a project and everything under it.
func (s Service) Delete(ctx context.Context, actor policy.Principal, projectID string) error {
	p, err := s.authorize(ctx, actor, policy.ProjectDelete, projectID)
	if err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, projectID, policy.ProjectDeleted(actor, p)); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", projectID, "user_id", actor.ID)
	return nil
}

// SetArchived toggles the archived flag.
func (s Service) SetArchived(ctx context.Context, actor policy.Principal, projectID string, archived bool) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectArchive, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.projects.SetArchived(ctx, projectID, archived, policy.ProjectArchived(actor, p, archived)); err != nil {
		return nil, err
	}
	p.Archived = archived
	return p, nil
}

// Invite adds a registered user as a member immediately, or records a pending
// invite when no account matches the email.
func (s Service) Invite(ctx context.Context, actor policy.Principal, projectID, email, role string) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectInvite, projectID)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errEmailRequired
	}
	if role == "" {
		role = domain.MemberRoleMember
	}
	if !assignableRoles[role] {
		return nil, errInvalidRole
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if _, ok := p.MemberOf(user.ID); ok {
			return nil, errAlreadyMember
		}
		member := &domain.Member{ProjectID: p.ID, UserID: user.ID, Role: role, CreatedAt: time.Now().UTC()}
		if err := s.projects.AddMember(ctx, member, policy.MemberAdded(actor, p, user, role)); err != nil {
			return nil, err
		}
		p.Members = append(p.Members, *member)
	case errors.Is(err, repository.ErrNotFound):
		if _, ok := p.InviteFor(email); ok {
			return nil, errAlreadyInvited
		}
		invite := &domain.Invite{ProjectID: p.ID, Email: email, InvitedBy: actor.ID, InvitedAt: time.Now().UTC()}
		if err := s.projects.AddInvite(ctx, invite, policy.MemberInvited(actor, p, email)); err != nil {
			return nil, err
		}
		p.Invites = append(p.Invites, *invite)
	default:
		return nil, err
	}
	return p, nil
}

// CancelInvite drops a pending invite at the creator's request.
func (s Service) CancelInvite(ctx context.Context, actor policy.Principal, projectID, email string) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectCancelInvite, projectID)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := p.InviteFor(email); !ok {
		return nil, errNoPendingInvite
	}
	if err := s.projects.RemoveInvite(ctx, projectID, email, policy.InviteCancelled(actor, p, email)); err != nil {
		return nil, err
	}
	return s.projects.GetProjectByID(ctx, projectID)
}

// AcceptInvite converts the actor's pending invite into a membership. The
// invite is matched by the actor's account email, so only the invitee can
// accept, and accepting twice fails because the invite row is gone.
func (s Service) AcceptInvite(ctx context.Context, actor policy.Principal, projectID, email string) (*domain.Project, error) {
	p, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := p.InviteFor(email); !ok {
		return nil, errNoPendingInvite
	}
	member := &domain.Member{ProjectID: p.ID, UserID: actor.ID, Role: domain.MemberRoleMember, CreatedAt: time.Now().UTC()}
	if err := s.projects.AcceptInvite(ctx, projectID, email, member, policy.InviteAccepted(actor, p, email)); err != nil {
		return nil, err
	}
	s.logger.Info("invite accepted", "project_id", projectID, "user_id", actor.ID)
	return s.projects.GetProjectByID(ctx, projectID)
}

// DeclineInvite drops the actor's own pending invite.
func (s Service) DeclineInvite(ctx context.Context, actor policy.Principal, projectID, email string) error {
	p, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		return err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if _, ok := p.InviteFor(email); !ok {
		return errNoPendingInvite
	}
	return s.projects.RemoveInvite(ctx, projectID, email, policy.InviteDeclined(actor, p, email))
}

// RemoveMember drops a membership. The creator cannot be removed.
func (s Service) RemoveMember(ctx context.Context, actor policy.Principal, projectID, userID string) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectRemoveMember, projectID)
	if err != nil {
		return nil, err
	}
	if userID == p.CreatedBy {
		return nil, errCannotRemoveSelf
	}
	if _, ok := p.MemberOf(userID); !ok {
		return nil, errNotAMember
	}
	if err := s.projects.RemoveMember(ctx, projectID, userID, policy.MemberRemoved(actor, p, userID)); err != nil {
		return nil, err
	}
	return s.projects.GetProjectByID(ctx, projectID)
}

// ChangeRole updates a member's role. The Owner marker follows createdBy and
// can only move via ownership transfer.
func (s Service) ChangeRole(ctx context.Context, actor policy.Principal, projectID, userID, role string) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectRoleChange, projectID)
	if err != nil {
		return nil, err
	}
	if !assignableRoles[role] {
		return nil, errInvalidRole
	}
	member, ok := p.MemberOf(userID)
	if !ok {
		return nil, errNotAMember
	}
	if member.Role == domain.MemberRoleOwner {
		return nil, errOwnerRoleLocked
	}
	if err := s.projects.UpdateMemberRole(ctx, projectID, userID, role, policy.RoleChanged(actor, p, userID, role)); err != nil {
		return nil, err
	}
	return s.projects.GetProjectByID(ctx, projectID)
}

// TransferOwnership moves createdBy to another member and realigns the Owner
// and Admin role markers with it.
func (s Service) TransferOwnership(ctx context.Context, actor policy.Principal, projectID, toUserID string) (*domain.Project, error) {
	p, err := s.authorize(ctx, actor, policy.ProjectTransfer, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := p.MemberOf(toUserID); !ok {
		return nil, errNotAMember
	}
	fx := policy.OwnershipTransferred(actor, p, toUserID)
	if err := s.projects.TransferOwnership(ctx, projectID, p.CreatedBy, toUserID, fx); err != nil {
		return nil, err
	}
	s.logger.Info("ownership transferred", "project_id", projectID, "from", p.CreatedBy, "to", toUserID)
	return s.projects.GetProjectByID(ctx, projectID)
}

// readable loads a project and checks read access, hiding existence from
// non-members.
func (s Service) readable(ctx context.Context, actor policy.Principal, projectID string) (*domain.Project, error) {
	p, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.engine.Authorize(actor, policy.ProjectRead, policy.Target{}).Err()
		}
		return nil, err
	}
	if err := s.engine.Authorize(actor, policy.ProjectRead, policy.Target{Project: p}).Err(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s Service) authorize(ctx context.Context, actor policy.Principal, action policy.Action, projectID string) (*domain.Project, error) {
	p, err := s.projects.GetProjectByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.engine.Authorize(actor, action, policy.Target{}).Err()
		}
		return nil, err
	}
	if err := s.engine.Authorize(actor, action, policy.Target{Project: p}).Err(); err != nil {
		return nil, err
	}
	return p, nil
}
