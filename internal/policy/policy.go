// Package policy decides who may act on which record and which side-effect
// records each allowed write must produce. It is pure: services load the
// target, ask for a decision, and persist the returned fanout atomically
// with the primary write.
package policy

import (
	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/pkg/config"
)

// Action enumerates the operations the policy gates.
type Action string

const (
	ProjectRead         Action = "project.read"
	ProjectUpdate       Action = "project.update"
	ProjectDelete       Action = "project.delete"
	ProjectInvite       Action = "project.invite"
	ProjectCancelInvite Action = "project.cancel_invite"
	ProjectRemoveMember Action = "project.remove_member"
	ProjectArchive      Action = "project.archive"
	ProjectTransfer     Action = "project.transfer"
	ProjectRoleChange   Action = "project.role_change"
	BugRead             Action = "bug.read"
	BugUpdate           Action = "bug.update"
	BugDelete           Action = "bug.delete"
	CommentUpdate       Action = "comment.update"
	CommentDelete       Action = "comment.delete"
)

// Principal is the authenticated actor.
type Principal struct {
	ID   string
	Name string
	Role string
}

// Target carries the records a decision is made against. Project must be set
// for every action; Bug and Comment only for their respective actions.
type Target struct {
	Project *domain.Project
	Bug     *domain.Bug
	Comment *domain.Comment
}

// Decision is the outcome of an authorization check. Hidden denials must be
// reported as "not found" so the resource's existence is not confirmed to
// principals who cannot read it.
type Decision struct {
	Allowed bool
	Hidden  bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string) Decision { return Decision{Reason: reason} }

func denyHidden(reason string) Decision { return Decision{Hidden: true, Reason: reason} }

// Engine evaluates authorization rules. BugEditScope widens bug mutation
// rights beyond the creator (see config.BugEditScope values).
type Engine struct {
	BugEditScope string
}

// NewEngine returns an Engine with a validated edit scope.
func NewEngine(bugEditScope string) Engine {
	switch bugEditScope {
	case config.BugEditAssignee, config.BugEditMembers:
		return Engine{BugEditScope: bugEditScope}
	default:
		return Engine{BugEditScope: config.BugEditCreator}
	}
}

// Authorize decides whether the principal may perform action on target.
func (e Engine) Authorize(p Principal, action Action, t Target) Decision {
	switch action {
	case ProjectRead:
		return e.projectRead(p, t.Project)
	case ProjectUpdate, ProjectInvite, ProjectCancelInvite, ProjectRemoveMember, ProjectArchive, ProjectTransfer:
		return e.creatorOnly(p, t.Project)
	case ProjectDelete:
		return e.projectDelete(p, t.Project)
	case ProjectRoleChange:
		return e.roleChange(p, t.Project)
	case BugRead:
		return e.bugRead(p, t.Project, t.Bug)
	case BugUpdate, BugDelete:
		return e.bugMutate(p, t.Project, t.Bug)
	case CommentUpdate, CommentDelete:
		return e.commentMutate(p, t.Project, t.Comment)
	}
	return deny("unknown action")
}

// CanReadProject reports whether the principal may see the project at all.
func (e Engine) CanReadProject(p Principal, project *domain.Project) bool {
	return e.projectRead(p, project).Allowed
}

func (e Engine) projectRead(p Principal, project *domain.Project) Decision {
	if project == nil {
		return denyHidden("project not found")
	}
	if p.Role == domain.RoleAdmin {
		return allow()
	}
	if _, ok := project.MemberOf(p.ID); ok {
		return allow()
	}
	return denyHidden("not a project member")
}

func (e Engine) creatorOnly(p Principal, project *domain.Project) Decision {
	if read := e.projectRead(p, project); !read.Allowed {
		return read
	}
	if project.CreatedBy != p.ID {
		return deny("only the project creator may do this")
	}
	return allow()
}

func (e Engine) projectDelete(p Principal, project *domain.Project) Decision {
	if read := e.projectRead(p, project); !read.Allowed {
		return read
	}
	if project.CreatedBy != p.ID && p.Role != domain.RoleAdmin {
		return deny("only the project creator or an admin may delete")
	}
	return allow()
}

func (e Engine) roleChange(p Principal, project *domain.Project) Decision {
	if d := e.creatorOnly(p, project); !d.Allowed {
		return d
	}
	member, ok := project.MemberOf(p.ID)
	if !ok || (member.Role != domain.MemberRoleOwner && member.Role != domain.MemberRoleAdmin) {
		return deny("insufficient membership role")
	}
	return allow()
}

func (e Engine) bugRead(p Principal, project *domain.Project, bug *domain.Bug) Decision {
	if bug == nil {
		return denyHidden("bug not found")
	}
	return e.projectRead(p, project)
}

func (e Engine) bugMutate(p Principal, project *domain.Project, bug *domain.Bug) Decision {
	if read := e.bugRead(p, project, bug); !read.Allowed {
		return read
	}
	if bug.CreatedBy == p.ID {
		return allow()
	}
	switch e.BugEditScope {
	case config.BugEditAssignee:
		if bug.AssignedTo == p.ID {
			return allow()
		}
	case config.BugEditMembers:
		if _, ok := project.MemberOf(p.ID); ok {
			return allow()
		}
	}
	return deny("not the bug creator")
}

func (e Engine) commentMutate(p Principal, project *domain.Project, comment *domain.Comment) Decision {
	if comment == nil {
		return denyHidden("comment not found")
	}
	if read := e.projectRead(p, project); !read.Allowed {
		return read
	}
	if comment.AuthorID != p.ID {
		return deny("not the comment author")
	}
	return allow()
}
