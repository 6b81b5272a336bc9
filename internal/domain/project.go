package domain

import "time"

// Membership roles, strongest first.
const (
	MemberRoleOwner   = "Owner"
	MemberRoleAdmin   = "Admin"
	MemberRoleManager = "Manager"
	MemberRoleMember  = "Member"
	MemberRoleViewer  = "Viewer"
)

// Project groups bugs and members under a single owner.
type Project struct {
	ID          string
	Name        string
	Description string
	Archived    bool
	CreatedBy   string
	Members     []Member
	Invites     []Invite
	CreatedAt   time.Time
}

// Member links a user to a project with a membership role.
type Member struct {
	ProjectID string
	UserID    string
	Role      string
	CreatedAt time.Time
}

// Invite is a pending email invitation to a project.
type Invite struct {
	ProjectID string
	Email     string
	InvitedBy string
	InvitedAt time.Time
}

// MemberOf returns the membership entry for a user, if present.
func (p *Project) MemberOf(userID string) (Member, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// InviteFor returns the pending invite matching an email, if present.
func (p *Project) InviteFor(email string) (Invite, bool) {
	for _, inv := range p.Invites {
		if inv.Email == email {
			return inv, true
		}
	}
	return Invite{}, false
}
