package repository

import (
	"context"
	"time"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

// Mutating methods take a domain.Fanout: the activity entry, notifications,
// and outbox events that must commit in the same transaction as the primary
// write. A nil fanout skips side effects.

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetUsersByNames(ctx context.Context, names []string) ([]domain.User, error)
	UpdateUserSettings(ctx context.Context, id string, settings domain.UserSettings) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, id string, hash []byte) error
	DeleteUser(ctx context.Context, id string) error
}

// ProjectRepository manages projects, memberships, and pending invites.
type ProjectRepository interface {
	CreateProject(ctx context.Context, project *domain.Project, fx *domain.Fanout) error
	GetProjectByID(ctx context.Context, projectID string) (*domain.Project, error)
	ListProjectsByMember(ctx context.Context, userID string) ([]domain.Project, error)
	ListProjectIDsByMember(ctx context.Context, userID string) ([]string, error)
	UpdateProject(ctx context.Context, project *domain.Project, fx *domain.Fanout) error
	DeleteProject(ctx context.Context, projectID string, fx *domain.Fanout) error
	AddMember(ctx context.Context, member *domain.Member, fx *domain.Fanout) error
	RemoveMember(ctx context.Context, projectID, userID string, fx *domain.Fanout) error
	UpdateMemberRole(ctx context.Context, projectID, userID, role string, fx *domain.Fanout) error
	AddInvite(ctx context.Context, invite *domain.Invite, fx *domain.Fanout) error
	RemoveInvite(ctx context.Context, projectID, email string, fx *domain.Fanout) error
	AcceptInvite(ctx context.Context, projectID, email string, member *domain.Member, fx *domain.Fanout) error
	SetArchived(ctx context.Context, projectID string, archived bool, fx *domain.Fanout) error
	TransferOwnership(ctx context.Context, projectID, fromUserID, toUserID string, fx *domain.Fanout) error
}

// BugFilter narrows bug listings. Zero values mean "no constraint";
// Assignee accepts the sentinel "unassigned".
type BugFilter struct {
	ProjectIDs []string
	ProjectID  string
	Status     string
	Priority   string
	Assignee   string
	CreatedBy  string
	Tags       []string
	Query      string
	From       time.Time
	To         time.Time
	SortBy     string
	SortDesc   bool
	Limit      int
	Offset     int
}

// BugRepository persists bugs and attachment records.
type BugRepository interface {
	CreateBug(ctx context.Context, bug *domain.Bug, fx *domain.Fanout) error
	GetBugByID(ctx context.Context, bugID string) (*domain.Bug, error)
	ListBugs(ctx context.Context, filter BugFilter) ([]domain.Bug, int, error)
	UpdateBug(ctx context.Context, bug *domain.Bug, fx *domain.Fanout) error
	DeleteBug(ctx context.Context, bugID string, fx *domain.Fanout) error
	AddAttachment(ctx context.Context, attachment *domain.Attachment) error
	BugStats(ctx context.Context, projectIDs []string) (domain.BugStats, error)
	ProjectBugCounts(ctx context.Context, projectIDs []string) ([]domain.ProjectBugCount, error)
}

// CommentRepository persists bug comments.
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *domain.Comment, fx *domain.Fanout) error
	GetCommentByID(ctx context.Context, commentID string) (*domain.Comment, error)
	ListCommentsByBug(ctx context.Context, bugID string) ([]domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment, fx *domain.Fanout) error
	DeleteComment(ctx context.Context, commentID string, fx *domain.Fanout) error
}

// ActivityRepository reads and appends the per-project activity log.
type ActivityRepository interface {
	InsertActivity(ctx context.Context, activity *domain.Activity, events []domain.OutboxEvent) error
	ListActivitiesByProject(ctx context.Context, projectID string, limit int) ([]domain.Activity, error)
	ActivityTrends(ctx context.Context, projectIDs []string, since time.Time) (map[string]int, error)
	TopContributors(ctx context.Context, projectIDs []string, limit int) ([]domain.Contributor, error)
}

// NotificationRepository manages per-user inboxes.
type NotificationRepository interface {
	ListNotificationsByUser(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// SavedSearchRepository persists named per-user bug queries.
type SavedSearchRepository interface {
	CreateSavedSearch(ctx context.Context, search *domain.SavedSearch) error
	GetSavedSearchByID(ctx context.Context, searchID, userID string) (*domain.SavedSearch, error)
	ListSavedSearchesByUser(ctx context.Context, userID string) ([]domain.SavedSearch, error)
	UpdateSavedSearch(ctx context.Context, search *domain.SavedSearch) error
	DeleteSavedSearch(ctx context.Context, searchID, userID string) error
	SetDefaultSavedSearch(ctx context.Context, searchID, userID string) (*domain.SavedSearch, error)
}

// OutboxRepository drains pending real-time events.
type OutboxRepository interface {
	ListPendingEvents(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkEventsDispatched(ctx context.Context, ids []int64) error
}
