package domain

import (
	"encoding/json"
	"time"
)

// Activity type tags.
const (
	ActivityProjectCreated       = "project_created"
	ActivityProjectUpdated       = "project_updated"
	ActivityProjectDeleted       = "project_deleted"
	ActivityProjectArchived      = "project_archived"
	ActivityProjectUnarchived    = "project_unarchived"
	ActivityOwnershipTransferred = "ownership_transferred"
	ActivityBugCreated           = "bug_created"
	ActivityBugUpdated           = "bug_updated"
	ActivityBugDeleted           = "bug_deleted"
	ActivityCommentAdded         = "comment_added"
	ActivityMemberAdded          = "member_added"
	ActivityMemberInvited        = "member_invited"
	ActivityMemberRemoved        = "member_removed"
	ActivityInviteAccepted       = "invite_accepted"
	ActivityInviteDeclined       = "invite_declined"
	ActivityInviteCancelled      = "invite_cancelled"
	ActivityRoleChanged          = "role_changed"
)

// Activity is an append-only per-project event record.
type Activity struct {
	ID        int64
	ProjectID string
	UserID    string
	Type      string
	Message   string
	Metadata  json.RawMessage
	CreatedAt time.Time
}

// TrendPoint is a daily activity count.
type TrendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Contributor aggregates activity counts per user.
type Contributor struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}
