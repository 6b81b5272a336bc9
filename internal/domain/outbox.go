package domain

import (
	"encoding/json"
	"time"
)

// Real-time event names carried on outbox rows.
const (
	EventBugCreated      = "bugCreated"
	EventBugUpdated      = "bugUpdated"
	EventBugDeleted      = "bugDeleted"
	EventKanbanUpdated   = "kanbanUpdated"
	EventCommentAdded    = "commentAdded"
	EventCommentUpdated  = "commentUpdated"
	EventCommentDeleted  = "commentDeleted"
	EventProjectActivity = "projectActivity"
	EventNotification    = "notification"
)

// OutboxEvent is a pending real-time broadcast recorded atomically with the
// primary write. A dispatcher drains rows whose DispatchedAt is unset.
type OutboxEvent struct {
	ID           int64
	Topic        string
	Event        string
	Payload      json.RawMessage
	CreatedAt    time.Time
	DispatchedAt *time.Time
}

// Fanout bundles the side-effect records a mutation must persist together
// with its primary write: one activity entry, zero or more notifications,
// and the outbox events to broadcast after commit.
type Fanout struct {
	Activity      *Activity
	Notifications []Notification
	Events        []OutboxEvent
}

// ProjectTopic is the broadcast topic for a project's real-time events.
func ProjectTopic(projectID string) string { return "project:" + projectID }

// UserTopic is the broadcast topic for a user's notifications.
func UserTopic(userID string) string { return "user:" + userID }
