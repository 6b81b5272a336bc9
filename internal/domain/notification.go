package domain

import (
	"encoding/json"
	"time"
)

// Notification type tags.
const (
	NotifyBugAssigned   = "bug_assigned"
	NotifyBugStatus     = "bug_status"
	NotifyMention       = "mention"
	NotifyProjectInvite = "project_invite"
)

// Notification is a per-user inbox entry. Only the read flag is ever mutated.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	Metadata  json.RawMessage
	Read      bool
	CreatedAt time.Time
}
