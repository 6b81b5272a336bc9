package domain

import "time"

// Bug statuses observed in practice. Status is stored as free-form text so
// teams can introduce their own workflow states.
const (
	StatusOpen       = "Open"
	StatusInProgress = "In Progress"
	StatusClosed     = "Closed"
)

// Bug priorities.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// Bug is a tracked issue inside a project.
type Bug struct {
	ID          string
	ProjectID   string
	Title       string
	Description string
	Status      string
	Priority    string
	AssignedTo  string
	CreatedBy   string
	Tags        []string
	Attachments []Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Attachment records an uploaded file reference on a bug. The binary payload
// lives in external storage; only the reference is tracked here.
type Attachment struct {
	ID         int64
	BugID      string
	Filename   string
	URL        string
	UploadedBy string
	UploadedAt time.Time
}

// Comment is a text entry attached to a bug.
type Comment struct {
	ID        string
	BugID     string
	AuthorID  string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
