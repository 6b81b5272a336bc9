package domain

// BugStats summarizes bug counts for dashboard cards.
type BugStats struct {
	Total        int `json:"total"`
	Open         int `json:"open"`
	Closed       int `json:"closed"`
	HighPriority int `json:"highPriority"`
}

// ProjectBugCount pairs a project with its open/closed bug counts.
type ProjectBugCount struct {
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Open      int    `json:"open"`
	Closed    int    `json:"closed"`
}
