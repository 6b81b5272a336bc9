package domain

import "time"

// SearchFilters mirrors the bug listing filter set so a saved search can be
// replayed against the bug list endpoint.
type SearchFilters struct {
	Project   string `json:"project"`
	Assignee  string `json:"assignee"`
	Priority  string `json:"priority"`
	Status    string `json:"status"`
	From      string `json:"from"`
	To        string `json:"to"`
	Tags      string `json:"tags"`
	CreatedBy string `json:"createdBy"`
}

// SavedSearch is a named, per-user bug query. Names are unique per user.
type SavedSearch struct {
	ID         string
	UserID     string
	Name       string
	SearchTerm string
	Filters    SearchFilters
	IsDefault  bool
	CreatedAt  time.Time
}
