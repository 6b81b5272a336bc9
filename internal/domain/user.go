package domain

import "time"

// Global roles carried on the user record, distinct from per-project
// membership roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleGuest  = "guest"
)

// User represents a platform account.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Role         string
	Settings     UserSettings
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserSettings holds self-service preference fields.
type UserSettings struct {
	NotificationsEnabled bool   `json:"notificationsEnabled"`
	EmailPrefs           bool   `json:"emailPrefs"`
	Language             string `json:"language"`
	HighContrast         bool   `json:"highContrast"`
}

// DefaultSettings returns the preferences applied at registration.
func DefaultSettings() UserSettings {
	return UserSettings{NotificationsEnabled: true, EmailPrefs: true, Language: "en"}
}
