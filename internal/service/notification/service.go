package notification

import (
	"context"

	"log/slog"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
)

// Service serves per-user notification inboxes. Creation happens through
// fan-out on mutations; this service only reads and flips read flags.
type Service struct {
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

// New returns a notification service.
func New(notifications repository.NotificationRepository, logger *slog.Logger) Service {
	return Service{notifications: notifications, logger: logger}
}

// List returns the actor's inbox newest first.
func (s Service) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.notifications.ListNotificationsByUser(ctx, userID)
}

// MarkRead flips one of the actor's own notifications. Other users'
// notifications are reported as missing.
func (s Service) MarkRead(ctx context.Context, userID, notificationID string) (*domain.Notification, error) {
	return s.notifications.MarkNotificationRead(ctx, notificationID, userID)
}

// MarkAllRead flips every unread notification in the actor's inbox.
func (s Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllNotificationsRead(ctx, userID)
}
