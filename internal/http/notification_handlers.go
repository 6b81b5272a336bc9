package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

func notificationView(n *domain.Notification) map[string]any {
	return map[string]any{
		"id":        n.ID,
		"type":      n.Type,
		"message":   n.Message,
		"meta":      json.RawMessage(n.Metadata),
		"read":      n.Read,
		"createdAt": n.CreatedAt,
	}
}

func (r *Router) handleNotifications(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	notifications, err := r.notification.List(req.Context(), info.UserID)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}
	views := make([]map[string]any, 0, len(notifications))
	for i := range notifications {
		views = append(views, notificationView(&notifications[i]))
	}
	writeJSON(w, http.StatusOK, views)
}

func (r *Router) handleNotificationSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/notifications/")
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	if trimmed == "read-all" {
		if err := r.notification.MarkAllRead(req.Context(), info.UserID); err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "all read"})
		return
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 2 && parts[1] == "read" && parts[0] != "" {
		n, err := r.notification.MarkRead(req.Context(), info.UserID, parts[0])
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, notificationView(n))
		return
	}
	r.notFound(w)
}
