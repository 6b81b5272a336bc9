package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

func activityView(a *domain.Activity) map[string]any {
	return map[string]any{
		"id":        a.ID,
		"project":   a.ProjectID,
		"user":      a.UserID,
		"type":      a.Type,
		"message":   a.Message,
		"meta":      json.RawMessage(a.Metadata),
		"createdAt": a.CreatedAt,
	}
}

func activityViews(entries []domain.Activity) []map[string]any {
	views := make([]map[string]any, 0, len(entries))
	for i := range entries {
		views = append(views, activityView(&entries[i]))
	}
	return views
}

func (r *Router) handleActivityTrends(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	points, err := r.activity.Trends(req.Context(), info.principal())
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (r *Router) handleTopContributors(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	contributors, err := r.activity.TopContributors(req.Context(), info.principal())
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, contributors)
}
