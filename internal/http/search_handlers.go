package httpx

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

func savedSearchView(s *domain.SavedSearch) map[string]any {
	return map[string]any{
		"id":         s.ID,
		"name":       s.Name,
		"searchTerm": s.SearchTerm,
		"filters":    s.Filters,
		"isDefault":  s.IsDefault,
		"createdAt":  s.CreatedAt,
	}
}

func (r *Router) handleSavedSearches(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		searches, err := r.search.List(req.Context(), info.UserID)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		views := make([]map[string]any, 0, len(searches))
		for i := range searches {
			views = append(views, savedSearchView(&searches[i]))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			Name       string               `json:"name"`
			SearchTerm string               `json:"searchTerm"`
			Filters    domain.SearchFilters `json:"filters"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		s, err := r.search.Create(req.Context(), info.UserID, payload.Name, payload.SearchTerm, payload.Filters)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, savedSearchView(s))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleSavedSearchSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/saved-searches/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	searchID := parts[0]
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	if len(parts) == 2 && parts[1] == "default" {
		if req.Method != http.MethodPost {
			r.methodNotAllowed(w)
			return
		}
		s, err := r.search.SetDefault(req.Context(), info.UserID, searchID)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, savedSearchView(s))
		return
	}
	if len(parts) != 1 {
		r.notFound(w)
		return
	}
	switch req.Method {
	case http.MethodPut:
		var payload struct {
			Name       string               `json:"name"`
			SearchTerm string               `json:"searchTerm"`
			Filters    domain.SearchFilters `json:"filters"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		s, err := r.search.Update(req.Context(), info.UserID, searchID, payload.Name, payload.SearchTerm, payload.Filters)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, savedSearchView(s))
	case http.MethodDelete:
		if err := r.search.Delete(req.Context(), info.UserID, searchID); err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}
