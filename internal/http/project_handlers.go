package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sami2905/nexflow-backend/internal/domain"
)

func memberView(m domain.Member) map[string]any {
	return map[string]any{
		"user":    m.UserID,
		"role":    m.Role,
		"addedAt": m.CreatedAt,
	}
}

func inviteView(inv domain.Invite) map[string]any {
	return map[string]any{
		"email":     inv.Email,
		"invitedBy": inv.InvitedBy,
		"invitedAt": inv.InvitedAt,
	}
}

func projectView(p *domain.Project) map[string]any {
	members := make([]map[string]any, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, memberView(m))
	}
	invites := make([]map[string]any, 0, len(p.Invites))
	for _, inv := range p.Invites {
		invites = append(invites, inviteView(inv))
	}
	return map[string]any{
		"id":             p.ID,
		"name":           p.Name,
		"description":    p.Description,
		"archived":       p.Archived,
		"createdBy":      p.CreatedBy,
		"members":        members,
		"pendingInvites": invites,
		"createdAt":      p.CreatedAt,
	}
}

func (r *Router) handleProjects(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		projects, err := r.project.List(req.Context(), info.principal())
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		views := make([]map[string]any, 0, len(projects))
		for i := range projects {
			views = append(views, projectView(&projects[i]))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p, err := r.project.Create(req.Context(), info.principal(), payload.Name, payload.Description)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, projectView(p))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/projects/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	projectID := parts[0]
	switch {
	case len(parts) == 1:
		r.handleProjectByID(w, req, projectID)
	case len(parts) == 2 && parts[1] == "invite":
		r.handleProjectInvite(w, req, projectID)
	case len(parts) == 2 && parts[1] == "accept-invite":
		r.handleInviteAccept(w, req, projectID)
	case len(parts) == 2 && parts[1] == "decline-invite":
		r.handleInviteDecline(w, req, projectID)
	case len(parts) == 2 && parts[1] == "cancel-invite":
		r.handleInviteCancel(w, req, projectID)
	case len(parts) == 2 && parts[1] == "remove-member":
		r.handleRemoveMember(w, req, projectID)
	case len(parts) == 2 && parts[1] == "archive":
		r.handleArchive(w, req, projectID)
	case len(parts) == 2 && parts[1] == "transfer-ownership":
		r.handleTransferOwnership(w, req, projectID)
	case len(parts) == 2 && parts[1] == "activity":
		r.handleProjectActivity(w, req, projectID)
	case len(parts) == 4 && parts[1] == "members" && parts[3] == "role":
		r.handleMemberRole(w, req, projectID, parts[2])
	default:
		r.notFound(w)
	}
}

func (r *Router) handleProjectByID(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		p, err := r.project.Get(req.Context(), info.principal(), projectID)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, projectView(p))
	case http.MethodPut:
		var payload struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		p, err := r.project.Update(req.Context(), info.principal(), projectID, payload.Name, payload.Description)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, projectView(p))
	case http.MethodDelete:
		if err := r.project.Delete(req.Context(), info.principal(), projectID); err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleProjectInvite(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	var payload struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.project.Invite(req.Context(), info.principal(), projectID, payload.Email, payload.Role)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleInviteAccept(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	p, err := r.project.AcceptInvite(req.Context(), info.principal(), projectID, info.Email)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleInviteDecline(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	if err := r.project.DeclineInvite(req.Context(), info.principal(), projectID, info.Email); err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (r *Router) handleInviteCancel(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.project.CancelInvite(req.Context(), info.principal(), projectID, payload.Email)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleRemoveMember(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.project.RemoveMember(req.Context(), info.principal(), projectID, payload.UserID)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleArchive(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	var payload struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.project.SetArchived(req.Context(), info.principal(), projectID, payload.Archived)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleTransferOwnership(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	var payload struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.project.TransferOwnership(req.Context(), info.principal(), projectID, payload.UserID)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleMemberRole(w http.ResponseWriter, req *http.Request, projectID, userID string) {
	if req.Method != http.MethodPut {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	var payload struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := r.project.ChangeRole(req.Context(), info.principal(), projectID, userID, payload.Role)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, projectView(p))
}

func (r *Router) handleProjectActivity(w http.ResponseWriter, req *http.Request, projectID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		entries, err := r.activity.Feed(req.Context(), info.principal(), projectID, limit)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, activityViews(entries))
	case http.MethodPost:
		var payload struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		entry, err := r.activity.Append(req.Context(), info.principal(), projectID, payload.Type, payload.Message)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, activityView(entry))
	default:
		r.methodNotAllowed(w)
	}
}

// requirePost enforces POST and a present auth context.
func (r *Router) requirePost(w http.ResponseWriter, req *http.Request) (authInfo, bool) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return authInfo{}, false
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return authInfo{}, false
	}
	return info, true
}
