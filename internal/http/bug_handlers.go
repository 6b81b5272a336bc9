package httpx

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/repository"
	"github.com/Sami2905/nexflow-backend/internal/service/bug"
)

func attachmentView(a domain.Attachment) map[string]any {
	return map[string]any{
		"id":         a.ID,
		"filename":   a.Filename,
		"url":        a.URL,
		"uploadedBy": a.UploadedBy,
		"uploadedAt": a.UploadedAt,
	}
}

func bugView(b *domain.Bug) map[string]any {
	attachments := make([]map[string]any, 0, len(b.Attachments))
	for _, a := range b.Attachments {
		attachments = append(attachments, attachmentView(a))
	}
	return map[string]any{
		"id":          b.ID,
		"project":     b.ProjectID,
		"title":       b.Title,
		"description": b.Description,
		"status":      b.Status,
		"priority":    b.Priority,
		"assignedTo":  b.AssignedTo,
		"createdBy":   b.CreatedBy,
		"tags":        b.Tags,
		"attachments": attachments,
		"createdAt":   b.CreatedAt,
		"updatedAt":   b.UpdatedAt,
	}
}

func commentView(c *domain.Comment) map[string]any {
	return map[string]any{
		"id":        c.ID,
		"bug":       c.BugID,
		"user":      c.AuthorID,
		"text":      c.Body,
		"createdAt": c.CreatedAt,
		"updatedAt": c.UpdatedAt,
	}
}

// bugFilterFromQuery translates list query parameters into a repository
// filter. The visible-project scope is applied by the service.
func bugFilterFromQuery(q map[string][]string) repository.BugFilter {
	get := func(key string) string {
		if vals := q[key]; len(vals) > 0 {
			return strings.TrimSpace(vals[0])
		}
		return ""
	}
	filter := repository.BugFilter{
		ProjectID: get("project"),
		Status:    get("status"),
		Priority:  get("priority"),
		Assignee:  get("assignee"),
		CreatedBy: get("createdBy"),
		Query:     get("q"),
		SortBy:    get("sortBy"),
		SortDesc:  strings.EqualFold(get("order"), "desc"),
	}
	if tags := get("tags"); tags != "" {
		for _, t := range strings.Split(tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tags = append(filter.Tags, t)
			}
		}
	}
	if from := get("from"); from != "" {
		if ts, err := parseDate(from); err == nil {
			filter.From = ts
		}
	}
	if to := get("to"); to != "" {
		if ts, err := parseDate(to); err == nil {
			filter.To = ts.Add(24*time.Hour - time.Nanosecond)
		}
	}
	filter.Limit, _ = strconv.Atoi(get("limit"))
	filter.Offset, _ = strconv.Atoi(get("offset"))
	return filter
}

func parseDate(value string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}

func (r *Router) handleBugs(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		filter := bugFilterFromQuery(req.URL.Query())
		bugs, total, err := r.bug.List(req.Context(), info.principal(), filter)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		views := make([]map[string]any, 0, len(bugs))
		for i := range bugs {
			views = append(views, bugView(&bugs[i]))
		}
		writeJSON(w, http.StatusOK, map[string]any{"bugs": views, "total": total})
	case http.MethodPost:
		var payload struct {
			Project     string   `json:"project"`
			Title       string   `json:"title"`
			Description string   `json:"description"`
			Status      string   `json:"status"`
			Priority    string   `json:"priority"`
			AssignedTo  string   `json:"assignedTo"`
			Tags        []string `json:"tags"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		b, err := r.bug.Create(req.Context(), info.principal(), bug.CreateInput{
			ProjectID:   payload.Project,
			Title:       payload.Title,
			Description: payload.Description,
			Status:      payload.Status,
			Priority:    payload.Priority,
			AssignedTo:  payload.AssignedTo,
			Tags:        payload.Tags,
		})
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, bugView(b))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBugStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	stats, err := r.bug.Stats(req.Context(), info.principal())
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (r *Router) handleProjectBugStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	counts, err := r.bug.ProjectStats(req.Context(), info.principal())
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (r *Router) handleBugSubroutes(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimPrefix(req.URL.Path, "/bugs/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 1 || parts[0] == "" {
		r.notFound(w)
		return
	}
	bugID := parts[0]
	switch {
	case len(parts) == 1:
		r.handleBugByID(w, req, bugID)
	case len(parts) == 2 && parts[1] == "comments":
		r.handleBugComments(w, req, bugID)
	case len(parts) == 3 && parts[1] == "comments":
		r.handleBugComment(w, req, bugID, parts[2])
	case len(parts) == 2 && parts[1] == "attachments":
		r.handleBugAttachments(w, req, bugID)
	default:
		r.notFound(w)
	}
}

func (r *Router) handleBugByID(w http.ResponseWriter, req *http.Request, bugID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		b, err := r.bug.Get(req.Context(), info.principal(), bugID)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, bugView(b))
	case http.MethodPut:
		var payload struct {
			Title       *string   `json:"title"`
			Description *string   `json:"description"`
			Status      *string   `json:"status"`
			Priority    *string   `json:"priority"`
			AssignedTo  *string   `json:"assignedTo"`
			Tags        *[]string `json:"tags"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		b, err := r.bug.Update(req.Context(), info.principal(), bugID, bug.UpdateInput{
			Title:       payload.Title,
			Description: payload.Description,
			Status:      payload.Status,
			Priority:    payload.Priority,
			AssignedTo:  payload.AssignedTo,
			Tags:        payload.Tags,
		})
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, bugView(b))
	case http.MethodDelete:
		if err := r.bug.Delete(req.Context(), info.principal(), bugID); err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBugComments(w http.ResponseWriter, req *http.Request, bugID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodGet:
		comments, err := r.bug.ListComments(req.Context(), info.principal(), bugID)
		if err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		views := make([]map[string]any, 0, len(comments))
		for i := range comments {
			views = append(views, commentView(&comments[i]))
		}
		writeJSON(w, http.StatusOK, views)
	case http.MethodPost:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		c, err := r.bug.AddComment(req.Context(), info.principal(), bugID, payload.Text)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusCreated, commentView(c))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBugComment(w http.ResponseWriter, req *http.Request, bugID, commentID string) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	switch req.Method {
	case http.MethodPut:
		var payload struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		c, err := r.bug.UpdateComment(req.Context(), info.principal(), bugID, commentID, payload.Text)
		if err != nil {
			writeDomainError(w, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, commentView(c))
	case http.MethodDelete:
		if err := r.bug.DeleteComment(req.Context(), info.principal(), bugID, commentID); err != nil {
			writeDomainError(w, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleBugAttachments(w http.ResponseWriter, req *http.Request, bugID string) {
	info, ok := r.requirePost(w, req)
	if !ok {
		return
	}
	var payload struct {
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	a, err := r.bug.AddAttachment(req.Context(), info.principal(), bugID, payload.Filename, payload.URL)
	if err != nil {
		writeDomainError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, attachmentView(*a))
}
