package httpx

import (
	"net/http"
	"time"

	"github.com/Sami2905/nexflow-backend/internal/domain"
	"github.com/Sami2905/nexflow-backend/internal/ws"
)

const sseHeartbeatInterval = 30 * time.Second

// subscriptionTopics returns the topics an authenticated client may listen
// on: its own user channel plus every visible project channel.
func (r *Router) subscriptionTopics(req *http.Request, info authInfo) ([]string, error) {
	projects, err := r.project.List(req.Context(), info.principal())
	if err != nil {
		return nil, err
	}
	topics := make([]string, 0, len(projects)+1)
	topics = append(topics, domain.UserTopic(info.UserID))
	for i := range projects {
		topics = append(topics, domain.ProjectTopic(projects[i].ID))
	}
	return topics, nil
}

func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	topics, err := r.subscriptionTopics(req, info)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	r.hub.Subscribe(client, topics...)
	go func() {
		defer func() {
			r.hub.Unsubscribe(client, topics...)
			client.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// handleSSE streams the same topics over Server-Sent Events for clients
// that cannot hold a websocket open.
func (r *Router) handleSSE(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok {
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	topics, err := r.subscriptionTopics(req, info)
	if err != nil {
		writeDomainError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, r.logger)
	r.hub.Subscribe(client, topics...)
	defer func() {
		r.hub.Unsubscribe(client, topics...)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
