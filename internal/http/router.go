package httpx

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sami2905/nexflow-backend/internal/service/activity"
	"github.com/Sami2905/nexflow-backend/internal/service/auth"
	"github.com/Sami2905/nexflow-backend/internal/service/bug"
	"github.com/Sami2905/nexflow-backend/internal/service/notification"
	"github.com/Sami2905/nexflow-backend/internal/service/project"
	"github.com/Sami2905/nexflow-backend/internal/service/search"
	"github.com/Sami2905/nexflow-backend/internal/ws"
)

// Router wires HTTP endpoints to services.
type Router struct {
	mux          *http.ServeMux
	logger       *slog.Logger
	auth         auth.Service
	project      project.Service
	bug          bug.Service
	activity     activity.Service
	notification notification.Service
	search       search.Service
	hub          *ws.Hub
	upgrader     websocket.Upgrader
	limiter      RateLimiter
	dbHealth     func(context.Context) error

	metricsOnce        sync.Once
	metricsInitialized bool
	requestTotal       *prometheus.CounterVec
	requestLatency     *prometheus.HistogramVec
	rateLimitHits      *prometheus.CounterVec
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitRegister  = 5
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitWebsocket = 30
	healthCheckTimeout = 2 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(logger *slog.Logger, authSvc auth.Service, projectSvc project.Service, bugSvc bug.Service, activitySvc activity.Service, notificationSvc notification.Service, searchSvc search.Service, hub *ws.Hub, limiter RateLimiter, dbHealth func(context.Context) error) *Router {
	r := &Router{
		mux:          http.NewServeMux(),
		logger:       logger,
		auth:         authSvc,
		project:      projectSvc,
		bug:          bugSvc,
		activity:     activitySvc,
		notification: notificationSvc,
		search:       searchSvc,
		hub:          hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiter:  limiter,
		dbHealth: dbHealth,
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.initMetrics()
	r.register()
	return r
}

// ServeHTTP delegates to underlying mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	r.mux.HandleFunc("/healthz", r.audit("/healthz", r.handleHealthz))
	r.mux.Handle("/metrics", promhttp.Handler())

	r.mux.HandleFunc("/auth/register", r.audit("/auth/register", r.withRateLimit("/auth/register", rateLimitRegister, rateWindowDefault, rateLimitKeyIP, r.handleRegister)))
	r.mux.HandleFunc("/auth/login", r.audit("/auth/login", r.withRateLimit("/auth/login", rateLimitLogin, rateWindowDefault, rateLimitKeyIP, r.handleLogin)))
	r.mux.HandleFunc("/auth/me", r.audit("/auth/me", r.handlerAuthRate("/auth/me", rateLimitUserRead, rateWindowDefault, r.handleMe)))
	r.mux.HandleFunc("/auth/settings", r.audit("/auth/settings", r.handlerAuthRate("/auth/settings", rateLimitUserWrite, rateWindowDefault, r.handleSettings)))
	r.mux.HandleFunc("/auth/change-password", r.audit("/auth/change-password", r.handlerAuthRate("/auth/change-password", rateLimitUserWrite, rateWindowDefault, r.handleChangePassword)))
	r.mux.HandleFunc("/auth/delete-account", r.audit("/auth/delete-account", r.handlerAuthRate("/auth/delete-account", rateLimitUserWrite, rateWindowDefault, r.handleDeleteAccount)))
	r.mux.HandleFunc("/users", r.audit("/users", r.handlerAuthRate("/users", rateLimitUserRead, rateWindowDefault, r.handleUsers)))

	r.mux.HandleFunc("/projects", r.audit("/projects", r.handlerAuthRate("/projects", rateLimitUserWrite, rateWindowDefault, r.handleProjects)))
	r.mux.HandleFunc("/projects/", r.audit("/projects/", r.handlerAuthRate("/projects/", rateLimitUserWrite, rateWindowDefault, r.handleProjectSubroutes)))

	r.mux.HandleFunc("/bugs", r.audit("/bugs", r.handlerAuthRate("/bugs", rateLimitUserWrite, rateWindowDefault, r.handleBugs)))
	r.mux.HandleFunc("/bugs/stats", r.audit("/bugs/stats", r.handlerAuthRate("/bugs/stats", rateLimitUserRead, rateWindowDefault, r.handleBugStats)))
	r.mux.HandleFunc("/bugs/project-stats", r.audit("/bugs/project-stats", r.handlerAuthRate("/bugs/project-stats", rateLimitUserRead, rateWindowDefault, r.handleProjectBugStats)))
	r.mux.HandleFunc("/bugs/", r.audit("/bugs/", r.handlerAuthRate("/bugs/", rateLimitUserWrite, rateWindowDefault, r.handleBugSubroutes)))

	r.mux.HandleFunc("/activity/trends", r.audit("/activity/trends", r.handlerAuthRate("/activity/trends", rateLimitUserRead, rateWindowDefault, r.handleActivityTrends)))
	r.mux.HandleFunc("/activity/top-contributors", r.audit("/activity/top-contributors", r.handlerAuthRate("/activity/top-contributors", rateLimitUserRead, rateWindowDefault, r.handleTopContributors)))

	r.mux.HandleFunc("/notifications", r.audit("/notifications", r.handlerAuthRate("/notifications", rateLimitUserRead, rateWindowDefault, r.handleNotifications)))
	r.mux.HandleFunc("/notifications/", r.audit("/notifications/", r.handlerAuthRate("/notifications/", rateLimitUserWrite, rateWindowDefault, r.handleNotificationSubroutes)))

	r.mux.HandleFunc("/saved-searches", r.audit("/saved-searches", r.handlerAuthRate("/saved-searches", rateLimitUserWrite, rateWindowDefault, r.handleSavedSearches)))
	r.mux.HandleFunc("/saved-searches/", r.audit("/saved-searches/", r.handlerAuthRate("/saved-searches/", rateLimitUserWrite, rateWindowDefault, r.handleSavedSearchSubroutes)))

	r.mux.HandleFunc("/ws", r.audit("/ws", r.handlerAuthRate("/ws", rateLimitWebsocket, rateWindowRealtime, r.handleWS)))
	r.mux.HandleFunc("/events", r.audit("/events", r.handlerAuthRate("/events", rateLimitWebsocket, rateWindowRealtime, r.handleSSE)))
}

func (r *Router) handleHealthz(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	components := make(map[string]any)
	status := "ok"
	if r.dbHealth != nil {
		ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
		defer cancel()
		if err := r.dbHealth(ctx); err != nil {
			status = "degraded"
			components["database"] = map[string]any{
				"status": "down",
				"error":  err.Error(),
			}
		} else {
			components["database"] = map[string]any{"status": "up"}
		}
	}
	payload := map[string]any{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
	}
	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, payload)
}

func (r *Router) audit(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next(recorder, req)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		ctx := recorder.ctx
		if ctx == nil {
			ctx = req.Context()
		}
		duration := time.Since(start)
		r.recordRequestMetrics(req.Method, route, status, duration)

		actor := "anonymous"
		fields := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration_ms", duration.Milliseconds(),
		}
		if ip := clientIP(req); ip != "" {
			fields = append(fields, "ip", ip)
		}
		if reqID := strings.TrimSpace(req.Header.Get("X-Request-ID")); reqID != "" {
			fields = append(fields, "request_id", reqID)
		}
		if info, ok := authInfoFromContext(ctx); ok {
			actor = "user"
			fields = append(fields, "user_id", info.UserID)
		}
		fields = append(fields, "actor", actor)

		switch {
		case status >= http.StatusInternalServerError:
			r.logger.Error("http_request", fields...)
		case status >= http.StatusBadRequest:
			r.logger.Warn("http_request", fields...)
		default:
			r.logger.Info("http_request", fields...)
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	ctx    context.Context
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

func (sr *statusRecorder) SetContext(ctx context.Context) {
	sr.ctx = ctx
}

func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := sr.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (sr *statusRecorder) Push(target string, opts *http.PushOptions) error {
	if p, ok := sr.ResponseWriter.(http.Pusher); ok {
		return p.Push(target, opts)
	}
	return http.ErrNotSupported
}

func clientIP(req *http.Request) string {
	if forwarded := strings.TrimSpace(req.Header.Get("X-Forwarded-For")); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(req.RemoteAddr))
	if err != nil {
		return strings.TrimSpace(req.RemoteAddr)
	}
	return host
}

func (r *Router) applyRateHeaders(w http.ResponseWriter, limit int, decision rateDecision) {
	if limit <= 0 {
		return
	}
	remaining := limit - decision.count
	if remaining < 0 {
		remaining = 0
	}
	headers := w.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if !decision.windowEnd.IsZero() {
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.windowEnd.Unix(), 10))
	}
}

func (r *Router) methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func (r *Router) notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "not found")
}
