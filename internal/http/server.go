// Package http exposes the dashboard as a JSON API. Every mutation intent
// returns the refreshed dashboard view so clients stay in step with the
// server's mirror.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"monthend/internal/core"
	"monthend/internal/middleware/trace"
	"monthend/internal/services"
)

// DashboardController is the intent surface the API forwards to.
// *services.Dashboard satisfies it.
type DashboardController interface {
	Snapshot() services.DashboardView
	ToggleTask(ctx context.Context, taskID int64) error
	ToggleSubtask(ctx context.Context, subtaskID int64) error
	ToggleRecurring(ctx context.Context, taskID int64) error
	RenameTask(ctx context.Context, taskID int64, name string) error
	UpdateSubtaskAmount(ctx context.Context, subtaskID int64, raw string) error
	AddTask(ctx context.Context, categoryID int64, name string, recurring bool) error
	AddSubtask(ctx context.Context, taskID int64, name string) error
	DeleteTask(ctx context.Context, taskID int64, scope core.DeletionScope) error
	DeleteSubtask(ctx context.Context, subtaskID int64) error
	SelectPeriod(ctx context.Context, periodID int64) error
	CreateNextPeriod(ctx context.Context) error
	ToggleShowCompleted()
	SetSearchTerm(term string)
}

type Server struct {
	http.Server
	dashboard    DashboardController
	rateLimiter  *rateLimiter
	trace        *trace.Middleware
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server.
func NewServer(addr string, dashboard DashboardController) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		dashboard:   dashboard,
		rateLimiter: newRateLimiter(),
		trace:       trace.NewMiddleware(clientIP),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("POST /api/periods/next", s.handleCreateNextPeriod)
	mux.HandleFunc("POST /api/periods/{id}/select", s.handleSelectPeriod)

	mux.HandleFunc("POST /api/categories/{id}/tasks", s.handleAddTask)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	mux.HandleFunc("POST /api/tasks/{id}/recurring", s.handleToggleRecurring)
	mux.HandleFunc("POST /api/tasks/{id}/rename", s.handleRenameTask)
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", s.handleAddSubtask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)

	mux.HandleFunc("POST /api/subtasks/{id}/toggle", s.handleToggleSubtask)
	mux.HandleFunc("POST /api/subtasks/{id}/amount", s.handleSubtaskAmount)
	mux.HandleFunc("DELETE /api/subtasks/{id}", s.handleDeleteSubtask)

	mux.HandleFunc("POST /api/view/show-completed", s.handleToggleShowCompleted)
	mux.HandleFunc("POST /api/view/search", s.handleSearch)

	s.Handler = s.trace.Middleware(s.withProtection(mux))

	return s
}

// withProtection applies security headers and rate limiting to mutations.
func (s *Server) withProtection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// Shutdown stops the server and its rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.dashboard.Snapshot().State != services.StateReady {
		writeError(w, http.StatusServiceUnavailable, "dashboard loading")
		return
	}
	writeJSON(w, http.StatusOK, readyDTO{
		Status:         "ready",
		RequestsServed: s.trace.TotalRequests(),
	})
}
