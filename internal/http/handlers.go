package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"monthend/internal/core"
)

type nameRequest struct {
	Name string `json:"name"`
}

// addTaskRequest leaves recurring as a pointer so an omitted field defaults
// to a recurring task.
type addTaskRequest struct {
	Name      string `json:"name"`
	Recurring *bool  `json:"recurring"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type searchRequest struct {
	Term string `json:"term"`
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// decodeBody parses an optional JSON body; an empty body leaves v zeroed.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) respondView(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, toDashboardDTO(s.dashboard.Snapshot()))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.respondView(w)
}

func (s *Server) handleCreateNextPeriod(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.CreateNextPeriod(r.Context()); err != nil {
		var partial *core.PartialInstantiationError
		if errors.As(err, &partial) {
			// The period exists with a shortfall; return the view anyway.
			writeJSON(w, http.StatusOK, toDashboardDTO(s.dashboard.Snapshot()))
			return
		}
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleSelectPeriod(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid period id")
		return
	}
	if err := s.dashboard.SelectPeriod(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req addTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}
	recurring := true
	if req.Recurring != nil {
		recurring = *req.Recurring
	}
	if err := s.dashboard.AddTask(r.Context(), id, req.Name, recurring); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := s.dashboard.ToggleTask(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleToggleRecurring(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	if err := s.dashboard.ToggleRecurring(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleRenameTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dashboard.RenameTask(r.Context(), id, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	var req nameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dashboard.AddSubtask(r.Context(), id, req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	scope := core.DeletionScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = core.ScopeCurrent
	}
	if err := s.dashboard.DeleteTask(r.Context(), id, scope); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid subtask id")
		return
	}
	if err := s.dashboard.ToggleSubtask(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleSubtaskAmount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid subtask id")
		return
	}
	var req amountRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.dashboard.UpdateSubtaskAmount(r.Context(), id, req.Amount); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid subtask id")
		return
	}
	if err := s.dashboard.DeleteSubtask(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	s.respondView(w)
}

func (s *Server) handleToggleShowCompleted(w http.ResponseWriter, r *http.Request) {
	s.dashboard.ToggleShowCompleted()
	s.respondView(w)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.dashboard.SetSearchTerm(req.Term)
	s.respondView(w)
}
