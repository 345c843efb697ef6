package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"monthend/internal/core"
	"monthend/internal/services"
)

type (
	periodDTO struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Deadline string `json:"deadline"`
	}

	progressDTO struct {
		Completed  int `json:"completed"`
		Total      int `json:"total"`
		Percentage int `json:"percentage"`
	}

	deadlineDTO struct {
		Date         string `json:"date"`
		PastDeadline bool   `json:"past_deadline"`
		Complete     bool   `json:"complete"`
	}

	subtaskDTO struct {
		ID             int64  `json:"id"`
		Name           string `json:"name"`
		Recurring      bool   `json:"recurring"`
		Completed      bool   `json:"completed"`
		CompletionDate string `json:"completion_date,omitempty"`
		Amount         string `json:"amount"`
	}

	taskDTO struct {
		ID             int64        `json:"id"`
		Name           string       `json:"name"`
		Recurring      bool         `json:"recurring"`
		HasSubtasks    bool         `json:"has_subtasks"`
		Completed      bool         `json:"completed"`
		CompletionDate string       `json:"completion_date,omitempty"`
		Subtasks       []subtaskDTO `json:"subtasks,omitempty"`
	}

	checklistDTO struct {
		CategoryID int64       `json:"category_id"`
		Title      string      `json:"title"`
		Icon       string      `json:"icon"`
		Progress   progressDTO `json:"progress"`
		Tasks      []taskDTO   `json:"tasks"`
	}

	dashboardDTO struct {
		State         string         `json:"state"`
		Periods       []periodDTO    `json:"periods"`
		ActivePeriod  *periodDTO     `json:"active_period,omitempty"`
		Checklists    []checklistDTO `json:"checklists"`
		Overall       progressDTO    `json:"overall"`
		Deadline      *deadlineDTO   `json:"deadline,omitempty"`
		ShowCompleted bool           `json:"show_completed"`
		SearchTerm    string         `json:"search_term"`
	}

	errorDTO struct {
		Error string `json:"error"`
	}

	readyDTO struct {
		Status         string `json:"status"`
		RequestsServed int64  `json:"requests_served"`
	}
)

const dateLayout = "2006-01-02"

func toDashboardDTO(view services.DashboardView) dashboardDTO {
	dto := dashboardDTO{
		State:         string(view.State),
		ShowCompleted: view.ShowCompleted,
		SearchTerm:    view.SearchTerm,
	}
	if view.State != services.StateReady {
		return dto
	}

	for _, p := range view.Periods {
		dto.Periods = append(dto.Periods, toPeriodDTO(p))
	}
	active := toPeriodDTO(view.ActivePeriod)
	dto.ActivePeriod = &active
	dto.Overall = toProgressDTO(view.Overall)
	dto.Deadline = &deadlineDTO{
		Date:         view.Deadline.Deadline.Format(dateLayout),
		PastDeadline: view.Deadline.PastDeadline,
		Complete:     view.Deadline.Complete,
	}

	for _, cv := range view.Checklists {
		cl := checklistDTO{
			CategoryID: cv.Checklist.Category.ID,
			Title:      cv.Checklist.Category.Title,
			Icon:       cv.Checklist.Category.Icon,
			Progress:   toProgressDTO(cv.Progress),
			Tasks:      []taskDTO{},
		}
		for _, t := range cv.Checklist.Tasks {
			cl.Tasks = append(cl.Tasks, toTaskDTO(t))
		}
		dto.Checklists = append(dto.Checklists, cl)
	}
	return dto
}

func toPeriodDTO(p core.Period) periodDTO {
	return periodDTO{ID: p.ID, Name: p.Name, Deadline: p.Deadline.Format(dateLayout)}
}

func toProgressDTO(p core.Progress) progressDTO {
	return progressDTO{Completed: p.Completed, Total: p.Total, Percentage: p.Percentage}
}

func toTaskDTO(t core.Task) taskDTO {
	dto := taskDTO{
		ID:             t.ID,
		Name:           t.Name,
		Recurring:      t.Recurring,
		HasSubtasks:    t.HasSubtasks,
		Completed:      t.Completed,
		CompletionDate: formatCompletion(t.CompletionDate),
	}
	for _, s := range t.Subtasks {
		dto.Subtasks = append(dto.Subtasks, subtaskDTO{
			ID:             s.ID,
			Name:           s.Name,
			Recurring:      s.Recurring,
			Completed:      s.Completed,
			CompletionDate: formatCompletion(s.CompletionDate),
			Amount:         s.Amount,
		})
	}
	return dto
}

func formatCompletion(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.Format(dateLayout)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorDTO{Error: msg})
}

// writeDomainError maps domain errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTaskNotFound),
		errors.Is(err, core.ErrSubtaskNotFound),
		errors.Is(err, core.ErrCategoryNotFound),
		errors.Is(err, core.ErrPeriodNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrInvalidScope),
		errors.Is(err, core.ErrInvalidMonthName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrDuplicatePeriod):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
