package core

import (
	"strings"
	"time"
)

type (
	// Subtask is one vendor line of a task as presented for a single
	// period: subtask instance state joined with its template.
	Subtask struct {
		ID             int64
		TemplateID     int64
		Name           string
		Recurring      bool
		Completed      bool
		CompletionDate *time.Time
		Amount         string
	}

	// Task is one task as presented for a single period: instance state
	// joined with its template.
	Task struct {
		ID             int64
		TemplateID     int64
		Name           string
		Recurring      bool
		HasSubtasks    bool
		Completed      bool
		CompletionDate *time.Time
		Subtasks       []Subtask
	}

	// Checklist groups one period's tasks under a category. Grouping always
	// follows the template's category, never a field stored on the
	// instance.
	Checklist struct {
		Category Category
		Tasks    []Task
	}
)

// FilterChecklists returns a view of the checklists with completed tasks
// hidden (unless showCompleted) and tasks not matching the search term
// removed. Matching is a case-insensitive substring test on the task name.
// Category and subtask slices are shared; task slices are rebuilt so the
// input is never mutated.
func FilterChecklists(checklists []Checklist, showCompleted bool, search string) []Checklist {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]Checklist, len(checklists))
	for i, cl := range checklists {
		filtered := make([]Task, 0, len(cl.Tasks))
		for _, t := range cl.Tasks {
			if !showCompleted && t.Completed {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(t.Name), search) {
				continue
			}
			filtered = append(filtered, t)
		}
		out[i] = Checklist{Category: cl.Category, Tasks: filtered}
	}
	return out
}
