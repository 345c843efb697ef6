package core

import (
	"math"
	"time"
)

// Progress is a pooled completed/total count with a rounded percentage.
// Percentage is 0 when there is nothing to count.
type Progress struct {
	Completed  int
	Total      int
	Percentage int
}

// Aggregate pools a task list and all of its subtasks into one Progress.
// Subtasks count individually alongside their parent task.
func Aggregate(tasks []Task) Progress {
	var p Progress
	for _, t := range tasks {
		p.Total++
		if t.Completed {
			p.Completed++
		}
		for _, s := range t.Subtasks {
			p.Total++
			if s.Completed {
				p.Completed++
			}
		}
	}
	p.Percentage = percentage(p.Completed, p.Total)
	return p
}

// Overall pools counts across every category. It is a ratio of pooled
// counts, not an average of per-category percentages.
func Overall(checklists []Checklist) Progress {
	var p Progress
	for _, cl := range checklists {
		sub := Aggregate(cl.Tasks)
		p.Completed += sub.Completed
		p.Total += sub.Total
	}
	p.Percentage = percentage(p.Completed, p.Total)
	return p
}

func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// DeadlineStatus is the header state of the dashboard: the period's target
// date, whether it has passed, and whether every task and subtask is done.
type DeadlineStatus struct {
	Deadline     time.Time
	PastDeadline bool
	Complete     bool
}

// NewDeadlineStatus derives the status at a given instant. An empty period
// counts as complete, matching the vacuous all-done check of the dashboard.
func NewDeadlineStatus(deadline, now time.Time, checklists []Checklist) DeadlineStatus {
	overall := Overall(checklists)
	return DeadlineStatus{
		Deadline:     deadline,
		PastDeadline: now.After(deadline),
		Complete:     overall.Completed == overall.Total,
	}
}
