package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ScopeCurrent removes only the active period's instance; the template
	// keeps producing instances on later rollovers.
	ScopeCurrent DeletionScope = "current"
	// ScopeFuture removes the active period's instance and clears the
	// template's recurring flag so no further instances are created.
	ScopeFuture DeletionScope = "future"
	// ScopeAll removes the active period's instance and the template itself.
	ScopeAll DeletionScope = "all"
)

// DefaultTaskName replaces a task name that is empty after trimming.
const DefaultTaskName = "New Task"

type (
	// DeletionScope selects how much of a task a delete removes. The scope
	// choice is only meaningful for recurring tasks; non-recurring tasks
	// always take ScopeAll.
	DeletionScope string

	// Category is a static grouping for tasks. Categories are seeded via
	// migrations and never created by the checklist core.
	Category struct {
		ID         int64
		Title      string
		Icon       string
		OrderIndex int
	}

	// TaskTemplate is the reusable definition of a task, independent of any
	// period. Instances reference it by ID; renaming or toggling recurring
	// mutates the template, never the historical instances.
	TaskTemplate struct {
		ID          int64
		Name        string
		CategoryID  int64
		Recurring   bool
		HasSubtasks bool
	}

	// SubtaskTemplate is a recurring vendor line item under one task
	// template.
	SubtaskTemplate struct {
		ID             int64
		Name           string
		TaskTemplateID int64
		Recurring      bool
	}

	// Period is one tracked calendar month, e.g. "April 2025". Names are
	// unique; chronological order comes from the parsed MonthKey, not from
	// string comparison. Exported is set once the period's report has been
	// written out and guards against duplicate report rows.
	Period struct {
		ID       int64
		Name     string
		Deadline time.Time
		Exported bool
	}

	// TaskInstance is one period's occurrence of a task template.
	// CompletionDate is non-nil exactly when Completed is true.
	TaskInstance struct {
		ID             int64
		PeriodID       int64
		TaskTemplateID int64
		Completed      bool
		CompletionDate *time.Time
	}

	// SubtaskInstance is one period's occurrence of a vendor line. Amount is
	// a free-form grouped-digit string tied to the instance so each period
	// can record a different amount for the same recurring vendor.
	SubtaskInstance struct {
		ID                int64
		TaskInstanceID    int64
		SubtaskTemplateID int64
		Completed         bool
		CompletionDate    *time.Time
		Amount            string
	}
)

var (
	ErrInvalidMonthName = errors.New("invalid month name")
	ErrDuplicatePeriod  = errors.New("period already exists")
	ErrNoPeriods        = errors.New("no periods available")
	ErrPeriodNotFound   = errors.New("period not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrInvalidScope     = errors.New("invalid deletion scope")
)

func (s DeletionScope) Validate() error {
	switch s {
	case ScopeCurrent, ScopeFuture, ScopeAll:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidScope, string(s))
	}
}

// NormalizeTaskName trims the name and substitutes DefaultTaskName when
// nothing is left. Empty names are substituted, not rejected.
func NormalizeTaskName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultTaskName
	}
	return name
}

// PartialInstantiationError reports a rollover that failed partway through.
// Instances created before the failure are left in place; there is no
// automatic rollback, recovery is an operator concern.
type PartialInstantiationError struct {
	PeriodID     int64
	TasksCreated int
	TasksTotal   int
	Err          error
}

func (e *PartialInstantiationError) Error() string {
	return fmt.Sprintf("instantiation of period %d failed after %d/%d tasks: %v",
		e.PeriodID, e.TasksCreated, e.TasksTotal, e.Err)
}

func (e *PartialInstantiationError) Unwrap() error { return e.Err }

// CompletionTimestamp returns the pointer stored on an instance when its
// completed flag flips: now when completing, nil when reopening.
func CompletionTimestamp(completed bool, now time.Time) *time.Time {
	if !completed {
		return nil
	}
	return &now
}
