package services

import (
	"context"
	"time"

	"monthend/internal/core"
	"monthend/internal/storage"
)

// Store is the persistence surface the services need. *storage.SQLiteRepository
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	ListCategories(ctx context.Context) ([]core.Category, error)

	ListPeriods(ctx context.Context) ([]core.Period, error)
	GetPeriod(ctx context.Context, id int64) (core.Period, error)
	FindPeriodByName(ctx context.Context, name string) (*core.Period, error)
	CreatePeriod(ctx context.Context, name string, deadline time.Time) (core.Period, error)
	PeriodHasIncomplete(ctx context.Context, periodID int64) (bool, error)

	ListTaskTemplates(ctx context.Context, recurringOnly bool) ([]core.TaskTemplate, error)
	CreateTaskTemplate(ctx context.Context, t core.TaskTemplate) (core.TaskTemplate, error)
	RenameTaskTemplate(ctx context.Context, id int64, name string) error
	SetTaskTemplateRecurring(ctx context.Context, id int64, recurring bool) error
	SetTaskTemplateHasSubtasks(ctx context.Context, id int64, hasSubtasks bool) error
	DeleteTaskTemplate(ctx context.Context, id int64) error

	ListSubtaskTemplates(ctx context.Context, taskTemplateID int64, recurringOnly bool) ([]core.SubtaskTemplate, error)
	CreateSubtaskTemplate(ctx context.Context, st core.SubtaskTemplate) (core.SubtaskTemplate, error)
	DeleteSubtaskTemplate(ctx context.Context, id int64) error

	CreateTaskInstance(ctx context.Context, periodID, templateID int64) (core.TaskInstance, error)
	CreateSubtaskInstance(ctx context.Context, taskInstanceID, templateID int64) (core.SubtaskInstance, error)
	CreateSubtaskInstances(ctx context.Context, taskInstanceID int64, templateIDs []int64) error
	ListTasksForPeriod(ctx context.Context, periodID int64) ([]storage.TaskWithTemplate, error)
	ListSubtasksForTask(ctx context.Context, taskInstanceID int64) ([]storage.SubtaskWithTemplate, error)
	SetTaskCompletion(ctx context.Context, id int64, completed bool, completionDate *time.Time) error
	SetSubtaskCompletion(ctx context.Context, id int64, completed bool, completionDate *time.Time) error
	SetSubtaskAmount(ctx context.Context, id int64, amount string) error
	DeleteTaskInstance(ctx context.Context, id int64) error
	DeleteSubtaskInstance(ctx context.Context, id int64) error
}

// ExportPublisher announces periods whose checklist just became fully
// complete. A nil publisher is valid and means exports are disabled.
type ExportPublisher interface {
	PublishPeriodExport(ctx context.Context, periodID int64, monthName string) error
}
