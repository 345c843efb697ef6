// Package worker exports completed periods to a spreadsheet. It consumes
// export messages from AMQP and periodically sweeps the database for
// complete periods whose message was lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"monthend/internal/amqp"
	"monthend/internal/core"
	"monthend/internal/sheets"
	"monthend/internal/storage"
)

// Store is the persistence surface the worker needs.
type Store interface {
	GetPeriod(ctx context.Context, id int64) (core.Period, error)
	PeriodHasIncomplete(ctx context.Context, periodID int64) (bool, error)
	ListCompleteUnexportedPeriods(ctx context.Context, limit int) ([]core.Period, error)
	MarkPeriodExported(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]core.Category, error)
	ListTasksForPeriod(ctx context.Context, periodID int64) ([]storage.TaskWithTemplate, error)
	ListSubtasksForTask(ctx context.Context, taskInstanceID int64) ([]storage.SubtaskWithTemplate, error)
}

// Consumer delivers export messages until its context is cancelled.
// *amqp.Client satisfies it.
type Consumer interface {
	ConsumePeriodExport(ctx context.Context, handler func(*amqp.PeriodExportMessage) error) error
}

type ExportWorker struct {
	store         Store
	writer        sheets.ReportWriter
	batchSize     int
	sweepInterval time.Duration
}

func NewExportWorker(store Store, writer sheets.ReportWriter, batchSize int, sweepInterval time.Duration) *ExportWorker {
	return &ExportWorker{
		store:         store,
		writer:        writer,
		batchSize:     batchSize,
		sweepInterval: sweepInterval,
	}
}

// Run consumes export messages and sweeps for missed periods until the
// context is cancelled.
func (w *ExportWorker) Run(ctx context.Context, consumer Consumer) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumePeriodExport(ctx, func(msg *amqp.PeriodExportMessage) error {
			return w.HandleExportMessage(ctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.ProcessPendingPeriods(ctx); err != nil {
					slog.ErrorContext(ctx, "Pending period sweep failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}

// HandleExportMessage processes a single period export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.PeriodExportMessage) error {
	slog.InfoContext(ctx, "Processing export message",
		"period_id", msg.PeriodID,
		"month_name", msg.MonthName)

	period, err := w.store.GetPeriod(ctx, msg.PeriodID)
	if err != nil {
		return fmt.Errorf("get period from storage: %w", err)
	}

	// Redelivery or a reopen-and-recomplete would append the report twice.
	if period.Exported {
		slog.InfoContext(ctx, "Period already exported, skipping",
			"period_id", period.ID,
			"month_name", period.Name)
		return nil
	}

	// The period may have been reopened between publish and delivery.
	incomplete, err := w.store.PeriodHasIncomplete(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("check period completeness: %w", err)
	}
	if incomplete {
		slog.WarnContext(ctx, "Period no longer complete, skipping export",
			"period_id", period.ID,
			"month_name", period.Name)
		return nil
	}

	return w.exportPeriod(ctx, period)
}

// ProcessPendingPeriods exports any complete periods that were never
// exported. This is a backup mechanism in case AMQP messages are lost.
func (w *ExportWorker) ProcessPendingPeriods(ctx context.Context) error {
	pending, err := w.store.ListCompleteUnexportedPeriods(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending periods: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending periods", "count", len(pending))

	for _, period := range pending {
		if err := w.exportPeriod(ctx, period); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending period",
				"period_id", period.ID,
				"month_name", period.Name,
				"error", err)
			continue
		}
	}
	return nil
}

// StartupCheck exports the backlog once at worker startup, with a larger
// batch. Useful to recover from missed messages or worker downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.store.ListCompleteUnexportedPeriods(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending periods for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending periods found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending periods on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, period := range pending {
		if err := w.exportPeriod(ctx, period); err != nil {
			slog.ErrorContext(ctx, "Failed to export period during startup",
				"period_id", period.ID,
				"error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportPeriod(ctx context.Context, period core.Period) error {
	checklists, err := w.loadChecklists(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("load checklists: %w", err)
	}

	report := core.BuildReport(period, checklists)
	ref, err := w.writer.WriteReport(ctx, report)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if err := w.store.MarkPeriodExported(ctx, period.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark period as exported",
			"period_id", period.ID, "error", err)
		// The report row already exists; a retry without the mark duplicates it.
		return fmt.Errorf("mark exported: %w", err)
	}

	slog.InfoContext(ctx, "Exported period report",
		"period_id", period.ID,
		"month_name", period.Name,
		"rows", len(report.Rows),
		"sheets_ref", ref)

	return nil
}

func (w *ExportWorker) loadChecklists(ctx context.Context, periodID int64) ([]core.Checklist, error) {
	categories, err := w.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	tasks, err := w.store.ListTasksForPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	byCategory := make(map[int64][]core.Task, len(categories))
	for _, tw := range tasks {
		subtasks, err := w.store.ListSubtasksForTask(ctx, tw.Instance.ID)
		if err != nil {
			return nil, fmt.Errorf("list subtasks for task %d: %w", tw.Instance.ID, err)
		}
		task := core.Task{
			ID:             tw.Instance.ID,
			TemplateID:     tw.Template.ID,
			Name:           tw.Template.Name,
			Recurring:      tw.Template.Recurring,
			HasSubtasks:    tw.Template.HasSubtasks,
			Completed:      tw.Instance.Completed,
			CompletionDate: tw.Instance.CompletionDate,
		}
		for _, sw := range subtasks {
			task.Subtasks = append(task.Subtasks, core.Subtask{
				ID:             sw.Instance.ID,
				TemplateID:     sw.Template.ID,
				Name:           sw.Template.Name,
				Recurring:      sw.Template.Recurring,
				Completed:      sw.Instance.Completed,
				CompletionDate: sw.Instance.CompletionDate,
				Amount:         sw.Instance.Amount,
			})
		}
		byCategory[tw.Template.CategoryID] = append(byCategory[tw.Template.CategoryID], task)
	}

	checklists := make([]core.Checklist, len(categories))
	for i, cat := range categories {
		checklists[i] = core.Checklist{Category: cat, Tasks: byCategory[cat.ID]}
	}
	return checklists, nil
}
