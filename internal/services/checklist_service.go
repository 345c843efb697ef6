package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"monthend/internal/core"
)

// DashboardState tracks whether the dashboard mirror has been loaded.
type DashboardState string

const (
	StateLoading DashboardState = "loading"
	StateReady   DashboardState = "ready"
)

// ChecklistView pairs a category's checklist with its progress.
type ChecklistView struct {
	Checklist core.Checklist
	Progress  core.Progress
}

// DashboardView is an immutable snapshot handed to transports. Checklists
// are filtered by the view toggles; progress always covers the unfiltered
// period so hiding completed tasks never changes the numbers.
type DashboardView struct {
	State         DashboardState
	Periods       []core.Period
	ActivePeriod  core.Period
	Checklists    []ChecklistView
	Overall       core.Progress
	Deadline      core.DeadlineStatus
	ShowCompleted bool
	SearchTerm    string
}

// Dashboard is the single-user checklist controller. It keeps an in-memory
// mirror of the active period and serialises every intent behind one mutex:
// each mutation persists first, then updates the mirror, so the mirror
// never shows state the database did not accept.
type Dashboard struct {
	store     Store
	periods   *PeriodService
	publisher ExportPublisher
	now       func() time.Time
	coll      *collate.Collator

	mu            sync.Mutex
	state         DashboardState
	allPeriods    []core.Period
	active        core.Period
	checklists    []core.Checklist
	showCompleted bool
	searchTerm    string
}

func NewDashboard(store Store, periods *PeriodService, publisher ExportPublisher) *Dashboard {
	return &Dashboard{
		store:         store,
		periods:       periods,
		publisher:     publisher,
		now:           time.Now,
		coll:          collate.New(language.English, collate.IgnoreCase),
		state:         StateLoading,
		showCompleted: true,
	}
}

// Load bootstraps the dashboard: it creates the initial period when the
// database is empty, picks the active period, and builds the mirror. On
// failure the dashboard stays in StateLoading and every intent is rejected
// until a later Load succeeds.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.periods.EnsureInitialPeriod(ctx, d.now()); err != nil {
		return fmt.Errorf("ensure initial period: %w", err)
	}

	periods, err := d.periods.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("load periods: %w", err)
	}

	active, err := d.periods.SelectActivePeriod(ctx, periods)
	if err != nil {
		return fmt.Errorf("select active period: %w", err)
	}

	checklists, err := d.loadChecklists(ctx, active.ID)
	if err != nil {
		return fmt.Errorf("load checklists: %w", err)
	}

	d.allPeriods = periods
	d.active = active
	d.checklists = checklists
	d.state = StateReady

	slog.InfoContext(ctx, "Dashboard loaded",
		"periods", len(periods),
		"active_period", active.Name)

	return nil
}

// loadChecklists builds the per-category view of one period from storage.
// Instances whose template was deleted never come back from the store, so
// orphans simply disappear from the checklist.
func (d *Dashboard) loadChecklists(ctx context.Context, periodID int64) ([]core.Checklist, error) {
	categories, err := d.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	tasks, err := d.store.ListTasksForPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	byCategory := make(map[int64][]core.Task, len(categories))
	for _, tw := range tasks {
		subtasks, err := d.store.ListSubtasksForTask(ctx, tw.Instance.ID)
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
		tasks := byCategory[cat.ID]
		d.sortTasks(tasks)
		checklists[i] = core.Checklist{Category: cat, Tasks: tasks}
	}
	return checklists, nil
}

func (d *Dashboard) sortTasks(tasks []core.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return d.coll.CompareString(tasks[i].Name, tasks[j].Name) < 0
	})
}

// Snapshot returns the current view. Safe to call in any state; a loading
// dashboard yields an empty view with State set accordingly.
func (d *Dashboard) Snapshot() DashboardView {
	d.mu.Lock()
	defer d.mu.Unlock()

	view := DashboardView{
		State:         d.state,
		ShowCompleted: d.showCompleted,
		SearchTerm:    d.searchTerm,
	}
	if d.state != StateReady {
		return view
	}

	view.Periods = append([]core.Period(nil), d.allPeriods...)
	view.ActivePeriod = d.active
	view.Overall = core.Overall(d.checklists)
	view.Deadline = core.NewDeadlineStatus(d.active.Deadline, d.now(), d.checklists)

	filtered := core.FilterChecklists(d.checklists, d.showCompleted, d.searchTerm)
	view.Checklists = make([]ChecklistView, len(filtered))
	for i, cl := range filtered {
		// Progress comes from the unfiltered checklist in the same slot.
		view.Checklists[i] = ChecklistView{
			Checklist: cl,
			Progress:  core.Aggregate(d.checklists[i].Tasks),
		}
	}
	return view
}

func (d *Dashboard) ready() error {
	if d.state != StateReady {
		return fmt.Errorf("dashboard not loaded")
	}
	return nil
}

// ToggleTask flips a task's completion state.
func (d *Dashboard) ToggleTask(ctx context.Context, taskID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	task := d.findTask(taskID)
	if task == nil {
		return fmt.Errorf("task %d: %w", taskID, core.ErrTaskNotFound)
	}

	completed := !task.Completed
	ts := core.CompletionTimestamp(completed, d.now())
	if err := d.store.SetTaskCompletion(ctx, taskID, completed, ts); err != nil {
		return fmt.Errorf("toggle task %d: %w", taskID, err)
	}
	task.Completed = completed
	task.CompletionDate = ts

	if completed {
		d.publishIfComplete(ctx)
	}
	return nil
}

// ToggleSubtask flips a vendor line's completion state.
func (d *Dashboard) ToggleSubtask(ctx context.Context, subtaskID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	_, sub := d.findSubtask(subtaskID)
	if sub == nil {
		return fmt.Errorf("subtask %d: %w", subtaskID, core.ErrSubtaskNotFound)
	}

	completed := !sub.Completed
	ts := core.CompletionTimestamp(completed, d.now())
	if err := d.store.SetSubtaskCompletion(ctx, subtaskID, completed, ts); err != nil {
		return fmt.Errorf("toggle subtask %d: %w", subtaskID, err)
	}
	sub.Completed = completed
	sub.CompletionDate = ts

	if completed {
		d.publishIfComplete(ctx)
	}
	return nil
}

// ToggleRecurring flips the template flag behind a task; existing instances
// in other periods are untouched.
func (d *Dashboard) ToggleRecurring(ctx context.Context, taskID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	task := d.findTask(taskID)
	if task == nil {
		return fmt.Errorf("task %d: %w", taskID, core.ErrTaskNotFound)
	}

	recurring := !task.Recurring
	if err := d.store.SetTaskTemplateRecurring(ctx, task.TemplateID, recurring); err != nil {
		return fmt.Errorf("toggle recurring for task %d: %w", taskID, err)
	}
	task.Recurring = recurring
	return nil
}

// RenameTask renames the template behind a task. The name is visible in
// every period that references the template. An empty name falls back to
// the default.
func (d *Dashboard) RenameTask(ctx context.Context, taskID int64, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	ci, ti := d.locateTask(taskID)
	if ci < 0 {
		return fmt.Errorf("task %d: %w", taskID, core.ErrTaskNotFound)
	}

	name = core.NormalizeTaskName(name)
	task := &d.checklists[ci].Tasks[ti]
	if err := d.store.RenameTaskTemplate(ctx, task.TemplateID, name); err != nil {
		return fmt.Errorf("rename task %d: %w", taskID, err)
	}
	task.Name = name
	d.sortTasks(d.checklists[ci].Tasks)
	return nil
}

// UpdateSubtaskAmount stores a vendor line amount, normalised to grouped
// digits.
func (d *Dashboard) UpdateSubtaskAmount(ctx context.Context, subtaskID int64, raw string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	_, sub := d.findSubtask(subtaskID)
	if sub == nil {
		return fmt.Errorf("subtask %d: %w", subtaskID, core.ErrSubtaskNotFound)
	}

	amount := core.FormatAmount(raw)
	if err := d.store.SetSubtaskAmount(ctx, subtaskID, amount); err != nil {
		return fmt.Errorf("update subtask %d amount: %w", subtaskID, err)
	}
	sub.Amount = amount
	return nil
}

// AddTask creates a template in the category and an instance of it in the
// active period. The recurring flag decides whether the task rolls over
// into later periods.
func (d *Dashboard) AddTask(ctx context.Context, categoryID int64, name string, recurring bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	ci := -1
	for i := range d.checklists {
		if d.checklists[i].Category.ID == categoryID {
			ci = i
			break
		}
	}
	if ci < 0 {
		return fmt.Errorf("category %d: %w", categoryID, core.ErrCategoryNotFound)
	}

	tmpl, err := d.store.CreateTaskTemplate(ctx, core.TaskTemplate{
		Name:       core.NormalizeTaskName(name),
		CategoryID: categoryID,
		Recurring:  recurring,
	})
	if err != nil {
		return fmt.Errorf("create task template: %w", err)
	}

	instance, err := d.store.CreateTaskInstance(ctx, d.active.ID, tmpl.ID)
	if err != nil {
		return fmt.Errorf("create task instance: %w", err)
	}

	d.checklists[ci].Tasks = append(d.checklists[ci].Tasks, core.Task{
		ID:         instance.ID,
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		Recurring:  tmpl.Recurring,
	})
	d.sortTasks(d.checklists[ci].Tasks)
	return nil
}

// AddSubtask creates a recurring vendor line under a task and promotes the
// task's template to has_subtasks.
func (d *Dashboard) AddSubtask(ctx context.Context, taskID int64, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	task := d.findTask(taskID)
	if task == nil {
		return fmt.Errorf("task %d: %w", taskID, core.ErrTaskNotFound)
	}

	tmpl, err := d.store.CreateSubtaskTemplate(ctx, core.SubtaskTemplate{
		Name:           core.NormalizeTaskName(name),
		TaskTemplateID: task.TemplateID,
		Recurring:      true,
	})
	if err != nil {
		return fmt.Errorf("create subtask template: %w", err)
	}

	if !task.HasSubtasks {
		if err := d.store.SetTaskTemplateHasSubtasks(ctx, task.TemplateID, true); err != nil {
			return fmt.Errorf("promote task %d: %w", taskID, err)
		}
		task.HasSubtasks = true
	}

	instance, err := d.store.CreateSubtaskInstance(ctx, taskID, tmpl.ID)
	if err != nil {
		return fmt.Errorf("create subtask instance: %w", err)
	}

	task.Subtasks = append(task.Subtasks, core.Subtask{
		ID:         instance.ID,
		TemplateID: tmpl.ID,
		Name:       tmpl.Name,
		Recurring:  tmpl.Recurring,
	})
	return nil
}

// DeleteSubtask removes a vendor line and its template, so it stops rolling
// over. Instances in past periods keep their rows but drop out of loaded
// checklists once the template is gone. Removing the last line demotes the
// task's has_subtasks flag.
func (d *Dashboard) DeleteSubtask(ctx context.Context, subtaskID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	task, sub := d.findSubtask(subtaskID)
	if sub == nil {
		return fmt.Errorf("subtask %d: %w", subtaskID, core.ErrSubtaskNotFound)
	}

	if err := d.store.DeleteSubtaskTemplate(ctx, sub.TemplateID); err != nil {
		return fmt.Errorf("delete subtask template: %w", err)
	}
	if err := d.store.DeleteSubtaskInstance(ctx, subtaskID); err != nil {
		return fmt.Errorf("delete subtask instance: %w", err)
	}

	kept := task.Subtasks[:0]
	for _, s := range task.Subtasks {
		if s.ID != subtaskID {
			kept = append(kept, s)
		}
	}
	task.Subtasks = kept

	if len(task.Subtasks) == 0 && task.HasSubtasks {
		if err := d.store.SetTaskTemplateHasSubtasks(ctx, task.TemplateID, false); err != nil {
			slog.ErrorContext(ctx, "Failed to demote task template",
				"task_id", task.ID, "error", err)
		} else {
			task.HasSubtasks = false
		}
	}
	return nil
}

// DeleteTask removes a task with the requested scope: the current instance
// only, the instance plus future rollovers, or the instance plus its
// template. Non-recurring tasks always take the widest scope since there is
// nothing to roll over.
func (d *Dashboard) DeleteTask(ctx context.Context, taskID int64, scope core.DeletionScope) error {
	if err := scope.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	ci, ti := d.locateTask(taskID)
	if ci < 0 {
		return fmt.Errorf("task %d: %w", taskID, core.ErrTaskNotFound)
	}
	task := d.checklists[ci].Tasks[ti]

	if !task.Recurring {
		scope = core.ScopeAll
	}

	if err := d.store.DeleteTaskInstance(ctx, taskID); err != nil {
		return fmt.Errorf("delete task instance: %w", err)
	}
	switch scope {
	case core.ScopeFuture:
		if err := d.store.SetTaskTemplateRecurring(ctx, task.TemplateID, false); err != nil {
			return fmt.Errorf("stop task %d recurrence: %w", taskID, err)
		}
	case core.ScopeAll:
		if err := d.store.DeleteTaskTemplate(ctx, task.TemplateID); err != nil {
			return fmt.Errorf("delete task template: %w", err)
		}
	}

	tasks := d.checklists[ci].Tasks
	d.checklists[ci].Tasks = append(tasks[:ti], tasks[ti+1:]...)

	slog.InfoContext(ctx, "Task deleted",
		"task_id", taskID,
		"scope", string(scope))
	return nil
}

// SelectPeriod switches the dashboard to another period.
func (d *Dashboard) SelectPeriod(ctx context.Context, periodID int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	period, err := d.store.GetPeriod(ctx, periodID)
	if err != nil {
		return fmt.Errorf("select period: %w", err)
	}
	checklists, err := d.loadChecklists(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("load checklists: %w", err)
	}

	d.active = period
	d.checklists = checklists
	return nil
}

// CreateNextPeriod rolls over to the month after the active period and
// switches to it. Rolling over from an older period whose successor already
// exists fails with ErrDuplicatePeriod and leaves the dashboard where it
// was. A partial instantiation still switches; the error is returned so the
// caller can surface the shortfall.
func (d *Dashboard) CreateNextPeriod(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ready(); err != nil {
		return err
	}

	period, createErr := d.periods.CreateNextPeriod(ctx, d.active)
	if createErr != nil {
		var partial *core.PartialInstantiationError
		if !errors.As(createErr, &partial) {
			return createErr
		}
	}

	periods, err := d.periods.ListPeriods(ctx)
	if err != nil {
		return fmt.Errorf("reload periods: %w", err)
	}
	checklists, err := d.loadChecklists(ctx, period.ID)
	if err != nil {
		return fmt.Errorf("load checklists: %w", err)
	}

	d.allPeriods = periods
	d.active = period
	d.checklists = checklists
	return createErr
}

// ToggleShowCompleted flips the completed-tasks filter. View state only.
func (d *Dashboard) ToggleShowCompleted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showCompleted = !d.showCompleted
}

// SetSearchTerm sets the task name filter. View state only.
func (d *Dashboard) SetSearchTerm(term string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.searchTerm = term
}

// publishIfComplete announces the active period for export once every task
// and vendor line is done. Publish failures are logged, never surfaced: the
// export worker sweeps unexported complete periods as a fallback.
func (d *Dashboard) publishIfComplete(ctx context.Context) {
	overall := core.Overall(d.checklists)
	if overall.Total == 0 || overall.Completed != overall.Total {
		return
	}
	if d.publisher == nil {
		slog.WarnContext(ctx, "Export publisher not available, skipping export message",
			"period_id", d.active.ID)
		return
	}
	if err := d.publisher.PublishPeriodExport(ctx, d.active.ID, d.active.Name); err != nil {
		slog.ErrorContext(ctx, "Failed to publish period export",
			"period_id", d.active.ID,
			"error", err)
	}
}

// findTask returns a pointer into the mirror, valid only under the mutex.
func (d *Dashboard) findTask(taskID int64) *core.Task {
	ci, ti := d.locateTask(taskID)
	if ci < 0 {
		return nil
	}
	return &d.checklists[ci].Tasks[ti]
}

func (d *Dashboard) locateTask(taskID int64) (int, int) {
	for ci := range d.checklists {
		for ti := range d.checklists[ci].Tasks {
			if d.checklists[ci].Tasks[ti].ID == taskID {
				return ci, ti
			}
		}
	}
	return -1, -1
}

func (d *Dashboard) findSubtask(subtaskID int64) (*core.Task, *core.Subtask) {
	for ci := range d.checklists {
		for ti := range d.checklists[ci].Tasks {
			task := &d.checklists[ci].Tasks[ti]
			for si := range task.Subtasks {
				if task.Subtasks[si].ID == subtaskID {
					return task, &task.Subtasks[si]
				}
			}
		}
	}
	return nil, nil
}
