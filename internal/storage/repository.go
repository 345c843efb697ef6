// Package storage persists the checklist model in SQLite. It exposes plain
// CRUD-style calls (equality-filtered reads, inserts returning generated
// ids, updates and deletes by id); the only join is the template lookup
// embedded alongside instance reads.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"monthend/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Foreign keys are off by default in SQLite; the scoped-deletion
	// semantics rely on the CASCADE / SET NULL actions in the schema.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, icon, order_index FROM categories ORDER BY order_index, id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Title, &c.Icon, &c.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// --- periods ---

func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, month_name, deadline_date, exported FROM periods`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		var p core.Period
		if err := rows.Scan(&p.ID, &p.Name, &p.Deadline, &p.Exported); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return periods, nil
}

func (r *SQLiteRepository) GetPeriod(ctx context.Context, id int64) (core.Period, error) {
	var p core.Period
	err := r.db.QueryRowContext(ctx,
		`SELECT id, month_name, deadline_date, exported FROM periods WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Deadline, &p.Exported)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Period{}, fmt.Errorf("period %d: %w", id, core.ErrPeriodNotFound)
	}
	if err != nil {
		return core.Period{}, fmt.Errorf("get period: %w", err)
	}
	return p, nil
}

// FindPeriodByName returns nil without error when no period carries the
// given name.
func (r *SQLiteRepository) FindPeriodByName(ctx context.Context, name string) (*core.Period, error) {
	var p core.Period
	err := r.db.QueryRowContext(ctx,
		`SELECT id, month_name, deadline_date, exported FROM periods WHERE month_name = ?`, name).
		Scan(&p.ID, &p.Name, &p.Deadline, &p.Exported)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find period by name: %w", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) CreatePeriod(ctx context.Context, name string, deadline time.Time) (core.Period, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO periods (month_name, deadline_date) VALUES (?, ?)`, name, deadline)
	if err != nil {
		return core.Period{}, fmt.Errorf("create period: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Period{}, fmt.Errorf("period insert id: %w", err)
	}

	slog.InfoContext(ctx, "Period created",
		"id", id,
		"month_name", name,
		"deadline", deadline.Format("2006-01-02"))

	return core.Period{ID: id, Name: name, Deadline: deadline}, nil
}

// PeriodHasIncomplete reports whether the period still has any open task or
// vendor line. Orphaned instances whose template was deleted are ignored,
// matching what the dashboard shows.
func (r *SQLiteRepository) PeriodHasIncomplete(ctx context.Context, periodID int64) (bool, error) {
	var incomplete bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM task_instances
			WHERE period_id = ? AND completed = 0 AND task_template_id IS NOT NULL
		) OR EXISTS(
			SELECT 1 FROM subtask_instances si
			JOIN task_instances ti ON ti.id = si.task_instance_id
			WHERE ti.period_id = ? AND si.completed = 0
			  AND si.subtask_template_id IS NOT NULL
			  AND ti.task_template_id IS NOT NULL
		)`, periodID, periodID).Scan(&incomplete)
	if err != nil {
		return false, fmt.Errorf("check period completeness: %w", err)
	}
	return incomplete, nil
}

// ListCompleteUnexportedPeriods returns fully completed periods whose report
// has not been exported yet, oldest first.
func (r *SQLiteRepository) ListCompleteUnexportedPeriods(ctx context.Context, limit int) ([]core.Period, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, month_name, deadline_date FROM periods p
		WHERE p.exported = 0
		  AND NOT EXISTS(
			SELECT 1 FROM task_instances
			WHERE period_id = p.id AND completed = 0 AND task_template_id IS NOT NULL
		  )
		  AND NOT EXISTS(
			SELECT 1 FROM subtask_instances si
			JOIN task_instances ti ON ti.id = si.task_instance_id
			WHERE ti.period_id = p.id AND si.completed = 0
			  AND si.subtask_template_id IS NOT NULL
			  AND ti.task_template_id IS NOT NULL
		  )
		ORDER BY p.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported periods: %w", err)
	}
	defer rows.Close()

	var periods []core.Period
	for rows.Next() {
		var p core.Period
		if err := rows.Scan(&p.ID, &p.Name, &p.Deadline); err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		periods = append(periods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return periods, nil
}

func (r *SQLiteRepository) MarkPeriodExported(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE periods SET exported = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark period exported: %w", err)
	}
	slog.InfoContext(ctx, "Period marked as exported", "id", id)
	return nil
}

// --- task templates ---

func (r *SQLiteRepository) ListTaskTemplates(ctx context.Context, recurringOnly bool) ([]core.TaskTemplate, error) {
	query := `SELECT id, name, category_id, recurring, has_subtasks FROM task_templates`
	if recurringOnly {
		query += ` WHERE recurring = 1`
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list task templates: %w", err)
	}
	defer rows.Close()

	var templates []core.TaskTemplate
	for rows.Next() {
		var t core.TaskTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.CategoryID, &t.Recurring, &t.HasSubtasks); err != nil {
			return nil, fmt.Errorf("scan task template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task templates: %w", err)
	}
	return templates, nil
}

func (r *SQLiteRepository) CreateTaskTemplate(ctx context.Context, t core.TaskTemplate) (core.TaskTemplate, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO task_templates (name, category_id, recurring, has_subtasks) VALUES (?, ?, ?, ?)`,
		t.Name, t.CategoryID, t.Recurring, t.HasSubtasks)
	if err != nil {
		return core.TaskTemplate{}, fmt.Errorf("create task template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.TaskTemplate{}, fmt.Errorf("task template insert id: %w", err)
	}
	t.ID = id

	slog.InfoContext(ctx, "Task template created",
		"id", t.ID,
		"name", t.Name,
		"category_id", t.CategoryID,
		"recurring", t.Recurring)

	return t, nil
}

func (r *SQLiteRepository) RenameTaskTemplate(ctx context.Context, id int64, name string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE task_templates SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("rename task template: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetTaskTemplateRecurring(ctx context.Context, id int64, recurring bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE task_templates SET recurring = ? WHERE id = ?`, recurring, id); err != nil {
		return fmt.Errorf("set task template recurring: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetTaskTemplateHasSubtasks(ctx context.Context, id int64, hasSubtasks bool) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE task_templates SET has_subtasks = ? WHERE id = ?`, hasSubtasks, id); err != nil {
		return fmt.Errorf("set task template has_subtasks: %w", err)
	}
	return nil
}

// DeleteTaskTemplate removes the template and, through the schema's
// cascades, its subtask templates. Instance references become NULL.
func (r *SQLiteRepository) DeleteTaskTemplate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM task_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task template: %w", err)
	}
	slog.InfoContext(ctx, "Task template deleted", "id", id)
	return nil
}

// --- subtask templates ---

func (r *SQLiteRepository) ListSubtaskTemplates(ctx context.Context, taskTemplateID int64, recurringOnly bool) ([]core.SubtaskTemplate, error) {
	query := `SELECT id, name, task_template_id, recurring FROM subtask_templates WHERE task_template_id = ?`
	if recurringOnly {
		query += ` AND recurring = 1`
	}
	rows, err := r.db.QueryContext(ctx, query, taskTemplateID)
	if err != nil {
		return nil, fmt.Errorf("list subtask templates: %w", err)
	}
	defer rows.Close()

	var templates []core.SubtaskTemplate
	for rows.Next() {
		var st core.SubtaskTemplate
		if err := rows.Scan(&st.ID, &st.Name, &st.TaskTemplateID, &st.Recurring); err != nil {
			return nil, fmt.Errorf("scan subtask template: %w", err)
		}
		templates = append(templates, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtask templates: %w", err)
	}
	return templates, nil
}

func (r *SQLiteRepository) CreateSubtaskTemplate(ctx context.Context, st core.SubtaskTemplate) (core.SubtaskTemplate, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subtask_templates (name, task_template_id, recurring) VALUES (?, ?, ?)`,
		st.Name, st.TaskTemplateID, st.Recurring)
	if err != nil {
		return core.SubtaskTemplate{}, fmt.Errorf("create subtask template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SubtaskTemplate{}, fmt.Errorf("subtask template insert id: %w", err)
	}
	st.ID = id

	slog.InfoContext(ctx, "Subtask template created",
		"id", st.ID,
		"name", st.Name,
		"task_template_id", st.TaskTemplateID)

	return st, nil
}

func (r *SQLiteRepository) DeleteSubtaskTemplate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM subtask_templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subtask template: %w", err)
	}
	return nil
}

// --- task instances ---

// TaskWithTemplate pairs an instance with the template it was created from.
type TaskWithTemplate struct {
	Instance core.TaskInstance
	Template core.TaskTemplate
}

// SubtaskWithTemplate pairs a subtask instance with its template.
type SubtaskWithTemplate struct {
	Instance core.SubtaskInstance
	Template core.SubtaskTemplate
}

func (r *SQLiteRepository) CreateTaskInstance(ctx context.Context, periodID, templateID int64) (core.TaskInstance, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO task_instances (period_id, task_template_id, completed, completion_date)
		 VALUES (?, ?, 0, NULL)`, periodID, templateID)
	if err != nil {
		return core.TaskInstance{}, fmt.Errorf("create task instance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.TaskInstance{}, fmt.Errorf("task instance insert id: %w", err)
	}
	return core.TaskInstance{ID: id, PeriodID: periodID, TaskTemplateID: templateID}, nil
}

// CreateSubtaskInstances batch-inserts one empty subtask instance per
// template under the given task instance.
func (r *SQLiteRepository) CreateSubtaskInstances(ctx context.Context, taskInstanceID int64, templateIDs []int64) error {
	if len(templateIDs) == 0 {
		return nil
	}
	placeholders := make([]string, len(templateIDs))
	args := make([]any, 0, len(templateIDs)*2)
	for i, tid := range templateIDs {
		placeholders[i] = "(?, ?, 0, NULL, '')"
		args = append(args, taskInstanceID, tid)
	}
	query := `INSERT INTO subtask_instances (task_instance_id, subtask_template_id, completed, completion_date, amount) VALUES ` +
		strings.Join(placeholders, ", ")
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create subtask instances: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateSubtaskInstance(ctx context.Context, taskInstanceID, templateID int64) (core.SubtaskInstance, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO subtask_instances (task_instance_id, subtask_template_id, completed, completion_date, amount)
		 VALUES (?, ?, 0, NULL, '')`, taskInstanceID, templateID)
	if err != nil {
		return core.SubtaskInstance{}, fmt.Errorf("create subtask instance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.SubtaskInstance{}, fmt.Errorf("subtask instance insert id: %w", err)
	}
	return core.SubtaskInstance{ID: id, TaskInstanceID: taskInstanceID, SubtaskTemplateID: templateID}, nil
}

// ListTasksForPeriod reads the period's instances joined with their
// templates. Instances whose template was deleted are skipped by the inner
// join, matching the dashboard's orphan handling.
func (r *SQLiteRepository) ListTasksForPeriod(ctx context.Context, periodID int64) ([]TaskWithTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ti.id, ti.period_id, ti.completed, ti.completion_date,
		       tt.id, tt.name, tt.category_id, tt.recurring, tt.has_subtasks
		FROM task_instances ti
		JOIN task_templates tt ON tt.id = ti.task_template_id
		WHERE ti.period_id = ?
		ORDER BY ti.id`, periodID)
	if err != nil {
		return nil, fmt.Errorf("list tasks for period: %w", err)
	}
	defer rows.Close()

	var tasks []TaskWithTemplate
	for rows.Next() {
		var t TaskWithTemplate
		var completedAt sql.NullTime
		if err := rows.Scan(
			&t.Instance.ID, &t.Instance.PeriodID, &t.Instance.Completed, &completedAt,
			&t.Template.ID, &t.Template.Name, &t.Template.CategoryID,
			&t.Template.Recurring, &t.Template.HasSubtasks); err != nil {
			return nil, fmt.Errorf("scan task instance: %w", err)
		}
		t.Instance.TaskTemplateID = t.Template.ID
		if completedAt.Valid {
			ts := completedAt.Time
			t.Instance.CompletionDate = &ts
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task instances: %w", err)
	}
	return tasks, nil
}

func (r *SQLiteRepository) ListSubtasksForTask(ctx context.Context, taskInstanceID int64) ([]SubtaskWithTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT si.id, si.task_instance_id, si.completed, si.completion_date, si.amount,
		       st.id, st.name, st.task_template_id, st.recurring
		FROM subtask_instances si
		JOIN subtask_templates st ON st.id = si.subtask_template_id
		WHERE si.task_instance_id = ?
		ORDER BY si.id`, taskInstanceID)
	if err != nil {
		return nil, fmt.Errorf("list subtasks for task: %w", err)
	}
	defer rows.Close()

	var subtasks []SubtaskWithTemplate
	for rows.Next() {
		var s SubtaskWithTemplate
		var completedAt sql.NullTime
		if err := rows.Scan(
			&s.Instance.ID, &s.Instance.TaskInstanceID, &s.Instance.Completed,
			&completedAt, &s.Instance.Amount,
			&s.Template.ID, &s.Template.Name, &s.Template.TaskTemplateID,
			&s.Template.Recurring); err != nil {
			return nil, fmt.Errorf("scan subtask instance: %w", err)
		}
		s.Instance.SubtaskTemplateID = s.Template.ID
		if completedAt.Valid {
			ts := completedAt.Time
			s.Instance.CompletionDate = &ts
		}
		subtasks = append(subtasks, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subtask instances: %w", err)
	}
	return subtasks, nil
}

func (r *SQLiteRepository) SetTaskCompletion(ctx context.Context, id int64, completed bool, completionDate *time.Time) error {
	var ts any
	if completionDate != nil {
		ts = *completionDate
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE task_instances SET completed = ?, completion_date = ? WHERE id = ?`,
		completed, ts, id); err != nil {
		return fmt.Errorf("set task completion: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetSubtaskCompletion(ctx context.Context, id int64, completed bool, completionDate *time.Time) error {
	var ts any
	if completionDate != nil {
		ts = *completionDate
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE subtask_instances SET completed = ?, completion_date = ? WHERE id = ?`,
		completed, ts, id); err != nil {
		return fmt.Errorf("set subtask completion: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetSubtaskAmount(ctx context.Context, id int64, amount string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE subtask_instances SET amount = ? WHERE id = ?`, amount, id); err != nil {
		return fmt.Errorf("set subtask amount: %w", err)
	}
	return nil
}

// DeleteTaskInstance removes the instance; its subtask instances go with it
// through the schema's cascade, so deletions never leave orphaned vendor
// lines.
func (r *SQLiteRepository) DeleteTaskInstance(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM task_instances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task instance: %w", err)
	}
	slog.InfoContext(ctx, "Task instance deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) DeleteSubtaskInstance(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM subtask_instances WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subtask instance: %w", err)
	}
	return nil
}
