package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"monthend/internal/core"
)

func seedTemplates(t *testing.T, store *fakeStore) (recurring, oneOff core.TaskTemplate) {
	t.Helper()
	ctx := context.Background()

	store.categories = []core.Category{{ID: store.id(), Title: "Accounts Payable", Icon: "💸", OrderIndex: 1}}

	var err error
	recurring, err = store.CreateTaskTemplate(ctx, core.TaskTemplate{
		Name:       "Reconcile vendor statements",
		CategoryID: store.categories[0].ID,
		Recurring:  true,
	})
	if err != nil {
		t.Fatalf("create recurring template: %v", err)
	}
	oneOff, err = store.CreateTaskTemplate(ctx, core.TaskTemplate{
		Name:       "Migrate ledger export",
		CategoryID: store.categories[0].ID,
		Recurring:  false,
	})
	if err != nil {
		t.Fatalf("create one-off template: %v", err)
	}

	if _, err := store.CreateSubtaskTemplate(ctx, core.SubtaskTemplate{
		Name: "Acme Corp", TaskTemplateID: recurring.ID, Recurring: true,
	}); err != nil {
		t.Fatalf("create recurring subtask template: %v", err)
	}
	if _, err := store.CreateSubtaskTemplate(ctx, core.SubtaskTemplate{
		Name: "Initech", TaskTemplateID: recurring.ID, Recurring: false,
	}); err != nil {
		t.Fatalf("create one-off subtask template: %v", err)
	}
	return recurring, oneOff
}

func TestEnsureInitialPeriod(t *testing.T) {
	store := newFakeStore()
	seedTemplates(t, store)
	svc := NewPeriodService(store)
	ctx := context.Background()

	now := time.Date(2025, time.April, 15, 10, 0, 0, 0, time.UTC)
	period, err := svc.EnsureInitialPeriod(ctx, now)
	if err != nil {
		t.Fatalf("EnsureInitialPeriod: %v", err)
	}
	if period == nil {
		t.Fatal("expected a period to be created")
	}
	if period.Name != "April 2025" {
		t.Errorf("period name = %q, want %q", period.Name, "April 2025")
	}
	// 7th business day of April 2025 counting from the 1st.
	wantDeadline := time.Date(2025, time.April, 9, 0, 0, 0, 0, time.UTC)
	if !period.Deadline.Equal(wantDeadline) {
		t.Errorf("deadline = %v, want %v", period.Deadline, wantDeadline)
	}

	// Initial bootstrap takes every template, recurring or not.
	if got := len(store.taskInstances); got != 2 {
		t.Errorf("task instances = %d, want 2", got)
	}
	// Both subtask templates are instantiated, including the non-recurring one.
	if got := len(store.subtaskInstances); got != 2 {
		t.Errorf("subtask instances = %d, want 2", got)
	}

	// Second call is a no-op.
	again, err := svc.EnsureInitialPeriod(ctx, now)
	if err != nil {
		t.Fatalf("second EnsureInitialPeriod: %v", err)
	}
	if again != nil {
		t.Error("expected nil period when periods already exist")
	}
}

func TestCreateNextPeriodRecurringOnly(t *testing.T) {
	store := newFakeStore()
	seedTemplates(t, store)
	svc := NewPeriodService(store)
	ctx := context.Background()

	now := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)
	april, err := svc.EnsureInitialPeriod(ctx, now)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	initialTasks := len(store.taskInstances)
	initialSubtasks := len(store.subtaskInstances)

	period, err := svc.CreateNextPeriod(ctx, *april)
	if err != nil {
		t.Fatalf("CreateNextPeriod: %v", err)
	}
	if period.Name != "May 2025" {
		t.Errorf("period name = %q, want %q", period.Name, "May 2025")
	}

	// Rollover carries the recurring task only, with its recurring vendor
	// line only.
	if got := len(store.taskInstances) - initialTasks; got != 1 {
		t.Errorf("new task instances = %d, want 1", got)
	}
	if got := len(store.subtaskInstances) - initialSubtasks; got != 1 {
		t.Errorf("new subtask instances = %d, want 1", got)
	}
}

func TestCreateNextPeriodDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := NewPeriodService(store)
	ctx := context.Background()

	deadline := time.Date(2025, time.April, 9, 0, 0, 0, 0, time.UTC)
	april, err := store.CreatePeriod(ctx, "April 2025", deadline)
	if err != nil {
		t.Fatalf("seed period: %v", err)
	}
	if _, err := store.CreatePeriod(ctx, "May 2025", deadline); err != nil {
		t.Fatalf("seed period: %v", err)
	}

	// April's successor already exists; the rollover must surface the
	// duplicate instead of skipping to a later month.
	_, err = svc.CreateNextPeriod(ctx, april)
	if !errors.Is(err, core.ErrDuplicatePeriod) {
		t.Errorf("err = %v, want ErrDuplicatePeriod", err)
	}
}

func TestCreateNextPeriodYearRollover(t *testing.T) {
	store := newFakeStore()
	svc := NewPeriodService(store)
	ctx := context.Background()

	deadline := time.Date(2025, time.December, 9, 0, 0, 0, 0, time.UTC)
	december, err := store.CreatePeriod(ctx, "December 2025", deadline)
	if err != nil {
		t.Fatalf("seed period: %v", err)
	}

	period, err := svc.CreateNextPeriod(ctx, december)
	if err != nil {
		t.Fatalf("CreateNextPeriod: %v", err)
	}
	if period.Name != "January 2026" {
		t.Errorf("period name = %q, want %q", period.Name, "January 2026")
	}
}

func TestSelectActivePeriod(t *testing.T) {
	store := newFakeStore()
	svc := NewPeriodService(store)
	ctx := context.Background()

	deadline := time.Date(2025, time.April, 9, 0, 0, 0, 0, time.UTC)
	march, _ := store.CreatePeriod(ctx, "March 2025", deadline)
	april, _ := store.CreatePeriod(ctx, "April 2025", deadline)

	tmpl, err := store.CreateTaskTemplate(ctx, core.TaskTemplate{Name: "Close books", Recurring: true})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	marchTask, _ := store.CreateTaskInstance(ctx, march.ID, tmpl.ID)
	aprilTask, _ := store.CreateTaskInstance(ctx, april.ID, tmpl.ID)

	periods := []core.Period{march, april}

	// March has open work, so it wins even though April exists.
	active, err := svc.SelectActivePeriod(ctx, periods)
	if err != nil {
		t.Fatalf("SelectActivePeriod: %v", err)
	}
	if active.ID != march.ID {
		t.Errorf("active = %q, want %q", active.Name, march.Name)
	}

	// With everything complete the most recent period wins.
	now := time.Now()
	store.SetTaskCompletion(ctx, marchTask.ID, true, &now)
	store.SetTaskCompletion(ctx, aprilTask.ID, true, &now)

	active, err = svc.SelectActivePeriod(ctx, periods)
	if err != nil {
		t.Fatalf("SelectActivePeriod: %v", err)
	}
	if active.ID != april.ID {
		t.Errorf("active = %q, want %q", active.Name, april.Name)
	}
}

func TestSelectActivePeriodEmpty(t *testing.T) {
	svc := NewPeriodService(newFakeStore())
	_, err := svc.SelectActivePeriod(context.Background(), nil)
	if !errors.Is(err, core.ErrNoPeriods) {
		t.Errorf("err = %v, want ErrNoPeriods", err)
	}
}

func TestInstantiatePartialFailure(t *testing.T) {
	store := newFakeStore()
	good, bad := seedTemplates(t, store)
	_ = good
	store.failCreateInstanceFor[bad.ID] = true

	svc := NewPeriodService(store)
	ctx := context.Background()

	now := time.Date(2025, time.April, 15, 0, 0, 0, 0, time.UTC)
	period, err := svc.EnsureInitialPeriod(ctx, now)
	if period == nil {
		t.Fatal("expected the period to exist despite the failure")
	}

	var partial *core.PartialInstantiationError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want PartialInstantiationError", err)
	}
	if partial.TasksCreated != 1 || partial.TasksTotal != 2 {
		t.Errorf("created/total = %d/%d, want 1/2", partial.TasksCreated, partial.TasksTotal)
	}
}
