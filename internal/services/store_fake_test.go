package services

import (
	"context"
	"fmt"
	"time"

	"monthend/internal/core"
	"monthend/internal/storage"
)

// fakeStore is an in-memory Store for service tests.
type fakeStore struct {
	nextID int64

	categories       []core.Category
	periods          []core.Period
	taskTemplates    map[int64]core.TaskTemplate
	subtaskTemplates map[int64]core.SubtaskTemplate
	taskInstances    map[int64]core.TaskInstance
	subtaskInstances map[int64]core.SubtaskInstance

	failCreateInstanceFor map[int64]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		taskTemplates:         make(map[int64]core.TaskTemplate),
		subtaskTemplates:      make(map[int64]core.SubtaskTemplate),
		taskInstances:         make(map[int64]core.TaskInstance),
		subtaskInstances:      make(map[int64]core.SubtaskInstance),
		failCreateInstanceFor: make(map[int64]bool),
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	return append([]core.Category(nil), f.categories...), nil
}

func (f *fakeStore) ListPeriods(ctx context.Context) ([]core.Period, error) {
	return append([]core.Period(nil), f.periods...), nil
}

func (f *fakeStore) GetPeriod(ctx context.Context, id int64) (core.Period, error) {
	for _, p := range f.periods {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Period{}, core.ErrPeriodNotFound
}

func (f *fakeStore) FindPeriodByName(ctx context.Context, name string) (*core.Period, error) {
	for _, p := range f.periods {
		if p.Name == name {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreatePeriod(ctx context.Context, name string, deadline time.Time) (core.Period, error) {
	p := core.Period{ID: f.id(), Name: name, Deadline: deadline}
	f.periods = append(f.periods, p)
	return p, nil
}

func (f *fakeStore) PeriodHasIncomplete(ctx context.Context, periodID int64) (bool, error) {
	for _, ti := range f.taskInstances {
		if ti.PeriodID != periodID {
			continue
		}
		if !ti.Completed {
			return true, nil
		}
		for _, si := range f.subtaskInstances {
			if si.TaskInstanceID == ti.ID && !si.Completed {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) ListTaskTemplates(ctx context.Context, recurringOnly bool) ([]core.TaskTemplate, error) {
	var out []core.TaskTemplate
	for id := int64(1); id <= f.nextID; id++ {
		t, ok := f.taskTemplates[id]
		if !ok {
			continue
		}
		if recurringOnly && !t.Recurring {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeStore) CreateTaskTemplate(ctx context.Context, t core.TaskTemplate) (core.TaskTemplate, error) {
	t.ID = f.id()
	f.taskTemplates[t.ID] = t
	return t, nil
}

func (f *fakeStore) RenameTaskTemplate(ctx context.Context, id int64, name string) error {
	t := f.taskTemplates[id]
	t.Name = name
	f.taskTemplates[id] = t
	return nil
}

func (f *fakeStore) SetTaskTemplateRecurring(ctx context.Context, id int64, recurring bool) error {
	t := f.taskTemplates[id]
	t.Recurring = recurring
	f.taskTemplates[id] = t
	return nil
}

func (f *fakeStore) SetTaskTemplateHasSubtasks(ctx context.Context, id int64, hasSubtasks bool) error {
	t := f.taskTemplates[id]
	t.HasSubtasks = hasSubtasks
	f.taskTemplates[id] = t
	return nil
}

func (f *fakeStore) DeleteTaskTemplate(ctx context.Context, id int64) error {
	delete(f.taskTemplates, id)
	for sid, st := range f.subtaskTemplates {
		if st.TaskTemplateID == id {
			delete(f.subtaskTemplates, sid)
		}
	}
	return nil
}

func (f *fakeStore) ListSubtaskTemplates(ctx context.Context, taskTemplateID int64, recurringOnly bool) ([]core.SubtaskTemplate, error) {
	var out []core.SubtaskTemplate
	for id := int64(1); id <= f.nextID; id++ {
		st, ok := f.subtaskTemplates[id]
		if !ok || st.TaskTemplateID != taskTemplateID {
			continue
		}
		if recurringOnly && !st.Recurring {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (f *fakeStore) CreateSubtaskTemplate(ctx context.Context, st core.SubtaskTemplate) (core.SubtaskTemplate, error) {
	st.ID = f.id()
	f.subtaskTemplates[st.ID] = st
	return st, nil
}

func (f *fakeStore) DeleteSubtaskTemplate(ctx context.Context, id int64) error {
	delete(f.subtaskTemplates, id)
	return nil
}

func (f *fakeStore) CreateTaskInstance(ctx context.Context, periodID, templateID int64) (core.TaskInstance, error) {
	if f.failCreateInstanceFor[templateID] {
		return core.TaskInstance{}, fmt.Errorf("instance creation refused for template %d", templateID)
	}
	ti := core.TaskInstance{ID: f.id(), PeriodID: periodID, TaskTemplateID: templateID}
	f.taskInstances[ti.ID] = ti
	return ti, nil
}

func (f *fakeStore) CreateSubtaskInstance(ctx context.Context, taskInstanceID, templateID int64) (core.SubtaskInstance, error) {
	si := core.SubtaskInstance{ID: f.id(), TaskInstanceID: taskInstanceID, SubtaskTemplateID: templateID}
	f.subtaskInstances[si.ID] = si
	return si, nil
}

func (f *fakeStore) CreateSubtaskInstances(ctx context.Context, taskInstanceID int64, templateIDs []int64) error {
	for _, tid := range templateIDs {
		if _, err := f.CreateSubtaskInstance(ctx, taskInstanceID, tid); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ListTasksForPeriod(ctx context.Context, periodID int64) ([]storage.TaskWithTemplate, error) {
	var out []storage.TaskWithTemplate
	for id := int64(1); id <= f.nextID; id++ {
		ti, ok := f.taskInstances[id]
		if !ok || ti.PeriodID != periodID {
			continue
		}
		tmpl, ok := f.taskTemplates[ti.TaskTemplateID]
		if !ok {
			continue // template deleted, orphan skipped
		}
		out = append(out, storage.TaskWithTemplate{Instance: ti, Template: tmpl})
	}
	return out, nil
}

func (f *fakeStore) ListSubtasksForTask(ctx context.Context, taskInstanceID int64) ([]storage.SubtaskWithTemplate, error) {
	var out []storage.SubtaskWithTemplate
	for id := int64(1); id <= f.nextID; id++ {
		si, ok := f.subtaskInstances[id]
		if !ok || si.TaskInstanceID != taskInstanceID {
			continue
		}
		tmpl, ok := f.subtaskTemplates[si.SubtaskTemplateID]
		if !ok {
			continue
		}
		out = append(out, storage.SubtaskWithTemplate{Instance: si, Template: tmpl})
	}
	return out, nil
}

func (f *fakeStore) SetTaskCompletion(ctx context.Context, id int64, completed bool, completionDate *time.Time) error {
	ti, ok := f.taskInstances[id]
	if !ok {
		return core.ErrTaskNotFound
	}
	ti.Completed = completed
	ti.CompletionDate = completionDate
	f.taskInstances[id] = ti
	return nil
}

func (f *fakeStore) SetSubtaskCompletion(ctx context.Context, id int64, completed bool, completionDate *time.Time) error {
	si, ok := f.subtaskInstances[id]
	if !ok {
		return core.ErrSubtaskNotFound
	}
	si.Completed = completed
	si.CompletionDate = completionDate
	f.subtaskInstances[id] = si
	return nil
}

func (f *fakeStore) SetSubtaskAmount(ctx context.Context, id int64, amount string) error {
	si, ok := f.subtaskInstances[id]
	if !ok {
		return core.ErrSubtaskNotFound
	}
	si.Amount = amount
	f.subtaskInstances[id] = si
	return nil
}

func (f *fakeStore) DeleteTaskInstance(ctx context.Context, id int64) error {
	delete(f.taskInstances, id)
	for sid, si := range f.subtaskInstances {
		if si.TaskInstanceID == id {
			delete(f.subtaskInstances, sid)
		}
	}
	return nil
}

func (f *fakeStore) DeleteSubtaskInstance(ctx context.Context, id int64) error {
	delete(f.subtaskInstances, id)
	return nil
}

// recordingPublisher captures export announcements.
type recordingPublisher struct {
	published []string
}

func (p *recordingPublisher) PublishPeriodExport(ctx context.Context, periodID int64, monthName string) error {
	p.published = append(p.published, monthName)
	return nil
}
