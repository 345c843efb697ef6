package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"monthend/internal/core"
)

// PeriodService manages month periods and the instantiation of checklist
// templates into them.
type PeriodService struct {
	store Store
}

func NewPeriodService(store Store) *PeriodService {
	return &PeriodService{store: store}
}

// ListPeriods returns all periods in chronological order.
func (s *PeriodService) ListPeriods(ctx context.Context) ([]core.Period, error) {
	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	if err := core.SortPeriods(periods); err != nil {
		return nil, fmt.Errorf("sort periods: %w", err)
	}
	return periods, nil
}

// EnsureInitialPeriod bootstraps an empty database with a period for the
// current month, instantiating every template regardless of its recurring
// flag. It is a no-op when any period already exists.
func (s *PeriodService) EnsureInitialPeriod(ctx context.Context, now time.Time) (*core.Period, error) {
	periods, err := s.store.ListPeriods(ctx)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	if len(periods) > 0 {
		return nil, nil
	}

	name := core.MonthKeyAt(now).String()
	period, err := s.createPeriod(ctx, name)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Initial period bootstrapped", "month_name", name)

	if err := s.instantiate(ctx, period.ID, false); err != nil {
		return &period, err
	}
	return &period, nil
}

// SelectActivePeriod picks the period the dashboard should open on: the
// oldest period with unfinished work, or the most recent one when
// everything is done.
func (s *PeriodService) SelectActivePeriod(ctx context.Context, periods []core.Period) (core.Period, error) {
	if len(periods) == 0 {
		return core.Period{}, core.ErrNoPeriods
	}
	for _, p := range periods {
		incomplete, err := s.store.PeriodHasIncomplete(ctx, p.ID)
		if err != nil {
			return core.Period{}, fmt.Errorf("check period %d: %w", p.ID, err)
		}
		if incomplete {
			return p, nil
		}
	}
	return periods[len(periods)-1], nil
}

// CreateNextPeriod rolls the checklist over to the month after the given
// period, carrying only recurring templates and recurring vendor lines. The
// successor is computed from the period the caller is on, so rolling over
// from an older period surfaces ErrDuplicatePeriod when its successor
// already exists.
func (s *PeriodService) CreateNextPeriod(ctx context.Context, current core.Period) (core.Period, error) {
	key, err := core.ParseMonthName(current.Name)
	if err != nil {
		return core.Period{}, fmt.Errorf("parse current period: %w", err)
	}
	name := key.Next().String()

	existing, err := s.store.FindPeriodByName(ctx, name)
	if err != nil {
		return core.Period{}, fmt.Errorf("check existing period: %w", err)
	}
	if existing != nil {
		return core.Period{}, fmt.Errorf("period %q: %w", name, core.ErrDuplicatePeriod)
	}

	period, err := s.createPeriod(ctx, name)
	if err != nil {
		return core.Period{}, err
	}

	slog.InfoContext(ctx, "Next period created",
		"month_name", name,
		"rolled_over_from", current.Name)

	if err := s.instantiate(ctx, period.ID, true); err != nil {
		return period, err
	}
	return period, nil
}

func (s *PeriodService) createPeriod(ctx context.Context, name string) (core.Period, error) {
	deadline, err := core.DeadlineDate(name)
	if err != nil {
		return core.Period{}, fmt.Errorf("compute deadline: %w", err)
	}
	period, err := s.store.CreatePeriod(ctx, name, deadline)
	if err != nil {
		return core.Period{}, fmt.Errorf("create period %q: %w", name, err)
	}
	return period, nil
}

// instantiate materialises templates into instances for the period. With
// recurringOnly set, both tasks and vendor lines are filtered to recurring
// templates. Failures on individual templates do not abort the rest; the
// shortfall is reported as a PartialInstantiationError.
func (s *PeriodService) instantiate(ctx context.Context, periodID int64, recurringOnly bool) error {
	templates, err := s.store.ListTaskTemplates(ctx, recurringOnly)
	if err != nil {
		return fmt.Errorf("list task templates: %w", err)
	}

	created := 0
	var firstErr error
	for _, tmpl := range templates {
		instance, err := s.store.CreateTaskInstance(ctx, periodID, tmpl.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to instantiate task template",
				"template_id", tmpl.ID,
				"period_id", periodID,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		subTemplates, err := s.store.ListSubtaskTemplates(ctx, tmpl.ID, recurringOnly)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list subtask templates",
				"template_id", tmpl.ID,
				"error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(subTemplates) > 0 {
			ids := make([]int64, len(subTemplates))
			for i, st := range subTemplates {
				ids[i] = st.ID
			}
			if err := s.store.CreateSubtaskInstances(ctx, instance.ID, ids); err != nil {
				slog.ErrorContext(ctx, "Failed to instantiate subtask templates",
					"task_instance_id", instance.ID,
					"error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		created++
	}

	slog.InfoContext(ctx, "Period instantiated",
		"period_id", periodID,
		"tasks_created", created,
		"tasks_total", len(templates),
		"recurring_only", recurringOnly)

	if firstErr != nil {
		return &core.PartialInstantiationError{
			PeriodID:     periodID,
			TasksCreated: created,
			TasksTotal:   len(templates),
			Err:          firstErr,
		}
	}
	return nil
}
