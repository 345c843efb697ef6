package core

import (
	"testing"
	"time"
)

func sampleTasks() []Task {
	return []Task{
		{
			Name: "Pay vendors", Completed: true, HasSubtasks: true,
			Subtasks: []Subtask{
				{Name: "Acme", Completed: true},
				{Name: "Globex", Completed: true},
				{Name: "Initech", Completed: false},
			},
		},
		{Name: "Reconcile bank", Completed: false},
	}
}

func TestAggregate(t *testing.T) {
	got := Aggregate(sampleTasks())
	// 2 tasks + 3 subtasks = 5 total; 1 task + 2 subtasks completed.
	want := Progress{Completed: 3, Total: 5, Percentage: 60}
	if got != want {
		t.Fatalf("Aggregate() = %+v, want %+v", got, want)
	}
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate(nil)
	if got != (Progress{}) {
		t.Fatalf("Aggregate(nil) = %+v, want zero", got)
	}
}

func TestOverallPoolsCounts(t *testing.T) {
	checklists := []Checklist{
		{Tasks: []Task{{Completed: true}}},                             // 1/1 = 100%
		{Tasks: []Task{{}, {}, {}, {}}},                                // 0/4 = 0%
		{Tasks: []Task{{Completed: true}, {Completed: true}, {}, {}}},  // 2/4
	}
	got := Overall(checklists)
	// Pooled 3/9 = 33%, not the 50% average of per-category percentages.
	want := Progress{Completed: 3, Total: 9, Percentage: 33}
	if got != want {
		t.Fatalf("Overall() = %+v, want %+v", got, want)
	}
}

func TestNewDeadlineStatus(t *testing.T) {
	deadline := time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)
	done := []Checklist{{Tasks: []Task{{Completed: true}}}}
	open := []Checklist{{Tasks: []Task{{Completed: false}}}}

	cases := []struct {
		name       string
		now        time.Time
		checklists []Checklist
		wantPast   bool
		wantDone   bool
	}{
		{"before deadline incomplete", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), open, false, false},
		{"past deadline incomplete", time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), open, true, false},
		{"complete", time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC), done, true, true},
		{"empty period counts complete", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), nil, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewDeadlineStatus(deadline, tc.now, tc.checklists)
			if got.PastDeadline != tc.wantPast || got.Complete != tc.wantDone {
				t.Fatalf("got %+v, want past=%v complete=%v", got, tc.wantPast, tc.wantDone)
			}
		})
	}
}

func TestFilterChecklists(t *testing.T) {
	checklists := []Checklist{{
		Category: Category{ID: 1, Title: "Payables"},
		Tasks: []Task{
			{Name: "Pay vendors", Completed: true},
			{Name: "Reconcile bank", Completed: false},
			{Name: "File sales tax", Completed: false},
		},
	}}

	all := FilterChecklists(checklists, true, "")
	if len(all[0].Tasks) != 3 {
		t.Fatalf("show completed: got %d tasks", len(all[0].Tasks))
	}

	open := FilterChecklists(checklists, false, "")
	if len(open[0].Tasks) != 2 {
		t.Fatalf("hide completed: got %d tasks", len(open[0].Tasks))
	}

	matched := FilterChecklists(checklists, true, "  RECON ")
	if len(matched[0].Tasks) != 1 || matched[0].Tasks[0].Name != "Reconcile bank" {
		t.Fatalf("search: got %+v", matched[0].Tasks)
	}

	// Input slice must stay untouched.
	if len(checklists[0].Tasks) != 3 {
		t.Fatalf("input mutated: %d tasks", len(checklists[0].Tasks))
	}
}
