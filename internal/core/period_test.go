package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseMonthName(t *testing.T) {
	months := []string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
	for i, m := range months {
		key, err := ParseMonthName(m + " 2025")
		if err != nil {
			t.Fatalf("%s 2025: unexpected error %v", m, err)
		}
		if key.Year != 2025 || key.Month != time.Month(i+1) {
			t.Fatalf("%s 2025: got %+v", m, key)
		}
	}

	bads := []string{"", "Avril 2025", "April", "2025 April", "April twenty"}
	for _, in := range bads {
		if _, err := ParseMonthName(in); !errors.Is(err, ErrInvalidMonthName) {
			t.Fatalf("%q: expected ErrInvalidMonthName, got %v", in, err)
		}
	}
}

func TestMonthKeyNext(t *testing.T) {
	cases := []struct {
		in   MonthKey
		want MonthKey
	}{
		{MonthKey{2025, time.April}, MonthKey{2025, time.May}},
		{MonthKey{2024, time.December}, MonthKey{2025, time.January}},
	}
	for _, tc := range cases {
		if got := tc.in.Next(); got != tc.want {
			t.Errorf("%v.Next() = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMonthKeyString(t *testing.T) {
	if got := (MonthKey{2025, time.April}).String(); got != "April 2025" {
		t.Fatalf("String() = %q", got)
	}
}

func TestSortPeriods(t *testing.T) {
	periods := []Period{
		{ID: 1, Name: "December 2024"},
		{ID: 2, Name: "January 2025"},
		{ID: 3, Name: "June 2024"},
	}
	if err := SortPeriods(periods); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"June 2024", "December 2024", "January 2025"}
	for i, name := range want {
		if periods[i].Name != name {
			t.Fatalf("position %d: got %q, want %q", i, periods[i].Name, name)
		}
	}
}

func TestSortPeriodsInvalidName(t *testing.T) {
	periods := []Period{{Name: "April 2025"}, {Name: "Springtime 2025"}}
	if err := SortPeriods(periods); !errors.Is(err, ErrInvalidMonthName) {
		t.Fatalf("expected ErrInvalidMonthName, got %v", err)
	}
}

func TestDeadlineDate(t *testing.T) {
	cases := []struct {
		name string
		want time.Time
	}{
		// April 1 2025 is a Tuesday; business days fall on 1,2,3,4,7,8,9.
		{"April 2025", time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC)},
		// March 1 2025 is a Saturday; business days start Monday the 3rd.
		{"March 2025", time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)},
		// September 1 2025 is a Monday.
		{"September 2025", time.Date(2025, 9, 9, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DeadlineDate(tc.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("DeadlineDate(%q) = %v, want %v", tc.name, got, tc.want)
			}
			if wd := got.Weekday(); wd == time.Saturday || wd == time.Sunday {
				t.Fatalf("deadline %v falls on a weekend", got)
			}
		})
	}
}

func TestDeadlineDateInvalidName(t *testing.T) {
	if _, err := DeadlineDate("Smarch 2025"); !errors.Is(err, ErrInvalidMonthName) {
		t.Fatalf("expected ErrInvalidMonthName, got %v", err)
	}
}
