// Package core holds the pure domain model for the month-end checklist:
// templates, per-period instances, month arithmetic and progress
// aggregation. Nothing in this package does I/O.
package core

import (
	"fmt"
	"sort"
	"time"
)

const monthNameLayout = "January 2006"

// MonthKey is the comparable (year, month) key behind a period's free-text
// name. It is computed once at load time; chronological ordering must never
// fall back to string comparison ("December 2024" sorts before
// "January 2025" despite "D" < "J" being accidental).
type MonthKey struct {
	Year  int
	Month time.Month
}

// ParseMonthName parses names like "April 2025". An unknown month name is a
// fatal input error for callers, never a silent default.
func ParseMonthName(name string) (MonthKey, error) {
	t, err := time.Parse(monthNameLayout, name)
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonthName, name)
	}
	return MonthKey{Year: t.Year(), Month: t.Month()}, nil
}

// MonthKeyAt returns the key of the calendar month containing t.
func MonthKeyAt(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

func (k MonthKey) String() string {
	return time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, time.UTC).Format(monthNameLayout)
}

// Next returns the following month; December rolls into January of the next
// year.
func (k MonthKey) Next() MonthKey {
	if k.Month == time.December {
		return MonthKey{Year: k.Year + 1, Month: time.January}
	}
	return MonthKey{Year: k.Year, Month: k.Month + 1}
}

func (k MonthKey) Before(other MonthKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	return k.Month < other.Month
}

// SortPeriods orders periods chronologically ascending by their parsed
// month key. Keys are parsed once up front; any unparseable name fails the
// whole sort.
func SortPeriods(periods []Period) error {
	type keyed struct {
		period Period
		key    MonthKey
	}
	ks := make([]keyed, len(periods))
	for i, p := range periods {
		k, err := ParseMonthName(p.Name)
		if err != nil {
			return err
		}
		ks[i] = keyed{period: p, key: k}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		return ks[i].key.Before(ks[j].key)
	})
	for i := range ks {
		periods[i] = ks[i].period
	}
	return nil
}

// DeadlineDate returns the 7th business day of the named month, counting
// from the 1st inclusive. Saturdays and Sundays are not business days.
// April 2025: Apr 1 is a Tuesday, business days fall on 1,2,3,4,7,8,9, so
// the deadline is April 9.
func DeadlineDate(monthName string) (time.Time, error) {
	key, err := ParseMonthName(monthName)
	if err != nil {
		return time.Time{}, err
	}
	d := time.Date(key.Year, key.Month, 1, 0, 0, 0, 0, time.UTC)
	business := 0
	for {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			business++
			if business == 7 {
				return d, nil
			}
		}
		d = d.AddDate(0, 0, 1)
	}
}
