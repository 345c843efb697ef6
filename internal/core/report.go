package core

import "time"

type (
	// ReportRow is one line of an exported period report. Vendor is empty
	// for task-level rows.
	ReportRow struct {
		Category       string
		Task           string
		Vendor         string
		Amount         string
		Completed      bool
		CompletionDate *time.Time
	}

	// PeriodReport is the flat export form of one period's checklists.
	PeriodReport struct {
		MonthName string
		Deadline  time.Time
		Rows      []ReportRow
	}
)

// BuildReport flattens a period into export rows: one row per task followed
// by one row per vendor line, in checklist order.
func BuildReport(period Period, checklists []Checklist) PeriodReport {
	report := PeriodReport{
		MonthName: period.Name,
		Deadline:  period.Deadline,
	}
	for _, cl := range checklists {
		for _, t := range cl.Tasks {
			report.Rows = append(report.Rows, ReportRow{
				Category:       cl.Category.Title,
				Task:           t.Name,
				Completed:      t.Completed,
				CompletionDate: t.CompletionDate,
			})
			for _, s := range t.Subtasks {
				report.Rows = append(report.Rows, ReportRow{
					Category:       cl.Category.Title,
					Task:           t.Name,
					Vendor:         s.Name,
					Amount:         s.Amount,
					Completed:      s.Completed,
					CompletionDate: s.CompletionDate,
				})
			}
		}
	}
	return report
}
