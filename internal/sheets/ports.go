package sheets

import (
	"context"

	"monthend/internal/core"
)

// Ports for outbound adapters.
type (
	// ReportWriter appends a completed period's report to a spreadsheet.
	ReportWriter interface {
		WriteReport(ctx context.Context, report core.PeriodReport) (rowRef string, err error)
	}
)
