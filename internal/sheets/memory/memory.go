// Package memory is an in-memory ReportWriter for tests and local runs
// without Google credentials.
package memory

import (
	"context"
	"fmt"
	"sync"

	"monthend/internal/core"
)

type Store struct {
	mu      sync.Mutex
	reports []core.PeriodReport
}

func New() *Store {
	return &Store{}
}

// WriteReport stores the report and returns a synthetic row reference.
func (s *Store) WriteReport(_ context.Context, report core.PeriodReport) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return fmt.Sprintf("mem:%d", len(s.reports)), nil
}

// Reports returns a copy of everything written so far.
func (s *Store) Reports() []core.PeriodReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.PeriodReport(nil), s.reports...)
}
