// Package memory keeps report rows in process. It stands in for the
// spreadsheet when none is configured.
package memory

import (
	"context"
	"sync"

	"bilancio/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows []sheets.ReportRow
}

var _ sheets.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) AppendReport(_ context.Context, row sheets.ReportRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return nil
}

// Rows returns a copy of the rows appended so far, optionally only those of
// one period.
func (s *Store) Rows(period string) []sheets.ReportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheets.ReportRow, 0, len(s.rows))
	for _, r := range s.rows {
		if period == "" || r.Period == period {
			out = append(out, r)
		}
	}
	return out
}
