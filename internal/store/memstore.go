package store

import (
	"errors"
	"sort"
	"sync"
)

// MemStore implements Store in memory. Useful for tests and for one-shot
// runs that never touch disk.
type MemStore struct {
	mu       sync.Mutex
	runs     map[string]*Run
	verdicts map[string][]VerdictRow
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		runs:     make(map[string]*Run),
		verdicts: make(map[string][]VerdictRow),
	}
}

func (s *MemStore) SaveRun(run *Run, verdicts []VerdictRow) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		return errors.New("run has no id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *run
	if cp.StartedAt == "" {
		cp.StartedAt = nowUTC()
	}
	cp.State = append([]byte(nil), run.State...)
	s.runs[cp.ID] = &cp

	rows := append([]VerdictRow(nil), verdicts...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].CriterionID < rows[j].CriterionID })
	s.verdicts[cp.ID] = rows
	return nil
}

func (s *MemStore) GetRun(id string) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.State = append([]byte(nil), r.State...)
	return &cp, nil
}

func (s *MemStore) ListRuns(limit int) ([]*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		cp := *r
		cp.State = nil // listings omit the payload, matching SQLite
		list = append(list, &cp)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].StartedAt != list[j].StartedAt {
			return list[i].StartedAt > list[j].StartedAt
		}
		return list[i].ID > list[j].ID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *MemStore) ListVerdicts(runID string) ([]VerdictRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]VerdictRow(nil), s.verdicts[runID]...), nil
}

func (s *MemStore) Close() error { return nil }
