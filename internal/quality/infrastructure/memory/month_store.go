package memory

import (
	"context"
	"sort"
	"sync"

	"zev-billing/internal/calendar"
)

// MonthStore keeps complete-month markers in memory for tests.
type MonthStore struct {
	mu     sync.RWMutex
	months map[calendar.Month]bool
}

func NewMonthStore() *MonthStore {
	return &MonthStore{months: make(map[calendar.Month]bool)}
}

func (s *MonthStore) MarkComplete(_ context.Context, year, month int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.months[calendar.Month{Year: year, Month: month}] = true
	return nil
}

func (s *MonthStore) ListComplete(_ context.Context) ([]calendar.Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]calendar.Month, 0, len(s.months))
	for m := range s.months {
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}
