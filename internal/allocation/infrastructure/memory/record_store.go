package memory

import (
	"context"
	"sort"
	"sync"

	allocation "zev-billing/internal/allocation/domain"
)

type recordKey struct {
	memberID  int64
	timestamp string
}

// RecordStore keeps settlement records in memory for tests.
type RecordStore struct {
	mu      sync.RWMutex
	records map[recordKey]allocation.Record
}

func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[recordKey]allocation.Record)}
}

func (s *RecordStore) UpsertRecords(_ context.Context, records []allocation.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		key := recordKey{memberID: r.MemberID, timestamp: r.Timestamp.Format("2006-01-02T15:04:05")}
		s.records[key] = r
	}
	return len(records), nil
}

func (s *RecordStore) ListForMonth(_ context.Context, year, month int) ([]allocation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []allocation.Record
	for _, r := range s.records {
		if r.Year == year && r.Month == month {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].MemberID < result[j].MemberID
	})
	return result, nil
}

// All returns every record sorted by timestamp then member.
func (s *RecordStore) All() []allocation.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]allocation.Record, 0, len(s.records))
	for _, r := range s.records {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].MemberID < result[j].MemberID
	})
	return result
}
