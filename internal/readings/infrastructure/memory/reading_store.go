package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	readings "zev-billing/internal/readings/domain"
)

type key struct {
	meterID int64
	ts      string
}

// ReadingStore is an in-memory reading store for tests.
type ReadingStore struct {
	mu   sync.RWMutex
	data map[key]readings.MeterReading
}

// NewReadingStore constructs an empty store.
func NewReadingStore() *ReadingStore {
	return &ReadingStore{data: make(map[key]readings.MeterReading)}
}

// UpsertBatch upserts by (meter, timestamp).
func (s *ReadingStore) UpsertBatch(_ context.Context, batch []readings.MeterReading) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range batch {
		s.data[key{r.MeterID, r.Key()}] = r
	}
	return len(batch), nil
}

// All returns every stored reading sorted by meter then timestamp.
func (s *ReadingStore) All() []readings.MeterReading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]readings.MeterReading, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MeterID != result[j].MeterID {
			return result[i].MeterID < result[j].MeterID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result
}

// ListDistinctMonths returns the (year, month) pairs present.
func (s *ReadingStore) ListDistinctMonths(_ context.Context) ([]readings.MonthRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[readings.MonthRef]bool)
	for _, r := range s.data {
		seen[readings.MonthRef{Year: r.Timestamp.Year(), Month: int(r.Timestamp.Month())}] = true
	}
	result := make([]readings.MonthRef, 0, len(seen))
	for ref := range seen {
		result = append(result, ref)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Year != result[j].Year {
			return result[i].Year < result[j].Year
		}
		return result[i].Month < result[j].Month
	})
	return result, nil
}

// CountForMonth counts readings in a month across all meters.
func (s *ReadingStore) CountForMonth(_ context.Context, year, month int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, r := range s.data {
		if r.Timestamp.Year() == year && int(r.Timestamp.Month()) == month {
			count++
		}
	}
	return count, nil
}

// CountForMeter counts readings for one meter.
func (s *ReadingStore) CountForMeter(_ context.Context, meterID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for k := range s.data {
		if k.meterID == meterID {
			count++
		}
	}
	return count, nil
}

// ListTimestampsForMeterMonth returns ascending timestamps for a meter/month.
func (s *ReadingStore) ListTimestampsForMeterMonth(_ context.Context, meterID int64, year, month int) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []time.Time
	for _, r := range s.data {
		if r.MeterID == meterID && r.Timestamp.Year() == year && int(r.Timestamp.Month()) == month {
			result = append(result, r.Timestamp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Before(result[j]) })
	return result, nil
}

// ListForMonth returns every reading in a month ordered by timestamp.
func (s *ReadingStore) ListForMonth(_ context.Context, year, month int) ([]readings.MeterReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []readings.MeterReading
	for _, r := range s.data {
		if r.Timestamp.Year() == year && int(r.Timestamp.Month()) == month {
			result = append(result, r)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.Before(result[j].Timestamp)
		}
		return result[i].MeterID < result[j].MeterID
	})
	return result, nil
}
