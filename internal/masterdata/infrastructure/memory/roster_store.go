package memory

import (
	"context"
	"sync"

	masterdata "zev-billing/internal/masterdata/domain"
)

// RosterStore is an in-memory roster for tests.
type RosterStore struct {
	mu         sync.RWMutex
	nextID     int64
	members    []masterdata.Member
	meters     []masterdata.Meter
	agreements []masterdata.Agreement
}

// NewRosterStore constructs an empty store.
func NewRosterStore() *RosterStore {
	return &RosterStore{nextID: 1}
}

// UpsertMember inserts or updates by (first_name, last_name).
func (s *RosterStore) UpsertMember(_ context.Context, member *masterdata.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].FirstName == member.FirstName && s.members[i].LastName == member.LastName {
			member.ID = s.members[i].ID
			s.members[i] = *member
			return nil
		}
	}
	member.ID = s.nextID
	s.nextID++
	s.members = append(s.members, *member)
	return nil
}

// UpsertMeter inserts or updates by external_id.
func (s *RosterStore) UpsertMeter(_ context.Context, meter *masterdata.Meter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.meters {
		if s.meters[i].ExternalID == meter.ExternalID {
			meter.ID = s.meters[i].ID
			s.meters[i] = *meter
			return nil
		}
	}
	meter.ID = s.nextID
	s.nextID++
	s.meters = append(s.meters, *meter)
	return nil
}

// ReplaceAgreements swaps the whole agreement set.
func (s *RosterStore) ReplaceAgreements(_ context.Context, agreements []masterdata.Agreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agreements = make([]masterdata.Agreement, len(agreements))
	copy(s.agreements, agreements)
	for i := range s.agreements {
		s.agreements[i].ID = s.nextID
		s.nextID++
	}
	return nil
}

// ListMembers returns all members.
func (s *RosterStore) ListMembers(_ context.Context) ([]masterdata.Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]masterdata.Member, len(s.members))
	copy(result, s.members)
	return result, nil
}

// ListMeters returns all meters.
func (s *RosterStore) ListMeters(_ context.Context) ([]masterdata.Meter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]masterdata.Meter, len(s.meters))
	copy(result, s.meters)
	return result, nil
}

// FindMeterByExternalID returns the meter or nil.
func (s *RosterStore) FindMeterByExternalID(_ context.Context, externalID string) (*masterdata.Meter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.meters {
		if s.meters[i].ExternalID == externalID {
			m := s.meters[i]
			return &m, nil
		}
	}
	return nil, nil
}

// ListAgreements returns all agreements.
func (s *RosterStore) ListAgreements(_ context.Context) ([]masterdata.Agreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]masterdata.Agreement, len(s.agreements))
	copy(result, s.agreements)
	return result, nil
}
