package masterdata

import "time"

// Agreement types.
const (
	AgreementTypeHostInfo = "host_info"
	AgreementTypeMember   = "member"
)

// Agreement is a period-scoped rate contract. Agreements are a declarative
// projection of configuration and are recreated wholesale on every run.
//
// A host_info agreement is collective-level (MeterID zero) and carries the
// local, grid-buy and grid-sell rates. A member agreement binds the local
// rate to one physical consumer meter.
type Agreement struct {
	ID           int64
	Type         string
	MeterID      int64 // zero for collective-level host_info agreements
	PeriodStart  time.Time
	PeriodEnd    time.Time
	LocalRate    float64
	GridBuyRate  float64
	GridSellRate float64
}

// Covers reports whether the agreement overlaps [start, end) where end is
// exclusive.
func (a Agreement) Covers(start, end time.Time) bool {
	return a.PeriodStart.Before(end) && !a.PeriodEnd.Before(start)
}

// FindHostInfo returns the first host_info agreement overlapping the period,
// or nil.
func FindHostInfo(agreements []Agreement, start, end time.Time) *Agreement {
	for i := range agreements {
		a := &agreements[i]
		if a.Type != AgreementTypeHostInfo {
			continue
		}
		if a.Covers(start, end) {
			return a
		}
	}
	return nil
}
