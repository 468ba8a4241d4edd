package application

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"zev-billing/internal/calendar"
	masterdata "zev-billing/internal/masterdata/domain"
	mdmemory "zev-billing/internal/masterdata/infrastructure/memory"
	qmemory "zev-billing/internal/quality/infrastructure/memory"
	readings "zev-billing/internal/readings/domain"
	rmemory "zev-billing/internal/readings/infrastructure/memory"
)

type fixture struct {
	svc      *Service
	roster   *mdmemory.RosterStore
	store    *rmemory.ReadingStore
	months   *qmemory.MonthStore
	meterIDs []int64
}

func newFixture(t *testing.T, meterCount int) *fixture {
	t.Helper()
	roster := mdmemory.NewRosterStore()
	store := rmemory.NewReadingStore()
	months := qmemory.NewMonthStore()
	logger := log.New(io.Discard, "", 0)

	ctx := context.Background()
	member := &masterdata.Member{FirstName: "Anna", LastName: "Keller", IsHost: true}
	if err := roster.UpsertMember(ctx, member); err != nil {
		t.Fatalf("seed member: %v", err)
	}

	var meterIDs []int64
	for i := 0; i < meterCount; i++ {
		meter := &masterdata.Meter{
			MemberID:   member.ID,
			ExternalID: "CH100" + string(rune('1'+i)),
			Name:       "meter " + string(rune('A'+i)),
		}
		if err := roster.UpsertMeter(ctx, meter); err != nil {
			t.Fatalf("seed meter: %v", err)
		}
		meterIDs = append(meterIDs, meter.ID)
	}

	svc, err := NewService(roster, store, months, logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, roster: roster, store: store, months: months, meterIDs: meterIDs}
}

// seedMonth inserts quarter-hour readings for a meter starting at the first
// interval of the month. count limits how many intervals are written; skip
// lists interval indexes to leave out.
func (f *fixture) seedMonth(t *testing.T, meterID int64, m calendar.Month, count int, skip ...int) {
	t.Helper()
	skipSet := make(map[int]bool, len(skip))
	for _, idx := range skip {
		skipSet[idx] = true
	}
	start := time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
	batch := make([]readings.MeterReading, 0, count)
	for i := 0; i < count; i++ {
		if skipSet[i] {
			continue
		}
		batch = append(batch, readings.MeterReading{
			MeterID:     meterID,
			Timestamp:   start.Add(time.Duration(i) * 15 * time.Minute),
			Consumption: 0.1,
		})
	}
	if _, err := f.store.UpsertBatch(context.Background(), batch); err != nil {
		t.Fatalf("seed readings: %v", err)
	}
}

func TestBillableMonthsCompleteMonth(t *testing.T) {
	f := newFixture(t, 1)
	jan := calendar.Month{Year: 2025, Month: 1}
	f.seedMonth(t, f.meterIDs[0], jan, jan.Days()*96)

	billable, err := f.svc.BillableMonths(context.Background())
	if err != nil {
		t.Fatalf("BillableMonths: %v", err)
	}
	if len(billable) != 1 || billable[0] != jan {
		t.Fatalf("expected [2025-01], got %v", billable)
	}
}

func TestBillableMonthsExcludesIncomplete(t *testing.T) {
	f := newFixture(t, 1)
	jan := calendar.Month{Year: 2025, Month: 1}
	// 94% of the expected intervals, below the 95% threshold
	expected := jan.Days() * 96
	f.seedMonth(t, f.meterIDs[0], jan, expected*94/100)

	billable, err := f.svc.BillableMonths(context.Background())
	if err != nil {
		t.Fatalf("BillableMonths: %v", err)
	}
	if len(billable) != 0 {
		t.Fatalf("expected no billable months, got %v", billable)
	}
}

func TestBillableMonthsExcludesGappedMonth(t *testing.T) {
	f := newFixture(t, 1)
	jan := calendar.Month{Year: 2025, Month: 1}
	// one missing interval in the middle: still above 95% complete but the
	// series jumps 30 minutes
	f.seedMonth(t, f.meterIDs[0], jan, jan.Days()*96, 500)

	billable, err := f.svc.BillableMonths(context.Background())
	if err != nil {
		t.Fatalf("BillableMonths: %v", err)
	}
	if len(billable) != 0 {
		t.Fatalf("expected gapped month to be excluded, got %v", billable)
	}
}

func TestBillableMonthsRequiresEveryMeter(t *testing.T) {
	f := newFixture(t, 2)
	jan := calendar.Month{Year: 2025, Month: 1}
	// only one of two meters delivered data: actual/expected is 50%
	f.seedMonth(t, f.meterIDs[0], jan, jan.Days()*96)

	billable, err := f.svc.BillableMonths(context.Background())
	if err != nil {
		t.Fatalf("BillableMonths: %v", err)
	}
	if len(billable) != 0 {
		t.Fatalf("expected month with half coverage to be excluded, got %v", billable)
	}
}

func TestRunChecksMarksCompleteMonths(t *testing.T) {
	f := newFixture(t, 1)
	jan := calendar.Month{Year: 2025, Month: 1}
	f.seedMonth(t, f.meterIDs[0], jan, jan.Days()*96)

	if _, err := f.svc.RunChecks(context.Background()); err != nil {
		t.Fatalf("RunChecks: %v", err)
	}
	marked, err := f.months.ListComplete(context.Background())
	if err != nil {
		t.Fatalf("ListComplete: %v", err)
	}
	if len(marked) != 1 || marked[0] != jan {
		t.Fatalf("expected [2025-01] marked complete, got %v", marked)
	}
}

func TestRunChecksReportsMeterWithoutData(t *testing.T) {
	f := newFixture(t, 2)
	jan := calendar.Month{Year: 2025, Month: 1}
	f.seedMonth(t, f.meterIDs[0], jan, jan.Days()*96)

	issues, err := f.svc.RunChecks(context.Background())
	if err != nil {
		t.Fatalf("RunChecks: %v", err)
	}
	found := false
	for _, issue := range issues {
		if strings.Contains(issue, "has no energy data") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a no-data issue, got %v", issues)
	}
}

func TestRunChecksReportsGaps(t *testing.T) {
	f := newFixture(t, 1)
	jan := calendar.Month{Year: 2025, Month: 1}
	f.seedMonth(t, f.meterIDs[0], jan, jan.Days()*96, 100, 200)

	issues, err := f.svc.RunChecks(context.Background())
	if err != nil {
		t.Fatalf("RunChecks: %v", err)
	}
	found := false
	for _, issue := range issues {
		if strings.Contains(issue, "gap(s)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a gap issue, got %v", issues)
	}
}

func TestRunChecksReportsUncoveredConsumerMeter(t *testing.T) {
	roster := mdmemory.NewRosterStore()
	store := rmemory.NewReadingStore()
	months := qmemory.NewMonthStore()
	logger := log.New(io.Discard, "", 0)
	ctx := context.Background()

	host := &masterdata.Member{FirstName: "Anna", LastName: "Keller", IsHost: true}
	tenant := &masterdata.Member{FirstName: "Beat", LastName: "Muster"}
	for _, m := range []*masterdata.Member{host, tenant} {
		if err := roster.UpsertMember(ctx, m); err != nil {
			t.Fatalf("seed member: %v", err)
		}
	}
	meter := &masterdata.Meter{MemberID: tenant.ID, ExternalID: "CH2001", Name: "flat 1"}
	if err := roster.UpsertMeter(ctx, meter); err != nil {
		t.Fatalf("seed meter: %v", err)
	}

	svc, err := NewService(roster, store, months, logger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	issues, err := svc.RunChecks(ctx)
	if err != nil {
		t.Fatalf("RunChecks: %v", err)
	}
	foundAgreement, foundHostInfo := false, false
	for _, issue := range issues {
		if strings.Contains(issue, "no member agreement") {
			foundAgreement = true
		}
		if strings.Contains(issue, "no host_info agreement") {
			foundHostInfo = true
		}
	}
	if !foundAgreement || !foundHostInfo {
		t.Fatalf("expected agreement issues, got %v", issues)
	}
}
