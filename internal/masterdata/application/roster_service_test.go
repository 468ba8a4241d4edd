package application

import (
	"context"
	"io"
	"log"
	"testing"
	"time"

	"zev-billing/internal/config"
	masterdata "zev-billing/internal/masterdata/domain"
	"zev-billing/internal/masterdata/infrastructure/memory"
)

func testConfig() config.Config {
	return config.Config{
		Collective: config.Collective{
			Name:         "ZEV Sonnenhof",
			BillingStart: "2025-01",
			BillingEnd:   "2025-12",
			LocalRate:    0.18,
			GridBuyRate:  0.30,
			GridSellRate: 0.08,
		},
		Members: []config.MemberEntry{
			{
				FirstName: "Anna", LastName: "Keller", IsHost: true,
				Meters: []config.MeterEntry{
					{ExternalID: "CH9001", Name: "rooftop pv", IsProduction: true},
					{ExternalID: "CH9002", Name: "host flat"},
				},
			},
			{
				FirstName: "Beat", LastName: "Muster",
				Meters: []config.MeterEntry{
					{ExternalID: "CH1001", Name: "flat 1"},
					{ExternalID: "CH1002", Name: "flat 1 virtual", IsVirtual: true},
				},
			},
		},
	}
}

func TestSyncUpsertsRoster(t *testing.T) {
	store := memory.NewRosterStore()
	svc, err := NewRosterService(store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewRosterService: %v", err)
	}
	ctx := context.Background()
	if err := svc.Sync(ctx, testConfig()); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	members, err := store.ListMembers(ctx)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	meters, err := store.ListMeters(ctx)
	if err != nil {
		t.Fatalf("ListMeters: %v", err)
	}
	if len(meters) != 4 {
		t.Fatalf("expected 4 meters, got %d", len(meters))
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	store := memory.NewRosterStore()
	svc, err := NewRosterService(store, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewRosterService: %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := svc.Sync(ctx, testConfig()); err != nil {
			t.Fatalf("Sync run %d: %v", i+1, err)
		}
	}
	members, _ := store.ListMembers(ctx)
	meters, _ := store.ListMeters(ctx)
	agreements, _ := store.ListAgreements(ctx)
	if len(members) != 2 || len(meters) != 4 {
		t.Fatalf("expected stable roster, got %d members / %d meters", len(members), len(meters))
	}
	// host_info plus one binding for the single non-host physical consumer
	if len(agreements) != 2 {
		t.Fatalf("expected 2 agreements after re-sync, got %d", len(agreements))
	}
}

func TestProjectAgreements(t *testing.T) {
	cfg := testConfig()
	meters := []masterdata.Meter{
		{ID: 1, ExternalID: "CH9001", IsProduction: true},
		{ID: 2, ExternalID: "CH9002"},
		{ID: 3, ExternalID: "CH1001"},
		{ID: 4, ExternalID: "CH1002", IsVirtual: true},
	}
	agreements, err := ProjectAgreements(cfg, meters)
	if err != nil {
		t.Fatalf("ProjectAgreements: %v", err)
	}
	if len(agreements) != 2 {
		t.Fatalf("expected host_info plus one member agreement, got %d", len(agreements))
	}

	host := agreements[0]
	if host.Type != masterdata.AgreementTypeHostInfo || host.MeterID != 0 {
		t.Fatalf("unexpected host_info agreement: %+v", host)
	}
	if host.LocalRate != 0.18 || host.GridBuyRate != 0.30 || host.GridSellRate != 0.08 {
		t.Fatalf("unexpected host_info rates: %+v", host)
	}
	wantStart := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	if !host.PeriodStart.Equal(wantStart) || !host.PeriodEnd.Equal(wantEnd) {
		t.Fatalf("unexpected period: %s to %s", host.PeriodStart, host.PeriodEnd)
	}

	member := agreements[1]
	if member.Type != masterdata.AgreementTypeMember || member.MeterID != 3 {
		t.Fatalf("expected member agreement for meter 3, got %+v", member)
	}
	if member.LocalRate != 0.18 {
		t.Fatalf("unexpected member rate: %f", member.LocalRate)
	}
}

func TestProjectAgreementsBadWindow(t *testing.T) {
	cfg := testConfig()
	cfg.Collective.BillingStart = "January 2025"
	if _, err := ProjectAgreements(cfg, nil); err == nil {
		t.Fatalf("expected error for malformed billing_start")
	}
}
