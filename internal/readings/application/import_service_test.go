package application

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	masterdata "zev-billing/internal/masterdata/domain"
	"zev-billing/internal/masterdata/infrastructure/memory"
	readingsmem "zev-billing/internal/readings/infrastructure/memory"
)

func newTestService(t *testing.T) (*ImportService, *readingsmem.ReadingStore) {
	t.Helper()
	roster := memory.NewRosterStore()
	ctx := context.Background()
	member := &masterdata.Member{FirstName: "Anna", LastName: "Keller", IsHost: true}
	if err := roster.UpsertMember(ctx, member); err != nil {
		t.Fatalf("seed member: %v", err)
	}
	meter := &masterdata.Meter{MemberID: member.ID, ExternalID: "CH1001", Name: "House A"}
	if err := roster.UpsertMeter(ctx, meter); err != nil {
		t.Fatalf("seed meter: %v", err)
	}

	store := readingsmem.NewReadingStore()
	svc, err := NewImportService(roster, store, log.New(io.Discard, "", 0), nil)
	if err != nil {
		t.Fatalf("new import service: %v", err)
	}
	return svc, store
}

const csvHeader = "Messpunkt;Zeitstempel;Bezug;Einspeisung;Messdatenguete\n"

func TestImportFileBasic(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH1001;1.3.2025 00:15:00;0.25;0;W\n" +
		"CH1001;1.3.2025 00:30:00;0.30;0;W\n"

	count, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 stored readings, got %d", len(all))
	}
	if all[0].Consumption != 0.25 || all[1].Consumption != 0.30 {
		t.Fatalf("unexpected consumption values: %+v", all)
	}
}

func TestImportFileSkipsBadQuality(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH1001;1.3.2025 00:15:00;0.25;0;W\n" +
		"CH1001;1.3.2025 00:30:00;0.30;0;E\n"

	count, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
	if len(store.All()) != 1 {
		t.Fatalf("flagged row must not be stored")
	}
}

func TestImportFileSkipsUnknownMeter(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH9999;1.3.2025 00:15:00;0.25;0;W\n" +
		"CH1001;1.3.2025 00:15:00;0.10;0;W\n"

	count, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
	if got := store.All(); len(got) != 1 || got[0].Consumption != 0.10 {
		t.Fatalf("unexpected stored readings: %+v", got)
	}
}

func TestImportFileLastDuplicateWins(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH1001;1.3.2025 00:15:00;0.25;0;W\n" +
		"CH1001;1.3.2025 00:15:00;0.99;0;W\n"

	if _, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data)); err != nil {
		t.Fatalf("import: %v", err)
	}
	all := store.All()
	if len(all) != 1 {
		t.Fatalf("expected deduplication to 1 reading, got %d", len(all))
	}
	if all[0].Consumption != 0.99 {
		t.Fatalf("expected last occurrence to win, got %v", all[0].Consumption)
	}
}

func TestImportFileDSTFallbackProducesDistinctTimestamps(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH1001;26.10.2025 02:30:00;0.10;0;W\n" +
		"CH1001;26.10.2025 02:30:00;0.20;0;W\n"

	count, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 records, got %d", count)
	}
	all := store.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 distinct readings, got %d", len(all))
	}
	if diff := all[1].Timestamp.Sub(all[0].Timestamp); diff.Hours() != 1 {
		t.Fatalf("expected one hour between occurrences, got %v", diff)
	}
}

func TestImportFileSkipsMalformedRows(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH1001;not-a-date;0.25;0;W\n" +
		"CH1001;1.3.2025 00:30:00;abc;0;W\n" +
		"CH1001;1.3.2025 00:45:00;;0;W\n"

	count, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected only the empty-value row to survive, got %d", count)
	}
	all := store.All()
	if len(all) != 1 || all[0].Consumption != 0 {
		t.Fatalf("empty energy field must parse as zero: %+v", all)
	}
}

func TestImportFileIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	data := csvHeader +
		"CH1001;1.3.2025 00:15:00;0.25;0;W\n" +
		"CH1001;1.3.2025 00:30:00;0.30;0;W\n"

	for run := 0; run < 2; run++ {
		if _, err := svc.ImportFile(context.Background(), "test.csv", strings.NewReader(data)); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}
	if got := store.All(); len(got) != 2 {
		t.Fatalf("re-import must not duplicate, got %d readings", len(got))
	}
}
