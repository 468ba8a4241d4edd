package application

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	billing "zev-billing/internal/billing/domain"
	"zev-billing/internal/calendar"
	masterdata "zev-billing/internal/masterdata/domain"
)

func exportBill(month int) billing.Bill {
	return billing.Bill{
		Member: masterdata.Member{
			FirstName: "Beat", LastName: "Muster",
			Street: "Dorfstrasse 1", Zip: "3000", City: "Bern",
		},
		Year: 2025, Month: month,
		PeriodMonths: []calendar.Month{{Year: 2025, Month: month}},
		TotalCost:    10,
		GrandTotal:   10,
	}
}

func TestExportWritesDocuments(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewExportService(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}
	cfg := ExportConfig{OutputDir: dir, CollectiveName: "ZEV Sonnenhof", Currency: "CHF", Language: "de"}

	if err := svc.Export([]billing.Bill{exportBill(1)}, cfg); err != nil {
		t.Fatalf("Export: %v", err)
	}

	for _, name := range []string{
		"abrechnung_2025-01_Muster_Beat.pdf",
		"bills_2025-01.csv",
		"bills_2025-01.xlsx",
	} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}
}

func TestExportCleansStaleDocuments(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "abrechnung_2024-12_Alt_Kunde.pdf")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatalf("seed stale file: %v", err)
	}

	svc, err := NewExportService(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}
	cfg := ExportConfig{OutputDir: dir, CollectiveName: "ZEV Sonnenhof", Currency: "CHF", Language: "de"}
	if err := svc.Export([]billing.Bill{exportBill(1)}, cfg); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale pdf removed")
	}
}

func TestExportMultiPeriodSummaryName(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewExportService(log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("NewExportService: %v", err)
	}
	cfg := ExportConfig{OutputDir: dir, CollectiveName: "ZEV Sonnenhof", Currency: "CHF", Language: "en"}
	if err := svc.Export([]billing.Bill{exportBill(1), exportBill(2)}, cfg); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "bills_all.csv")); err != nil {
		t.Fatalf("expected bills_all.csv: %v", err)
	}
}
