package application

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	billing "zev-billing/internal/billing/domain"
	"zev-billing/internal/billing/interfaces"
)

// ExportConfig controls where and how bills are written.
type ExportConfig struct {
	OutputDir       string
	CollectiveName  string
	Currency        string
	Language        string
	ShowDailyDetail bool
}

// ExportService writes bill documents to the output directory.
type ExportService struct {
	logger *log.Logger
}

func NewExportService(logger *log.Logger) (*ExportService, error) {
	if logger == nil {
		return nil, errors.New("export service: nil logger")
	}
	return &ExportService{logger: logger}, nil
}

// Export removes stale documents and writes one PDF per bill plus a CSV and
// an XLSX summary.
func (s *ExportService) Export(bills []billing.Bill, cfg ExportConfig) error {
	if len(bills) == 0 {
		s.logger.Printf("no bills to export")
		return nil
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := s.cleanStale(cfg.OutputDir); err != nil {
		return err
	}

	for _, bill := range bills {
		data, err := interfaces.BuildBillPDF(bill, cfg.CollectiveName, cfg.Currency, cfg.Language, cfg.ShowDailyDetail)
		if err != nil {
			return fmt.Errorf("render bill for %s: %w", bill.Member.FullName(), err)
		}
		name := interfaces.PDFFileName(bill, cfg.Language)
		if err := os.WriteFile(filepath.Join(cfg.OutputDir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	csvData, err := interfaces.BuildBillsCSV(bills)
	if err != nil {
		return fmt.Errorf("render bill summary csv: %w", err)
	}
	csvName := summaryFileName(bills, "csv")
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, csvName), csvData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvName, err)
	}

	xlsxData, err := interfaces.BuildBillsXLSX(bills)
	if err != nil {
		return fmt.Errorf("render bill workbook: %w", err)
	}
	xlsxName := summaryFileName(bills, "xlsx")
	if err := os.WriteFile(filepath.Join(cfg.OutputDir, xlsxName), xlsxData, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", xlsxName, err)
	}

	s.logger.Printf("exported %d PDF(s), %s and %s to %s", len(bills), csvName, xlsxName, cfg.OutputDir)
	return nil
}

// cleanStale deletes documents from earlier runs so the directory always
// reflects the latest billing state.
func (s *ExportService) cleanStale(dir string) error {
	patterns := []string{"*.pdf", "bills_*.csv", "bills_*.xlsx"}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return fmt.Errorf("scan output directory: %w", err)
		}
		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("remove stale %s: %w", filepath.Base(path), err)
			}
		}
	}
	return nil
}

func summaryFileName(bills []billing.Bill, ext string) string {
	periods := make(map[string]bool)
	for _, b := range bills {
		periods[fmt.Sprintf("%d-%02d", b.Year, b.Month)] = true
	}
	if len(periods) == 1 {
		for p := range periods {
			return fmt.Sprintf("bills_%s.%s", p, ext)
		}
	}
	return "bills_all." + ext
}
