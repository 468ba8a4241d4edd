package application

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	masterdata "zev-billing/internal/masterdata/domain"
	"zev-billing/internal/observability/metrics"
	readings "zev-billing/internal/readings/domain"
)

// goodQualityFlag marks a provider-validated row; rows carrying any other
// non-empty flag are discarded.
const goodQualityFlag = "W"

const upsertBatchSize = 2000

// ImportService normalizes raw delimited meter readings into canonical
// per-meter, per-timestamp records.
type ImportService struct {
	roster  masterdata.Repository
	store   readings.Store
	logger  *log.Logger
	metrics *metrics.Pipeline
}

// NewImportService constructs the service. Metrics may be nil.
func NewImportService(roster masterdata.Repository, store readings.Store, logger *log.Logger, m *metrics.Pipeline) (*ImportService, error) {
	if roster == nil {
		return nil, errors.New("import service: nil roster")
	}
	if store == nil {
		return nil, errors.New("import service: nil reading store")
	}
	if logger == nil {
		return nil, errors.New("import service: nil logger")
	}
	return &ImportService{roster: roster, store: store, logger: logger, metrics: m}, nil
}

// ImportDirectory imports every *.csv file under dir in name order.
// Returns the total records upserted.
func (s *ImportService) ImportDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return 0, fmt.Errorf("import: glob %s: %w", dir, err)
	}
	if len(entries) == 0 {
		s.logger.Printf("no CSV files found in %s", dir)
		return 0, nil
	}
	sort.Strings(entries)

	total := 0
	for _, path := range entries {
		f, err := os.Open(path)
		if err != nil {
			return total, fmt.Errorf("import: open %s: %w", path, err)
		}
		count, err := s.ImportFile(ctx, filepath.Base(path), f)
		_ = f.Close()
		if err != nil {
			return total, err
		}
		total += count
	}
	return total, nil
}

// ImportFile parses a single semicolon-delimited file and upserts the
// deduplicated batch. Idempotent: re-importing the same file yields
// identical stored state. Returns the number of records upserted.
func (s *ImportService) ImportFile(ctx context.Context, name string, r io.Reader) (int, error) {
	s.logger.Printf("importing CSV: %s", name)

	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("import: read %s: %w", name, err)
	}
	if len(rows) < 2 {
		s.logger.Printf("warning: %s is empty or has only a header", name)
		return 0, nil
	}
	dataRows := rows[1:]

	meterByExternalID, err := s.meterIndex(ctx)
	if err != nil {
		return 0, err
	}

	prevByMeter := make(map[int64]time.Time)
	deduped := make(map[string]readings.MeterReading)

	var (
		skippedQuality  int
		skippedRows     int
		dstAdjustments  int
		unknownMeters   = make(map[string]bool)
		unknownRowCount int
	)

	for i, row := range dataRows {
		if len(row) < 4 {
			continue
		}

		externalID := strings.TrimSpace(trimBOM(row[0]))
		if externalID == "" {
			continue
		}
		meter, known := meterByExternalID[externalID]
		if !known {
			unknownMeters[externalID] = true
			unknownRowCount++
			continue
		}

		if len(row) > 4 {
			quality := strings.TrimSpace(row[4])
			if quality != "" && quality != goodQualityFlag {
				skippedQuality++
				continue
			}
		}

		ts, adjusted, err := readings.ParseLocalTimestamp(strings.TrimSpace(row[1]), prevByMeter[meter.ID])
		if err != nil {
			s.logger.Printf("warning: %s row %d skipped: %v", name, i+2, err)
			skippedRows++
			continue
		}
		prevByMeter[meter.ID] = ts
		if adjusted {
			dstAdjustments++
		}

		consumption, err := parseEnergy(row[2])
		if err != nil {
			s.logger.Printf("warning: %s row %d skipped: bad consumption %q", name, i+2, strings.TrimSpace(row[2]))
			skippedRows++
			continue
		}
		production, err := parseEnergy(row[3])
		if err != nil {
			s.logger.Printf("warning: %s row %d skipped: bad production %q", name, i+2, strings.TrimSpace(row[3]))
			skippedRows++
			continue
		}

		reading := readings.MeterReading{
			MeterID:     meter.ID,
			Timestamp:   ts,
			Consumption: consumption,
			Production:  production,
		}
		// last occurrence in file order wins
		deduped[fmt.Sprintf("%d|%s", meter.ID, reading.Key())] = reading
	}

	if len(unknownMeters) > 0 {
		s.logger.Printf("warning: skipped %d row(s) for %d unknown meter(s): %s",
			unknownRowCount, len(unknownMeters), truncatedList(unknownMeters, 5))
	}
	if skippedQuality > 0 {
		s.logger.Printf("warning: skipped %d row(s) with non-%s quality flag", skippedQuality, goodQualityFlag)
	}
	if dstAdjustments > 0 {
		s.logger.Printf("DST fallback adjustments: %d", dstAdjustments)
	}

	batch := make([]readings.MeterReading, 0, len(deduped))
	for _, reading := range deduped {
		batch = append(batch, reading)
	}
	sort.Slice(batch, func(i, j int) bool {
		if batch[i].MeterID != batch[j].MeterID {
			return batch[i].MeterID < batch[j].MeterID
		}
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})

	total := 0
	for start := 0; start < len(batch); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		count, err := s.store.UpsertBatch(ctx, batch[start:end])
		if err != nil {
			return total, fmt.Errorf("import: upsert batch: %w", err)
		}
		total += count
	}

	if s.metrics != nil {
		s.metrics.RowsImported.Add(float64(total))
		s.metrics.RowsSkipped.Add(float64(skippedQuality + skippedRows + unknownRowCount))
	}
	s.logger.Printf("imported %d record(s) from %s", total, name)
	return total, nil
}

func (s *ImportService) meterIndex(ctx context.Context) (map[string]masterdata.Meter, error) {
	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return nil, fmt.Errorf("import: list meters: %w", err)
	}
	index := make(map[string]masterdata.Meter, len(meters))
	for _, m := range meters {
		index[m.ExternalID] = m
	}
	return index, nil
}

// parseEnergy parses a kWh field; empty means zero.
func parseEnergy(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

func truncatedList(set map[string]bool, limit int) string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > limit {
		return strings.Join(keys[:limit], ", ") + ", ..."
	}
	return strings.Join(keys, ", ")
}
