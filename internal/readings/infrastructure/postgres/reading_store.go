package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	readings "zev-billing/internal/readings/domain"
)

// ReadingStore persists canonical meter readings. Timestamps are stored as
// naive local wall-clock text so calendar grouping matches local months.
type ReadingStore struct {
	db *sql.DB
}

// NewReadingStore constructs a store.
func NewReadingStore(db *sql.DB) *ReadingStore {
	return &ReadingStore{db: db}
}

// UpsertBatch upserts a batch by (meter_id, timestamp). Returns rows written.
func (s *ReadingStore) UpsertBatch(ctx context.Context, batch []readings.MeterReading) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("reading store: nil db")
	}
	if len(batch) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	for _, r := range batch {
		_, err := tx.ExecContext(ctx, `
INSERT INTO meter_energy (meter_id, timestamp, kwh_consumption, kwh_production)
VALUES ($1,$2,$3,$4)
ON CONFLICT (meter_id, timestamp) DO UPDATE SET
	kwh_consumption = excluded.kwh_consumption,
	kwh_production = excluded.kwh_production`,
			r.MeterID, r.Timestamp.Format(readings.TimestampLayout), r.Consumption, r.Production)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// ListDistinctMonths returns the (year, month) pairs present in the data.
func (s *ReadingStore) ListDistinctMonths(ctx context.Context) ([]readings.MonthRef, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("reading store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT DISTINCT left(timestamp, 7) AS ym
FROM meter_energy
ORDER BY ym`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.MonthRef
	for rows.Next() {
		var ym string
		if err := rows.Scan(&ym); err != nil {
			return nil, err
		}
		var ref readings.MonthRef
		if _, err := fmt.Sscanf(ym, "%d-%d", &ref.Year, &ref.Month); err != nil {
			return nil, fmt.Errorf("reading store: bad month key %q: %w", ym, err)
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

// CountForMonth returns the number of readings in a month across all meters.
func (s *ReadingStore) CountForMonth(ctx context.Context, year, month int) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("reading store: nil db")
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM meter_energy WHERE left(timestamp, 7) = $1`,
		monthKey(year, month)).Scan(&count)
	return count, err
}

// CountForMeter returns the number of readings for one meter.
func (s *ReadingStore) CountForMeter(ctx context.Context, meterID int64) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("reading store: nil db")
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM meter_energy WHERE meter_id = $1`, meterID).Scan(&count)
	return count, err
}

// ListTimestampsForMeterMonth returns a meter's timestamps within a month in
// ascending order.
func (s *ReadingStore) ListTimestampsForMeterMonth(ctx context.Context, meterID int64, year, month int) ([]time.Time, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("reading store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT timestamp FROM meter_energy
WHERE meter_id = $1 AND left(timestamp, 7) = $2
ORDER BY timestamp`, meterID, monthKey(year, month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		ts, err := time.ParseInLocation(readings.TimestampLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("reading store: bad timestamp %q: %w", raw, err)
		}
		result = append(result, ts)
	}
	return result, rows.Err()
}

// ListForMonth returns every reading in a month ordered by timestamp.
func (s *ReadingStore) ListForMonth(ctx context.Context, year, month int) ([]readings.MeterReading, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("reading store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT meter_id, timestamp, kwh_consumption, kwh_production
FROM meter_energy
WHERE left(timestamp, 7) = $1
ORDER BY timestamp, meter_id`, monthKey(year, month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []readings.MeterReading
	for rows.Next() {
		var r readings.MeterReading
		var raw string
		if err := rows.Scan(&r.MeterID, &raw, &r.Consumption, &r.Production); err != nil {
			return nil, err
		}
		ts, err := time.ParseInLocation(readings.TimestampLayout, raw, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("reading store: bad timestamp %q: %w", raw, err)
		}
		r.Timestamp = ts
		result = append(result, r)
	}
	return result, rows.Err()
}

func monthKey(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}
