package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	allocation "zev-billing/internal/allocation/domain"
	readings "zev-billing/internal/readings/domain"
)

// RecordStore persists settlement records in the invoice_daily table.
type RecordStore struct {
	db *sql.DB
}

func NewRecordStore(db *sql.DB) (*RecordStore, error) {
	if db == nil {
		return nil, errors.New("postgres record store: nil db")
	}
	return &RecordStore{db: db}, nil
}

func (s *RecordStore) UpsertRecords(ctx context.Context, records []allocation.Record) (int, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("postgres record store: not initialized")
	}
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin settlement upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO invoice_daily
			(member_id, timestamp, year, month, day,
			 virtual_consumption, virtual_production,
			 local_consumption, bkw_consumption,
			 physical_consumption, physical_production)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (member_id, timestamp) DO UPDATE SET
			year                 = excluded.year,
			month                = excluded.month,
			day                  = excluded.day,
			virtual_consumption  = excluded.virtual_consumption,
			virtual_production   = excluded.virtual_production,
			local_consumption    = excluded.local_consumption,
			bkw_consumption      = excluded.bkw_consumption,
			physical_consumption = excluded.physical_consumption,
			physical_production  = excluded.physical_production`)
	if err != nil {
		return 0, fmt.Errorf("prepare settlement upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.MemberID, r.Timestamp.Format(readings.TimestampLayout),
			r.Year, r.Month, r.Day,
			r.VirtualConsumption, r.VirtualProduction,
			r.LocalConsumption, r.GridConsumption,
			r.PhysicalConsumption, r.PhysicalProduction)
		if err != nil {
			return 0, fmt.Errorf("upsert settlement record member=%d ts=%s: %w",
				r.MemberID, r.Timestamp.Format(readings.TimestampLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit settlement upsert: %w", err)
	}
	return len(records), nil
}

func (s *RecordStore) ListForMonth(ctx context.Context, year, month int) ([]allocation.Record, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres record store: not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT member_id, timestamp, year, month, day,
		       virtual_consumption, virtual_production,
		       local_consumption, bkw_consumption,
		       physical_consumption, physical_production
		FROM invoice_daily
		WHERE year = $1 AND month = $2
		ORDER BY timestamp, member_id`, year, month)
	if err != nil {
		return nil, fmt.Errorf("list settlement records %04d-%02d: %w", year, month, err)
	}
	defer rows.Close()

	var records []allocation.Record
	for rows.Next() {
		var r allocation.Record
		var ts string
		if err := rows.Scan(&r.MemberID, &ts, &r.Year, &r.Month, &r.Day,
			&r.VirtualConsumption, &r.VirtualProduction,
			&r.LocalConsumption, &r.GridConsumption,
			&r.PhysicalConsumption, &r.PhysicalProduction); err != nil {
			return nil, fmt.Errorf("scan settlement record: %w", err)
		}
		parsed, err := time.ParseInLocation(readings.TimestampLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("parse settlement timestamp %q: %w", ts, err)
		}
		r.Timestamp = parsed
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
