package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	masterdata "zev-billing/internal/masterdata/domain"
)

// dateLayout is the format of the agreement period columns.
const dateLayout = "2006-01-02"

// RosterStore persists members, meters and agreements.
type RosterStore struct {
	db *sql.DB
}

// NewRosterStore constructs a store.
func NewRosterStore(db *sql.DB) *RosterStore {
	return &RosterStore{db: db}
}

// UpsertMember inserts or updates a member keyed by (first_name, last_name)
// and fills member.ID.
func (s *RosterStore) UpsertMember(ctx context.Context, member *masterdata.Member) error {
	if s == nil || s.db == nil {
		return errors.New("roster store: nil db")
	}
	if member == nil {
		return errors.New("roster store: nil member")
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `
SELECT id FROM members WHERE first_name = $1 AND last_name = $2`,
		member.FirstName, member.LastName).Scan(&id)
	switch {
	case err == nil:
		member.ID = id
		_, err = s.db.ExecContext(ctx, `
UPDATE members SET street = $1, zip = $2, city = $3, canton = $4, is_host = $5
WHERE id = $6`,
			member.Street, member.Zip, member.City, member.Canton, member.IsHost, id)
		return err
	case errors.Is(err, sql.ErrNoRows):
		return s.db.QueryRowContext(ctx, `
INSERT INTO members (first_name, last_name, street, zip, city, canton, is_host)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING id`,
			member.FirstName, member.LastName, member.Street, member.Zip,
			member.City, member.Canton, member.IsHost).Scan(&member.ID)
	default:
		return err
	}
}

// UpsertMeter inserts or updates a meter keyed by external_id and fills
// meter.ID.
func (s *RosterStore) UpsertMeter(ctx context.Context, meter *masterdata.Meter) error {
	if s == nil || s.db == nil {
		return errors.New("roster store: nil db")
	}
	if meter == nil {
		return errors.New("roster store: nil meter")
	}
	return s.db.QueryRowContext(ctx, `
INSERT INTO meters (member_id, external_id, name, is_production, is_virtual)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (external_id) DO UPDATE SET
	member_id = excluded.member_id,
	name = excluded.name,
	is_production = excluded.is_production,
	is_virtual = excluded.is_virtual
RETURNING id`,
		meter.MemberID, meter.ExternalID, meter.Name, meter.IsProduction, meter.IsVirtual).
		Scan(&meter.ID)
}

// ReplaceAgreements wipes and reinserts the agreement set in one
// transaction.
func (s *RosterStore) ReplaceAgreements(ctx context.Context, agreements []masterdata.Agreement) error {
	if s == nil || s.db == nil {
		return errors.New("roster store: nil db")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM agreements`); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, a := range agreements {
		meterID := sql.NullInt64{Int64: a.MeterID, Valid: a.MeterID != 0}
		_, err := tx.ExecContext(ctx, `
INSERT INTO agreements (type, meter_id, period_start, period_end, local_rate, grid_buy_rate, grid_sell_rate)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			a.Type, meterID, a.PeriodStart.Format(dateLayout), a.PeriodEnd.Format(dateLayout),
			a.LocalRate, a.GridBuyRate, a.GridSellRate)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ListMembers returns all members.
func (s *RosterStore) ListMembers(ctx context.Context) ([]masterdata.Member, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("roster store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, first_name, last_name, street, zip, city, canton, is_host
FROM members
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Member
	for rows.Next() {
		var m masterdata.Member
		if err := rows.Scan(&m.ID, &m.FirstName, &m.LastName, &m.Street, &m.Zip, &m.City, &m.Canton, &m.IsHost); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ListMeters returns all meters.
func (s *RosterStore) ListMeters(ctx context.Context) ([]masterdata.Meter, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("roster store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, member_id, external_id, name, is_production, is_virtual
FROM meters
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Meter
	for rows.Next() {
		var m masterdata.Meter
		if err := rows.Scan(&m.ID, &m.MemberID, &m.ExternalID, &m.Name, &m.IsProduction, &m.IsVirtual); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// FindMeterByExternalID returns the meter or nil when unknown.
func (s *RosterStore) FindMeterByExternalID(ctx context.Context, externalID string) (*masterdata.Meter, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("roster store: nil db")
	}
	var m masterdata.Meter
	err := s.db.QueryRowContext(ctx, `
SELECT id, member_id, external_id, name, is_production, is_virtual
FROM meters
WHERE external_id = $1`, externalID).
		Scan(&m.ID, &m.MemberID, &m.ExternalID, &m.Name, &m.IsProduction, &m.IsVirtual)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListAgreements returns all agreements.
func (s *RosterStore) ListAgreements(ctx context.Context) ([]masterdata.Agreement, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("roster store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, type, meter_id, period_start, period_end, local_rate, grid_buy_rate, grid_sell_rate
FROM agreements
ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []masterdata.Agreement
	for rows.Next() {
		var a masterdata.Agreement
		var meterID sql.NullInt64
		var start, end string
		if err := rows.Scan(&a.ID, &a.Type, &meterID, &start, &end, &a.LocalRate, &a.GridBuyRate, &a.GridSellRate); err != nil {
			return nil, err
		}
		if meterID.Valid {
			a.MeterID = meterID.Int64
		}
		if a.PeriodStart, err = time.ParseInLocation(dateLayout, start, time.UTC); err != nil {
			return nil, fmt.Errorf("roster store: bad period_start %q: %w", start, err)
		}
		if a.PeriodEnd, err = time.ParseInLocation(dateLayout, end, time.UTC); err != nil {
			return nil, fmt.Errorf("roster store: bad period_end %q: %w", end, err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
