package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"zev-billing/internal/calendar"
)

// MonthStore persists the complete-month markers in Postgres.
type MonthStore struct {
	db *sql.DB
}

func NewMonthStore(db *sql.DB) (*MonthStore, error) {
	if db == nil {
		return nil, errors.New("postgres month store: nil db")
	}
	return &MonthStore{db: db}, nil
}

func (s *MonthStore) MarkComplete(ctx context.Context, year, month int) error {
	if s == nil || s.db == nil {
		return errors.New("postgres month store: not initialized")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO complete_months (year, month)
		VALUES ($1, $2)
		ON CONFLICT (year, month) DO NOTHING`, year, month)
	if err != nil {
		return fmt.Errorf("mark month %04d-%02d complete: %w", year, month, err)
	}
	return nil
}

func (s *MonthStore) ListComplete(ctx context.Context) ([]calendar.Month, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("postgres month store: not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT year, month FROM complete_months`)
	if err != nil {
		return nil, fmt.Errorf("list complete months: %w", err)
	}
	defer rows.Close()

	var months []calendar.Month
	for rows.Next() {
		var m calendar.Month
		if err := rows.Scan(&m.Year, &m.Month); err != nil {
			return nil, fmt.Errorf("scan complete month: %w", err)
		}
		months = append(months, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })
	return months, nil
}
