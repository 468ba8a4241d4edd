package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Statements are idempotent so every run can apply them on startup.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		id         BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name  TEXT NOT NULL,
		street     TEXT NOT NULL DEFAULT '',
		zip        TEXT NOT NULL DEFAULT '',
		city       TEXT NOT NULL DEFAULT '',
		canton     TEXT NOT NULL DEFAULT '',
		is_host    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS meters (
		id            BIGSERIAL PRIMARY KEY,
		member_id     BIGINT NOT NULL REFERENCES members(id),
		external_id   TEXT NOT NULL UNIQUE,
		name          TEXT NOT NULL,
		is_production BOOLEAN NOT NULL DEFAULT FALSE,
		is_virtual    BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS agreements (
		id             BIGSERIAL PRIMARY KEY,
		type           TEXT NOT NULL,
		meter_id       BIGINT REFERENCES meters(id),
		period_start   TEXT NOT NULL,
		period_end     TEXT NOT NULL,
		local_rate     DOUBLE PRECISION NOT NULL DEFAULT 0,
		grid_buy_rate  DOUBLE PRECISION NOT NULL DEFAULT 0,
		grid_sell_rate DOUBLE PRECISION NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS meter_energy (
		id              BIGSERIAL PRIMARY KEY,
		meter_id        BIGINT NOT NULL REFERENCES meters(id),
		timestamp       TEXT NOT NULL,
		kwh_consumption DOUBLE PRECISION NOT NULL DEFAULT 0,
		kwh_production  DOUBLE PRECISION NOT NULL DEFAULT 0,
		UNIQUE (meter_id, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS invoice_daily (
		id                   BIGSERIAL PRIMARY KEY,
		member_id            BIGINT NOT NULL REFERENCES members(id),
		timestamp            TEXT NOT NULL,
		year                 INTEGER NOT NULL,
		month                INTEGER NOT NULL,
		day                  INTEGER NOT NULL,
		virtual_consumption  DOUBLE PRECISION NOT NULL DEFAULT 0,
		virtual_production   DOUBLE PRECISION NOT NULL DEFAULT 0,
		local_consumption    DOUBLE PRECISION NOT NULL DEFAULT 0,
		bkw_consumption      DOUBLE PRECISION NOT NULL DEFAULT 0,
		physical_consumption DOUBLE PRECISION NOT NULL DEFAULT 0,
		physical_production  DOUBLE PRECISION NOT NULL DEFAULT 0,
		UNIQUE (member_id, timestamp)
	)`,
	`CREATE TABLE IF NOT EXISTS complete_months (
		id    BIGSERIAL PRIMARY KEY,
		year  INTEGER NOT NULL,
		month INTEGER NOT NULL,
		UNIQUE (year, month)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_meter_energy_month ON meter_energy ((left(timestamp, 7)))`,
	`CREATE INDEX IF NOT EXISTS idx_invoice_daily_month ON invoice_daily (year, month)`,
}

// EnsureSchema creates all tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
