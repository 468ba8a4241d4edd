package readings

import (
	"context"
	"time"
)

// TimestampLayout is the canonical naive wall-clock representation used in
// the store. Readings deliberately carry no UTC offset; timezone awareness
// exists only to resolve the repeated hour of the autumn DST transition
// during import.
const TimestampLayout = "2006-01-02T15:04:05"

// MeterReading is one normalized 15-minute interval for a meter.
// Unique per (meter, timestamp).
type MeterReading struct {
	MeterID     int64
	Timestamp   time.Time // naive wall clock, carried in time.UTC
	Consumption float64
	Production  float64
}

// Key returns the natural key of the reading.
func (r MeterReading) Key() string {
	return r.Timestamp.Format(TimestampLayout)
}

// Repository reads canonical readings back for validation and allocation.
type Repository interface {
	ListDistinctMonths(ctx context.Context) ([]MonthRef, error)
	CountForMonth(ctx context.Context, year, month int) (int, error)
	CountForMeter(ctx context.Context, meterID int64) (int, error)
	ListTimestampsForMeterMonth(ctx context.Context, meterID int64, year, month int) ([]time.Time, error)
	ListForMonth(ctx context.Context, year, month int) ([]MeterReading, error)
}

// Store additionally accepts normalized batches from the importer.
type Store interface {
	Repository
	UpsertBatch(ctx context.Context, batch []MeterReading) (int, error)
}

// MonthRef is a (year, month) pair present in the reading data.
type MonthRef struct {
	Year  int
	Month int
}
