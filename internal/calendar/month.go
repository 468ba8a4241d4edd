package calendar

import (
	"fmt"
	"time"
)

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month int
}

// NewMonth builds a Month from a year and month number.
func NewMonth(year, month int) (Month, error) {
	if year < 1 || month < 1 || month > 12 {
		return Month{}, fmt.Errorf("calendar: invalid month %d-%d", year, month)
	}
	return Month{Year: year, Month: month}, nil
}

// ParseMonth parses "YYYY-MM".
func ParseMonth(s string) (Month, error) {
	var year, month int
	if _, err := fmt.Sscanf(s, "%d-%d", &year, &month); err != nil {
		return Month{}, fmt.Errorf("calendar: parse month %q: %w", s, err)
	}
	return NewMonth(year, month)
}

// String returns "YYYY-MM".
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Start returns midnight on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// NextStart returns midnight on the first day of the following month.
func (m Month) NextStart() time.Time {
	return time.Date(m.Year, time.Month(m.Month)+1, 1, 0, 0, 0, 0, time.UTC)
}

// Before reports whether m sorts before other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// After reports whether m sorts after other.
func (m Month) After(other Month) bool {
	return other.Before(m)
}

// MonthOf returns the Month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}
