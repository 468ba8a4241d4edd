package allocation

import (
	"context"
	"time"
)

// Record is the settlement result for one member and one quarter-hour
// interval. GridConsumption is the residual drawn from the utility after
// local solar was allocated.
type Record struct {
	MemberID            int64
	Timestamp           time.Time // naive wall-clock interval start
	Year                int
	Month               int
	Day                 int
	VirtualConsumption  float64
	VirtualProduction   float64
	LocalConsumption    float64
	GridConsumption     float64
	PhysicalConsumption float64
	PhysicalProduction  float64
}

// Store persists settlement records keyed by (member, timestamp).
type Store interface {
	UpsertRecords(ctx context.Context, records []Record) (int, error)
	ListForMonth(ctx context.Context, year, month int) ([]Record, error)
}
