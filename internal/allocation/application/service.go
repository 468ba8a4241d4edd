package application

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"
	"time"

	allocation "zev-billing/internal/allocation/domain"
	"zev-billing/internal/calendar"
	masterdata "zev-billing/internal/masterdata/domain"
	"zev-billing/internal/observability/metrics"
	readings "zev-billing/internal/readings/domain"
)

// Service runs the interval-level solar settlement and persists one record
// per member and quarter hour.
type Service struct {
	roster  masterdata.Repository
	source  readings.Repository
	store   allocation.Store
	logger  *log.Logger
	metrics *metrics.Pipeline
}

// NewService constructs the allocation service. metrics may be nil.
func NewService(roster masterdata.Repository, source readings.Repository, store allocation.Store, logger *log.Logger, m *metrics.Pipeline) (*Service, error) {
	if roster == nil {
		return nil, errors.New("allocation service: nil roster")
	}
	if source == nil {
		return nil, errors.New("allocation service: nil reading source")
	}
	if store == nil {
		return nil, errors.New("allocation service: nil record store")
	}
	if logger == nil {
		return nil, errors.New("allocation service: nil logger")
	}
	return &Service{roster: roster, source: source, store: store, logger: logger, metrics: m}, nil
}

// AllocateMonths settles every given month and returns the total number of
// records written.
func (s *Service) AllocateMonths(ctx context.Context, months []calendar.Month) (int, error) {
	if len(months) == 0 {
		s.logger.Printf("no months to allocate")
		return 0, nil
	}
	total := 0
	for _, m := range months {
		count, err := s.allocateMonth(ctx, m)
		if err != nil {
			return total, err
		}
		total += count
	}
	s.logger.Printf("allocation complete, %d settlement records written", total)
	if s.metrics != nil {
		s.metrics.AllocationsTotal.Add(float64(total))
	}
	return total, nil
}

type meterRoles struct {
	toMember         map[int64]int64
	physicalProducer map[int64]bool
	physicalConsumer map[int64]bool
}

func classifyMeters(meters []masterdata.Meter) meterRoles {
	roles := meterRoles{
		toMember:         make(map[int64]int64, len(meters)),
		physicalProducer: make(map[int64]bool),
		physicalConsumer: make(map[int64]bool),
	}
	for _, m := range meters {
		roles.toMember[m.ID] = m.MemberID
		if m.IsPhysicalProducer() {
			roles.physicalProducer[m.ID] = true
		}
		if m.IsPhysicalConsumer() {
			roles.physicalConsumer[m.ID] = true
		}
	}
	return roles
}

func (s *Service) allocateMonth(ctx context.Context, month calendar.Month) (int, error) {
	s.logger.Printf("allocating solar for %s", month)

	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return 0, err
	}
	if len(meters) == 0 {
		return 0, nil
	}
	roles := classifyMeters(meters)

	rows, err := s.source.ListForMonth(ctx, month.Year, month.Month)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	groups := make(map[time.Time][]readings.MeterReading)
	for _, r := range rows {
		groups[r.Timestamp] = append(groups[r.Timestamp], r)
	}
	timestamps := make([]time.Time, 0, len(groups))
	for ts := range groups {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	var records []allocation.Record
	for _, ts := range timestamps {
		records = append(records, s.settleInterval(ts, groups[ts], roles)...)
	}

	count, err := s.store.UpsertRecords(ctx, records)
	if err != nil {
		return 0, err
	}
	s.logger.Printf("  %s: %d records", month, count)
	return count, nil
}

// settleInterval runs the capped proportional allocation for one quarter
// hour and emits a record per member with activity.
func (s *Service) settleInterval(ts time.Time, intervalReadings []readings.MeterReading, roles meterRoles) []allocation.Record {
	physicalProduction := 0.0
	physicalConsumption := 0.0
	memberConsumption := make(map[int64]float64)
	memberProduction := make(map[int64]float64)

	for _, r := range intervalReadings {
		memberID, ok := roles.toMember[r.MeterID]
		if !ok {
			continue
		}
		if roles.physicalProducer[r.MeterID] {
			physicalProduction += r.Production
			memberProduction[memberID] += r.Production
		}
		if roles.physicalConsumer[r.MeterID] {
			physicalConsumption += r.Consumption
			memberConsumption[memberID] += r.Consumption
		}
	}

	memberLocal, converged := allocation.DistributeProduction(physicalProduction, memberConsumption)
	if !converged {
		s.logger.Printf("warning: allocation at %s hit the pass limit before settling", ts.Format(readings.TimestampLayout))
	}

	memberGrid := make(map[int64]float64, len(memberConsumption))
	for id, cons := range memberConsumption {
		memberGrid[id] = math.Max(0, cons-memberLocal[id])
	}

	s.checkBalance(ts, physicalProduction, physicalConsumption, memberLocal, memberGrid)

	// collective surplus exported to the grid
	virtualProduction := math.Max(0, physicalProduction-physicalConsumption)

	active := make(map[int64]bool, len(memberConsumption)+len(memberProduction))
	for id := range memberConsumption {
		active[id] = true
	}
	for id := range memberProduction {
		active[id] = true
	}
	memberIDs := make([]int64, 0, len(active))
	for id := range active {
		memberIDs = append(memberIDs, id)
	}
	sort.Slice(memberIDs, func(i, j int) bool { return memberIDs[i] < memberIDs[j] })

	records := make([]allocation.Record, 0, len(memberIDs))
	for _, id := range memberIDs {
		exported := 0.0
		if _, produces := memberProduction[id]; produces {
			exported = virtualProduction
		}
		records = append(records, allocation.Record{
			MemberID:            id,
			Timestamp:           ts,
			Year:                ts.Year(),
			Month:               int(ts.Month()),
			Day:                 ts.Day(),
			VirtualConsumption:  round6(memberGrid[id]),
			VirtualProduction:   round6(exported),
			LocalConsumption:    round6(memberLocal[id]),
			GridConsumption:     round6(memberGrid[id]),
			PhysicalConsumption: round6(memberConsumption[id]),
			PhysicalProduction:  round6(memberProduction[id]),
		})
	}
	return records
}

func (s *Service) checkBalance(ts time.Time, production, consumption float64, local, grid map[int64]float64) {
	totalLocal := 0.0
	for _, v := range local {
		totalLocal += v
	}
	totalGrid := 0.0
	for _, v := range grid {
		totalGrid += v
	}
	expectedLocal := math.Min(production, consumption)
	expectedGrid := consumption - totalLocal

	if math.Abs(totalLocal-expectedLocal) > allocation.BalanceEpsilon {
		s.logger.Printf("error: energy balance failed at %s: local %.6f, expected %.6f",
			ts.Format(readings.TimestampLayout), totalLocal, expectedLocal)
		if s.metrics != nil {
			s.metrics.BalanceFailures.Inc()
		}
	}
	if math.Abs(totalGrid-expectedGrid) > allocation.BalanceEpsilon {
		s.logger.Printf("error: energy balance failed at %s: grid %.6f, expected %.6f",
			ts.Format(readings.TimestampLayout), totalGrid, expectedGrid)
		if s.metrics != nil {
			s.metrics.BalanceFailures.Inc()
		}
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
