package application

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"

	allocation "zev-billing/internal/allocation/domain"
	billing "zev-billing/internal/billing/domain"
	"zev-billing/internal/calendar"
	masterdata "zev-billing/internal/masterdata/domain"
	"zev-billing/internal/observability/metrics"
)

// Options configure a billing run.
type Options struct {
	ShowDailyDetail bool
	MemberFees      []billing.MemberFees
	VAT             billing.VATPolicy
}

// Service turns settlement records into member bills.
type Service struct {
	roster  masterdata.Repository
	records allocation.Store
	logger  *log.Logger
	metrics *metrics.Pipeline
}

// NewService constructs the billing service. metrics may be nil.
func NewService(roster masterdata.Repository, records allocation.Store, logger *log.Logger, m *metrics.Pipeline) (*Service, error) {
	if roster == nil {
		return nil, errors.New("billing service: nil roster")
	}
	if records == nil {
		return nil, errors.New("billing service: nil record store")
	}
	if logger == nil {
		return nil, errors.New("billing service: nil logger")
	}
	return &Service{roster: roster, records: records, logger: logger, metrics: m}, nil
}

// CalculateBills produces one bill per member per billing period. Periods
// with no settlement data yield no bills.
func (s *Service) CalculateBills(ctx context.Context, periods [][]calendar.Month, opts Options) ([]billing.Bill, error) {
	if len(periods) == 0 {
		s.logger.Printf("no billing periods, nothing to bill")
		return nil, nil
	}
	var bills []billing.Bill
	for _, period := range periods {
		periodBills, err := s.calculatePeriod(ctx, period, opts)
		if err != nil {
			return nil, err
		}
		bills = append(bills, periodBills...)
	}
	if s.metrics != nil {
		s.metrics.BillsTotal.Add(float64(len(bills)))
	}
	return bills, nil
}

type memberTotals struct {
	local        float64
	grid         float64
	physicalCons float64
	physicalProd float64
	virtualProd  float64
}

func (s *Service) calculatePeriod(ctx context.Context, period []calendar.Month, opts Options) ([]billing.Bill, error) {
	if len(period) == 0 {
		return nil, nil
	}
	first, last := period[0], period[len(period)-1]
	if len(period) == 1 {
		s.logger.Printf("calculating bills for %s", first)
	} else {
		s.logger.Printf("calculating bills for %s to %s (%d months)", first, last, len(period))
	}

	members, err := s.roster.ListMembers(ctx)
	if err != nil {
		return nil, err
	}
	agreements, err := s.roster.ListAgreements(ctx)
	if err != nil {
		return nil, err
	}

	var records []allocation.Record
	for _, m := range period {
		monthRecords, err := s.records.ListForMonth(ctx, m.Year, m.Month)
		if err != nil {
			return nil, err
		}
		records = append(records, monthRecords...)
	}
	if len(records) == 0 {
		s.logger.Printf("  no settlement data for this period")
		return nil, nil
	}

	memberByID := make(map[int64]masterdata.Member, len(members))
	for _, m := range members {
		memberByID[m.ID] = m
	}

	host := masterdata.FindHostInfo(agreements, first.Start(), last.NextStart())
	localRate, gridRate, gridSellRate := 0.0, 0.0, 0.0
	if host != nil {
		localRate = host.LocalRate
		gridRate = host.GridBuyRate
		gridSellRate = host.GridSellRate
	} else {
		s.logger.Printf("warning: no host_info agreement covers the period, rates are 0")
	}

	totals := make(map[int64]*memberTotals)
	for _, r := range records {
		t, ok := totals[r.MemberID]
		if !ok {
			t = &memberTotals{}
			totals[r.MemberID] = t
		}
		t.local += r.LocalConsumption
		t.grid += r.GridConsumption
		t.physicalCons += r.PhysicalConsumption
		t.physicalProd += r.PhysicalProduction
		t.virtualProd += r.VirtualProduction
	}

	// Energy the producer actually sold to other members over the period.
	nonHostLocal := 0.0
	for id, t := range totals {
		member, ok := memberByID[id]
		if ok && !member.IsHost {
			nonHostLocal += t.local
		}
	}

	memberIDs := make([]int64, 0, len(totals))
	for id := range totals {
		memberIDs = append(memberIDs, id)
	}
	sort.Slice(memberIDs, func(i, j int) bool { return memberIDs[i] < memberIDs[j] })

	var bills []billing.Bill
	for _, id := range memberIDs {
		member, ok := memberByID[id]
		if !ok {
			continue
		}
		t := totals[id]
		bill := s.buildBill(member, t, period, records, members, totals, opts,
			localRate, gridRate, gridSellRate, nonHostLocal)
		bills = append(bills, bill)
	}
	return bills, nil
}

func (s *Service) buildBill(member masterdata.Member, t *memberTotals, period []calendar.Month,
	records []allocation.Record, members []masterdata.Member, totals map[int64]*memberTotals,
	opts Options, collectiveLocalRate, gridRate, gridSellRate, nonHostLocal float64) billing.Bill {

	first := period[0]

	// The host owns the plant, so their own solar share is free.
	localRate := collectiveLocalRate
	if member.IsHost {
		localRate = 0
	}

	gridCost := t.grid * gridRate
	localCost := t.local * localRate
	totalCost := gridCost + localCost

	isProducer := t.physicalProd > 0
	localSellKWh, gridExportKWh := 0.0, 0.0
	localSellRevenue, gridExportRevenue, totalRevenue := 0.0, 0.0, 0.0
	if isProducer {
		gridExportKWh = t.virtualProd
		gridExportRevenue = gridExportKWh * gridSellRate
		localSellKWh = nonHostLocal
		localSellRevenue = localSellKWh * collectiveLocalRate
		totalRevenue = gridExportRevenue + localSellRevenue
	}

	var fees []billing.FeeLine
	totalFees := 0.0
	if defs := findFees(opts.MemberFees, member); len(defs) > 0 {
		fees, totalFees = billing.ComputeFees(defs, totalCost, t.local, t.grid, len(period))
	}

	vat := opts.VAT
	vatMult := 1.0
	if vat.Rate > 0 {
		vatMult = 1 + vat.Rate/100
	}

	localCostR := billing.RoundMoney(localCost)
	gridCostR := billing.RoundMoney(gridCost)
	totalCostR := billing.RoundMoney(totalCost)

	localCostIncl := localCostR
	if vat.Rate > 0 && vat.OnLocal {
		localCostIncl = billing.RoundMoney(localCost * vatMult)
	}
	gridCostIncl := gridCostR
	if vat.Rate > 0 && vat.OnGrid {
		gridCostIncl = billing.RoundMoney(gridCost * vatMult)
	}
	totalCostIncl := localCostIncl + gridCostIncl

	totalFeesIncl := 0.0
	for i := range fees {
		if vat.Rate > 0 && vat.OnFees {
			fees[i].AmountInclVAT = billing.RoundMoney(fees[i].Amount * vatMult)
		} else {
			fees[i].AmountInclVAT = fees[i].Amount
		}
		totalFeesIncl += fees[i].AmountInclVAT
	}
	totalFeesIncl = billing.RoundMoney(totalFeesIncl)

	vatAmount := billing.RoundMoney((totalCostIncl - totalCostR) + (totalFeesIncl - billing.RoundMoney(totalFees)))
	grandTotal := billing.RoundMoney(totalCostIncl + totalFeesIncl - totalRevenue)

	vatRate := 0.0
	if vatAmount > 0 {
		vatRate = vat.Rate
	}

	bill := billing.Bill{
		Member:       member,
		Year:         first.Year,
		Month:        first.Month,
		PeriodMonths: period,

		TotalConsumptionKWh: billing.RoundEnergy(t.physicalCons),
		LocalConsumptionKWh: billing.RoundEnergy(t.local),
		GridConsumptionKWh:  billing.RoundEnergy(t.grid),
		TotalProductionKWh:  billing.RoundEnergy(t.physicalProd),
		LocalSellKWh:        billing.RoundEnergy(localSellKWh),
		GridExportKWh:       billing.RoundEnergy(gridExportKWh),

		LocalCost:         localCostR,
		GridCost:          gridCostR,
		TotalCost:         totalCostR,
		LocalCostInclVAT:  localCostIncl,
		GridCostInclVAT:   gridCostIncl,
		TotalCostInclVAT:  totalCostIncl,
		LocalSellRevenue:  billing.RoundMoney(localSellRevenue),
		GridExportRevenue: billing.RoundMoney(gridExportRevenue),
		TotalRevenue:      billing.RoundMoney(totalRevenue),

		LocalRate:     localRate,
		LocalSellRate: collectiveLocalRate,
		GridRate:      gridRate,
		GridSellRate:  gridSellRate,

		Fees:             fees,
		TotalFees:        billing.RoundMoney(totalFees),
		TotalFeesInclVAT: totalFeesIncl,

		VATRate:    vatRate,
		VATAmount:  vatAmount,
		GrandTotal: grandTotal,
	}

	if opts.ShowDailyDetail {
		bill.DailyDetails = s.dailyDetails(member, records, members, isProducer,
			localRate, collectiveLocalRate, gridRate, gridSellRate)
	}

	s.logger.Printf("  %s: cost %.2f (local %.2f + grid %.2f), fees %.2f, revenue %.2f",
		member.FullName(), totalCost, localCost, gridCost, totalFees, totalRevenue)
	return bill
}

type dayKey struct {
	year, month, day int
}

type dayTotals struct {
	local, grid, physicalCons, physicalProd, virtualProd float64
}

// dailyDetails aggregates interval records per day for the member. For the
// host the per-day "sold locally" figure is the other members' local
// consumption that day.
func (s *Service) dailyDetails(member masterdata.Member, records []allocation.Record,
	members []masterdata.Member, isProducer bool,
	localRate, collectiveLocalRate, gridRate, gridSellRate float64) []billing.DailyDetail {

	hostIDs := make(map[int64]bool)
	for _, m := range members {
		if m.IsHost {
			hostIDs[m.ID] = true
		}
	}

	perDay := make(map[dayKey]*dayTotals)
	nonHostLocalByDay := make(map[dayKey]float64)
	for _, r := range records {
		key := dayKey{r.Year, r.Month, r.Day}
		if r.MemberID == member.ID {
			dt, ok := perDay[key]
			if !ok {
				dt = &dayTotals{}
				perDay[key] = dt
			}
			dt.local += r.LocalConsumption
			dt.grid += r.GridConsumption
			dt.physicalCons += r.PhysicalConsumption
			dt.physicalProd += r.PhysicalProduction
			dt.virtualProd += r.VirtualProduction
		}
		if !hostIDs[r.MemberID] {
			nonHostLocalByDay[key] += r.LocalConsumption
		}
	}

	keys := make([]dayKey, 0, len(perDay))
	for k := range perDay {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.year != b.year {
			return a.year < b.year
		}
		if a.month != b.month {
			return a.month < b.month
		}
		return a.day < b.day
	})

	details := make([]billing.DailyDetail, 0, len(keys))
	for _, k := range keys {
		dt := perDay[k]
		localCost := dt.local * localRate
		gridCost := dt.grid * gridRate

		localSell, gridExport := 0.0, 0.0
		if isProducer {
			gridExport = dt.virtualProd
			if member.IsHost {
				localSell = nonHostLocalByDay[k]
			} else {
				localSell = math.Max(0, dt.physicalProd-dt.virtualProd)
			}
		}
		localSellRev := localSell * collectiveLocalRate
		gridExportRev := gridExport * gridSellRate
		if !isProducer {
			localSellRev, gridExportRev = 0, 0
		}

		details = append(details, billing.DailyDetail{
			Year:  k.year,
			Month: k.month,
			Day:   k.day,

			LocalConsumptionKWh: billing.RoundEnergy(dt.local),
			GridConsumptionKWh:  billing.RoundEnergy(dt.grid),
			TotalConsumptionKWh: billing.RoundEnergy(dt.physicalCons),
			LocalCost:           billing.RoundMoney(localCost),
			GridCost:            billing.RoundMoney(gridCost),
			TotalCost:           billing.RoundMoney(localCost + gridCost),

			TotalProductionKWh: billing.RoundEnergy(dt.physicalProd),
			LocalSellKWh:       billing.RoundEnergy(localSell),
			GridExportKWh:      billing.RoundEnergy(gridExport),
			LocalSellRevenue:   billing.RoundMoney(localSellRev),
			GridExportRevenue:  billing.RoundMoney(gridExportRev),
			TotalRevenue:       billing.RoundMoney(localSellRev + gridExportRev),
		})
	}
	return details
}

func findFees(memberFees []billing.MemberFees, member masterdata.Member) []billing.FeeDefinition {
	for _, mf := range memberFees {
		if mf.FirstName == member.FirstName && mf.LastName == member.LastName {
			return mf.Fees
		}
	}
	return nil
}
