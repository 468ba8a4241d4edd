package billing

import (
	"zev-billing/internal/calendar"
	masterdata "zev-billing/internal/masterdata/domain"
)

// VATPolicy controls which bill components carry VAT. Rate is a percentage.
type VATPolicy struct {
	Rate    float64
	OnLocal bool
	OnGrid  bool
	OnFees  bool
}

// DailyDetail is one day of consumption and production on a bill.
// Energy is rounded to whole kWh, money to rappen.
type DailyDetail struct {
	Year  int
	Month int
	Day   int

	LocalConsumptionKWh float64
	GridConsumptionKWh  float64
	TotalConsumptionKWh float64
	LocalCost           float64
	GridCost            float64
	TotalCost           float64

	TotalProductionKWh float64
	LocalSellKWh       float64
	GridExportKWh      float64
	LocalSellRevenue   float64
	GridExportRevenue  float64
	TotalRevenue       float64
}

// Bill is the settlement for one member over one billing period.
type Bill struct {
	Member       masterdata.Member
	Year         int
	Month        int
	PeriodMonths []calendar.Month

	TotalConsumptionKWh float64
	LocalConsumptionKWh float64
	GridConsumptionKWh  float64
	TotalProductionKWh  float64
	LocalSellKWh        float64
	GridExportKWh       float64

	LocalCost            float64
	GridCost             float64
	TotalCost            float64
	LocalCostInclVAT     float64
	GridCostInclVAT      float64
	TotalCostInclVAT     float64
	LocalSellRevenue     float64
	GridExportRevenue    float64
	TotalRevenue         float64

	LocalRate     float64
	LocalSellRate float64
	GridRate      float64
	GridSellRate  float64

	DailyDetails []DailyDetail

	Fees             []FeeLine
	TotalFees        float64
	TotalFeesInclVAT float64

	VATRate    float64
	VATAmount  float64
	GrandTotal float64
}

// IsProducer reports whether the member fed energy into the collective over
// the period.
func (b Bill) IsProducer() bool {
	return b.TotalProductionKWh > 0
}

// PeriodLabel renders the billing period, e.g. "2025-01" or "2025-01 to 2025-03".
func (b Bill) PeriodLabel() string {
	if len(b.PeriodMonths) <= 1 {
		return calendar.Month{Year: b.Year, Month: b.Month}.String()
	}
	first := b.PeriodMonths[0]
	last := b.PeriodMonths[len(b.PeriodMonths)-1]
	return first.String() + " to " + last.String()
}
