package billing

import "math"

// Fee types.
const (
	FeeTypeYearly  = "yearly"
	FeeTypePerKWh  = "per_kwh"
	FeeTypePercent = "percent"
)

// Fee bases for per_kwh fees.
const (
	FeeBasisLocal = "local"
	FeeBasisGrid  = "grid"
)

// FeeDefinition is a configured recurring charge for one member.
type FeeDefinition struct {
	Name  string
	Type  string
	Value float64
	Basis string
}

// FeeLine is a computed fee on a bill.
type FeeLine struct {
	Name          string
	Value         float64
	Type          string
	Basis         string
	Amount        float64
	AmountInclVAT float64
}

// MemberFees binds configured fees to a member by name.
type MemberFees struct {
	FirstName string
	LastName  string
	Fees      []FeeDefinition
}

// ComputeFees evaluates fee definitions in order. Percent fees apply to the
// running total, so every earlier fee (and the energy cost base) compounds
// into them. Each fee is rounded to rappen before it enters the running
// total. Returns the fee lines and their sum.
func ComputeFees(defs []FeeDefinition, energyCost, localKWh, gridKWh float64, periodMonths int) ([]FeeLine, float64) {
	if len(defs) == 0 {
		return nil, 0
	}
	lines := make([]FeeLine, 0, len(defs))
	runningTotal := energyCost
	totalFees := 0.0

	for _, def := range defs {
		var amount float64
		switch def.Type {
		case FeeTypeYearly:
			amount = def.Value / 12 * float64(periodMonths)
		case FeeTypePerKWh:
			if def.Basis == FeeBasisLocal {
				amount = def.Value * localKWh
			} else {
				amount = def.Value * gridKWh
			}
		default:
			amount = def.Value / 100 * runningTotal
		}
		amount = RoundMoney(amount)
		runningTotal += amount
		totalFees += amount

		basis := ""
		if def.Type == FeeTypePerKWh {
			basis = def.Basis
		}
		lines = append(lines, FeeLine{
			Name:   def.Name,
			Value:  def.Value,
			Type:   def.Type,
			Basis:  basis,
			Amount: amount,
		})
	}
	return lines, totalFees
}

// RoundMoney rounds to two decimals.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// RoundEnergy rounds to whole kWh for display.
func RoundEnergy(v float64) float64 {
	return math.Round(v)
}
