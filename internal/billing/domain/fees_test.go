package billing

import (
	"math"
	"testing"
)

func TestComputeFeesPercentAppliesToRunningTotal(t *testing.T) {
	defs := []FeeDefinition{
		{Name: "Grundgebühr", Type: FeeTypeYearly, Value: 10},
		{Name: "Verwaltung", Type: FeeTypePercent, Value: 10},
	}
	// a full year: the yearly fee lands at its face value of 10, then the
	// percent fee sees 100 + 10
	lines, total := ComputeFees(defs, 100, 0, 0, 12)
	if len(lines) != 2 {
		t.Fatalf("expected 2 fee lines, got %d", len(lines))
	}
	if math.Abs(lines[0].Amount-10) > 1e-9 {
		t.Fatalf("yearly fee: expected 10.00, got %f", lines[0].Amount)
	}
	if math.Abs(lines[1].Amount-11) > 1e-9 {
		t.Fatalf("percent fee: expected 11.00, got %f", lines[1].Amount)
	}
	if math.Abs(total-21) > 1e-9 {
		t.Fatalf("total fees: expected 21.00, got %f", total)
	}
}

func TestComputeFeesYearlyProRata(t *testing.T) {
	defs := []FeeDefinition{{Name: "Grundgebühr", Type: FeeTypeYearly, Value: 120}}
	lines, total := ComputeFees(defs, 0, 0, 0, 3)
	if math.Abs(lines[0].Amount-30) > 1e-9 || math.Abs(total-30) > 1e-9 {
		t.Fatalf("quarterly share of 120/year: expected 30.00, got %f", total)
	}
}

func TestComputeFeesPerKWhBasis(t *testing.T) {
	defs := []FeeDefinition{
		{Name: "Netznutzung", Type: FeeTypePerKWh, Value: 0.05, Basis: FeeBasisGrid},
		{Name: "Solarabgabe", Type: FeeTypePerKWh, Value: 0.02, Basis: FeeBasisLocal},
	}
	lines, total := ComputeFees(defs, 0, 100, 200, 1)
	if math.Abs(lines[0].Amount-10) > 1e-9 {
		t.Fatalf("grid fee: expected 10.00, got %f", lines[0].Amount)
	}
	if math.Abs(lines[1].Amount-2) > 1e-9 {
		t.Fatalf("local fee: expected 2.00, got %f", lines[1].Amount)
	}
	if math.Abs(total-12) > 1e-9 {
		t.Fatalf("total: expected 12.00, got %f", total)
	}
}

func TestComputeFeesRoundsEachLine(t *testing.T) {
	defs := []FeeDefinition{
		{Name: "A", Type: FeeTypeYearly, Value: 10}, // 10/12 = 0.8333 -> 0.83
		{Name: "B", Type: FeeTypePercent, Value: 100},
	}
	lines, _ := ComputeFees(defs, 0, 0, 0, 1)
	if math.Abs(lines[0].Amount-0.83) > 1e-9 {
		t.Fatalf("expected 0.83, got %f", lines[0].Amount)
	}
	// the percent fee sees the rounded 0.83, not the raw 0.8333
	if math.Abs(lines[1].Amount-0.83) > 1e-9 {
		t.Fatalf("expected percent of rounded base 0.83, got %f", lines[1].Amount)
	}
}

func TestComputeFeesEmpty(t *testing.T) {
	lines, total := ComputeFees(nil, 100, 1, 1, 1)
	if lines != nil || total != 0 {
		t.Fatalf("expected no fees, got %v / %f", lines, total)
	}
}
