package calendar

import "testing"

func months(pairs ...[2]int) []Month {
	result := make([]Month, 0, len(pairs))
	for _, p := range pairs {
		result = append(result, Month{Year: p[0], Month: p[1]})
	}
	return result
}

func TestGroupByIntervalQuarterly(t *testing.T) {
	input := months([2]int{2025, 1}, [2]int{2025, 2}, [2]int{2025, 3}, [2]int{2025, 4}, [2]int{2025, 5}, [2]int{2025, 6})
	groups := GroupByInterval(input, IntervalQuarterly)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 3 || groups[0][0].Month != 1 || groups[0][2].Month != 3 {
		t.Fatalf("unexpected first quarter: %v", groups[0])
	}
	if len(groups[1]) != 3 || groups[1][0].Month != 4 || groups[1][2].Month != 6 {
		t.Fatalf("unexpected second quarter: %v", groups[1])
	}
}

func TestGroupByIntervalMonthly(t *testing.T) {
	input := months([2]int{2025, 1}, [2]int{2025, 2})
	groups := GroupByInterval(input, IntervalMonthly)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	for i, g := range groups {
		if len(g) != 1 {
			t.Fatalf("group %d: expected single month, got %v", i, g)
		}
	}
}

func TestGroupByIntervalSemiAnnualAcrossYears(t *testing.T) {
	input := months([2]int{2025, 5}, [2]int{2025, 6}, [2]int{2025, 7}, [2]int{2026, 1})
	groups := GroupByInterval(input, IntervalSemiAnnual)
	if len(groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 {
		t.Fatalf("expected May+June in first half, got %v", groups[0])
	}
}

func TestGroupByIntervalAnnual(t *testing.T) {
	input := months([2]int{2025, 11}, [2]int{2025, 12}, [2]int{2026, 1})
	groups := GroupByInterval(input, IntervalAnnual)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
}

func TestGroupByIntervalUnknownFallsBackToMonthly(t *testing.T) {
	input := months([2]int{2025, 1}, [2]int{2025, 2}, [2]int{2025, 3})
	groups := GroupByInterval(input, "weekly")
	if len(groups) != 3 {
		t.Fatalf("expected monthly fallback with 3 groups, got %d", len(groups))
	}
}

func TestClipRange(t *testing.T) {
	input := months([2]int{2024, 12}, [2]int{2025, 1}, [2]int{2025, 2}, [2]int{2025, 3})
	clipped := ClipRange(input, Month{2025, 1}, Month{2025, 2})
	if len(clipped) != 2 {
		t.Fatalf("expected 2 months, got %v", clipped)
	}
	if clipped[0].Month != 1 || clipped[1].Month != 2 {
		t.Fatalf("unexpected clip result: %v", clipped)
	}
}

func TestMonthDays(t *testing.T) {
	if days := (Month{2024, 2}).Days(); days != 29 {
		t.Fatalf("expected 29 days in 2024-02, got %d", days)
	}
	if days := (Month{2025, 2}).Days(); days != 28 {
		t.Fatalf("expected 28 days in 2025-02, got %d", days)
	}
	if days := (Month{2025, 12}).Days(); days != 31 {
		t.Fatalf("expected 31 days in 2025-12, got %d", days)
	}
}
