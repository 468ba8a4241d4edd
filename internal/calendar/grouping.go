package calendar

// Billing interval keys accepted by GroupByInterval.
const (
	IntervalMonthly    = "monthly"
	IntervalQuarterly  = "quarterly"
	IntervalSemiAnnual = "semi_annual"
	IntervalAnnual     = "annual"
)

// ValidInterval reports whether key is a known billing interval.
func ValidInterval(key string) bool {
	switch key {
	case IntervalMonthly, IntervalQuarterly, IntervalSemiAnnual, IntervalAnnual:
		return true
	}
	return false
}

type periodKey struct {
	year   int
	period int
}

// GroupByInterval groups a chronologically sorted month list into billing
// periods. Months belonging to the same period end up in the same group;
// an unknown interval key falls back to monthly grouping.
func GroupByInterval(months []Month, interval string) [][]Month {
	if len(months) == 0 {
		return nil
	}

	var keyOf func(Month) periodKey
	switch interval {
	case IntervalQuarterly:
		keyOf = func(m Month) periodKey { return periodKey{m.Year, (m.Month - 1) / 3} }
	case IntervalSemiAnnual:
		keyOf = func(m Month) periodKey {
			half := 0
			if m.Month > 6 {
				half = 1
			}
			return periodKey{m.Year, half}
		}
	case IntervalAnnual:
		keyOf = func(m Month) periodKey { return periodKey{m.Year, 0} }
	default:
		groups := make([][]Month, 0, len(months))
		for _, m := range months {
			groups = append(groups, []Month{m})
		}
		return groups
	}

	var groups [][]Month
	var current []Month
	var currentKey periodKey
	for i, m := range months {
		key := keyOf(m)
		if i == 0 || key != currentKey {
			if len(current) > 0 {
				groups = append(groups, current)
			}
			current = []Month{m}
			currentKey = key
			continue
		}
		current = append(current, m)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

// ClipRange returns the months that fall within [start, end] inclusive.
func ClipRange(months []Month, start, end Month) []Month {
	var clipped []Month
	for _, m := range months {
		if m.Before(start) || m.After(end) {
			continue
		}
		clipped = append(clipped, m)
	}
	return clipped
}
