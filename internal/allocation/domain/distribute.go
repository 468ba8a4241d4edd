package allocation

import "sort"

const (
	// Epsilon guards float comparisons when draining demand.
	Epsilon = 1e-9

	// BalanceEpsilon is the tolerance for the energy balance check.
	BalanceEpsilon = 1e-6

	// Redistribution rounds are bounded so a pathological input cannot
	// spin the allocator forever. In practice two or three passes settle
	// any realistic interval.
	maxDistributionPasses = 100
)

// DistributeProduction splits the available production across member demands
// in proportion to each demand, capped at the demand itself. Capped surplus
// is redistributed among unsatisfied members until the pool or the demand is
// exhausted.
//
// The returned map holds one allocation per demand key. The bool reports
// convergence; false means the pass limit was hit with energy still
// undistributed, which the caller should log.
func DistributeProduction(available float64, demands map[int64]float64) (map[int64]float64, bool) {
	alloc := make(map[int64]float64, len(demands))
	open := make(map[int64]float64, len(demands))
	totalDemand := 0.0
	for id, d := range demands {
		alloc[id] = 0
		open[id] = d
		totalDemand += d
	}
	if available <= Epsilon || totalDemand <= Epsilon {
		return alloc, true
	}
	if available >= totalDemand {
		for id, d := range demands {
			alloc[id] = d
		}
		return alloc, true
	}

	ids := make([]int64, 0, len(demands))
	for id := range demands {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	remaining := available
	for pass := 0; pass < maxDistributionPasses; pass++ {
		if remaining <= Epsilon {
			return alloc, true
		}
		openTotal := 0.0
		for _, id := range ids {
			if open[id] > Epsilon {
				openTotal += open[id]
			}
		}
		if openTotal <= Epsilon {
			return alloc, true
		}

		pool := remaining
		for _, id := range ids {
			d := open[id]
			if d <= Epsilon {
				continue
			}
			grant := pool * d / openTotal
			if grant > d {
				grant = d
			}
			alloc[id] += grant
			open[id] = d - grant
			remaining -= grant
		}
	}
	return alloc, false
}
