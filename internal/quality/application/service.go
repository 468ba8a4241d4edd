package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"zev-billing/internal/calendar"
	masterdata "zev-billing/internal/masterdata/domain"
	readings "zev-billing/internal/readings/domain"
)

const (
	intervalsPerDay = 96

	// minimum ratio of actual vs expected intervals for a complete month
	completenessThreshold = 0.95

	// consecutive readings must be 15 minutes apart, with 1 minute tolerance
	expectedStep  = 15 * time.Minute
	stepTolerance = time.Minute
)

// CompleteMonthStore records months that passed the completeness threshold.
type CompleteMonthStore interface {
	MarkComplete(ctx context.Context, year, month int) error
	ListComplete(ctx context.Context) ([]calendar.Month, error)
}

// Service validates continuity and completeness of the canonical reading
// series and decides which months are safe to bill.
type Service struct {
	roster masterdata.Repository
	store  readings.Repository
	months CompleteMonthStore
	logger *log.Logger
}

// NewService constructs the validator.
func NewService(roster masterdata.Repository, store readings.Repository, months CompleteMonthStore, logger *log.Logger) (*Service, error) {
	if roster == nil {
		return nil, errors.New("quality service: nil roster")
	}
	if store == nil {
		return nil, errors.New("quality service: nil reading store")
	}
	if months == nil {
		return nil, errors.New("quality service: nil month store")
	}
	if logger == nil {
		return nil, errors.New("quality service: nil logger")
	}
	return &Service{roster: roster, store: store, months: months, logger: logger}, nil
}

// RunChecks runs all advisory checks, marks complete months, and returns a
// human-readable issue list. Issues never abort the run.
func (s *Service) RunChecks(ctx context.Context) ([]string, error) {
	var issues []string

	presence, err := s.checkMeterDataPresence(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, presence...)

	gaps, err := s.checkTimestampGaps(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, gaps...)

	completeness, err := s.checkMonthCompleteness(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, completeness...)

	agreements, err := s.checkAgreements(ctx)
	if err != nil {
		return nil, err
	}
	issues = append(issues, agreements...)

	if len(issues) > 0 {
		s.logger.Printf("quality checks found %d issue(s)", len(issues))
		for _, issue := range issues {
			s.logger.Printf("  - %s", issue)
		}
	} else {
		s.logger.Printf("all quality checks passed")
	}
	return issues, nil
}

// BillableMonths returns the ordered months that are both complete and
// gap-free across every meter. Excluded months are logged with reasons.
func (s *Service) BillableMonths(ctx context.Context) ([]calendar.Month, error) {
	allMonths, err := s.dataMonths(ctx)
	if err != nil {
		return nil, err
	}
	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	if len(allMonths) == 0 || len(meters) == 0 {
		return nil, nil
	}

	complete, err := s.completeMonths(ctx, allMonths, len(meters))
	if err != nil {
		return nil, err
	}
	gapFree, err := s.gapFreeMonths(ctx, allMonths, meters)
	if err != nil {
		return nil, err
	}

	var billable []calendar.Month
	for _, m := range allMonths {
		if complete[m] && gapFree[m] {
			billable = append(billable, m)
		}
	}
	sort.Slice(billable, func(i, j int) bool { return billable[i].Before(billable[j]) })

	for _, m := range allMonths {
		if complete[m] && gapFree[m] {
			continue
		}
		var reasons []string
		if !complete[m] {
			reasons = append(reasons, "incomplete data")
		}
		if !gapFree[m] {
			reasons = append(reasons, "gaps detected")
		}
		s.logger.Printf("warning: month %s excluded from billing (%s)", m, strings.Join(reasons, ", "))
	}

	if len(billable) > 0 {
		labels := make([]string, 0, len(billable))
		for _, m := range billable {
			labels = append(labels, m.String())
		}
		s.logger.Printf("billable months: %s", strings.Join(labels, ", "))
	} else {
		s.logger.Printf("warning: no months qualify for billing")
	}
	return billable, nil
}

func (s *Service) dataMonths(ctx context.Context) ([]calendar.Month, error) {
	refs, err := s.store.ListDistinctMonths(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]calendar.Month, 0, len(refs))
	for _, ref := range refs {
		result = append(result, calendar.Month{Year: ref.Year, Month: ref.Month})
	}
	return result, nil
}

func (s *Service) completeMonths(ctx context.Context, months []calendar.Month, meterCount int) (map[calendar.Month]bool, error) {
	result := make(map[calendar.Month]bool, len(months))
	for _, m := range months {
		expected := m.Days() * intervalsPerDay * meterCount
		actual, err := s.store.CountForMonth(ctx, m.Year, m.Month)
		if err != nil {
			return nil, err
		}
		if expected > 0 && float64(actual)/float64(expected) >= completenessThreshold {
			result[m] = true
		}
	}
	return result, nil
}

func (s *Service) gapFreeMonths(ctx context.Context, months []calendar.Month, meters []masterdata.Meter) (map[calendar.Month]bool, error) {
	result := make(map[calendar.Month]bool, len(months))
	for _, m := range months {
		result[m] = true
	}
	for _, meter := range meters {
		for _, m := range months {
			if !result[m] {
				continue // already disqualified
			}
			timestamps, err := s.store.ListTimestampsForMeterMonth(ctx, meter.ID, m.Year, m.Month)
			if err != nil {
				return nil, err
			}
			if hasGap(timestamps) {
				result[m] = false
			}
		}
	}
	return result, nil
}

func hasGap(timestamps []time.Time) bool {
	for i := 1; i < len(timestamps); i++ {
		diff := timestamps[i].Sub(timestamps[i-1])
		if diff < expectedStep-stepTolerance || diff > expectedStep+stepTolerance {
			return true
		}
	}
	return false
}

func (s *Service) checkMeterDataPresence(ctx context.Context) ([]string, error) {
	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	var issues []string
	for _, meter := range meters {
		count, err := s.store.CountForMeter(ctx, meter.ID)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			issues = append(issues, fmt.Sprintf("meter %q (external_id=%s) has no energy data", meter.Name, meter.ExternalID))
		}
	}
	return issues, nil
}

func (s *Service) checkTimestampGaps(ctx context.Context) ([]string, error) {
	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	months, err := s.dataMonths(ctx)
	if err != nil {
		return nil, err
	}

	var issues []string
	for _, meter := range meters {
		var gaps []string
		for _, m := range months {
			timestamps, err := s.store.ListTimestampsForMeterMonth(ctx, meter.ID, m.Year, m.Month)
			if err != nil {
				return nil, err
			}
			for i := 1; i < len(timestamps); i++ {
				diff := timestamps[i].Sub(timestamps[i-1])
				if diff < expectedStep-stepTolerance || diff > expectedStep+stepTolerance {
					gaps = append(gaps, fmt.Sprintf("%s -> %s (%.0fmin)",
						timestamps[i-1].Format(readings.TimestampLayout),
						timestamps[i].Format(readings.TimestampLayout),
						diff.Minutes()))
				}
			}
		}
		if len(gaps) > 0 {
			detail := strings.Join(truncate(gaps, 5), ", ")
			suffix := ""
			if len(gaps) > 5 {
				suffix = fmt.Sprintf(" (and %d more)", len(gaps)-5)
			}
			issues = append(issues, fmt.Sprintf("meter %q (external_id=%s) has %d gap(s): %s%s",
				meter.Name, meter.ExternalID, len(gaps), detail, suffix))
		}
	}
	return issues, nil
}

func (s *Service) checkMonthCompleteness(ctx context.Context) ([]string, error) {
	months, err := s.dataMonths(ctx)
	if err != nil {
		return nil, err
	}
	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	if len(months) == 0 || len(meters) == 0 {
		return nil, nil
	}

	var issues []string
	for _, m := range months {
		expected := m.Days() * intervalsPerDay * len(meters)
		actual, err := s.store.CountForMonth(ctx, m.Year, m.Month)
		if err != nil {
			return nil, err
		}
		ratio := 0.0
		if expected > 0 {
			ratio = float64(actual) / float64(expected)
		}
		if ratio >= completenessThreshold {
			if err := s.months.MarkComplete(ctx, m.Year, m.Month); err != nil {
				return nil, err
			}
			s.logger.Printf("month %s is complete (%.1f%%, %d/%d intervals)", m, ratio*100, actual, expected)
		} else {
			issues = append(issues, fmt.Sprintf("month %s is incomplete: %.1f%% (%d/%d intervals)", m, ratio*100, actual, expected))
		}
	}
	return issues, nil
}

func (s *Service) checkAgreements(ctx context.Context) ([]string, error) {
	agreements, err := s.roster.ListAgreements(ctx)
	if err != nil {
		return nil, err
	}
	meters, err := s.roster.ListMeters(ctx)
	if err != nil {
		return nil, err
	}
	members, err := s.roster.ListMembers(ctx)
	if err != nil {
		return nil, err
	}

	hostMemberIDs := make(map[int64]bool)
	for _, mb := range members {
		if mb.IsHost {
			hostMemberIDs[mb.ID] = true
		}
	}

	covered := make(map[int64]bool)
	hostInfoCount := 0
	for _, a := range agreements {
		switch a.Type {
		case masterdata.AgreementTypeMember:
			if a.MeterID != 0 {
				covered[a.MeterID] = true
			}
		case masterdata.AgreementTypeHostInfo:
			hostInfoCount++
		}
	}

	var issues []string
	for _, meter := range meters {
		if !meter.IsPhysicalConsumer() || hostMemberIDs[meter.MemberID] {
			continue
		}
		if !covered[meter.ID] {
			issues = append(issues, fmt.Sprintf("consumer meter %q has no member agreement", meter.Name))
		}
	}
	if hostInfoCount == 0 {
		issues = append(issues, "no host_info agreement defined (grid rates are missing)")
	}
	return issues, nil
}

func truncate(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
