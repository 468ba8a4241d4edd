package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"zev-billing/internal/config"
	masterdata "zev-billing/internal/masterdata/domain"
)

// RosterService syncs the configured roster (members, meters, agreements)
// into the store at the start of every run.
type RosterService struct {
	store  masterdata.Store
	logger *log.Logger
}

// NewRosterService constructs the service.
func NewRosterService(store masterdata.Store, logger *log.Logger) (*RosterService, error) {
	if store == nil {
		return nil, errors.New("roster service: nil store")
	}
	if logger == nil {
		return nil, errors.New("roster service: nil logger")
	}
	return &RosterService{store: store, logger: logger}, nil
}

// Sync upserts members and meters and replaces all agreements with the
// projection derived from the config. Safe to call on every run.
func (s *RosterService) Sync(ctx context.Context, cfg config.Config) error {
	for _, mc := range cfg.Members {
		member := &masterdata.Member{
			FirstName: mc.FirstName,
			LastName:  mc.LastName,
			Street:    mc.Street,
			Zip:       mc.Zip,
			City:      mc.City,
			Canton:    mc.Canton,
			IsHost:    mc.IsHost,
		}
		if err := s.store.UpsertMember(ctx, member); err != nil {
			return fmt.Errorf("roster sync: member %s: %w", mc.FullName(), err)
		}

		for _, mt := range mc.Meters {
			meter := &masterdata.Meter{
				MemberID:     member.ID,
				ExternalID:   mt.ExternalID,
				Name:         mt.Name,
				IsProduction: mt.IsProduction,
				IsVirtual:    mt.IsVirtual,
			}
			if err := s.store.UpsertMeter(ctx, meter); err != nil {
				return fmt.Errorf("roster sync: meter %s: %w", mt.ExternalID, err)
			}
		}
	}

	meters, err := s.store.ListMeters(ctx)
	if err != nil {
		return fmt.Errorf("roster sync: list meters: %w", err)
	}
	agreements, err := ProjectAgreements(cfg, meters)
	if err != nil {
		return err
	}
	if err := s.store.ReplaceAgreements(ctx, agreements); err != nil {
		return fmt.Errorf("roster sync: replace agreements: %w", err)
	}

	s.logger.Printf("roster synced: %d member(s), %d meter(s), %d agreement(s)",
		len(cfg.Members), len(meters), len(agreements))
	return nil
}

// ProjectAgreements derives the full agreement set from configuration: one
// collective-level host_info agreement plus one member agreement per
// non-host physical consumer meter. Pure function of its inputs.
func ProjectAgreements(cfg config.Config, meters []masterdata.Meter) ([]masterdata.Agreement, error) {
	start, err := parseBillingMonthStart(cfg.Collective.BillingStart)
	if err != nil {
		return nil, fmt.Errorf("roster sync: billing_start: %w", err)
	}
	end, err := parseBillingMonthEnd(cfg.Collective.BillingEnd)
	if err != nil {
		return nil, fmt.Errorf("roster sync: billing_end: %w", err)
	}

	meterByExternalID := make(map[string]masterdata.Meter, len(meters))
	for _, m := range meters {
		meterByExternalID[m.ExternalID] = m
	}

	agreements := []masterdata.Agreement{{
		Type:         masterdata.AgreementTypeHostInfo,
		PeriodStart:  start,
		PeriodEnd:    end,
		LocalRate:    cfg.Collective.LocalRate,
		GridBuyRate:  cfg.Collective.GridBuyRate,
		GridSellRate: cfg.Collective.GridSellRate,
	}}

	for _, mc := range cfg.Members {
		if mc.IsHost {
			continue // the host owns the solar, no local buy rate
		}
		for _, mt := range mc.Meters {
			if mt.IsProduction || mt.IsVirtual {
				continue // only physical consumer meters get a rate binding
			}
			meter, ok := meterByExternalID[mt.ExternalID]
			if !ok {
				continue
			}
			agreements = append(agreements, masterdata.Agreement{
				Type:        masterdata.AgreementTypeMember,
				MeterID:     meter.ID,
				PeriodStart: start,
				PeriodEnd:   end,
				LocalRate:   cfg.Collective.LocalRate,
			})
		}
	}

	return agreements, nil
}

func parseBillingMonthStart(s string) (time.Time, error) {
	if s == "" {
		// open window
		return time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func parseBillingMonthEnd(s string) (time.Time, error) {
	if s == "" {
		// open window
		return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, err
	}
	// last day of the month, so Covers treats the whole month as in range
	return t.AddDate(0, 1, -1), nil
}
