package masterdata

import "context"

// Repository reads the synced roster.
type Repository interface {
	ListMembers(ctx context.Context) ([]Member, error)
	ListMeters(ctx context.Context) ([]Meter, error)
	FindMeterByExternalID(ctx context.Context, externalID string) (*Meter, error)
	ListAgreements(ctx context.Context) ([]Agreement, error)
}

// Store additionally writes the roster during config sync. Upserts use the
// natural keys (member name, meter external id) so repeated runs are
// idempotent; agreements are replaced as a whole.
type Store interface {
	Repository
	UpsertMember(ctx context.Context, member *Member) error
	UpsertMeter(ctx context.Context, meter *Meter) error
	ReplaceAgreements(ctx context.Context, agreements []Agreement) error
}
