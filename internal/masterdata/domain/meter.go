package masterdata

// Meter is a metering point owned by a member. Production and virtual are
// independent flags: virtual meters exist for accounting only and carry no
// physical readings.
type Meter struct {
	ID           int64
	MemberID     int64
	ExternalID   string
	Name         string
	IsProduction bool
	IsVirtual    bool
}

// IsPhysicalProducer reports a physical solar feed-in meter.
func (m Meter) IsPhysicalProducer() bool {
	return m.IsProduction && !m.IsVirtual
}

// IsPhysicalConsumer reports a physical consumption meter.
func (m Meter) IsPhysicalConsumer() bool {
	return !m.IsProduction && !m.IsVirtual
}

// IsVirtualConsumer reports an accounting-only consumption meter.
func (m Meter) IsVirtualConsumer() bool {
	return !m.IsProduction && m.IsVirtual
}

// IsVirtualProducer reports an accounting-only production meter.
func (m Meter) IsVirtualProducer() bool {
	return m.IsProduction && m.IsVirtual
}
