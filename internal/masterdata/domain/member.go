package masterdata

// Member is a participant of the energy collective. The host member owns
// the production asset and is settled differently from plain consumers.
type Member struct {
	ID        int64
	FirstName string
	LastName  string
	Street    string
	Zip       string
	City      string
	Canton    string
	IsHost    bool
}

// FullName returns "First Last".
func (m Member) FullName() string {
	return m.FirstName + " " + m.LastName
}
