package party

import "time"

type Kind string

const (
	KindOrganization Kind = "organization"
	KindPerson       Kind = "person"
)

// Party is a counterparty extracted from documents. Resolution never merges
// two real-world-distinct entities past the configured thresholds; when in
// doubt a new Party is created instead.
type Party struct {
	ID             string
	Kind           Kind
	DisplayName    string
	NormalizedName string
	RegistrationID *string
	Address        *string
	Email          *string
	Phone          *string
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role is a Party acting in a context, e.g. "vendor" for a given user.
// At most one row exists per (party, role name, user).
type Role struct {
	ID           string
	PartyID      string
	RoleName     string
	UserID       *string
	ContextLabel *string
	CreatedAt    time.Time
}

// Candidate is the raw counterparty signal handed to the resolver.
type Candidate struct {
	Name           string
	RegistrationID string
	Address        string
	KindHint       Kind
}

// Resolution is the resolver's verdict. Party is always populated; Matched
// is false only on the create-new fallback.
type Resolution struct {
	Party      Party
	Matched    bool
	Confidence float64
	Tier       int
	Reason     string
}
