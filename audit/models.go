package audit

import "time"

// Interaction is one immutable audit entry. Rows are append-only: nothing in
// this package (or the schema) updates or deletes them.
type Interaction struct {
	ID         string
	Action     string
	EntityType string
	EntityID   *string
	UserID     *string
	Details    map[string]any
	CostCents  *int64
	CreatedAt  time.Time
}

// Entry is the write-side shape for Append.
type Entry struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     *string
	Details    map[string]any
	CostCents  *int64
}
