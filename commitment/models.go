package commitment

import "time"

type Type string

const (
	TypeObligation Type = "obligation"
	TypeGoal       Type = "goal"
	TypeRoutine    Type = "routine"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Commitment is an obligation, goal or routine owned by a Role. The score is
// always within [0,100] and the reason is never empty; the full factor
// breakdown lives in Metadata.
type Commitment struct {
	ID             string
	RoleID         string
	Title          string
	Description    *string
	Type           Type
	PriorityScore  float64
	PriorityReason string
	Status         Status
	DueDate        *time.Time
	AmountCents    *int64
	SeverityDomain *string
	EffortHours    *float64
	Metadata       map[string]any
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var transitions = map[Status][]Status{
	StatusPending:    {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a lifecycle move is allowed. Completed and
// cancelled are terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
