package signal

import "time"

// Status tracks a Signal through its lifecycle. A Signal is created once per
// distinct input and only ever moves forward; error is terminal for the run
// but a resubmission of the same content may re-enter processing.
type Status string

const (
	StatusNew        Status = "new"
	StatusProcessing Status = "processing"
	StatusAttached   Status = "attached"
	StatusError      Status = "error"
)

// Signal is the idempotency record keyed by a dedupe key (the content hash
// for uploads). At most one Signal exists per distinct input regardless of
// how many times it is resubmitted.
type Signal struct {
	ID          string
	Source      string
	DedupeKey   string
	Status      Status
	Payload     map[string]any
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

var transitions = map[Status][]Status{
	StatusNew:        {StatusProcessing},
	StatusProcessing: {StatusAttached, StatusError},
	StatusError:      {StatusProcessing},
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
