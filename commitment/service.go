package commitment

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"docflow/priority"
)

// Service is the commitment factory: it wraps the priority scorer so every
// persisted commitment carries a bounded score, a non-empty reason and the
// factor breakdown it was derived from.
type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	if repo == nil {
		repo = NewRepository()
	}
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateParams describes a commitment extracted from a document.
type CreateParams struct {
	RoleID      string
	Title       string
	Description string
	Type        Type
	DueDate     *time.Time
	AmountCents *int64
	Domain      string
	EffortHours *float64
	IsBlocked   bool
	BlocksCount int
	UserBoost   bool
}

// CreateFromExtraction scores and persists a commitment inside the caller's
// transaction.
func (s *Service) CreateFromExtraction(ctx context.Context, tx pgx.Tx, params CreateParams) (Commitment, error) {
	if params.Title == "" {
		return Commitment{}, fmt.Errorf("commitment: missing title")
	}

	scored := priority.Calculate(priority.Input{
		DueDate:       params.DueDate,
		AmountCents:   params.AmountCents,
		Domain:        params.Domain,
		EffortHours:   params.EffortHours,
		IsBlocked:     params.IsBlocked,
		BlocksCount:   params.BlocksCount,
		UserBoost:     params.UserBoost,
		ReferenceTime: s.now(),
	})

	var description *string
	if params.Description != "" {
		description = &params.Description
	}
	var domain *string
	if params.Domain != "" {
		domain = &params.Domain
	}

	c := Commitment{
		RoleID:         params.RoleID,
		Title:          params.Title,
		Description:    description,
		Type:           params.Type,
		PriorityScore:  scored.Score,
		PriorityReason: scored.Reason,
		DueDate:        params.DueDate,
		AmountCents:    params.AmountCents,
		SeverityDomain: domain,
		EffortHours:    params.EffortHours,
		Metadata: map[string]any{
			"factors":      scored.Factors,
			"scoring":      scored.Metadata,
			"is_blocked":   params.IsBlocked,
			"blocks_count": params.BlocksCount,
			"user_boost":   params.UserBoost,
		},
	}
	return s.repo.Create(ctx, tx, c)
}

// Recalculate re-runs the scorer against the stored inputs at the given
// reference time and persists the refreshed score, reason and breakdown.
func (s *Service) Recalculate(ctx context.Context, tx pgx.Tx, id string, referenceTime time.Time) (Commitment, error) {
	current, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return Commitment{}, err
	}

	domain := ""
	if current.SeverityDomain != nil {
		domain = *current.SeverityDomain
	}
	isBlocked, _ := current.Metadata["is_blocked"].(bool)
	blocksCount := 0
	switch v := current.Metadata["blocks_count"].(type) {
	case float64:
		blocksCount = int(v)
	case int:
		blocksCount = v
	}
	userBoost, _ := current.Metadata["user_boost"].(bool)

	scored := priority.Calculate(priority.Input{
		DueDate:       current.DueDate,
		AmountCents:   current.AmountCents,
		Domain:        domain,
		EffortHours:   current.EffortHours,
		IsBlocked:     isBlocked,
		BlocksCount:   blocksCount,
		UserBoost:     userBoost,
		ReferenceTime: referenceTime,
	})

	metadata := current.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["factors"] = scored.Factors
	metadata["scoring"] = scored.Metadata

	return s.repo.UpdateScore(ctx, tx, id, scored.Score, scored.Reason, metadata)
}

// Transition applies a lifecycle change, enforcing the allowed-transition map.
func (s *Service) Transition(ctx context.Context, tx pgx.Tx, id string, next Status) (Commitment, error) {
	switch next {
	case StatusInProgress, StatusCompleted, StatusCancelled:
	default:
		return Commitment{}, fmt.Errorf("%w: target %q", ErrInvalidTransition, next)
	}
	return s.repo.UpdateStatus(ctx, tx, id, next)
}

func (s *Service) ListByRole(ctx context.Context, tx pgx.Tx, filters Filters) ([]Commitment, error) {
	return s.repo.ListByRole(ctx, tx, filters)
}
