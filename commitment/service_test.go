package commitment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type fakeRepo struct {
	created    *Commitment
	stored     map[string]Commitment
	lastScore  float64
	lastReason string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: map[string]Commitment{}}
}

func (f *fakeRepo) Create(ctx context.Context, tx pgx.Tx, c Commitment) (Commitment, error) {
	c.ID = "commitment-1"
	c.Status = StatusPending
	f.created = &c
	f.stored[c.ID] = c
	return c, nil
}

func (f *fakeRepo) GetByID(ctx context.Context, tx pgx.Tx, id string) (Commitment, error) {
	c, ok := f.stored[id]
	if !ok {
		return Commitment{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Commitment, error) {
	return f.GetByID(ctx, tx, id)
}

func (f *fakeRepo) UpdateScore(ctx context.Context, tx pgx.Tx, id string, score float64, reason string, metadata map[string]any) (Commitment, error) {
	c, ok := f.stored[id]
	if !ok {
		return Commitment{}, ErrNotFound
	}
	c.PriorityScore = score
	c.PriorityReason = reason
	c.Metadata = metadata
	f.stored[id] = c
	f.lastScore = score
	f.lastReason = reason
	return c, nil
}

func (f *fakeRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Commitment, error) {
	c, ok := f.stored[id]
	if !ok {
		return Commitment{}, ErrNotFound
	}
	if !CanTransition(c.Status, status) {
		return Commitment{}, ErrInvalidTransition
	}
	c.Status = status
	f.stored[id] = c
	return c, nil
}

func (f *fakeRepo) ListByRole(ctx context.Context, tx pgx.Tx, filters Filters) ([]Commitment, error) {
	return nil, nil
}

func TestCreateFromExtractionScores(t *testing.T) {
	repo := newFakeRepo()
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo).WithClock(func() time.Time { return ref })

	due := ref.AddDate(0, 0, 7)
	amount := int64(123456)
	created, err := svc.CreateFromExtraction(context.Background(), nil, CreateParams{
		RoleID:      "role-1",
		Title:       "Pay invoice INV-100",
		DueDate:     &due,
		AmountCents: &amount,
		Domain:      "finance",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if created.PriorityScore < 0 || created.PriorityScore > 100 {
		t.Errorf("score out of bounds: %v", created.PriorityScore)
	}
	if created.PriorityReason == "" {
		t.Errorf("expected non-empty reason")
	}
	if !strings.Contains(created.PriorityReason, "$1,234.56") {
		t.Errorf("reason should mention the amount, got %q", created.PriorityReason)
	}
	if _, ok := created.Metadata["factors"]; !ok {
		t.Errorf("expected factor breakdown in metadata")
	}
	if created.Type != TypeObligation {
		t.Errorf("expected default obligation type, got %s", created.Type)
	}
}

func TestRecalculateSameReferenceIsStable(t *testing.T) {
	repo := newFakeRepo()
	ref := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	svc := NewService(repo).WithClock(func() time.Time { return ref })

	due := ref.AddDate(0, 0, 2)
	amount := int64(1241983)
	created, err := svc.CreateFromExtraction(context.Background(), nil, CreateParams{
		RoleID:      "role-1",
		Title:       "Pay invoice",
		DueDate:     &due,
		AmountCents: &amount,
		Domain:      "finance",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	recalced, err := svc.Recalculate(context.Background(), nil, created.ID, ref)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if recalced.PriorityScore != created.PriorityScore {
		t.Errorf("same reference time changed score: %v -> %v", created.PriorityScore, recalced.PriorityScore)
	}
	if recalced.PriorityReason != created.PriorityReason {
		t.Errorf("same reference time changed reason")
	}

	// Moving the reference past the due date must raise the score.
	later, err := svc.Recalculate(context.Background(), nil, created.ID, ref.AddDate(0, 0, 10))
	if err != nil {
		t.Fatalf("recalculate later: %v", err)
	}
	if later.PriorityScore <= recalced.PriorityScore {
		t.Errorf("overdue recalculation should raise score: %v -> %v", recalced.PriorityScore, later.PriorityScore)
	}
}

func TestTransitionLifecycle(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)

	created, err := svc.CreateFromExtraction(context.Background(), nil, CreateParams{
		RoleID: "role-1",
		Title:  "Review contract",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Transition(context.Background(), nil, created.ID, StatusCompleted); err == nil {
		t.Errorf("pending -> completed should be rejected")
	}

	inProgress, err := svc.Transition(context.Background(), nil, created.ID, StatusInProgress)
	if err != nil {
		t.Fatalf("to in_progress: %v", err)
	}
	if inProgress.Status != StatusInProgress {
		t.Errorf("unexpected status %s", inProgress.Status)
	}

	done, err := svc.Transition(context.Background(), nil, created.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("to completed: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("unexpected status %s", done.Status)
	}

	if _, err := svc.Transition(context.Background(), nil, created.ID, StatusCancelled); err == nil {
		t.Errorf("completed is terminal; cancel should be rejected")
	}
}

func TestCanTransitionTable(t *testing.T) {
	allowed := [][2]Status{
		{StatusPending, StatusInProgress},
		{StatusPending, StatusCancelled},
		{StatusInProgress, StatusCompleted},
		{StatusInProgress, StatusCancelled},
	}
	forbidden := [][2]Status{
		{StatusPending, StatusCompleted},
		{StatusCompleted, StatusInProgress},
		{StatusCancelled, StatusPending},
		{StatusCompleted, StatusCancelled},
	}

	for _, pair := range allowed {
		if !CanTransition(pair[0], pair[1]) {
			t.Errorf("expected %s -> %s allowed", pair[0], pair[1])
		}
	}
	for _, pair := range forbidden {
		if CanTransition(pair[0], pair[1]) {
			t.Errorf("expected %s -> %s forbidden", pair[0], pair[1])
		}
	}
}
