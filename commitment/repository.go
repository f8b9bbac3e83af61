package commitment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound          = errors.New("commitment: not found")
	ErrInvalidTransition = errors.New("commitment: invalid status transition")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, c Commitment) (Commitment, error)
	GetByID(ctx context.Context, tx pgx.Tx, id string) (Commitment, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Commitment, error)
	UpdateScore(ctx context.Context, tx pgx.Tx, id string, score float64, reason string, metadata map[string]any) (Commitment, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Commitment, error)
	ListByRole(ctx context.Context, tx pgx.Tx, filters Filters) ([]Commitment, error)
}

// Filters narrows ListByRole. Zero values mean "any".
type Filters struct {
	RoleID   string
	Status   Status
	Page     int
	PageSize int
}

type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

const commitmentColumns = `id, role_id, title, description, commitment_type::text, priority_score,
       priority_reason, status::text, due_date, amount_cents, severity_domain, effort_hours,
       metadata, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, c Commitment) (Commitment, error) {
	if c.RoleID == "" {
		return Commitment{}, fmt.Errorf("commitment: missing role id")
	}
	if c.Title == "" {
		return Commitment{}, fmt.Errorf("commitment: missing title")
	}
	if c.PriorityScore < 0 || c.PriorityScore > 100 {
		return Commitment{}, fmt.Errorf("commitment: score %v out of bounds", c.PriorityScore)
	}
	if c.PriorityReason == "" {
		return Commitment{}, fmt.Errorf("commitment: empty priority reason")
	}
	if c.Type == "" {
		c.Type = TypeObligation
	}

	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	body, err := json.Marshal(metadata)
	if err != nil {
		return Commitment{}, fmt.Errorf("commitment: marshal metadata: %w", err)
	}

	const query = `
INSERT INTO commitments (role_id, title, description, commitment_type, priority_score,
    priority_reason, status, due_date, amount_cents, severity_domain, effort_hours, metadata)
VALUES ($1, $2, $3, $4::commitment_type, $5, $6, 'pending', $7, $8, $9, $10, $11::jsonb)
RETURNING ` + commitmentColumns

	created, err := scanCommitment(tx.QueryRow(ctx, query,
		c.RoleID,
		c.Title,
		c.Description,
		c.Type,
		c.PriorityScore,
		c.PriorityReason,
		c.DueDate,
		c.AmountCents,
		c.SeverityDomain,
		c.EffortHours,
		body,
	))
	if err != nil {
		return Commitment{}, fmt.Errorf("commitment: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, tx pgx.Tx, id string) (Commitment, error) {
	return r.get(ctx, tx, id, false)
}

func (r *PGRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (Commitment, error) {
	return r.get(ctx, tx, id, true)
}

func (r *PGRepository) get(ctx context.Context, tx pgx.Tx, id string, forUpdate bool) (Commitment, error) {
	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c, err := scanCommitment(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Commitment{}, ErrNotFound
		}
		return Commitment{}, fmt.Errorf("commitment: get: %w", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateScore(ctx context.Context, tx pgx.Tx, id string, score float64, reason string, metadata map[string]any) (Commitment, error) {
	if score < 0 || score > 100 {
		return Commitment{}, fmt.Errorf("commitment: score %v out of bounds", score)
	}
	if reason == "" {
		return Commitment{}, fmt.Errorf("commitment: empty priority reason")
	}
	body, err := json.Marshal(metadata)
	if err != nil {
		return Commitment{}, fmt.Errorf("commitment: marshal metadata: %w", err)
	}

	const query = `
UPDATE commitments
SET priority_score = $2,
    priority_reason = $3,
    metadata = $4::jsonb,
    updated_at = get_tx_timestamp()
WHERE id = $1
RETURNING ` + commitmentColumns

	c, err := scanCommitment(tx.QueryRow(ctx, query, id, score, reason, body))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Commitment{}, ErrNotFound
		}
		return Commitment{}, fmt.Errorf("commitment: update score: %w", err)
	}
	return c, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Commitment, error) {
	const currentSQL = `SELECT status::text FROM commitments WHERE id = $1 FOR UPDATE`

	var current Status
	if err := tx.QueryRow(ctx, currentSQL, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Commitment{}, ErrNotFound
		}
		return Commitment{}, fmt.Errorf("commitment: lock for transition: %w", err)
	}
	if !CanTransition(current, status) {
		return Commitment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	const query = `
UPDATE commitments
SET status = $2::commitment_status,
    updated_at = get_tx_timestamp()
WHERE id = $1
RETURNING ` + commitmentColumns

	c, err := scanCommitment(tx.QueryRow(ctx, query, id, status))
	if err != nil {
		return Commitment{}, fmt.Errorf("commitment: update status: %w", err)
	}
	return c, nil
}

func (r *PGRepository) ListByRole(ctx context.Context, tx pgx.Tx, filters Filters) ([]Commitment, error) {
	if filters.RoleID == "" {
		return nil, fmt.Errorf("commitment: list requires role id")
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > 100 {
		filters.PageSize = 20
	}

	query := `SELECT ` + commitmentColumns + ` FROM commitments WHERE role_id = $1`
	args := []any{filters.RoleID}
	if filters.Status != "" {
		query += ` AND status = $2::commitment_status`
		args = append(args, filters.Status)
	}
	query += fmt.Sprintf(` ORDER BY priority_score DESC, created_at DESC LIMIT %d OFFSET %d`,
		filters.PageSize, (filters.Page-1)*filters.PageSize)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("commitment: list by role: %w", err)
	}
	defer rows.Close()

	list := make([]Commitment, 0, filters.PageSize)
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("commitment: scan: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("commitment: iterate: %w", err)
	}
	return list, nil
}

func scanCommitment(row pgx.Row) (Commitment, error) {
	var c Commitment
	return c, row.Scan(
		&c.ID,
		&c.RoleID,
		&c.Title,
		&c.Description,
		&c.Type,
		&c.PriorityScore,
		&c.PriorityReason,
		&c.Status,
		&c.DueDate,
		&c.AmountCents,
		&c.SeverityDomain,
		&c.EffortHours,
		&c.Metadata,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
}
