package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	Append(ctx context.Context, tx pgx.Tx, entry Entry) (string, error)
	ListByEntity(ctx context.Context, tx pgx.Tx, entityType, entityID string) ([]Interaction, error)
}

type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

// Append writes one interaction inside the caller's transaction and returns
// its id.
func (r *PGRepository) Append(ctx context.Context, tx pgx.Tx, entry Entry) (string, error) {
	if entry.Action == "" {
		return "", fmt.Errorf("audit: empty action")
	}
	if entry.EntityType == "" {
		return "", fmt.Errorf("audit: empty entity type")
	}

	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	body, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("audit: marshal details: %w", err)
	}

	var entityID any
	if entry.EntityID != "" {
		entityID = entry.EntityID
	}

	const query = `
INSERT INTO interactions (action, entity_type, entity_id, user_id, details, cost_cents)
VALUES ($1, $2, $3, $4, $5::jsonb, $6)
RETURNING id`

	var id string
	if err := tx.QueryRow(ctx, query,
		entry.Action,
		entry.EntityType,
		entityID,
		entry.UserID,
		body,
		entry.CostCents,
	).Scan(&id); err != nil {
		return "", fmt.Errorf("audit: append interaction: %w", err)
	}
	return id, nil
}

func (r *PGRepository) ListByEntity(ctx context.Context, tx pgx.Tx, entityType, entityID string) ([]Interaction, error) {
	const query = `
SELECT id, action, entity_type, entity_id, user_id, details, cost_cents, created_at
FROM interactions
WHERE entity_type = $1 AND entity_id = $2
ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("audit: list by entity: %w", err)
	}
	defer rows.Close()

	list := make([]Interaction, 0, 8)
	for rows.Next() {
		var it Interaction
		if err := rows.Scan(
			&it.ID,
			&it.Action,
			&it.EntityType,
			&it.EntityID,
			&it.UserID,
			&it.Details,
			&it.CostCents,
			&it.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: scan interaction: %w", err)
		}
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate interactions: %w", err)
	}
	return list, nil
}
