package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound          = errors.New("signal: not found")
	ErrInvalidTransition = errors.New("signal: invalid status transition")
)

// Repository manages Signal rows. All methods run inside the caller's
// transaction so signal state commits or rolls back with the rest of the run.
type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, source, dedupeKey string, payload map[string]any) (Signal, bool, error)
	GetByDedupeKey(ctx context.Context, tx pgx.Tx, dedupeKey string) (Signal, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Signal, error)
}

type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

const signalColumns = `id, source, dedupe_key, status::text, payload, created_at, processed_at`

// Create inserts a Signal for the dedupe key. When the key already exists,
// including a concurrent submission that committed first, the existing row
// is returned with existed=true instead of an error.
func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, source, dedupeKey string, payload map[string]any) (Signal, bool, error) {
	if dedupeKey == "" {
		return Signal{}, false, fmt.Errorf("signal: empty dedupe key")
	}
	if source == "" {
		return Signal{}, false, fmt.Errorf("signal: empty source")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Signal{}, false, fmt.Errorf("signal: marshal payload: %w", err)
	}

	// ON CONFLICT DO NOTHING instead of catching the unique violation: a
	// raised 23505 would poison the caller's transaction, and this path must
	// leave it usable for the rest of the run. A concurrent insert blocks
	// here until the winner commits, then falls through to the re-read.
	const insertSQL = `
INSERT INTO signals (source, dedupe_key, status, payload)
VALUES ($1, $2, 'new', $3::jsonb)
ON CONFLICT (dedupe_key) DO NOTHING
RETURNING ` + signalColumns

	sig, err := scanSignal(tx.QueryRow(ctx, insertSQL, source, dedupeKey, body))
	switch {
	case err == nil:
		return sig, false, nil
	case errors.Is(err, pgx.ErrNoRows):
		existing, getErr := r.GetByDedupeKey(ctx, tx, dedupeKey)
		if getErr != nil {
			return Signal{}, false, fmt.Errorf("signal: reread after conflict: %w", getErr)
		}
		return existing, true, nil
	default:
		return Signal{}, false, fmt.Errorf("signal: insert: %w", err)
	}
}

func (r *PGRepository) GetByDedupeKey(ctx context.Context, tx pgx.Tx, dedupeKey string) (Signal, error) {
	const query = `SELECT ` + signalColumns + ` FROM signals WHERE dedupe_key = $1`

	sig, err := scanSignal(tx.QueryRow(ctx, query, dedupeKey))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Signal{}, ErrNotFound
		}
		return Signal{}, fmt.Errorf("signal: get by dedupe key: %w", err)
	}
	return sig, nil
}

// UpdateStatus applies a lifecycle transition. Entering attached stamps
// processed_at with the transaction timestamp.
func (r *PGRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status Status) (Signal, error) {
	const currentSQL = `SELECT status::text FROM signals WHERE id = $1 FOR UPDATE`

	var current Status
	if err := tx.QueryRow(ctx, currentSQL, id).Scan(&current); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Signal{}, ErrNotFound
		}
		return Signal{}, fmt.Errorf("signal: lock for update: %w", err)
	}

	if !CanTransition(current, status) {
		return Signal{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}

	const updateSQL = `
UPDATE signals
SET status = $2::signal_status,
    processed_at = CASE WHEN $2 = 'attached' THEN get_tx_timestamp() ELSE processed_at END
WHERE id = $1
RETURNING ` + signalColumns

	sig, err := scanSignal(tx.QueryRow(ctx, updateSQL, id, status))
	if err != nil {
		return Signal{}, fmt.Errorf("signal: update status: %w", err)
	}
	return sig, nil
}

func scanSignal(row pgx.Row) (Signal, error) {
	var sig Signal
	return sig, row.Scan(
		&sig.ID,
		&sig.Source,
		&sig.DedupeKey,
		&sig.Status,
		&sig.Payload,
		&sig.CreatedAt,
		&sig.ProcessedAt,
	)
}
