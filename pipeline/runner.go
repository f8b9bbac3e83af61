package pipeline

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Runner owns the transaction boundary around a pipeline run: one upload is
// one transaction, committed only when the run succeeded. A failed run or a
// cancelled context rolls the whole unit of work back, which is exactly the
// partial-failure contract the orchestrator relies on.
type Runner struct {
	pool TxBeginner
	orch *Orchestrator
}

func NewRunner(pool TxBeginner, orch *Orchestrator) *Runner {
	return &Runner{pool: pool, orch: orch}
}

// ProcessDocumentUpload is the module's inbound entry point.
func (r *Runner) ProcessDocumentUpload(ctx context.Context, upload Upload) (Result, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("pipeline: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	result := r.orch.Process(ctx, tx, upload)
	if !result.OK() {
		// Roll back via the deferred call; the failure result is still the
		// caller's answer.
		return result, nil
	}

	if err := tx.Commit(ctx); err != nil {
		result.Err = fmt.Sprintf("commit: %v", err)
		return result, fmt.Errorf("pipeline: commit tx: %w", err)
	}
	return result, nil
}
