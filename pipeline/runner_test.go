package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
)

type fakePool struct {
	tx *fakeTx
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	return f.tx, nil
}

func TestRunnerCommitsOnSuccess(t *testing.T) {
	orch, _ := testOrchestrator(t)
	pool := &fakePool{}
	runner := NewRunner(pool, orch)

	result, err := runner.ProcessDocumentUpload(context.Background(), Upload{
		Bytes:    []byte("invoice bytes"),
		Filename: "acme-invoice.pdf",
		MimeType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.OK() {
		t.Fatalf("expected success, got %q", result.Err)
	}
	if !pool.tx.committed {
		t.Errorf("expected commit on success")
	}
}

func TestRunnerRollsBackOnFailure(t *testing.T) {
	orch, world := testOrchestrator(t)
	world.analyzer.err = errors.New("vision service unavailable")
	pool := &fakePool{}
	runner := NewRunner(pool, orch)

	result, err := runner.ProcessDocumentUpload(context.Background(), Upload{
		Bytes:    []byte("invoice bytes"),
		Filename: "acme-invoice.pdf",
		MimeType: "application/pdf",
	})
	if err != nil {
		t.Fatalf("business failure should not be an error: %v", err)
	}
	if result.OK() {
		t.Fatalf("expected failure result")
	}
	if pool.tx.committed {
		t.Errorf("failed run must not commit")
	}
	if !pool.tx.rolled {
		t.Errorf("failed run must roll back")
	}
}
