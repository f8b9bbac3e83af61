package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound = errors.New("document: not found")
)

type Repository interface {
	Create(ctx context.Context, tx pgx.Tx, doc Document) (Document, error)
	GetByID(ctx context.Context, tx pgx.Tx, id string) (Document, error)
	GetByContentHash(ctx context.Context, tx pgx.Tx, contentHash string) (Document, error)
	SetExtraction(ctx context.Context, tx pgx.Tx, id string, extractionType string, payload map[string]any, costCents int64) (Document, error)
	Delete(ctx context.Context, tx pgx.Tx, id string) error
	CreateLink(ctx context.Context, tx pgx.Tx, link Link) (Link, error)
	ListLinks(ctx context.Context, tx pgx.Tx, documentID string) ([]Link, error)
	ListLinksByType(ctx context.Context, tx pgx.Tx, documentID, linkType string) ([]Link, error)
}

type PGRepository struct{}

func NewRepository() *PGRepository {
	return &PGRepository{}
}

const documentColumns = `id, content_hash, storage_path, file_name, mime_type, size_bytes,
       extraction_type, extraction, extraction_cost_cents, created_at, updated_at`

func (r *PGRepository) Create(ctx context.Context, tx pgx.Tx, doc Document) (Document, error) {
	if doc.ContentHash == "" {
		return Document{}, fmt.Errorf("document: empty content hash")
	}
	if doc.StoragePath == "" {
		return Document{}, fmt.Errorf("document: empty storage path")
	}

	var extraction any
	if doc.Extraction != nil {
		body, err := json.Marshal(doc.Extraction)
		if err != nil {
			return Document{}, fmt.Errorf("document: marshal extraction: %w", err)
		}
		extraction = body
	}

	const query = `
INSERT INTO documents (content_hash, storage_path, file_name, mime_type, size_bytes,
    extraction_type, extraction, extraction_cost_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8)
RETURNING ` + documentColumns

	created, err := scanDocument(tx.QueryRow(ctx, query,
		doc.ContentHash,
		doc.StoragePath,
		doc.FileName,
		doc.MimeType,
		doc.SizeBytes,
		doc.ExtractionType,
		extraction,
		doc.ExtractionCostCents,
	))
	if err != nil {
		return Document{}, fmt.Errorf("document: insert: %w", err)
	}
	return created, nil
}

func (r *PGRepository) GetByID(ctx context.Context, tx pgx.Tx, id string) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	doc, err := scanDocument(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("document: get by id: %w", err)
	}
	return doc, nil
}

func (r *PGRepository) GetByContentHash(ctx context.Context, tx pgx.Tx, contentHash string) (Document, error) {
	const query = `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = $1`

	doc, err := scanDocument(tx.QueryRow(ctx, query, contentHash))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("document: get by content hash: %w", err)
	}
	return doc, nil
}

func (r *PGRepository) SetExtraction(ctx context.Context, tx pgx.Tx, id string, extractionType string, payload map[string]any, costCents int64) (Document, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Document{}, fmt.Errorf("document: marshal extraction: %w", err)
	}

	const query = `
UPDATE documents
SET extraction_type = $2,
    extraction = $3::jsonb,
    extraction_cost_cents = $4,
    updated_at = get_tx_timestamp()
WHERE id = $1
RETURNING ` + documentColumns

	doc, err := scanDocument(tx.QueryRow(ctx, query, id, extractionType, body, costCents))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("document: set extraction: %w", err)
	}
	return doc, nil
}

// Delete removes a document; its links go with it via the schema cascade.
func (r *PGRepository) Delete(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("document: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	return doc, row.Scan(
		&doc.ID,
		&doc.ContentHash,
		&doc.StoragePath,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&doc.ExtractionType,
		&doc.Extraction,
		&doc.ExtractionCostCents,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
}
