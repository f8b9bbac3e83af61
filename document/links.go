package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicateLink signals a second vendor or extracted_from link for the
	// same document, which the schema forbids.
	ErrDuplicateLink = errors.New("document: duplicate singleton link")
)

const linkColumns = `id, document_id, entity_type::text, entity_id, link_type, metadata, created_at`

func (r *PGRepository) CreateLink(ctx context.Context, tx pgx.Tx, link Link) (Link, error) {
	if link.DocumentID == "" {
		return Link{}, fmt.Errorf("document: link missing document id")
	}
	if link.EntityID == "" {
		return Link{}, fmt.Errorf("document: link missing entity id")
	}
	switch link.EntityType {
	case EntitySignal, EntityParty, EntityCommitment:
	default:
		return Link{}, fmt.Errorf("document: unknown link entity type %q", link.EntityType)
	}

	metadata := link.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	body, err := json.Marshal(metadata)
	if err != nil {
		return Link{}, fmt.Errorf("document: marshal link metadata: %w", err)
	}

	const query = `
INSERT INTO document_links (document_id, entity_type, entity_id, link_type, metadata)
VALUES ($1, $2::link_entity_type, $3, $4, $5::jsonb)
RETURNING ` + linkColumns

	created, err := scanLink(tx.QueryRow(ctx, query,
		link.DocumentID,
		link.EntityType,
		link.EntityID,
		link.LinkType,
		body,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Link{}, ErrDuplicateLink
		}
		return Link{}, fmt.Errorf("document: insert link: %w", err)
	}
	return created, nil
}

func (r *PGRepository) ListLinks(ctx context.Context, tx pgx.Tx, documentID string) ([]Link, error) {
	const query = `
SELECT ` + linkColumns + `
FROM document_links
WHERE document_id = $1
ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("document: list links: %w", err)
	}
	return collectLinks(rows)
}

// ListLinksByType narrows ListLinks to one link type, e.g. all obligation
// links for a document.
func (r *PGRepository) ListLinksByType(ctx context.Context, tx pgx.Tx, documentID, linkType string) ([]Link, error) {
	const query = `
SELECT ` + linkColumns + `
FROM document_links
WHERE document_id = $1 AND link_type = $2
ORDER BY created_at ASC`

	rows, err := tx.Query(ctx, query, documentID, linkType)
	if err != nil {
		return nil, fmt.Errorf("document: list links by type: %w", err)
	}
	return collectLinks(rows)
}

func collectLinks(rows pgx.Rows) ([]Link, error) {
	defer rows.Close()

	links := make([]Link, 0, 4)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("document: scan link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document: iterate links: %w", err)
	}
	return links, nil
}

func scanLink(row pgx.Row) (Link, error) {
	var link Link
	return link, row.Scan(
		&link.ID,
		&link.DocumentID,
		&link.EntityType,
		&link.EntityID,
		&link.LinkType,
		&link.Metadata,
		&link.CreatedAt,
	)
}
