package document

import "time"

// Document is a content-addressed file record. Exactly one row exists per
// distinct content hash; after extraction is attached the row is immutable
// apart from timestamps.
type Document struct {
	ID                  string
	ContentHash         string
	StoragePath         string
	FileName            string
	MimeType            string
	SizeBytes           int64
	ExtractionType      *string
	Extraction          map[string]any
	ExtractionCostCents *int64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// EntityType discriminates what a Link points at. Links reference entities by
// opaque id plus this tag, never by foreign key, so one table can relate a
// document to any entity kind.
type EntityType string

const (
	EntitySignal     EntityType = "signal"
	EntityParty      EntityType = "party"
	EntityCommitment EntityType = "commitment"
)

// Link types produced by the pipeline. A document carries at most one vendor
// and one extracted_from link, and any number of obligation links.
const (
	LinkVendor        = "vendor"
	LinkObligation    = "obligation"
	LinkExtractedFrom = "extracted_from"
)

// Link is a polymorphic relation from a Document to another entity.
type Link struct {
	ID         string
	DocumentID string
	EntityType EntityType
	EntityID   string
	LinkType   string
	Metadata   map[string]any
	CreatedAt  time.Time
}
