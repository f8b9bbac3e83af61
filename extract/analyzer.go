// Package extract holds the contracts for the external extraction service
// and the lightweight glue that turns raw extraction text into structured
// fields.
package extract

import "context"

// DocumentHandle identifies stored content for the extraction service.
type DocumentHandle struct {
	StoragePath string
	MimeType    string
}

// Extraction is the opaque result returned by the vision service. RawContent
// is treated as text; its structure is the service's concern, not ours.
type Extraction struct {
	RawContent     string
	CostCents      int64
	Model          string
	PagesProcessed int
}

// Analyzer is the Vision Extraction Service consumed by the pipeline. It is
// an external collaborator: implementations live outside this module.
type Analyzer interface {
	Analyze(ctx context.Context, handle DocumentHandle, profile string) (Extraction, error)
}
