package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"docflow/audit"
	"docflow/blob"
	"docflow/commitment"
	"docflow/document"
	"docflow/extract"
	"docflow/party"
	"docflow/signal"
)

// Narrow views of each collaborator, declared on the consumer side so the
// orchestrator can be unit-tested against fakes.

type SignalTracker interface {
	Create(ctx context.Context, tx pgx.Tx, source, dedupeKey string, payload map[string]any) (signal.Signal, bool, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id string, status signal.Status) (signal.Signal, error)
}

type DocumentStore interface {
	Create(ctx context.Context, tx pgx.Tx, doc document.Document) (document.Document, error)
	GetByContentHash(ctx context.Context, tx pgx.Tx, contentHash string) (document.Document, error)
	CreateLink(ctx context.Context, tx pgx.Tx, link document.Link) (document.Link, error)
	ListLinks(ctx context.Context, tx pgx.Tx, documentID string) ([]document.Link, error)
}

type VendorResolver interface {
	Resolve(ctx context.Context, tx pgx.Tx, candidate party.Candidate) (party.Resolution, error)
}

type RoleEnsurer interface {
	EnsureRole(ctx context.Context, tx pgx.Tx, partyID, roleName string, userID, contextLabel *string) (party.Role, error)
}

type CommitmentFactory interface {
	CreateFromExtraction(ctx context.Context, tx pgx.Tx, params commitment.CreateParams) (commitment.Commitment, error)
}

type AuditLog interface {
	Append(ctx context.Context, tx pgx.Tx, entry audit.Entry) (string, error)
}

type Classifier func(filename, mimeType string) extract.Classification

// Orchestrator sequences one upload through storage, idempotency, extraction,
// classification, resolution, scoring, linking and audit as a single unit of
// work. It never commits or rolls back: the caller owns the transaction, so
// cancellation and failure both reduce to "the caller rolls back".
type Orchestrator struct {
	store      blob.Store
	analyzer   extract.Analyzer
	classify   Classifier
	signals    SignalTracker
	documents  DocumentStore
	resolver   VendorResolver
	roles      RoleEnsurer
	factory    CommitmentFactory
	interlog   AuditLog
	fieldParse func(raw string) extract.Fields
	logger     *slog.Logger
	now        func() time.Time
	newRunID   func() string
}

// Deps enumerates the orchestrator's collaborators. Everything is explicit:
// no registries, no globals.
type Deps struct {
	Store     blob.Store
	Analyzer  extract.Analyzer
	Classify  Classifier
	Signals   SignalTracker
	Documents DocumentStore
	Resolver  VendorResolver
	Roles     RoleEnsurer
	Factory   CommitmentFactory
	Audit     AuditLog
	Logger    *slog.Logger
}

func NewOrchestrator(deps Deps) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	classify := deps.Classify
	if classify == nil {
		classify = extract.Classify
	}
	return &Orchestrator{
		store:      deps.Store,
		analyzer:   deps.Analyzer,
		classify:   classify,
		signals:    deps.Signals,
		documents:  deps.Documents,
		resolver:   deps.Resolver,
		roles:      deps.Roles,
		factory:    deps.Factory,
		interlog:   deps.Audit,
		fieldParse: extract.ParseFields,
		logger:     logger.With("component", "pipeline"),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
}

func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

func (o *Orchestrator) WithIDGenerator(gen func() string) *Orchestrator {
	o.newRunID = gen
	return o
}

const signalSource = "document_upload"

// Process runs the full ingestion pipeline for one upload inside the
// caller's transaction. The returned Result is the primary error channel
// for business outcomes; the error return is reserved for infrastructure
// faults the caller must treat as "roll back everything".
func (o *Orchestrator) Process(ctx context.Context, tx pgx.Tx, upload Upload) Result {
	started := o.now()
	runID := o.newRunID()
	logger := o.logger.With("run_id", runID)
	metrics := newMetrics(started)
	var result Result

	// 1. Content-addressable storage with dedup.
	stored, err := o.store.Put(ctx, upload.Bytes, upload.Filename, upload.MimeType)
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("store content: %w", err))
	}
	result.Deduplicated = stored.Deduplicated
	metrics.record("storage", map[string]any{
		"content_hash": stored.ContentHash,
		"size_bytes":   stored.Size,
		"deduplicated": stored.Deduplicated,
	})

	// 2. Idempotency check. The dedupe key is the content hash, so a
	// resubmission converges on the original Signal.
	sig, existed, err := o.signals.Create(ctx, tx, signalSource, stored.ContentHash, map[string]any{
		"filename":   upload.Filename,
		"mime_type":  upload.MimeType,
		"size_bytes": stored.Size,
		"run_id":     runID,
	})
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("create signal: %w", err))
	}
	result.SignalID = sig.ID

	if existed && sig.Status == signal.StatusAttached {
		return o.replay(ctx, tx, metrics, result, stored.ContentHash)
	}

	if sig.Status != signal.StatusProcessing {
		if _, err := o.signals.UpdateStatus(ctx, tx, sig.ID, signal.StatusProcessing); err != nil {
			return o.fail(ctx, tx, metrics, result, fmt.Errorf("mark signal processing: %w", err))
		}
	}

	// 3. Extraction via the external vision service.
	classification := o.classify(upload.Filename, upload.MimeType)
	extractionType := extract.ExtractionTypeFor(classification.DocumentType)

	extracted, err := o.analyzer.Analyze(ctx, extract.DocumentHandle{
		StoragePath: stored.StoragePath,
		MimeType:    upload.MimeType,
	}, extractionType)
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("extraction service: %w", err))
	}
	metrics.record("extraction", map[string]any{
		"model":           extracted.Model,
		"pages_processed": extracted.PagesProcessed,
		"cost_cents":      extracted.CostCents,
	})
	metrics.record("classification", map[string]any{
		"document_type": string(classification.DocumentType),
		"confidence":    classification.Confidence,
	})

	// 4. Persist the document.
	fields := o.fieldParse(extracted.RawContent)
	cost := extracted.CostCents
	doc, err := o.documents.Create(ctx, tx, document.Document{
		ContentHash:    stored.ContentHash,
		StoragePath:    stored.StoragePath,
		FileName:       upload.Filename,
		MimeType:       upload.MimeType,
		SizeBytes:      stored.Size,
		ExtractionType: &extractionType,
		Extraction: map[string]any{
			"document_type":  string(classification.DocumentType),
			"vendor_name":    fields.VendorName,
			"invoice_number": fields.InvoiceNumber,
			"total_cents":    fields.TotalCents,
			"model":          extracted.Model,
		},
		ExtractionCostCents: &cost,
	})
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("persist document: %w", err))
	}
	result.DocumentID = doc.ID

	// 5. Vendor resolution and commitment creation are valid to skip when
	// extraction found no counterparty name.
	if fields.VendorName != "" {
		if err := o.resolveAndScore(ctx, tx, upload, doc, fields, classification, metrics, &result); err != nil {
			return o.fail(ctx, tx, metrics, result, err)
		}
	} else {
		logger.InfoContext(ctx, "no vendor name parsed, skipping resolution",
			"document_id", doc.ID)
	}

	// 6. Remaining relationship links.
	if _, err := o.documents.CreateLink(ctx, tx, document.Link{
		DocumentID: doc.ID,
		EntityType: document.EntitySignal,
		EntityID:   sig.ID,
		LinkType:   document.LinkExtractedFrom,
	}); err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("link signal: %w", err))
	}
	linkCount := 1
	if result.VendorID != "" {
		linkCount++
	}
	if result.CommitmentID != "" {
		linkCount++
	}
	metrics.record("links", map[string]any{"created": linkCount})

	// 7. Audit trail.
	interactionID, err := o.interlog.Append(ctx, tx, audit.Entry{
		Action:     "document.ingested",
		EntityType: "document",
		EntityID:   doc.ID,
		UserID:     upload.UserID,
		Details: map[string]any{
			"content_hash":  stored.ContentHash,
			"document_type": string(classification.DocumentType),
			"vendor_id":     result.VendorID,
			"commitment_id": result.CommitmentID,
		},
		CostCents: &cost,
	})
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("audit ingestion: %w", err))
	}
	result.InteractionIDs = append(result.InteractionIDs, interactionID)

	// 8. Terminal signal state.
	if _, err := o.signals.UpdateStatus(ctx, tx, sig.ID, signal.StatusAttached); err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("mark signal attached: %w", err))
	}

	metrics.finish(o.now())
	result.Metrics = *metrics
	logger.InfoContext(ctx, "pipeline run complete",
		"document_id", doc.ID,
		"signal_id", sig.ID,
		"vendor_id", result.VendorID,
		"commitment_id", result.CommitmentID,
	)
	return result
}

func (o *Orchestrator) resolveAndScore(ctx context.Context, tx pgx.Tx, upload Upload, doc document.Document, fields extract.Fields, classification extract.Classification, metrics *Metrics, result *Result) error {
	resolveStart := o.now()
	resolution, err := o.resolver.Resolve(ctx, tx, party.Candidate{
		Name:           fields.VendorName,
		RegistrationID: fields.RegistrationID,
		Address:        fields.Address,
	})
	if err != nil {
		return fmt.Errorf("resolve vendor: %w", err)
	}
	result.VendorID = resolution.Party.ID
	metrics.record("vendor_resolution", map[string]any{
		"matched":     resolution.Matched,
		"tier":        resolution.Tier,
		"confidence":  resolution.Confidence,
		"duration_ms": o.now().Sub(resolveStart).Milliseconds(),
	})

	role, err := o.roles.EnsureRole(ctx, tx, resolution.Party.ID, "vendor", upload.UserID, nil)
	if err != nil {
		return fmt.Errorf("ensure vendor role: %w", err)
	}

	if _, err := o.documents.CreateLink(ctx, tx, document.Link{
		DocumentID: doc.ID,
		EntityType: document.EntityParty,
		EntityID:   resolution.Party.ID,
		LinkType:   document.LinkVendor,
		Metadata: map[string]any{
			"tier":       resolution.Tier,
			"confidence": resolution.Confidence,
		},
	}); err != nil {
		return fmt.Errorf("link vendor: %w", err)
	}

	// Score and persist the obligation derived from the extraction.
	title := fmt.Sprintf("Pay %s", fields.VendorName)
	if fields.InvoiceNumber != "" {
		title = fmt.Sprintf("Pay %s invoice %s", fields.VendorName, fields.InvoiceNumber)
	}
	params := commitment.CreateParams{
		RoleID:  role.ID,
		Title:   title,
		Type:    commitment.TypeObligation,
		DueDate: fields.DueDate,
		Domain:  domainFor(classification.DocumentType),
	}
	if fields.TotalCents > 0 {
		amount := fields.TotalCents
		params.AmountCents = &amount
	}

	created, err := o.factory.CreateFromExtraction(ctx, tx, params)
	if err != nil {
		return fmt.Errorf("create commitment: %w", err)
	}
	result.CommitmentID = created.ID
	metrics.record("commitment", map[string]any{
		"priority_score": created.PriorityScore,
		"due_date_known": fields.DueDate != nil,
	})

	if _, err := o.documents.CreateLink(ctx, tx, document.Link{
		DocumentID: doc.ID,
		EntityType: document.EntityCommitment,
		EntityID:   created.ID,
		LinkType:   document.LinkObligation,
	}); err != nil {
		return fmt.Errorf("link commitment: %w", err)
	}
	return nil
}

// replay short-circuits a resubmission of already-processed content into a
// success result referencing the prior run's entities.
func (o *Orchestrator) replay(ctx context.Context, tx pgx.Tx, metrics *Metrics, result Result, contentHash string) Result {
	result.IdempotentSkip = true

	doc, err := o.documents.GetByContentHash(ctx, tx, contentHash)
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("load prior document: %w", err))
	}
	result.DocumentID = doc.ID

	links, err := o.documents.ListLinks(ctx, tx, doc.ID)
	if err != nil {
		return o.fail(ctx, tx, metrics, result, fmt.Errorf("load prior links: %w", err))
	}
	for _, link := range links {
		switch link.LinkType {
		case document.LinkVendor:
			result.VendorID = link.EntityID
		case document.LinkObligation:
			result.CommitmentID = link.EntityID
		}
	}

	metrics.record("idempotency", map[string]any{
		"skipped":      true,
		"content_hash": contentHash,
	})
	metrics.finish(o.now())
	result.Metrics = *metrics
	o.logger.InfoContext(ctx, "idempotent replay, prior run reused",
		"document_id", doc.ID,
		"signal_id", result.SignalID,
	)
	return result
}

// fail finalizes a failure result. The error interaction and signal update
// are best-effort: the caller is contractually required to roll back, so
// these writes only survive when the caller decides to keep the tx. Their
// real value is the structured log trail.
func (o *Orchestrator) fail(ctx context.Context, tx pgx.Tx, metrics *Metrics, result Result, cause error) Result {
	result.Err = cause.Error()

	o.logger.ErrorContext(ctx, "pipeline run failed", "error", cause)

	if o.interlog != nil && tx != nil {
		if _, err := o.interlog.Append(ctx, tx, audit.Entry{
			Action:     "document.ingest_failed",
			EntityType: "signal",
			EntityID:   result.SignalID,
			Details:    map[string]any{"error": cause.Error()},
		}); err != nil {
			o.logger.WarnContext(ctx, "best-effort error interaction failed", "error", err)
		}
	}
	if o.signals != nil && tx != nil && result.SignalID != "" {
		if _, err := o.signals.UpdateStatus(ctx, tx, result.SignalID, signal.StatusError); err != nil {
			o.logger.WarnContext(ctx, "best-effort signal error state failed", "error", err)
		}
	}

	metrics.finish(o.now())
	result.Metrics = *metrics
	return result
}

func domainFor(docType extract.DocumentType) string {
	switch docType {
	case extract.TypeInvoice, extract.TypeReceipt, extract.TypeStatement:
		return "finance"
	case extract.TypeContract:
		return "legal"
	default:
		return ""
	}
}
