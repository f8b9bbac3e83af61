package main

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"path/filepath"

	"docflow/audit"
	"docflow/blob"
	"docflow/commitment"
	"docflow/db"
	"docflow/document"
	"docflow/extract"
	"docflow/party"
	"docflow/pipeline"
	"docflow/signal"
)

type config struct {
	DatabaseURL string
	BlobDir     string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		BlobDir:     os.Getenv("BLOB_DIR"),
	}
	if cfg.BlobDir == "" {
		cfg.BlobDir = "./blobs"
	}
	return cfg
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := loadConfig()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("bootstrap database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store, err := blob.NewDiskStore(cfg.BlobDir)
	if err != nil {
		logger.Error("bootstrap blob store", "error", err)
		os.Exit(1)
	}

	partyRepo := party.NewRepository()
	orch := pipeline.NewOrchestrator(pipeline.Deps{
		Store:     store,
		Analyzer:  extract.TextFileAnalyzer{},
		Signals:   signal.NewRepository(),
		Documents: document.NewRepository(),
		Resolver:  party.NewResolver(partyRepo, party.DefaultConfig()),
		Roles:     partyRepo,
		Factory:   commitment.NewService(commitment.NewRepository()),
		Audit:     audit.NewRepository(),
		Logger:    logger,
	})
	runner := pipeline.NewRunner(pool, orch)

	if len(os.Args) < 2 {
		logger.Info("pipeline ready", "blob_dir", cfg.BlobDir)
		return
	}

	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("read upload", "path", path, "error", err)
			os.Exit(1)
		}
		result, err := runner.ProcessDocumentUpload(ctx, pipeline.Upload{
			Bytes:    data,
			Filename: filepath.Base(path),
			MimeType: mimeTypeFor(path),
		})
		if err != nil {
			logger.Error("process upload", "path", path, "error", err)
			os.Exit(1)
		}
		if !result.OK() {
			logger.Warn("upload rejected", "path", path, "reason", result.Err)
			continue
		}
		logger.Info("upload processed",
			"path", path,
			"document_id", result.DocumentID,
			"signal_id", result.SignalID,
			"vendor_id", result.VendorID,
			"commitment_id", result.CommitmentID,
			"deduplicated", result.Deduplicated,
			"idempotent_skip", result.IdempotentSkip,
		)
	}
}

func mimeTypeFor(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
