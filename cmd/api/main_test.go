package main

import "testing"

func TestLoadConfigDefaultsBlobDir(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/docflow")
	t.Setenv("BLOB_DIR", "")

	cfg := loadConfig()

	if cfg.BlobDir != "./blobs" {
		t.Fatalf("expected default blob dir, got %q", cfg.BlobDir)
	}
	if cfg.DatabaseURL != "postgres://localhost/docflow" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
}

func TestMimeTypeFor(t *testing.T) {
	if got := mimeTypeFor("invoice.txt"); got != "text/plain; charset=utf-8" {
		t.Fatalf("unexpected mime for .txt: %q", got)
	}
	if got := mimeTypeFor("blob.unknownext"); got != "application/octet-stream" {
		t.Fatalf("unexpected fallback mime: %q", got)
	}
}
