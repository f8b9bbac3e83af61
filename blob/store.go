package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrEmptyContent signals an attempt to store a zero-length payload.
	ErrEmptyContent = errors.New("blob: empty content")
)

// PutResult describes where a payload ended up and whether it was already known.
type PutResult struct {
	ContentHash  string
	StoragePath  string
	Size         int64
	Deduplicated bool
}

// Store is the content-addressable byte store consumed by the pipeline.
type Store interface {
	Put(ctx context.Context, data []byte, filename, mimeType string) (PutResult, error)
}

// DiskStore writes payloads under a root directory, keyed by the SHA-256 of
// their content. Identical bytes always land at the same path, so a second
// Put of the same content reports Deduplicated without rewriting anything.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, fmt.Errorf("blob: empty root directory")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("blob: create root: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Put(ctx context.Context, data []byte, filename, mimeType string) (PutResult, error) {
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	if len(data) == 0 {
		return PutResult{}, ErrEmptyContent
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	dir := filepath.Join(s.root, hash[:2])
	path := filepath.Join(dir, hash)

	result := PutResult{
		ContentHash: hash,
		StoragePath: path,
		Size:        int64(len(data)),
	}

	if _, err := os.Stat(path); err == nil {
		result.Deduplicated = true
		return result, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return PutResult{}, fmt.Errorf("blob: stat %s: %w", hash, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return PutResult{}, fmt.Errorf("blob: create shard dir: %w", err)
	}

	// Write to a temp file and rename into place. Rename is atomic on the
	// same filesystem, so concurrent writers of identical bytes converge on
	// one valid file and neither observes a partial write.
	tmp, err := os.CreateTemp(dir, "."+hash+".*")
	if err != nil {
		return PutResult{}, fmt.Errorf("blob: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("blob: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("blob: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return PutResult{}, fmt.Errorf("blob: rename into place: %w", err)
	}

	return result, nil
}
