package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoBackend marks content the configured analyzer cannot extract.
var ErrNoBackend = errors.New("extract: no backend for mime type")

// TextFileAnalyzer serves text uploads straight from the content store.
// Binary formats need a real vision backend; this keeps local setups and
// smoke runs working without one.
type TextFileAnalyzer struct{}

func (TextFileAnalyzer) Analyze(ctx context.Context, handle DocumentHandle, profile string) (Extraction, error) {
	if !strings.HasPrefix(handle.MimeType, "text/") {
		return Extraction{}, fmt.Errorf("%w: %s", ErrNoBackend, handle.MimeType)
	}
	data, err := os.ReadFile(handle.StoragePath)
	if err != nil {
		return Extraction{}, fmt.Errorf("extract: read stored content: %w", err)
	}
	return Extraction{
		RawContent:     string(data),
		Model:          "local-text",
		PagesProcessed: 1,
	}, nil
}
