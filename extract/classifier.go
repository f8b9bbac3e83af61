package extract

import (
	"path/filepath"
	"strings"
)

type DocumentType string

const (
	TypeInvoice   DocumentType = "invoice"
	TypeReceipt   DocumentType = "receipt"
	TypeContract  DocumentType = "contract"
	TypeStatement DocumentType = "statement"
	TypeGeneral   DocumentType = "general"
)

// Classification is a best-effort guess from filename and mime type only.
type Classification struct {
	DocumentType DocumentType
	Confidence   float64
}

var filenameKeywords = []struct {
	keyword string
	docType DocumentType
}{
	{"invoice", TypeInvoice},
	{"inv-", TypeInvoice},
	{"receipt", TypeReceipt},
	{"contract", TypeContract},
	{"agreement", TypeContract},
	{"statement", TypeStatement},
}

// Classify guesses the document type from filename keywords. Mime type only
// gates whether we trust the guess at all: non-document mimes drop straight
// to general with low confidence.
func Classify(filename, mimeType string) Classification {
	if !supportedMime(mimeType) {
		return Classification{DocumentType: TypeGeneral, Confidence: 0.1}
	}

	base := strings.ToLower(filepath.Base(filename))
	for _, entry := range filenameKeywords {
		if strings.Contains(base, entry.keyword) {
			return Classification{DocumentType: entry.docType, Confidence: 0.8}
		}
	}
	return Classification{DocumentType: TypeGeneral, Confidence: 0.3}
}

func supportedMime(mimeType string) bool {
	switch {
	case mimeType == "application/pdf":
		return true
	case strings.HasPrefix(mimeType, "image/"):
		return true
	case strings.HasPrefix(mimeType, "text/"):
		return true
	default:
		return false
	}
}

// ExtractionTypeFor maps a document type to the extraction profile requested
// from the vision service.
func ExtractionTypeFor(docType DocumentType) string {
	switch docType {
	case TypeInvoice, TypeReceipt, TypeStatement:
		return "structured_fields"
	case TypeContract:
		return "full_text"
	default:
		return "full_text"
	}
}
