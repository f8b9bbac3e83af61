package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyByFilename(t *testing.T) {
	cases := []struct {
		filename string
		mime     string
		want     DocumentType
	}{
		{"acme-invoice-march.pdf", "application/pdf", TypeInvoice},
		{"INV-2024-001.pdf", "application/pdf", TypeInvoice},
		{"lunch_receipt.jpg", "image/jpeg", TypeReceipt},
		{"master-services-agreement.pdf", "application/pdf", TypeContract},
		{"employment_contract.pdf", "application/pdf", TypeContract},
		{"bank-statement-q1.pdf", "application/pdf", TypeStatement},
		{"notes.txt", "text/plain", TypeGeneral},
	}

	for _, tc := range cases {
		got := Classify(tc.filename, tc.mime)
		assert.Equal(t, tc.want, got.DocumentType, "filename %s", tc.filename)
		assert.Greater(t, got.Confidence, 0.0)
	}
}

func TestClassifyUnsupportedMime(t *testing.T) {
	got := Classify("invoice.exe", "application/octet-stream")
	assert.Equal(t, TypeGeneral, got.DocumentType)
	assert.LessOrEqual(t, got.Confidence, 0.2)
}

func TestExtractionTypeFor(t *testing.T) {
	assert.Equal(t, "structured_fields", ExtractionTypeFor(TypeInvoice))
	assert.Equal(t, "structured_fields", ExtractionTypeFor(TypeReceipt))
	assert.Equal(t, "full_text", ExtractionTypeFor(TypeContract))
	assert.Equal(t, "full_text", ExtractionTypeFor(TypeGeneral))
}
