package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Fields are the structured values pulled from raw extraction text. Absent
// fields stay at their zero values; parsing never fails.
type Fields struct {
	VendorName     string
	InvoiceNumber  string
	TotalCents     int64
	DueDate        *time.Time
	RegistrationID string
	Address        string
}

// The keyword/pattern parser below is an acknowledged placeholder for a
// schema-driven extractor. Its matching rules are not a stable contract;
// callers should rely on which fields get populated, not on how.
var (
	vendorRe   = regexp.MustCompile(`(?im)^\s*(?:vendor|from|supplier|billed by|payee)\s*[:\-]\s*(.+)$`)
	invoiceRe  = regexp.MustCompile(`(?i)invoice[ \t]*(?:no\.?|number|#)?[ \t:#\-]*([A-Za-z][A-Za-z0-9\-]*[0-9][A-Za-z0-9\-]*|[0-9][A-Za-z0-9\-]*)`)
	totalRe    = regexp.MustCompile(`(?im)^\s*(?:total|amount due|balance due|total due)\s*[:\-]?\s*\$?\s*([0-9][0-9,]*(?:\.[0-9]{1,2})?)`)
	dueDateRe  = regexp.MustCompile(`(?im)^\s*(?:due date|due|payment due)\s*[:\-]?\s*(.+)$`)
	regIDRe    = regexp.MustCompile(`(?im)^\s*(?:tax id|ein|vat|abn|reg(?:istration)?\.?\s*(?:no|id)\.?)\s*[:\-]?\s*([A-Za-z0-9][A-Za-z0-9\-\s]*)$`)
	addressRe  = regexp.MustCompile(`(?im)^\s*address\s*[:\-]\s*(.+)$`)
	dateLayout = []string{"2006-01-02", "01/02/2006", "1/2/2006", "January 2, 2006", "Jan 2, 2006", "2 January 2006"}
)

// ParseFields scans raw extraction text for labeled invoice fields.
func ParseFields(raw string) Fields {
	var fields Fields
	if raw == "" {
		return fields
	}

	if m := vendorRe.FindStringSubmatch(raw); m != nil {
		fields.VendorName = strings.TrimSpace(m[1])
	}
	if m := invoiceRe.FindStringSubmatch(raw); m != nil {
		fields.InvoiceNumber = strings.TrimSpace(m[1])
	}
	if m := totalRe.FindStringSubmatch(raw); m != nil {
		fields.TotalCents = parseCents(m[1])
	}
	if m := dueDateRe.FindStringSubmatch(raw); m != nil {
		fields.DueDate = parseDate(strings.TrimSpace(m[1]))
	}
	if m := regIDRe.FindStringSubmatch(raw); m != nil {
		fields.RegistrationID = strings.TrimSpace(m[1])
	}
	if m := addressRe.FindStringSubmatch(raw); m != nil {
		fields.Address = strings.TrimSpace(m[1])
	}
	return fields
}

func parseCents(amount string) int64 {
	cleaned := strings.ReplaceAll(amount, ",", "")
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int64(value*100 + 0.5)
}

func parseDate(value string) *time.Time {
	for _, layout := range dateLayout {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
