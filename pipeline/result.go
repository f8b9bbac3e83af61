package pipeline

// Upload is the single inbound entry point's input. Validation (empty bytes,
// unsupported mime) is the caller's job; the pipeline assumes well-formed
// input and reports business outcomes through Result.
type Upload struct {
	Bytes    []byte
	Filename string
	MimeType string
	UserID   *string
}

// Result aggregates every entity the run touched plus per-stage metrics.
// Success means Err is empty; business outcomes such as a dedup skip or a
// missing vendor are data here, never errors.
type Result struct {
	DocumentID     string
	SignalID       string
	VendorID       string
	CommitmentID   string
	InteractionIDs []string
	Metrics        Metrics
	Deduplicated   bool
	IdempotentSkip bool
	Err            string
}

// OK reports whether the run succeeded.
func (r Result) OK() bool {
	return r.Err == ""
}
