package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the context.
const (
	FieldRequestID     = "request_id"
	FieldJobID         = "job_id"
	FieldComponent     = "component"
	FieldProvider      = "provider"
	FieldFingerprint   = "fingerprint"
	FieldSentenceIndex = "sentence_index"
	FieldStage         = "stage"
)

// Metric fields, attached per entry.
const (
	FieldDurationMs = "duration_ms"
	FieldAttempt    = "attempt"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"
)
