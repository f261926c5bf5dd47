package providers

import "github.com/zatekoja/opticalqc/internal/domain/entities"

// TracingParser turns a raw frame-tracing file into structured tracing data.
type TracingParser interface {
	// IsValidTracingFile performs a cheap structural check on the payload.
	IsValidTracingFile(payload string) bool

	// ParseTracingFile parses the payload, returning a parse error when it is malformed.
	ParseTracingFile(payload string) (*entities.TracingData, error)
}
