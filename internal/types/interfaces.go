package types

import (
	"context"
	"encoding/json"
)

// ReasoningRequest is the bounded prompt context an extractor sends across
// the reasoning boundary. Prompt carries the extractor-owned instruction
// block; Input carries the structured narrative-plus-hints payload that the
// adapter serializes for the model.
type ReasoningRequest struct {
	Kind      ExtractorKind `json:"kind"`
	RequestID string        `json:"request_id"`
	Prompt    string        `json:"-"`
	Input     any           `json:"-"`
}

// ReasoningPort is the narrow interface to the external reasoning
// capability. Implementations are treated as untrusted, latency-bearing and
// fallible: callers bound every Invoke with a context deadline, parse the
// returned JSON defensively, and never let the response lower a risk floor.
// Implementations must be safe for concurrent use.
type ReasoningPort interface {
	// Name identifies the backing capability for logs and audit events.
	Name() string
	// Invoke sends one request and returns the raw structured response.
	Invoke(ctx context.Context, req ReasoningRequest) (json.RawMessage, error)
	// Close releases any underlying transport resources.
	Close() error
}
