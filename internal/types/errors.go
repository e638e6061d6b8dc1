package types

import (
	"errors"
	"fmt"
)

// ErrorKind tags the pipeline error taxonomy.
type ErrorKind string

const (
	// ErrReasoningTimeout: the reasoning capability did not answer before the
	// slot's deadline. Non-fatal; the slot degrades to "unavailable".
	ErrReasoningTimeout ErrorKind = "reasoning_timeout"
	// ErrReasoningFailure: transport or protocol failure from the reasoning
	// capability. Non-fatal; the slot degrades to "unavailable".
	ErrReasoningFailure ErrorKind = "reasoning_failure"
	// ErrOntologyMiss: no vocabulary matched. An empty match list is a valid
	// lookup result, not a failure, but it is recorded for provenance.
	ErrOntologyMiss ErrorKind = "ontology_miss"
	// ErrValidationFailure: a structurally malformed document reached the
	// safety validator. Fatal; indicates a synthesis bug upstream.
	ErrValidationFailure ErrorKind = "validation_failure"
)

// PipelineError is the typed error crossing component boundaries. Extractor
// errors are absorbed by the orchestrator; only ErrValidationFailure
// propagates to the caller.
type PipelineError struct {
	Kind      ErrorKind
	Extractor ExtractorKind // which slot failed, when applicable
	Err       error         // underlying cause, may be nil
}

func (e *PipelineError) Error() string {
	if e.Extractor != "" {
		if e.Err != nil {
			return fmt.Sprintf("%s (%s extractor): %v", e.Kind, e.Extractor, e.Err)
		}
		return fmt.Sprintf("%s (%s extractor)", e.Kind, e.Extractor)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// NewPipelineError builds a tagged error around an optional cause.
func NewPipelineError(kind ErrorKind, extractor ExtractorKind, err error) *PipelineError {
	return &PipelineError{Kind: kind, Extractor: extractor, Err: err}
}

// AsPipelineError unwraps err to a *PipelineError if one is in the chain.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsTimeout reports whether err is a reasoning timeout.
func IsTimeout(err error) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Kind == ErrReasoningTimeout
}

// Fatal reports whether err must propagate to the caller instead of
// degrading a single extractor slot.
func Fatal(err error) bool {
	pe, ok := AsPipelineError(err)
	return ok && pe.Kind == ErrValidationFailure
}
