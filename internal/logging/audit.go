package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// EventType names one kind of audit event.
type EventType string

const (
	// Pipeline lifecycle
	EventPipelineState EventType = "pipeline_state"
	EventPipelineError EventType = "pipeline_error"

	// Deterministic safety decisions
	EventOverrideTrigger EventType = "override_trigger"
	EventOverrideReload  EventType = "override_reload"
	EventSanitizeReplace EventType = "sanitize_replace"

	// Reasoning boundary
	EventReasoningCall     EventType = "reasoning_call"
	EventReasoningCacheHit EventType = "reasoning_cache_hit"

	// Extraction
	EventExtractorResult  EventType = "extractor_result"
	EventEmotionSuppress  EventType = "emotion_suppressed"
	EventCollaborationRun EventType = "collaboration_run"
)

// =============================================================================
// AUDIT EVENT STRUCTURE
// =============================================================================

// Event is one structured audit entry, written as a single JSON line.
type Event struct {
	Timestamp  int64          `json:"ts"`      // Unix milliseconds
	EventType  EventType      `json:"event"`   //
	RequestID  string         `json:"req"`     // Request correlation
	Stage      string         `json:"stage"`   // Pipeline stage or extractor kind
	Target     string         `json:"target"`  // Target of the operation
	Success    bool           `json:"success"` //
	DurationMs int64          `json:"dur_ms"`  //
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"msg"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Sink receives audit events. Implementations must be safe for concurrent
// use and must never block the pipeline on failure: auditing is best-effort,
// interpretation is not.
type Sink interface {
	Emit(Event)
	Close() error
}

// =============================================================================
// FILE SINK (JSONL)
// =============================================================================

// FileSink appends one JSON line per event to a file. Write failures are
// counted, not raised.
type FileSink struct {
	mu      sync.Mutex
	file    *os.File
	dropped int
}

// NewFileSink opens (or creates) the audit file in append mode.
func NewFileSink(path string) (*FileSink, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return &FileSink{file: file}, nil
}

// Emit writes the event as a JSON line.
func (s *FileSink) Emit(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		s.mu.Lock()
		s.dropped++
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		s.dropped++
		return
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		s.dropped++
	}
}

// Dropped reports how many events failed to persist.
func (s *FileSink) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close flushes and closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// =============================================================================
// NOP SINK
// =============================================================================

// NopSink discards everything. Used when the caller opts out of auditing.
type NopSink struct{}

func (NopSink) Emit(Event)   {}
func (NopSink) Close() error { return nil }

// =============================================================================
// AUDITOR (REQUEST-SCOPED CONVENIENCE METHODS)
// =============================================================================

// Auditor stamps events with a request ID before emitting them. A nil
// Auditor is valid and silently discards, so deeply nested components never
// need nil checks.
type Auditor struct {
	sink      Sink
	requestID string
}

// NewAuditor scopes sink to one request. A nil sink yields a discard-only
// auditor.
func NewAuditor(sink Sink, requestID string) *Auditor {
	if sink == nil {
		sink = NopSink{}
	}
	return &Auditor{sink: sink, requestID: requestID}
}

// Emit stamps and forwards a raw event.
func (a *Auditor) Emit(event Event) {
	if a == nil {
		return
	}
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.RequestID == "" {
		event.RequestID = a.requestID
	}
	a.sink.Emit(event)
}

// StateTransition records the orchestrator entering a new state.
func (a *Auditor) StateTransition(from, to string) {
	a.Emit(Event{
		EventType: EventPipelineState,
		Stage:     to,
		Success:   true,
		Message:   fmt.Sprintf("pipeline state: %s -> %s", from, to),
	})
}

// PipelineErr records a tagged pipeline error against its slot.
func (a *Auditor) PipelineErr(kind, extractor string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Emit(Event{
		EventType: EventPipelineError,
		Stage:     extractor,
		Target:    kind,
		Success:   false,
		Error:     errMsg,
		Message:   fmt.Sprintf("pipeline error: %s in %s slot", kind, extractor),
	})
}

// OverrideTrigger records a deterministic risk escalation.
func (a *Auditor) OverrideTrigger(level string, patterns []string) {
	a.Emit(Event{
		EventType: EventOverrideTrigger,
		Stage:     "override",
		Target:    level,
		Success:   true,
		Fields:    map[string]any{"patterns": patterns},
		Message:   fmt.Sprintf("risk floor %s from %d pattern(s)", level, len(patterns)),
	})
}

// OverrideReload records a pattern-table reload attempt.
func (a *Auditor) OverrideReload(path string, rules int, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Emit(Event{
		EventType: EventOverrideReload,
		Stage:     "override",
		Target:    path,
		Success:   err == nil,
		Error:     errMsg,
		Fields:    map[string]any{"rules": rules},
		Message:   fmt.Sprintf("override table reload: %s (%d rules)", path, rules),
	})
}

// SanitizeReplace records one forbidden-term replacement.
func (a *Auditor) SanitizeReplace(field, term, replacement string) {
	a.Emit(Event{
		EventType: EventSanitizeReplace,
		Stage:     "validator",
		Target:    field,
		Success:   true,
		Fields:    map[string]any{"term": term, "replacement": replacement},
		Message:   fmt.Sprintf("sanitized %q in %s", term, field),
	})
}

// ReasoningCall records one round trip across the reasoning boundary.
func (a *Auditor) ReasoningCall(extractor, port string, durationMs int64, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	a.Emit(Event{
		EventType:  EventReasoningCall,
		Stage:      extractor,
		Target:     port,
		Success:    err == nil,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("reasoning call via %s for %s (%dms)", port, extractor, durationMs),
	})
}

// CacheHit records a reasoning response served from cache.
func (a *Auditor) CacheHit(extractor, port string) {
	a.Emit(Event{
		EventType: EventReasoningCacheHit,
		Stage:     extractor,
		Target:    port,
		Success:   true,
		Message:   fmt.Sprintf("reasoning cache hit for %s", extractor),
	})
}

// ExtractorResult records an extractor slot outcome.
func (a *Auditor) ExtractorResult(extractor string, durationMs int64, success bool, errMsg string) {
	a.Emit(Event{
		EventType:  EventExtractorResult,
		Stage:      extractor,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("extractor %s completed (success=%v, %dms)", extractor, success, durationMs),
	})
}

// EmotionSuppressed records a sub-threshold emotion signal that was logged
// but never surfaced in the document.
func (a *Auditor) EmotionSuppressed(label string, intensity float64) {
	a.Emit(Event{
		EventType: EventEmotionSuppress,
		Stage:     "emotion",
		Target:    label,
		Success:   true,
		Fields:    map[string]any{"intensity": intensity},
		Message:   fmt.Sprintf("emotion %q below significance cutoff (%.2f)", label, intensity),
	})
}

// CollaborationRun records one bounded refinement pass.
func (a *Auditor) CollaborationRun(extractor string, refined bool) {
	a.Emit(Event{
		EventType: EventCollaborationRun,
		Stage:     extractor,
		Success:   true,
		Fields:    map[string]any{"refined": refined},
		Message:   fmt.Sprintf("collaboration pass for %s (refined=%v)", extractor, refined),
	})
}
