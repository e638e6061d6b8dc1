package reasoning

// This file implements a deterministic in-process reasoning port. The CLI
// uses it for --offline runs; tests use it to script timeouts, failures and
// malformed responses without a network.

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/AryaShetye/clarify-md/internal/types"
)

// Canned responses cover the three extraction variants. The emotion payload
// includes one signal below the significance cutoff so offline runs exercise
// the suppression path end to end.
var fakeResponses = map[types.ExtractorKind]string{
	types.KindMetaphor: `{
  "translations": [
    {"source_phrase": "tight band around my chest", "clinical_term": "constricting chest discomfort", "confidence": 0.85},
    {"source_phrase": "butterflies won't stop", "clinical_term": "persistent epigastric fluttering sensation", "confidence": 0.6}
  ],
  "uncertainties": ["Figurative phrasing may understate symptom severity"]
}`,
	types.KindEmotion: `{
  "signals": [
    {"label": "fear", "intensity": 0.78, "clinical_term": "acute fear response", "significance": "high"},
    {"label": "worry", "intensity": 0.45, "clinical_term": "health-related worry", "significance": "medium"},
    {"label": "sadness", "intensity": 0.25, "clinical_term": "low mood", "significance": "low"}
  ],
  "uncertainties": []
}`,
	types.KindRisk: `{
  "risk_level": "moderate",
  "confidence": 0.7,
  "urgency_score": 0.55,
  "red_flags": ["chest discomfort reported"],
  "missing_info": ["symptom onset", "pain severity"],
  "rationale": "Somatic symptoms with marked distress warrant prompt clinical review.",
  "uncertainties": ["Narrative lacks onset timing"]
}`,
}

// FakePort returns deterministic canned JSON per extractor kind.
type FakePort struct {
	mu        sync.Mutex
	responses map[types.ExtractorKind]json.RawMessage
	errs      map[types.ExtractorKind]error
	blocked   map[types.ExtractorKind]bool
	latency   time.Duration
	calls     map[types.ExtractorKind]int
}

var _ types.ReasoningPort = (*FakePort)(nil)

// NewFakePort creates a fake port preloaded with canned responses.
func NewFakePort() *FakePort {
	responses := make(map[types.ExtractorKind]json.RawMessage, len(fakeResponses))
	for kind, body := range fakeResponses {
		responses[kind] = json.RawMessage(body)
	}
	return &FakePort{
		responses: responses,
		errs:      make(map[types.ExtractorKind]error),
		blocked:   make(map[types.ExtractorKind]bool),
		calls:     make(map[types.ExtractorKind]int),
	}
}

func (f *FakePort) Name() string { return "fake" }
func (f *FakePort) Close() error { return nil }

// SetResponse overrides the canned response for one kind.
func (f *FakePort) SetResponse(kind types.ExtractorKind, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[kind] = json.RawMessage(body)
}

// FailWith makes Invoke return err for one kind.
func (f *FakePort) FailWith(kind types.ExtractorKind, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[kind] = err
}

// BlockOn makes Invoke for one kind hang until the context is done,
// simulating a stalled capability.
func (f *FakePort) BlockOn(kind types.ExtractorKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[kind] = true
}

// SetLatency delays every Invoke by d.
func (f *FakePort) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

// Calls reports how many times one kind was invoked.
func (f *FakePort) Calls(kind types.ExtractorKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

// Invoke returns the scripted behavior for the request's kind.
func (f *FakePort) Invoke(ctx context.Context, req types.ReasoningRequest) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls[req.Kind]++
	latency := f.latency
	blocked := f.blocked[req.Kind]
	err := f.errs[req.Kind]
	raw, ok := f.responses[req.Kind]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidJSON
	}
	return raw, nil
}
