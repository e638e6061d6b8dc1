// Package extract implements the three extraction variants that interrogate
// the reasoning capability about one narrative:
// - metaphor: figurative language to neutral clinical terminology
// - emotion: emotional biomarkers with intensity scoring
// - risk: an advisory risk assessment (never binding on its own)
// Each extractor grounds its prompt with ontology hints, bounds the call
// with the caller's context, and parses the response defensively: a response
// that cannot be salvaged degrades the slot instead of failing the pipeline.
package extract

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// Extractor is one extraction variant. Implementations are stateless with
// respect to requests and safe for concurrent use.
type Extractor interface {
	// Kind identifies the variant.
	Kind() types.ExtractorKind
	// Extract runs the primary extraction for one narrative.
	Extract(ctx context.Context, n types.Narrative, audit *logging.Auditor) (*types.ExtractionResult, error)
	// Refine runs one bounded collaboration pass over peer findings. The
	// returned result must never carry less risk or fewer uncertainties
	// than own; on any failure callers keep own.
	Refine(ctx context.Context, n types.Narrative, own *types.ExtractionResult, peers []*types.ExtractionResult, audit *logging.Auditor) (*types.ExtractionResult, error)
}

// promptInput is the structured payload sent across the reasoning boundary
// alongside each variant's instruction block.
type promptInput struct {
	Narrative string   `json:"narrative"`
	Hints     []string `json:"ontology_hints,omitempty"`
	Findings  any      `json:"peer_findings,omitempty"`
}

// callPort invokes the reasoning port and classifies transport errors into
// the pipeline taxonomy: a blown deadline is a timeout, anything else a
// reasoning failure. Both degrade a single slot.
func callPort(ctx context.Context, port types.ReasoningPort, req types.ReasoningRequest) (json.RawMessage, error) {
	raw, err := port.Invoke(ctx, req)
	if err != nil {
		kind := types.ErrReasoningFailure
		if errors.Is(err, context.DeadlineExceeded) {
			kind = types.ErrReasoningTimeout
		}
		return nil, types.NewPipelineError(kind, req.Kind, err)
	}
	return raw, nil
}

// hintTerms flattens ontology matches into at most max clinical hint terms,
// preserving match order. An empty result is valid: the extractor proceeds
// unhinted, and the miss is recorded for provenance.
func hintTerms(matches []types.OntologyMatch, max int) []string {
	var hints []string
	for _, m := range matches {
		for _, term := range m.ClinicalTerms {
			hints = append(hints, term)
			if len(hints) == max {
				return hints
			}
		}
	}
	return hints
}

// auditMiss records an ontology miss for one slot. Misses are provenance,
// not failures.
func auditMiss(audit *logging.Auditor, kind types.ExtractorKind, matches []types.OntologyMatch) {
	if len(matches) == 0 {
		audit.PipelineErr(string(types.ErrOntologyMiss), string(kind), nil)
	}
}

// peerFindings projects peer results into the compact JSON block a
// collaboration prompt carries. Only textual findings cross the boundary;
// numeric scores stay out so a refinement pass cannot anchor on them.
// Failed slots (nil results) are skipped.
func peerFindings(own types.ExtractorKind, peers []*types.ExtractionResult) map[string]any {
	findings := make(map[string]any)
	for _, p := range peers {
		if p == nil || p.Kind == own {
			continue
		}
		switch {
		case p.Metaphor != nil:
			terms := make([]string, 0, len(p.Metaphor.Translations))
			for _, t := range p.Metaphor.Translations {
				terms = append(terms, t.SourcePhrase+" -> "+t.ClinicalTerm)
			}
			findings[string(p.Kind)] = map[string]any{
				"translations":  terms,
				"uncertainties": p.Metaphor.Uncertainties,
			}
		case p.Emotion != nil:
			labels := make([]string, 0, len(p.Emotion.Signals))
			for _, s := range p.Emotion.Signals {
				labels = append(labels, s.Label)
			}
			findings[string(p.Kind)] = map[string]any{
				"summary":       p.Emotion.Summary,
				"labels":        labels,
				"uncertainties": p.Emotion.Uncertainties,
			}
		case p.Risk != nil:
			findings[string(p.Kind)] = map[string]any{
				"level":     p.Risk.Level.String(),
				"red_flags": p.Risk.RedFlags,
				"rationale": p.Risk.Rationale,
			}
		}
	}
	return findings
}

// mergeUnique appends items from add that base does not already contain,
// preserving order.
func mergeUnique(base, add []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	out := base
	for _, s := range add {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// clamp01 bounds a reasoning-supplied score to [0,1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
