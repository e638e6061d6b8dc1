package extract

// This file implements the metaphor extraction variant: figurative patient
// language mapped onto neutral, non-diagnostic clinical terminology.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/types"
)

const metaphorPrompt = `You translate a patient's figurative language into neutral, non-diagnostic clinical terminology.

Rules:
- Never diagnose.
- Never suggest treatment.
- Preserve the patient's meaning; use neutral, objective clinical language.
- Flag ambiguous phrasing as an uncertainty instead of guessing.

The input JSON carries the narrative and optional ontology hints. Respond with only this JSON shape:
{
  "translations": [
    {"source_phrase": "exact phrase from the narrative", "clinical_term": "neutral clinical description", "confidence": 0.0}
  ],
  "uncertainties": ["ambiguity or gap worth flagging"]
}`

const metaphorRefinePrompt = metaphorPrompt + `

Peer findings from the other analysis passes are included under "peer_findings". Update your translations only where those findings inform them; keep everything else unchanged and respond with the same JSON shape.`

// MetaphorExtractor maps figurative phrases to clinical terms.
type MetaphorExtractor struct {
	port  types.ReasoningPort
	index *ontology.Index
}

var _ Extractor = (*MetaphorExtractor)(nil)

// NewMetaphorExtractor creates the metaphor variant over a reasoning port
// and the shared vocabulary index.
func NewMetaphorExtractor(port types.ReasoningPort, index *ontology.Index) *MetaphorExtractor {
	return &MetaphorExtractor{port: port, index: index}
}

func (e *MetaphorExtractor) Kind() types.ExtractorKind { return types.KindMetaphor }

// Extract runs the primary metaphor pass.
func (e *MetaphorExtractor) Extract(ctx context.Context, n types.Narrative, audit *logging.Auditor) (*types.ExtractionResult, error) {
	matches := e.index.Lookup(ontology.CategoryMetaphors, n.Text, ontology.DefaultLimit)
	auditMiss(audit, types.KindMetaphor, matches)

	start := time.Now()
	raw, err := callPort(ctx, e.port, types.ReasoningRequest{
		Kind:      types.KindMetaphor,
		RequestID: n.RequestID,
		Prompt:    metaphorPrompt,
		Input:     promptInput{Narrative: n.Text, Hints: hintTerms(matches, ontology.DefaultLimit)},
	})
	if err != nil {
		audit.ExtractorResult(string(types.KindMetaphor), time.Since(start).Milliseconds(), false, err.Error())
		return nil, err
	}

	result := parseMetaphor(raw)
	audit.ExtractorResult(string(types.KindMetaphor), time.Since(start).Milliseconds(), true, "")
	return &types.ExtractionResult{
		Kind:     types.KindMetaphor,
		Source:   types.SourceReasoning,
		Metaphor: result,
	}, nil
}

// Refine runs one collaboration pass. Uncertainty entries only accumulate.
func (e *MetaphorExtractor) Refine(ctx context.Context, n types.Narrative, own *types.ExtractionResult, peers []*types.ExtractionResult, audit *logging.Auditor) (*types.ExtractionResult, error) {
	findings := peerFindings(types.KindMetaphor, peers)
	if len(findings) == 0 || own == nil || own.Metaphor == nil {
		return own, nil
	}

	raw, err := callPort(ctx, e.port, types.ReasoningRequest{
		Kind:      types.KindMetaphor,
		RequestID: n.RequestID,
		Prompt:    metaphorRefinePrompt,
		Input:     promptInput{Narrative: n.Text, Findings: findings},
	})
	if err != nil {
		return own, err
	}

	refined := parseMetaphor(raw)
	merged := &types.MetaphorResult{
		Translations:  own.Metaphor.Translations,
		Uncertainties: mergeUnique(own.Metaphor.Uncertainties, refined.Uncertainties),
	}
	if len(refined.Translations) > 0 {
		merged.Translations = refined.Translations
	}
	return &types.ExtractionResult{
		Kind:     types.KindMetaphor,
		Source:   types.SourceReasoning,
		Metaphor: merged,
	}, nil
}

// parseMetaphor salvages a typed result from raw reasoning output. Entries
// missing either side of the mapping are dropped; a response with no usable
// content degrades to an uncertainty rather than an error.
func parseMetaphor(raw json.RawMessage) *types.MetaphorResult {
	var wire struct {
		Translations []struct {
			SourcePhrase string  `json:"source_phrase"`
			ClinicalTerm string  `json:"clinical_term"`
			Confidence   float64 `json:"confidence"`
		} `json:"translations"`
		Uncertainties []string `json:"uncertainties"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return &types.MetaphorResult{
			Uncertainties: []string{"Figurative language analysis returned an unreadable response"},
		}
	}

	result := &types.MetaphorResult{Uncertainties: wire.Uncertainties}
	dropped := false
	for _, t := range wire.Translations {
		if t.SourcePhrase == "" || t.ClinicalTerm == "" {
			dropped = true
			continue
		}
		result.Translations = append(result.Translations, types.MetaphorTranslation{
			SourcePhrase: t.SourcePhrase,
			ClinicalTerm: t.ClinicalTerm,
			Confidence:   clamp01(t.Confidence),
		})
	}
	if dropped {
		result.Uncertainties = mergeUnique(result.Uncertainties,
			[]string{"Some figurative phrases could not be mapped reliably"})
	}
	return result
}
