package extract

// This file implements the risk extraction variant. Its output is advisory:
// the synthesizer merges it with the deterministic floor, and the floor
// always wins upward.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/types"
)

const riskPrompt = `You assess clinical risk and urgency from a patient narrative.

Rules:
- Never diagnose.
- Risk level is one of low, moderate, high.
- Score confidence and urgency in [0.0, 1.0].
- List concrete red flags and the missing information that limits the assessment.

The input JSON carries the narrative and optional ontology hints. Respond with only this JSON shape:
{
  "risk_level": "low|moderate|high",
  "confidence": 0.0,
  "urgency_score": 0.0,
  "red_flags": ["observed red flag"],
  "missing_info": ["information that would change the assessment"],
  "rationale": "one-paragraph explanation",
  "uncertainties": ["ambiguity or gap worth flagging"]
}`

const riskRefinePrompt = riskPrompt + `

Peer findings from the other analysis passes are included under "peer_findings". Update your assessment only where those findings inform it; keep everything else unchanged and respond with the same JSON shape.`

// RiskExtractor produces the advisory risk assessment.
type RiskExtractor struct {
	port  types.ReasoningPort
	index *ontology.Index
}

var _ Extractor = (*RiskExtractor)(nil)

// NewRiskExtractor creates the risk variant over a reasoning port and the
// shared vocabulary index.
func NewRiskExtractor(port types.ReasoningPort, index *ontology.Index) *RiskExtractor {
	return &RiskExtractor{port: port, index: index}
}

func (e *RiskExtractor) Kind() types.ExtractorKind { return types.KindRisk }

// Extract runs the primary risk pass.
func (e *RiskExtractor) Extract(ctx context.Context, n types.Narrative, audit *logging.Auditor) (*types.ExtractionResult, error) {
	matches := e.index.Lookup(ontology.CategoryRisk, n.Text, ontology.DefaultLimit)
	auditMiss(audit, types.KindRisk, matches)

	start := time.Now()
	raw, err := callPort(ctx, e.port, types.ReasoningRequest{
		Kind:      types.KindRisk,
		RequestID: n.RequestID,
		Prompt:    riskPrompt,
		Input:     promptInput{Narrative: n.Text, Hints: hintTerms(matches, ontology.DefaultLimit)},
	})
	if err != nil {
		audit.ExtractorResult(string(types.KindRisk), time.Since(start).Milliseconds(), false, err.Error())
		return nil, err
	}

	result := parseRisk(raw)
	audit.ExtractorResult(string(types.KindRisk), time.Since(start).Milliseconds(), true, "")
	return &types.ExtractionResult{
		Kind:   types.KindRisk,
		Source: types.SourceReasoning,
		Risk:   result,
	}, nil
}

// Refine runs one collaboration pass. The refined advisory level can only
// move upward from the fan-out result; red flags, missing information and
// uncertainties accumulate.
func (e *RiskExtractor) Refine(ctx context.Context, n types.Narrative, own *types.ExtractionResult, peers []*types.ExtractionResult, audit *logging.Auditor) (*types.ExtractionResult, error) {
	findings := peerFindings(types.KindRisk, peers)
	if len(findings) == 0 || own == nil || own.Risk == nil {
		return own, nil
	}

	raw, err := callPort(ctx, e.port, types.ReasoningRequest{
		Kind:      types.KindRisk,
		RequestID: n.RequestID,
		Prompt:    riskRefinePrompt,
		Input:     promptInput{Narrative: n.Text, Findings: findings},
	})
	if err != nil {
		return own, err
	}

	refined := parseRisk(raw)
	merged := &types.RiskResult{
		Level:         types.MaxRiskLevel(own.Risk.Level, refined.Level),
		Confidence:    refined.Confidence,
		Urgency:       maxFloat(own.Risk.Urgency, refined.Urgency),
		RedFlags:      mergeUnique(own.Risk.RedFlags, refined.RedFlags),
		MissingInfo:   mergeUnique(own.Risk.MissingInfo, refined.MissingInfo),
		Rationale:     own.Risk.Rationale,
		Uncertainties: mergeUnique(own.Risk.Uncertainties, refined.Uncertainties),
	}
	if refined.Rationale != "" {
		merged.Rationale = refined.Rationale
	}
	return &types.ExtractionResult{
		Kind:   types.KindRisk,
		Source: types.SourceReasoning,
		Risk:   merged,
	}, nil
}

// parseRisk salvages a typed result from raw reasoning output. Unrecognized
// risk labels map to LOW and an uncertainty; scores are clamped to [0,1].
func parseRisk(raw json.RawMessage) *types.RiskResult {
	var wire struct {
		RiskLevel     string   `json:"risk_level"`
		Confidence    float64  `json:"confidence"`
		UrgencyScore  float64  `json:"urgency_score"`
		RedFlags      []string `json:"red_flags"`
		MissingInfo   []string `json:"missing_info"`
		Rationale     string   `json:"rationale"`
		Uncertainties []string `json:"uncertainties"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return &types.RiskResult{
			Level:         types.RiskLow,
			Rationale:     "Risk assessment unavailable",
			Uncertainties: []string{"Risk assessment returned an unreadable response"},
		}
	}

	level, recognized := types.ParseRiskLevel(wire.RiskLevel)
	result := &types.RiskResult{
		Level:         level,
		Confidence:    clamp01(wire.Confidence),
		Urgency:       clamp01(wire.UrgencyScore),
		RedFlags:      wire.RedFlags,
		MissingInfo:   wire.MissingInfo,
		Rationale:     wire.Rationale,
		Uncertainties: wire.Uncertainties,
	}
	if !recognized && wire.RiskLevel != "" {
		result.Uncertainties = mergeUnique(result.Uncertainties,
			[]string{"Risk level from reasoning was unrecognized and treated as LOW"})
	}
	return result
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
