package extract

// This file implements the emotion extraction variant: emotional biomarkers
// with intensity scoring and a significance cutoff.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// significanceCutoff is the minimum intensity an emotion signal needs to
// appear in a document. Signals below it are audited, never surfaced.
const significanceCutoff = 0.4

// markedThreshold is the intensity at which a single signal dominates the
// clinical summary line.
const markedThreshold = 0.7

const emotionPrompt = `You extract emotional biomarkers from a patient narrative.

Rules:
- Never diagnose.
- Score each emotion's intensity in [0.0, 1.0].
- Map each emotion to neutral clinical terminology.
- Flag gaps or ambiguity as uncertainties.

The input JSON carries the narrative and optional ontology hints. Respond with only this JSON shape:
{
  "signals": [
    {"label": "fear|panic|sadness|anger|confusion|helplessness|worry|...", "intensity": 0.0, "clinical_term": "neutral clinical description", "significance": "high|medium|low"}
  ],
  "uncertainties": ["ambiguity or gap worth flagging"]
}`

const emotionRefinePrompt = emotionPrompt + `

Peer findings from the other analysis passes are included under "peer_findings". Update your signals only where those findings inform them; keep everything else unchanged and respond with the same JSON shape.`

// EmotionExtractor detects emotional biomarkers in the narrative.
type EmotionExtractor struct {
	port  types.ReasoningPort
	index *ontology.Index
}

var _ Extractor = (*EmotionExtractor)(nil)

// NewEmotionExtractor creates the emotion variant over a reasoning port and
// the shared vocabulary index.
func NewEmotionExtractor(port types.ReasoningPort, index *ontology.Index) *EmotionExtractor {
	return &EmotionExtractor{port: port, index: index}
}

func (e *EmotionExtractor) Kind() types.ExtractorKind { return types.KindEmotion }

// Extract runs the primary emotion pass.
func (e *EmotionExtractor) Extract(ctx context.Context, n types.Narrative, audit *logging.Auditor) (*types.ExtractionResult, error) {
	matches := e.index.Lookup(ontology.CategoryEmotions, n.Text, ontology.DefaultLimit)
	auditMiss(audit, types.KindEmotion, matches)

	start := time.Now()
	raw, err := callPort(ctx, e.port, types.ReasoningRequest{
		Kind:      types.KindEmotion,
		RequestID: n.RequestID,
		Prompt:    emotionPrompt,
		Input:     promptInput{Narrative: n.Text, Hints: hintTerms(matches, ontology.DefaultLimit)},
	})
	if err != nil {
		audit.ExtractorResult(string(types.KindEmotion), time.Since(start).Milliseconds(), false, err.Error())
		return nil, err
	}

	result := parseEmotion(raw, audit)
	audit.ExtractorResult(string(types.KindEmotion), time.Since(start).Milliseconds(), true, "")
	return &types.ExtractionResult{
		Kind:    types.KindEmotion,
		Source:  types.SourceReasoning,
		Emotion: result,
	}, nil
}

// Refine runs one collaboration pass over peer findings.
func (e *EmotionExtractor) Refine(ctx context.Context, n types.Narrative, own *types.ExtractionResult, peers []*types.ExtractionResult, audit *logging.Auditor) (*types.ExtractionResult, error) {
	findings := peerFindings(types.KindEmotion, peers)
	if len(findings) == 0 || own == nil || own.Emotion == nil {
		return own, nil
	}

	raw, err := callPort(ctx, e.port, types.ReasoningRequest{
		Kind:      types.KindEmotion,
		RequestID: n.RequestID,
		Prompt:    emotionRefinePrompt,
		Input:     promptInput{Narrative: n.Text, Findings: findings},
	})
	if err != nil {
		return own, err
	}

	refined := parseEmotion(raw, audit)
	merged := &types.EmotionResult{
		Signals:       own.Emotion.Signals,
		Summary:       own.Emotion.Summary,
		Uncertainties: mergeUnique(own.Emotion.Uncertainties, refined.Uncertainties),
	}
	if len(refined.Signals) > 0 {
		merged.Signals = refined.Signals
		merged.Summary = refined.Summary
	}
	return &types.ExtractionResult{
		Kind:    types.KindEmotion,
		Source:  types.SourceReasoning,
		Emotion: merged,
	}, nil
}

// parseEmotion salvages a typed result from raw reasoning output, applying
// the significance cutoff. Suppressed signals are audited with their
// intensity so the trail shows what the document omits.
func parseEmotion(raw json.RawMessage, audit *logging.Auditor) *types.EmotionResult {
	var wire struct {
		Signals []struct {
			Label        string  `json:"label"`
			Intensity    float64 `json:"intensity"`
			ClinicalTerm string  `json:"clinical_term"`
			Significance string  `json:"significance"`
		} `json:"signals"`
		Uncertainties []string `json:"uncertainties"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return &types.EmotionResult{
			Summary:       "Emotional signal analysis unavailable",
			Uncertainties: []string{"Emotional biomarker analysis returned an unreadable response"},
		}
	}

	result := &types.EmotionResult{Uncertainties: wire.Uncertainties}
	for _, s := range wire.Signals {
		if s.Label == "" {
			continue
		}
		intensity := clamp01(s.Intensity)
		if intensity < significanceCutoff {
			audit.EmotionSuppressed(s.Label, intensity)
			continue
		}
		result.Signals = append(result.Signals, types.EmotionSignal{
			Label:        s.Label,
			Intensity:    intensity,
			ClinicalTerm: s.ClinicalTerm,
			Significance: significanceFor(s.Significance, intensity),
		})
	}
	result.Summary = summarizeEmotions(result.Signals)
	return result
}

// significanceFor normalizes a reasoning-supplied significance, deriving it
// from intensity when the label is missing or unrecognized.
func significanceFor(label string, intensity float64) types.Significance {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "high":
		return types.SignificanceHigh
	case "medium", "moderate":
		return types.SignificanceMedium
	case "low":
		return types.SignificanceLow
	}
	switch {
	case intensity >= markedThreshold:
		return types.SignificanceHigh
	case intensity >= significanceCutoff:
		return types.SignificanceMedium
	}
	return types.SignificanceLow
}

// summarizeEmotions produces the one-line clinical characterization of the
// surviving signals.
func summarizeEmotions(signals []types.EmotionSignal) string {
	if len(signals) == 0 {
		return "No clinically significant emotional distress identified"
	}
	for _, s := range signals {
		if s.Intensity >= markedThreshold {
			term := s.ClinicalTerm
			if term == "" {
				term = "emotional distress"
			}
			return fmt.Sprintf("Marked %s detected", term)
		}
	}
	labels := make([]string, 0, 2)
	for _, s := range signals {
		labels = append(labels, s.Label)
		if len(labels) == 2 {
			break
		}
	}
	return fmt.Sprintf("Moderate emotional distress: %s", strings.Join(labels, ", "))
}
