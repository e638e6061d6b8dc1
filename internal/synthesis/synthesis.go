// Package synthesis merges the extraction slots and the deterministic risk
// floor into one SynthesizedDocument. Synthesize is a pure function over
// already-computed inputs: it never invokes the reasoning port or the
// override engine, and any combination of failed slots still yields a
// document.
package synthesis

import (
	"time"

	"github.com/AryaShetye/clarify-md/internal/types"
)

// escalationNote is appended to the red-flag list whenever the deterministic
// floor raises risk above the advisory level.
const escalationNote = "Deterministic safety override: high-risk symptom(s) detected in patient narrative."

// escalationRationale marks a floor-raised rationale so readers can tell the
// binding level did not come from reasoning.
const escalationRationale = "Deterministic override: high-risk language present; risk not downgraded below HIGH."

// escalationUrgencyFloor is the minimum urgency carried by a floor-escalated
// document.
const escalationUrgencyFloor = 0.8

// Input carries one request's computed parts. A nil slot pointer means that
// extractor degraded; Failures records why, keyed by slot.
type Input struct {
	Narrative types.Narrative
	Metaphor  *types.MetaphorResult
	Emotion   *types.EmotionResult
	Risk      *types.RiskResult
	Failures  map[types.ExtractorKind]error
	Floor     types.RiskFloor
}

// Synthesize merges the slots under the risk-floor rule: the final level is
// the maximum of the advisory level and the deterministic floor. The patient
// narrative is copied into the document verbatim.
func Synthesize(in Input) *types.SynthesizedDocument {
	doc := &types.SynthesizedDocument{
		RequestID:    in.Narrative.RequestID,
		PatientVoice: in.Narrative.Text,
		GeneratedAt:  time.Now().UTC(),
	}

	var uncertainties []string

	if in.Metaphor != nil {
		doc.Metaphor = types.MetaphorSection{
			Available:    true,
			Translations: in.Metaphor.Translations,
		}
		uncertainties = appendUnique(uncertainties, in.Metaphor.Uncertainties...)
	} else {
		note := slotNote("Figurative language analysis", in.Failures[types.KindMetaphor])
		doc.Metaphor = types.MetaphorSection{Note: note}
		uncertainties = appendUnique(uncertainties, note)
	}

	if in.Emotion != nil {
		doc.Emotion = types.EmotionSection{
			Available: true,
			Signals:   in.Emotion.Signals,
			Summary:   in.Emotion.Summary,
		}
		uncertainties = appendUnique(uncertainties, in.Emotion.Uncertainties...)
	} else {
		note := slotNote("Emotional analysis", in.Failures[types.KindEmotion])
		doc.Emotion = types.EmotionSection{Note: note}
		uncertainties = appendUnique(uncertainties, note)
	}

	advisory := in.Risk
	if advisory == nil {
		note := slotNote("Risk assessment", in.Failures[types.KindRisk])
		uncertainties = appendUnique(uncertainties, note)
		advisory = &types.RiskResult{Level: types.RiskLow}
	} else {
		uncertainties = appendUnique(uncertainties, advisory.Uncertainties...)
	}

	doc.Risk = mergeRisk(advisory, in.Risk == nil, in.Floor)
	doc.Uncertainties = uncertainties
	return doc
}

// mergeRisk applies the floor rule to the advisory assessment. The floor can
// only raise the level; nothing here may lower it.
func mergeRisk(advisory *types.RiskResult, slotFailed bool, floor types.RiskFloor) types.RiskSection {
	section := types.RiskSection{
		Level:             types.MaxRiskLevel(advisory.Level, floor.Level),
		Confidence:        advisory.Confidence,
		Urgency:           advisory.Urgency,
		RedFlags:          append([]string(nil), advisory.RedFlags...),
		MissingInfo:       append([]string(nil), advisory.MissingInfo...),
		Rationale:         advisory.Rationale,
		Source:            types.SourceReasoning,
		TriggeredPatterns: append([]string(nil), floor.TriggeredPatterns...),
	}
	if slotFailed {
		section.Source = types.SourceOverride
	}

	if floor.Level > advisory.Level {
		section.FloorApplied = true
		section.Source = types.SourceOverride
		if section.Urgency < escalationUrgencyFloor {
			section.Urgency = escalationUrgencyFloor
		}
		section.RedFlags = appendUnique(section.RedFlags, escalationNote)
		if section.Rationale == "" {
			section.Rationale = escalationRationale
		} else {
			section.Rationale += " " + escalationRationale
		}
	}
	return section
}

// slotNote renders the degradation note for one failed slot.
func slotNote(what string, err error) string {
	if types.IsTimeout(err) {
		return what + " timed out"
	}
	return what + " unavailable"
}

func appendUnique(base []string, add ...string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, s := range base {
		seen[s] = struct{}{}
	}
	for _, s := range add {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		base = append(base, s)
	}
	return base
}
