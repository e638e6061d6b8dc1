// Package types defines the core data model shared across the interpretation
// pipeline: narratives, extraction results, risk levels, the synthesized
// document, and the pipeline error taxonomy.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// RISK LEVELS
// =============================================================================

// RiskLevel is the ordered clinical risk scale. The zero value is RiskLow,
// so a missing or failed risk slot never implies elevated risk on its own.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskHigh
)

// String returns the canonical uppercase label used in documents and audit events.
func (r RiskLevel) String() string {
	switch r {
	case RiskModerate:
		return "MODERATE"
	case RiskHigh:
		return "HIGH"
	default:
		return "LOW"
	}
}

// ParseRiskLevel maps a free-form label (as a reasoning response might spell
// it) onto the scale. Unrecognized labels map to RiskLow so that malformed
// reasoning output can never escalate risk by itself; escalation authority
// belongs to the override engine.
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch normalizeLabel(s) {
	case "LOW", "MINIMAL", "NONE":
		return RiskLow, true
	case "MODERATE", "MEDIUM", "MED":
		return RiskModerate, true
	case "HIGH", "SEVERE", "CRITICAL", "URGENT":
		return RiskHigh, true
	}
	return RiskLow, false
}

// MaxRiskLevel returns the higher of two levels under LOW < MODERATE < HIGH.
func MaxRiskLevel(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}

func normalizeLabel(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			out = append(out, c-('a'-'A'))
		case c >= 'A' && c <= 'Z':
			out = append(out, c)
		}
	}
	return string(out)
}

// MarshalText implements encoding.TextMarshaler so risk levels serialize as
// their labels in JSON documents and YAML pattern tables.
func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts the same labels ParseRiskLevel does.
func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, _ := ParseRiskLevel(string(text))
	*r = level
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler for pattern table files. Unlike
// UnmarshalText, unknown labels are an error here: tables are operator
// authored, and a typo must fail the load rather than silently weaken a rule.
func (r *RiskLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var label string
	if err := unmarshal(&label); err != nil {
		return err
	}
	level, ok := ParseRiskLevel(label)
	if !ok {
		return fmt.Errorf("unknown risk level %q", label)
	}
	*r = level
	return nil
}

// =============================================================================
// NARRATIVE
// =============================================================================

// Narrative is the patient's free-text symptom description. The text is
// immutable after ingestion; every downstream component receives it read-only
// and the synthesized document must carry it back byte-identical.
type Narrative struct {
	RequestID string    `json:"request_id"`
	Text      string    `json:"text"`
	Received  time.Time `json:"received"`
}

// NewNarrative ingests raw patient text under a fresh request identifier.
func NewNarrative(text string) Narrative {
	return Narrative{
		RequestID: uuid.NewString(),
		Text:      text,
		Received:  time.Now().UTC(),
	}
}

// =============================================================================
// ONTOLOGY
// =============================================================================

// OntologyMatch is one scored vocabulary hit: a registered key phrase whose
// tokens overlap the narrative, with the clinical terms it maps to.
type OntologyMatch struct {
	Category      string   `json:"category"`
	MatchedPhrase string   `json:"matched_phrase"`
	ClinicalTerms []string `json:"clinical_terms"`
	Score         float64  `json:"score"`
}

// =============================================================================
// EXTRACTION RESULTS
// =============================================================================

// ExtractorKind identifies one of the three extraction variants.
type ExtractorKind string

const (
	KindMetaphor ExtractorKind = "metaphor"
	KindEmotion  ExtractorKind = "emotion"
	KindRisk     ExtractorKind = "risk"
)

// ResultSource records which authority produced a value: the reasoning
// capability (untrusted, advisory) or the deterministic override engine.
type ResultSource string

const (
	SourceReasoning ResultSource = "reasoning"
	SourceOverride  ResultSource = "override"
)

// Significance buckets an emotion signal's clinical weight.
type Significance string

const (
	SignificanceLow    Significance = "low"
	SignificanceMedium Significance = "medium"
	SignificanceHigh   Significance = "high"
)

// MetaphorTranslation maps one figurative phrase from the narrative onto a
// clinical term, with the reasoning capability's confidence.
type MetaphorTranslation struct {
	SourcePhrase string  `json:"source_phrase"`
	ClinicalTerm string  `json:"clinical_term"`
	Confidence   float64 `json:"confidence"`
}

// MetaphorResult is the metaphor extractor's typed partial result.
type MetaphorResult struct {
	Translations  []MetaphorTranslation `json:"translations"`
	Uncertainties []string              `json:"uncertainties"`
}

// EmotionSignal is one detected emotional biomarker. Intensity is the
// reasoning capability's estimate in [0,1]; signals below the significance
// cutoff never reach a document.
type EmotionSignal struct {
	Label        string       `json:"label"`
	Intensity    float64      `json:"intensity"`
	ClinicalTerm string       `json:"clinical_term"`
	Significance Significance `json:"significance"`
}

// EmotionResult is the emotion extractor's typed partial result. Signals
// holds only clinically significant entries; Summary is a one-line clinical
// characterization of the overall affect.
type EmotionResult struct {
	Signals       []EmotionSignal `json:"signals"`
	Summary       string          `json:"summary"`
	Uncertainties []string        `json:"uncertainties"`
}

// RiskResult is the risk extractor's typed partial result. Level here is
// advisory: the synthesizer merges it with the deterministic floor and the
// floor always wins upward.
type RiskResult struct {
	Level         RiskLevel `json:"level"`
	Confidence    float64   `json:"confidence"`
	Urgency       float64   `json:"urgency"`
	RedFlags      []string  `json:"red_flags"`
	MissingInfo   []string  `json:"missing_info"`
	Rationale     string    `json:"rationale"`
	Uncertainties []string  `json:"uncertainties"`
}

// ExtractionResult is the tagged union over the three extraction variants.
// Exactly one of Metaphor, Emotion, Risk is non-nil, selected by Kind.
type ExtractionResult struct {
	Kind     ExtractorKind   `json:"kind"`
	Source   ResultSource    `json:"source"`
	Metaphor *MetaphorResult `json:"metaphor,omitempty"`
	Emotion  *EmotionResult  `json:"emotion,omitempty"`
	Risk     *RiskResult     `json:"risk,omitempty"`
}

// Uncertainties returns the variant's uncertainty entries regardless of kind.
func (r *ExtractionResult) Uncertainties() []string {
	if r == nil {
		return nil
	}
	switch {
	case r.Metaphor != nil:
		return r.Metaphor.Uncertainties
	case r.Emotion != nil:
		return r.Emotion.Uncertainties
	case r.Risk != nil:
		return r.Risk.Uncertainties
	}
	return nil
}

// =============================================================================
// RISK FLOOR
// =============================================================================

// RiskFloor is the deterministic engine's verdict: the minimum risk level the
// final document may carry, with the pattern hits that mandated it. Immutable
// once computed; no component may lower it.
type RiskFloor struct {
	Level             RiskLevel `json:"level"`
	TriggeredPatterns []string  `json:"triggered_patterns"`
}

// =============================================================================
// SYNTHESIZED DOCUMENT
// =============================================================================

// MetaphorSection is the document view of the metaphor slot. Available is
// false when the extractor failed or timed out, in which case Note says why.
type MetaphorSection struct {
	Available    bool                  `json:"available"`
	Translations []MetaphorTranslation `json:"translations,omitempty"`
	Note         string                `json:"note,omitempty"`
}

// EmotionSection is the document view of the emotion slot.
type EmotionSection struct {
	Available bool            `json:"available"`
	Signals   []EmotionSignal `json:"signals,omitempty"`
	Summary   string          `json:"summary,omitempty"`
	Note      string          `json:"note,omitempty"`
}

// RiskSection is the post-floor-merge risk assessment. Level is the final,
// binding value; FloorApplied marks that the deterministic floor raised it
// above the reasoning capability's advisory level.
type RiskSection struct {
	Level             RiskLevel    `json:"level"`
	Confidence        float64      `json:"confidence"`
	Urgency           float64      `json:"urgency"`
	RedFlags          []string     `json:"red_flags,omitempty"`
	MissingInfo       []string     `json:"missing_info,omitempty"`
	Rationale         string       `json:"rationale,omitempty"`
	Source            ResultSource `json:"source"`
	FloorApplied      bool         `json:"floor_applied"`
	TriggeredPatterns []string     `json:"triggered_patterns,omitempty"`
}

// SynthesizedDocument is the merged, validated output returned to callers and
// consumed by external storage/UI as an opaque serializable record. The
// validator returns a new document rather than mutating its input, so the
// pre-validation artifact stays available for audit.
type SynthesizedDocument struct {
	RequestID     string          `json:"request_id"`
	PatientVoice  string          `json:"patient_voice"`
	Metaphor      MetaphorSection `json:"metaphor"`
	Emotion       EmotionSection  `json:"emotion"`
	Risk          RiskSection     `json:"risk"`
	Uncertainties []string        `json:"uncertainties"`
	Disclaimers   []string        `json:"disclaimers"`
	GeneratedAt   time.Time       `json:"generated_at"`
}

// Clone returns a deep copy. The validator works on a clone so the synthesis
// artifact is never mutated in place.
func (d *SynthesizedDocument) Clone() *SynthesizedDocument {
	if d == nil {
		return nil
	}
	out := *d
	out.Metaphor.Translations = append([]MetaphorTranslation(nil), d.Metaphor.Translations...)
	out.Emotion.Signals = append([]EmotionSignal(nil), d.Emotion.Signals...)
	out.Risk.RedFlags = append([]string(nil), d.Risk.RedFlags...)
	out.Risk.MissingInfo = append([]string(nil), d.Risk.MissingInfo...)
	out.Risk.TriggeredPatterns = append([]string(nil), d.Risk.TriggeredPatterns...)
	out.Uncertainties = append([]string(nil), d.Uncertainties...)
	out.Disclaimers = append([]string(nil), d.Disclaimers...)
	return &out
}
