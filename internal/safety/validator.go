// Package safety implements the deterministic output validator: the last
// component to touch a document before it reaches a caller. It replaces
// forbidden diagnostic and treatment language with neutral wording, enforces
// that uncertainties are never empty, and appends the required disclaimers.
// Sanitization is fail-closed: it always succeeds by falling back to a
// neutral placeholder, so a validation error signals a structurally
// malformed document, never an unsanitizable one.
package safety

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// Forbidden vocabulary. The document must never assert a diagnosis or a
// treatment; these lists catch the language that would.
var (
	diagnosticTerms = []string{
		"diagnosis", "diagnose", "diagnosed", "diagnostic",
		"disease", "disorder", "syndrome",
		"pathology", "pathological", "pathologic",
	}
	treatmentTerms = []string{
		"prescribe", "prescription", "medication", "drug",
		"treatment", "treat", "therapy", "therapeutic",
		"surgery", "surgical", "procedure", "intervention",
	}
)

// replacements maps forbidden terms to neutral alternatives. Terms without a
// mapping fall back to neutralPlaceholder. No replacement value may itself
// be a forbidden term.
var replacements = map[string]string{
	"diagnosis": "clinical impression",
	"diagnose":  "assess",
	"diagnosed": "assessed",
	"disease":   "health concern",
	"disorder":  "presentation",
	"pathology": "clinical finding",
}

const neutralPlaceholder = "[clinical language removed]"

// requiredDisclaimers appear on every validated document, after
// sanitization so their own wording is never rewritten.
var requiredDisclaimers = []string{
	"This is a support tool, not a diagnostic system",
	"Always correlate with clinical examination",
	"Interpret in full clinical context",
}

// defaultUncertainties is inserted when a document would otherwise carry no
// uncertainty entries at all.
var defaultUncertainties = []string{
	"Symptom onset not clearly specified",
	"Severity and progression unclear",
	"Full clinical context required",
}

// nonClinicalUncertainty surfaces narratives the risk rationale identifies
// as carrying no clinical content.
const nonClinicalUncertainty = "Narrative appears non-clinical; confirm context before interpreting output"

// forbiddenRe matches any forbidden term as a whole word, longest
// alternative first so "diagnosed" is not split into "diagnose"+"d".
var forbiddenRe = compileForbidden()

func compileForbidden() *regexp.Regexp {
	terms := append(append([]string(nil), diagnosticTerms...), treatmentTerms...)
	sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	for i, t := range terms {
		terms[i] = regexp.QuoteMeta(t)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(terms, "|") + `)\b`)
}

// Validate sanitizes a deep copy of doc and returns it. The input document
// is never mutated, so the pre-validation artifact stays available for
// audit. The returned error is non-nil only for structurally malformed
// documents; it is always a ValidationFailure pipeline error.
func Validate(doc *types.SynthesizedDocument, audit *logging.Auditor) (*types.SynthesizedDocument, error) {
	if err := checkStructure(doc); err != nil {
		return nil, err
	}

	out := doc.Clone()
	sanitizeDocument(out, audit)

	if len(out.Uncertainties) == 0 {
		out.Uncertainties = append([]string(nil), defaultUncertainties...)
	}
	if strings.Contains(strings.ToLower(out.Risk.Rationale), "no clinical information") {
		out.Uncertainties = appendMissing(out.Uncertainties, nonClinicalUncertainty)
	}
	for _, d := range requiredDisclaimers {
		out.Disclaimers = appendMissing(out.Disclaimers, d)
	}
	return out, nil
}

func checkStructure(doc *types.SynthesizedDocument) error {
	switch {
	case doc == nil:
		return types.NewPipelineError(types.ErrValidationFailure, "", fmt.Errorf("nil document"))
	case doc.PatientVoice == "":
		return types.NewPipelineError(types.ErrValidationFailure, "", fmt.Errorf("document lost the patient voice"))
	case doc.RequestID == "":
		return types.NewPipelineError(types.ErrValidationFailure, "", fmt.Errorf("document carries no request id"))
	}
	return nil
}

// sanitizeDocument rewrites every asserted text field in place. The patient
// voice and the figurative source phrases are quoted patient language, not
// system assertions, and are exempt; rewriting them would break the verbatim
// guarantee.
func sanitizeDocument(doc *types.SynthesizedDocument, audit *logging.Auditor) {
	for i := range doc.Metaphor.Translations {
		doc.Metaphor.Translations[i].ClinicalTerm =
			sanitizeField(doc.Metaphor.Translations[i].ClinicalTerm, "metaphor.clinical_term", audit)
	}
	for i := range doc.Emotion.Signals {
		doc.Emotion.Signals[i].ClinicalTerm =
			sanitizeField(doc.Emotion.Signals[i].ClinicalTerm, "emotion.clinical_term", audit)
	}
	doc.Emotion.Summary = sanitizeField(doc.Emotion.Summary, "emotion.summary", audit)
	doc.Risk.Rationale = sanitizeField(doc.Risk.Rationale, "risk.rationale", audit)
	sanitizeSlice(doc.Risk.RedFlags, "risk.red_flags", audit)
	sanitizeSlice(doc.Risk.MissingInfo, "risk.missing_info", audit)
	sanitizeSlice(doc.Risk.TriggeredPatterns, "risk.triggered_patterns", audit)
	sanitizeSlice(doc.Uncertainties, "uncertainties", audit)
}

func sanitizeSlice(items []string, field string, audit *logging.Auditor) {
	for i := range items {
		items[i] = sanitizeField(items[i], field, audit)
	}
}

// sanitizeField replaces every forbidden term in one field, emitting an
// audit event per replacement.
func sanitizeField(text, field string, audit *logging.Auditor) string {
	if text == "" {
		return text
	}
	return forbiddenRe.ReplaceAllStringFunc(text, func(match string) string {
		replacement, ok := replacements[strings.ToLower(match)]
		if !ok {
			replacement = neutralPlaceholder
		}
		audit.SanitizeReplace(field, match, replacement)
		return replacement
	})
}

func appendMissing(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
