package safety

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/types"
)

func baseDocument() *types.SynthesizedDocument {
	return &types.SynthesizedDocument{
		RequestID:    "req-safe",
		PatientVoice: "I think I have a disease, maybe I need treatment",
		Metaphor: types.MetaphorSection{
			Available: true,
			Translations: []types.MetaphorTranslation{
				{SourcePhrase: "band around my chest", ClinicalTerm: "chest tightness", Confidence: 0.8},
			},
		},
		Emotion: types.EmotionSection{
			Available: true,
			Signals:   []types.EmotionSignal{{Label: "fear", Intensity: 0.8, ClinicalTerm: "acute fear response", Significance: types.SignificanceHigh}},
			Summary:   "Marked acute fear response detected",
		},
		Risk: types.RiskSection{
			Level:     types.RiskModerate,
			Rationale: "Symptoms warrant prompt review.",
			Source:    types.SourceReasoning,
		},
		Uncertainties: []string{"Symptom onset unclear"},
		GeneratedAt:   time.Now().UTC(),
	}
}

func TestValidateReplacesForbiddenTermsAndAudits(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Risk.Rationale = "Findings suggest a Disease; consider TREATMENT and therapy."
	sink := &logging.MemorySink{}

	out, err := Validate(doc, logging.NewAuditor(sink, "req-safe"))
	require.NoError(t, err)

	require.Equal(t, "Findings suggest a health concern; consider [clinical language removed] and [clinical language removed].", out.Risk.Rationale)

	events := sink.ByType(logging.EventSanitizeReplace)
	require.Len(t, events, 3, "each replacement has its own audit event")
	require.Equal(t, "risk.rationale", events[0].Target)
}

func TestValidateWholeWordMatchingOnly(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	// "treated" and "undiagnosed" embed forbidden stems but are not listed terms.
	doc.Risk.Rationale = "Previously untreated and undiagnosed presentation."

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Equal(t, "Previously untreated and undiagnosed presentation.", out.Risk.Rationale)
}

func TestValidateLongestTermWins(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Emotion.Summary = "Patient was diagnosed previously"

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Equal(t, "Patient was assessed previously", out.Emotion.Summary)
}

func TestValidateNeverTouchesPatientVoice(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	voice := doc.PatientVoice

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Equal(t, voice, out.PatientVoice, "patient language is quoted, not asserted")
	require.Equal(t, "band around my chest", out.Metaphor.Translations[0].SourcePhrase,
		"figurative source phrases are patient language too")
}

func TestValidateReturnsNewDocument(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Risk.Rationale = "a disease process"

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.NotSame(t, doc, out)
	require.Equal(t, "a disease process", doc.Risk.Rationale, "input document is never mutated")
	require.Equal(t, "a health concern process", out.Risk.Rationale)
}

func TestValidateInsertsDefaultUncertainties(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Uncertainties = nil

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Equal(t, defaultUncertainties, out.Uncertainties, "uncertainties are never empty after validation")
}

func TestValidateFlagsNonClinicalNarrative(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Risk.Rationale = "The narrative contains no clinical information at all."

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Contains(t, out.Uncertainties, nonClinicalUncertainty)
}

func TestValidateAppendsDisclaimersOnce(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Disclaimers = []string{"Always correlate with clinical examination"}

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Len(t, out.Disclaimers, 3)
	for _, d := range requiredDisclaimers {
		require.Contains(t, out.Disclaimers, d)
	}
	// The disclaimer wording itself survives sanitization untouched.
	joined := strings.Join(out.Disclaimers, " ")
	require.Contains(t, joined, "not a diagnostic system")
}

func TestValidateRejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  *types.SynthesizedDocument
	}{
		{"nil_document", nil},
		{"missing_voice", &types.SynthesizedDocument{RequestID: "r"}},
		{"missing_request_id", &types.SynthesizedDocument{PatientVoice: "v"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Validate(tc.doc, nil)
			require.Error(t, err)
			require.True(t, types.Fatal(err), "structural problems are validation failures")
		})
	}
}

func TestValidateSanitizesSignalClinicalTerms(t *testing.T) {
	t.Parallel()

	doc := baseDocument()
	doc.Emotion.Signals[0].ClinicalTerm = "panic disorder"

	out, err := Validate(doc, nil)
	require.NoError(t, err)
	require.Equal(t, "panic presentation", out.Emotion.Signals[0].ClinicalTerm)
	require.Equal(t, "fear", out.Emotion.Signals[0].Label)
}
