package synthesis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AryaShetye/clarify-md/internal/types"
)

func narrative(text string) types.Narrative {
	return types.Narrative{RequestID: "req-syn", Text: text, Received: time.Now()}
}

func TestSynthesizeFloorRaisesAdvisoryLevel(t *testing.T) {
	t.Parallel()

	doc := Synthesize(Input{
		Narrative: narrative("I feel a tight band around my chest and mild chest pain"),
		Risk: &types.RiskResult{
			Level:      types.RiskLow,
			Confidence: 0.8,
			Urgency:    0.3,
			Rationale:  "Patient reports mild discomfort.",
		},
		Floor: types.RiskFloor{
			Level:             types.RiskHigh,
			TriggeredPatterns: []string{"chest-pain: chest pain with possible cardiac or pulmonary involvement"},
		},
	})

	require.Equal(t, types.RiskHigh, doc.Risk.Level)
	require.True(t, doc.Risk.FloorApplied)
	require.Equal(t, types.SourceOverride, doc.Risk.Source)
	require.GreaterOrEqual(t, doc.Risk.Urgency, 0.8)
	require.Contains(t, doc.Risk.RedFlags, escalationNote)
	require.Contains(t, doc.Risk.Rationale, "Deterministic override")
	require.Contains(t, doc.Risk.Rationale, "Patient reports mild discomfort.")
	require.NotEmpty(t, doc.Risk.TriggeredPatterns)
}

func TestSynthesizeAdvisoryNeverLoweredByFloor(t *testing.T) {
	t.Parallel()

	doc := Synthesize(Input{
		Narrative: narrative("severe symptoms"),
		Risk:      &types.RiskResult{Level: types.RiskHigh, Urgency: 0.9},
		Floor:     types.RiskFloor{Level: types.RiskLow},
	})

	require.Equal(t, types.RiskHigh, doc.Risk.Level)
	require.False(t, doc.Risk.FloorApplied)
	require.Equal(t, types.SourceReasoning, doc.Risk.Source)
	require.NotContains(t, doc.Risk.RedFlags, escalationNote)
	require.Equal(t, 0.9, doc.Risk.Urgency, "urgency untouched without escalation")
}

func TestSynthesizePatientVoiceVerbatim(t *testing.T) {
	t.Parallel()

	text := "  It's like...  a TIGHT band!!  \n\twon't let go   "
	doc := Synthesize(Input{Narrative: narrative(text), Floor: types.RiskFloor{}})
	require.Equal(t, text, doc.PatientVoice, "patient voice must be byte-identical")
}

func TestSynthesizeFailedSlotsDegradeWithNotes(t *testing.T) {
	t.Parallel()

	timeoutErr := types.NewPipelineError(types.ErrReasoningTimeout, types.KindMetaphor, nil)
	failureErr := types.NewPipelineError(types.ErrReasoningFailure, types.KindEmotion, errors.New("boom"))

	doc := Synthesize(Input{
		Narrative: narrative("I feel a bit tired"),
		Failures: map[types.ExtractorKind]error{
			types.KindMetaphor: timeoutErr,
			types.KindEmotion:  failureErr,
			types.KindRisk:     failureErr,
		},
		Floor: types.RiskFloor{Level: types.RiskLow},
	})

	require.False(t, doc.Metaphor.Available)
	require.Equal(t, "Figurative language analysis timed out", doc.Metaphor.Note)
	require.False(t, doc.Emotion.Available)
	require.Equal(t, "Emotional analysis unavailable", doc.Emotion.Note)

	require.Equal(t, types.RiskLow, doc.Risk.Level, "no high-risk text, no escalation")
	require.Equal(t, types.SourceOverride, doc.Risk.Source, "only the deterministic engine answered")

	require.Contains(t, doc.Uncertainties, "Figurative language analysis timed out")
	require.Contains(t, doc.Uncertainties, "Emotional analysis unavailable")
	require.Contains(t, doc.Uncertainties, "Risk assessment unavailable")
}

func TestSynthesizeUnionsUncertaintiesInSlotOrder(t *testing.T) {
	t.Parallel()

	doc := Synthesize(Input{
		Narrative: narrative("text"),
		Metaphor:  &types.MetaphorResult{Uncertainties: []string{"m1", "shared"}},
		Emotion:   &types.EmotionResult{Uncertainties: []string{"e1", "shared"}},
		Risk:      &types.RiskResult{Uncertainties: []string{"r1"}},
		Floor:     types.RiskFloor{},
	})

	require.Equal(t, []string{"m1", "shared", "e1", "r1"}, doc.Uncertainties)
}

func TestSynthesizeCarriesSectionsThrough(t *testing.T) {
	t.Parallel()

	doc := Synthesize(Input{
		Narrative: narrative("a tight band around my chest"),
		Metaphor: &types.MetaphorResult{
			Translations: []types.MetaphorTranslation{
				{SourcePhrase: "tight band", ClinicalTerm: "constricting chest discomfort", Confidence: 0.9},
			},
		},
		Emotion: &types.EmotionResult{
			Signals: []types.EmotionSignal{{Label: "fear", Intensity: 0.8, ClinicalTerm: "acute fear response", Significance: types.SignificanceHigh}},
			Summary: "Marked acute fear response detected",
		},
		Risk:  &types.RiskResult{Level: types.RiskModerate, Confidence: 0.7, Urgency: 0.5},
		Floor: types.RiskFloor{},
	})

	require.True(t, doc.Metaphor.Available)
	require.Len(t, doc.Metaphor.Translations, 1)
	require.True(t, doc.Emotion.Available)
	require.Equal(t, "Marked acute fear response detected", doc.Emotion.Summary)
	require.Equal(t, types.RiskModerate, doc.Risk.Level)
	require.Equal(t, "req-syn", doc.RequestID)
	require.False(t, doc.GeneratedAt.IsZero())
}
