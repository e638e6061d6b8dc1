// Package render turns synthesized documents and what-if comparisons into
// clinician-facing markdown, and wraps that markdown for terminal display
// with a styled risk banner. Markdown building is pure string work; only the
// Terminal type touches styling.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/AryaShetye/clarify-md/internal/types"
	"github.com/AryaShetye/clarify-md/internal/whatif"
)

// Intensity markers follow the clinical display convention: marked distress
// from 0.7, moderate from the significance cutoff upward. Signals below the
// cutoff never reach a document.
const markedIntensity = 0.7

// Document renders one validated document as markdown.
func Document(doc *types.SynthesizedDocument) string {
	var b strings.Builder

	b.WriteString("# Clinical Interpretation\n\n")
	fmt.Fprintf(&b, "Request `%s`, generated %s.\n\n", doc.RequestID, doc.GeneratedAt.Format(time.RFC3339))

	b.WriteString("## Patient Voice\n\n")
	writeQuote(&b, doc.PatientVoice)

	b.WriteString("\n## Figurative Language\n\n")
	writeMetaphor(&b, doc.Metaphor)

	b.WriteString("\n## Emotional Signals\n\n")
	writeEmotion(&b, doc.Emotion)

	b.WriteString("\n## Risk Assessment\n\n")
	writeRisk(&b, doc.Risk)

	b.WriteString("\n## Uncertainties\n\n")
	writeList(&b, doc.Uncertainties)

	b.WriteString("\n## Disclaimers\n\n")
	writeList(&b, doc.Disclaimers)

	return b.String()
}

// Comparison renders a what-if comparison: both documents in full, with the
// delta notes in between.
func Comparison(cmp *whatif.Comparison) string {
	var b strings.Builder

	b.WriteString("# What-If Comparison\n\n")
	b.WriteString("## Differences\n\n")
	fmt.Fprintf(&b, "Risk level: %s (baseline) to %s (hypothetical).\n\n",
		cmp.Baseline.Risk.Level, cmp.Hypothetical.Risk.Level)
	writeList(&b, cmp.Notes)
	if len(cmp.NewUncertainties) > 0 {
		b.WriteString("\n**New uncertainties in the reworded narrative:**\n\n")
		writeList(&b, cmp.NewUncertainties)
	}

	b.WriteString("\n---\n\n# Baseline\n\n")
	b.WriteString(sectionBody(Document(cmp.Baseline)))
	b.WriteString("\n---\n\n# Hypothetical\n\n")
	b.WriteString(sectionBody(Document(cmp.Hypothetical)))

	return b.String()
}

// sectionBody strips the top-level heading so nested documents do not repeat
// "# Clinical Interpretation" under their own banner.
func sectionBody(md string) string {
	if rest, ok := strings.CutPrefix(md, "# Clinical Interpretation\n\n"); ok {
		return rest
	}
	return md
}

func writeQuote(b *strings.Builder, voice string) {
	for _, line := range strings.Split(voice, "\n") {
		b.WriteString("> ")
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func writeMetaphor(b *strings.Builder, section types.MetaphorSection) {
	if !section.Available {
		fmt.Fprintf(b, "_%s._\n", section.Note)
		return
	}
	if len(section.Translations) == 0 {
		b.WriteString("_No figurative language identified._\n")
		return
	}
	b.WriteString("| Patient phrasing | Clinical reading | Confidence |\n")
	b.WriteString("|---|---|---|\n")
	for _, tr := range section.Translations {
		fmt.Fprintf(b, "| \"%s\" | %s | %.2f |\n",
			tableCell(tr.SourcePhrase), tableCell(tr.ClinicalTerm), tr.Confidence)
	}
}

func writeEmotion(b *strings.Builder, section types.EmotionSection) {
	if !section.Available {
		fmt.Fprintf(b, "_%s._\n", section.Note)
		return
	}
	for _, s := range section.Signals {
		icon, level := intensityMarker(s.Intensity)
		fmt.Fprintf(b, "- %s **%s %s** (%s, intensity %.2f, %s significance)\n",
			icon, level, s.ClinicalTerm, s.Label, s.Intensity, s.Significance)
	}
	if section.Summary != "" {
		fmt.Fprintf(b, "\n%s.\n", strings.TrimSuffix(section.Summary, "."))
	}
}

func writeRisk(b *strings.Builder, risk types.RiskSection) {
	fmt.Fprintf(b, "%s **%s clinical urgency** (confidence %.2f, urgency %.2f)\n",
		riskIcon(risk.Level), risk.Level, risk.Confidence, risk.Urgency)
	if risk.FloorApplied {
		b.WriteString("\n**Deterministic safety override active: this level cannot be downgraded.**\n")
	}
	if risk.Rationale != "" {
		fmt.Fprintf(b, "\n_Rationale:_ %s\n", risk.Rationale)
	}
	if len(risk.RedFlags) > 0 {
		b.WriteString("\n**Red flags**\n\n")
		writeList(b, risk.RedFlags)
	}
	if len(risk.MissingInfo) > 0 {
		b.WriteString("\n**Missing information**\n\n")
		writeList(b, risk.MissingInfo)
	}
	if len(risk.TriggeredPatterns) > 0 {
		b.WriteString("\n**Triggered safety patterns**\n\n")
		writeList(b, risk.TriggeredPatterns)
	}
}

func writeList(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

func intensityMarker(intensity float64) (icon, level string) {
	if intensity >= markedIntensity {
		return "🔴", "Marked"
	}
	return "🟡", "Moderate"
}

func riskIcon(level types.RiskLevel) string {
	switch level {
	case types.RiskHigh:
		return "🔴"
	case types.RiskModerate:
		return "🟡"
	default:
		return "🟢"
	}
}

// tableCell keeps user-derived text from breaking the markdown table.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
