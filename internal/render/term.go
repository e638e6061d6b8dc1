package render

// This file implements terminal presentation: glamour renders the markdown
// body and lipgloss draws the risk banner above it. The banner stays outside
// the markdown so the binding risk level is visible even when a pager or
// narrow terminal swallows formatting.

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/AryaShetye/clarify-md/internal/types"
)

var (
	bannerHigh = lipgloss.NewStyle().
			Background(lipgloss.Color("#e53935")).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 2).
			Bold(true)

	bannerModerate = lipgloss.NewStyle().
			Background(lipgloss.Color("#FFC107")).
			Foreground(lipgloss.Color("#101F38")).
			Padding(0, 2).
			Bold(true)

	bannerLow = lipgloss.NewStyle().
			Background(lipgloss.Color("#8BC34A")).
			Foreground(lipgloss.Color("#101F38")).
			Padding(0, 2).
			Bold(true)
)

// RiskBanner renders the one-line banner carrying the binding risk level.
func RiskBanner(risk types.RiskSection) string {
	label := fmt.Sprintf("%s CLINICAL URGENCY", risk.Level)
	if risk.FloorApplied {
		label += " (safety override active)"
	}
	switch risk.Level {
	case types.RiskHigh:
		return bannerHigh.Render(label)
	case types.RiskModerate:
		return bannerModerate.Render(label)
	default:
		return bannerLow.Render(label)
	}
}

// Terminal renders markdown for a terminal via glamour.
type Terminal struct {
	renderer *glamour.TermRenderer
}

// NewTerminal builds a terminal renderer. Light selects the light style for
// pale backgrounds; otherwise the style follows the detected terminal theme.
func NewTerminal(light bool, wordWrap int) (*Terminal, error) {
	if wordWrap <= 0 {
		wordWrap = 100
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wordWrap)}
	if light {
		opts = append(opts, glamour.WithStylePath("light"))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build markdown renderer: %w", err)
	}
	return &Terminal{renderer: renderer}, nil
}

// Document renders the risk banner followed by the styled document body.
func (t *Terminal) Document(doc *types.SynthesizedDocument) (string, error) {
	body, err := t.renderer.Render(Document(doc))
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return RiskBanner(doc.Risk) + "\n" + body, nil
}

// Markdown renders arbitrary markdown, used for what-if comparisons.
func (t *Terminal) Markdown(md string) (string, error) {
	out, err := t.renderer.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
