// Package whatif compares two interpretations of the same complaint: the
// narrative as the patient first told it, and a hypothetical rewording. Both
// texts go through the full pipeline; the comparison itself is a pure diff
// over the two documents and adds no clinical judgment. Results are
// ephemeral, never stored and never linked to an encounter.
package whatif

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/AryaShetye/clarify-md/internal/pipeline"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// closingNote ends every comparison. Notes describe how wording shifts the
// interpretation, never what the symptoms mean.
const closingNote = "Only a clinician can judge what these differences mean. " +
	"Contact a clinician or emergency services if symptoms are severe, new, or rapidly worsening."

// Comparison reports how a rewording shifts the interpretation relative to
// the baseline. Both documents are complete, validated pipeline outputs.
type Comparison struct {
	Baseline     *types.SynthesizedDocument `json:"baseline"`
	Hypothetical *types.SynthesizedDocument `json:"hypothetical"`
	// RiskDelta is hypothetical minus baseline on the ordered risk scale:
	// positive when the rewording reads as more urgent. The baseline
	// document keeps its own risk level either way.
	RiskDelta int `json:"risk_delta"`
	// NewUncertainties lists uncertainty entries only the hypothetical
	// run produced.
	NewUncertainties []string `json:"new_uncertainties,omitempty"`
	Notes            []string `json:"notes"`
}

// Comparator runs what-if comparisons over one pipeline.
type Comparator struct {
	pipe   *pipeline.Pipeline
	logger *zap.Logger
}

// NewComparator wraps a pipeline. A nil logger disables logging.
func NewComparator(pipe *pipeline.Pipeline, logger *zap.Logger) *Comparator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Comparator{pipe: pipe, logger: logger.Named("whatif")}
}

// Compare interprets both narratives and reports the delta. Each run gets
// its own request ID and audit span; neither run sees the other's results.
func (c *Comparator) Compare(ctx context.Context, baseline, hypothetical string) (*Comparison, error) {
	baseDoc, err := c.pipe.Process(ctx, baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline run: %w", err)
	}
	hypoDoc, err := c.pipe.Process(ctx, hypothetical)
	if err != nil {
		return nil, fmt.Errorf("hypothetical run: %w", err)
	}

	cmp := newComparison(baseDoc, hypoDoc)
	c.logger.Info("narratives compared",
		zap.String("baseline_request_id", baseDoc.RequestID),
		zap.String("hypothetical_request_id", hypoDoc.RequestID),
		zap.Int("risk_delta", cmp.RiskDelta))
	return cmp, nil
}

// newComparison diffs two already-validated documents. It only reads them;
// the baseline document in particular is never adjusted toward the
// hypothetical outcome.
func newComparison(baseline, hypothetical *types.SynthesizedDocument) *Comparison {
	cmp := &Comparison{
		Baseline:         baseline,
		Hypothetical:     hypothetical,
		RiskDelta:        int(hypothetical.Risk.Level) - int(baseline.Risk.Level),
		NewUncertainties: newEntries(baseline.Uncertainties, hypothetical.Uncertainties),
	}

	cmp.Notes = append(cmp.Notes, deltaNote(baseline.Risk.Level, hypothetical.Risk.Level))
	switch {
	case hypothetical.Risk.FloorApplied && !baseline.Risk.FloorApplied:
		cmp.Notes = append(cmp.Notes, "Deterministic safety patterns triggered only in the reworded narrative.")
	case baseline.Risk.FloorApplied && !hypothetical.Risk.FloorApplied:
		cmp.Notes = append(cmp.Notes, "Deterministic safety patterns triggered only in the baseline narrative.")
	}
	if n := len(cmp.NewUncertainties); n > 0 {
		cmp.Notes = append(cmp.Notes, fmt.Sprintf("The rewording introduces %d new point(s) of uncertainty.", n))
	}
	cmp.Notes = append(cmp.Notes, closingNote)
	return cmp
}

func deltaNote(base, hypo types.RiskLevel) string {
	switch {
	case hypo > base:
		return fmt.Sprintf("The reworded narrative reads as more urgent (%s to %s); a clinician might want to review it sooner.", base, hypo)
	case hypo < base:
		return fmt.Sprintf("The reworded narrative reads as less urgent (%s to %s); the baseline assessment stands on its own.", base, hypo)
	default:
		return fmt.Sprintf("Both narratives read at the same risk level (%s).", base)
	}
}

// newEntries returns the entries of hypo missing from base, in hypo order.
func newEntries(base, hypo []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, u := range base {
		seen[u] = struct{}{}
	}
	var out []string
	for _, u := range hypo {
		if _, dup := seen[u]; !dup {
			out = append(out, u)
		}
	}
	return out
}
