// Package pipeline implements the orchestrator: the single component that
// owns fan-out/fan-in synchronization for one interpretation request. It
// launches the three extractors and the override engine, observes every slot
// outcome under an overall deadline, runs the bounded collaboration pass,
// then hands the bundle to synthesis and the result to the safety validator.
// Extractor failures degrade slots; only a structurally broken document
// aborts a run.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AryaShetye/clarify-md/internal/extract"
	"github.com/AryaShetye/clarify-md/internal/logging"
	"github.com/AryaShetye/clarify-md/internal/ontology"
	"github.com/AryaShetye/clarify-md/internal/override"
	"github.com/AryaShetye/clarify-md/internal/safety"
	"github.com/AryaShetye/clarify-md/internal/synthesis"
	"github.com/AryaShetye/clarify-md/internal/types"
)

// DefaultTimeout bounds one full interpretation run (fan-out plus
// collaboration) when the caller does not set one.
const DefaultTimeout = 30 * time.Second

var errEmptyNarrative = errors.New("narrative text is empty")

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is one orchestrator phase. Runs advance strictly
// idle -> fanning_out -> collaborating -> synthesizing -> validating -> done;
// failed is terminal and reachable only when a run cannot produce a document.
type State string

const (
	StateIdle          State = "idle"
	StateFanningOut    State = "fanning_out"
	StateCollaborating State = "collaborating"
	StateSynthesizing  State = "synthesizing"
	StateValidating    State = "validating"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

// =============================================================================
// PIPELINE
// =============================================================================

// Config wires a pipeline. Port is required; everything else has a default.
type Config struct {
	// Port is the reasoning capability, already wrapped in whatever
	// middleware the caller wants (retry, cache, audit).
	Port types.ReasoningPort
	// Index is the shared read-only ontology. Nil selects the built-in
	// vocabulary.
	Index *ontology.Index
	// Engine is the deterministic escalation authority. Nil selects the
	// built-in pattern table.
	Engine *override.Engine
	// Timeout is the overall per-request deadline. Zero selects
	// DefaultTimeout.
	Timeout time.Duration
	Logger  *zap.Logger
	// Audit receives the run's structured events. Nil discards.
	Audit logging.Sink
}

// Pipeline interprets patient narratives. Safe for concurrent Process calls:
// all fields are read-only after construction and every request's data flows
// through freshly allocated results owned by that run.
type Pipeline struct {
	extractors []extract.Extractor
	engine     *override.Engine
	timeout    time.Duration
	logger     *zap.Logger
	audit      logging.Sink
}

// New builds a pipeline over the given reasoning port.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Port == nil {
		return nil, errors.New("pipeline requires a reasoning port")
	}
	index := cfg.Index
	if index == nil {
		index = ontology.Default()
	}
	engine := cfg.Engine
	if engine == nil {
		engine = override.MustDefault()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		extractors: []extract.Extractor{
			extract.NewMetaphorExtractor(cfg.Port, index),
			extract.NewEmotionExtractor(cfg.Port, index),
			extract.NewRiskExtractor(cfg.Port, index),
		},
		engine:  engine,
		timeout: timeout,
		logger:  logger.Named("pipeline"),
		audit:   cfg.Audit,
	}, nil
}

// bundle is one request's fan-in state: slot results in extractor order,
// failures keyed by slot, and the deterministic risk floor.
type bundle struct {
	results  []*types.ExtractionResult
	failures map[types.ExtractorKind]error
	floor    types.RiskFloor
}

// Process interprets one narrative. The caller always receives a document
// when one can be synthesized; extractor failures and timeouts degrade their
// slot and surface as uncertainties, never as a returned error. The returned
// error is non-nil only for an empty narrative or a validation failure, both
// tagged ErrValidationFailure.
func (p *Pipeline) Process(ctx context.Context, text string) (*types.SynthesizedDocument, error) {
	n := types.NewNarrative(text)
	audit := logging.NewAuditor(p.audit, n.RequestID)
	state := StateIdle

	if strings.TrimSpace(text) == "" {
		err := types.NewPipelineError(types.ErrValidationFailure, "", errEmptyNarrative)
		audit.PipelineErr(string(types.ErrValidationFailure), "ingest", err)
		p.transition(&state, StateFailed, audit)
		return nil, err
	}

	p.logger.Info("interpreting narrative",
		zap.String("request_id", n.RequestID),
		zap.Int("chars", len(n.Text)))

	runCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.transition(&state, StateFanningOut, audit)
	b := p.fanOut(runCtx, n, audit)

	p.transition(&state, StateCollaborating, audit)
	p.collaborate(runCtx, n, b, audit)

	p.transition(&state, StateSynthesizing, audit)
	doc := synthesis.Synthesize(p.synthesisInput(n, b))

	p.transition(&state, StateValidating, audit)
	validated, err := safety.Validate(doc, audit)
	if err != nil {
		p.transition(&state, StateFailed, audit)
		p.logger.Error("validation rejected document",
			zap.String("request_id", n.RequestID), zap.Error(err))
		return nil, err
	}

	p.transition(&state, StateDone, audit)
	p.logger.Info("narrative interpreted",
		zap.String("request_id", n.RequestID),
		zap.String("risk", validated.Risk.Level.String()),
		zap.Bool("floor_applied", validated.Risk.FloorApplied))
	return validated, nil
}

// fanOut runs the three extractors concurrently and the override engine on
// the calling goroutine, then folds every outcome into one bundle. A slot
// whose extractor has not returned by the deadline comes back tagged as a
// reasoning timeout; the run proceeds with whatever the other slots produced.
func (p *Pipeline) fanOut(ctx context.Context, n types.Narrative, audit *logging.Auditor) *bundle {
	b := &bundle{
		results:  make([]*types.ExtractionResult, len(p.extractors)),
		failures: make(map[types.ExtractorKind]error),
	}
	errs := make([]error, len(p.extractors))

	g, gctx := errgroup.WithContext(ctx)
	for i, ex := range p.extractors {
		g.Go(func() error {
			res, err := ex.Extract(gctx, n, audit)
			if err != nil && gctx.Err() != nil && !types.IsTimeout(err) {
				// The run deadline fired while this slot was in flight.
				err = types.NewPipelineError(types.ErrReasoningTimeout, ex.Kind(), gctx.Err())
			}
			b.results[i], errs[i] = res, err
			// Slot failures degrade, they never abort the group; the
			// group only reports the run deadline itself.
			return gctx.Err()
		})
	}

	// The override engine is synchronous and bounded, so it runs here while
	// the extractors are in flight. Its verdict has no failure path.
	b.floor = p.engine.Evaluate(n.Text)
	if len(b.floor.TriggeredPatterns) > 0 {
		audit.OverrideTrigger(b.floor.Level.String(), b.floor.TriggeredPatterns)
		p.logger.Warn("deterministic risk floor raised",
			zap.String("request_id", n.RequestID),
			zap.String("level", b.floor.Level.String()),
			zap.Strings("patterns", b.floor.TriggeredPatterns))
	}

	if err := g.Wait(); err != nil {
		p.logger.Warn("fan-out interrupted before all slots returned",
			zap.String("request_id", n.RequestID), zap.Error(err))
	}

	for i, ex := range p.extractors {
		err := errs[i]
		if err == nil {
			continue
		}
		b.failures[ex.Kind()] = err
		kind := types.ErrReasoningFailure
		if pe, ok := types.AsPipelineError(err); ok {
			kind = pe.Kind
		}
		audit.PipelineErr(string(kind), string(ex.Kind()), err)
		p.logger.Warn("extractor slot degraded",
			zap.String("request_id", n.RequestID),
			zap.String("extractor", string(ex.Kind())),
			zap.Error(err))
	}
	return b
}

// collaborate runs the bounded refinement pass: each extractor that
// succeeded sees its peers' first-pass findings exactly once. Refinement is
// skipped for failed slots, and a failed refinement keeps the first-pass
// result, so this pass can only add.
func (p *Pipeline) collaborate(ctx context.Context, n types.Narrative, b *bundle, audit *logging.Auditor) {
	// Refinements read peers from a snapshot so a refined slot never shows
	// up in another extractor's peer view.
	peers := append([]*types.ExtractionResult(nil), b.results...)

	g, gctx := errgroup.WithContext(ctx)
	for i, ex := range p.extractors {
		if peers[i] == nil {
			continue
		}
		g.Go(func() error {
			refined, err := ex.Refine(gctx, n, peers[i], peers, audit)
			if err != nil {
				audit.CollaborationRun(string(ex.Kind()), false)
				p.logger.Debug("refinement kept first-pass result",
					zap.String("extractor", string(ex.Kind())), zap.Error(err))
			} else {
				audit.CollaborationRun(string(ex.Kind()), refined != peers[i])
				b.results[i] = refined
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		p.logger.Debug("collaboration interrupted", zap.Error(err))
	}
}

// synthesisInput spreads the bundle's tagged results into per-kind slots.
func (p *Pipeline) synthesisInput(n types.Narrative, b *bundle) synthesis.Input {
	in := synthesis.Input{
		Narrative: n,
		Failures:  b.failures,
		Floor:     b.floor,
	}
	for _, r := range b.results {
		if r == nil {
			continue
		}
		switch r.Kind {
		case types.KindMetaphor:
			in.Metaphor = r.Metaphor
		case types.KindEmotion:
			in.Emotion = r.Emotion
		case types.KindRisk:
			in.Risk = r.Risk
		}
	}
	return in
}

func (p *Pipeline) transition(state *State, next State, audit *logging.Auditor) {
	audit.StateTransition(string(*state), string(next))
	p.logger.Debug("pipeline state",
		zap.String("from", string(*state)), zap.String("to", string(next)))
	*state = next
}
