// Package core orchestrates the request-to-script pipeline: extraction,
// the policy gate, synthesis, validation, archiving, optional simulation and
// the run ledger.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cornucopia/internal/blob"
	"cornucopia/internal/diagnostics"
	"cornucopia/internal/extract"
	"cornucopia/internal/session"
	"cornucopia/internal/synth"
	"cornucopia/internal/validation"
	"cornucopia/pkg/domain"
)

// Stage names used for spans, metrics and log fields.
const (
	StageExtract    = "extract"
	StagePolicy     = "policy"
	StageSynthesize = "synthesize"
	StageValidate   = "validate"
	StageArchive    = "archive"
	StageSimulate   = "simulate"
	StageClassify   = "classify"
	StageRecord     = "record"
)

// Simulator runs a script file and reports the outcome.
type Simulator interface {
	Simulate(ctx context.Context, path string) domain.SimulationResult
}

// RunOptions tune a single run.
type RunOptions struct {
	Simulate bool
}

// Outcome holds every stage that ran. Fields of stages that did not run are
// nil or empty.
type Outcome struct {
	RequestID       string                       `json:"request_id"`
	Request         domain.ExperimentRequest     `json:"request"`
	Extraction      *extract.Extraction          `json:"extraction,omitempty"`
	Script          *domain.SynthesizedScript    `json:"script,omitempty"`
	Report          domain.Report                `json:"report"`
	Artifact        *blob.Artifact               `json:"artifact,omitempty"`
	Simulation      *domain.SimulationResult     `json:"simulation,omitempty"`
	Classifications []domain.ErrorClassification `json:"classifications,omitempty"`
	Status          domain.RunStatus             `json:"status"`
	Duration        time.Duration                `json:"duration"`
}

// Type returns the resolved experiment type, empty before extraction.
func (o Outcome) Type() domain.ExperimentType {
	if o.Extraction == nil {
		return ""
	}
	return o.Extraction.Type
}

// Reply is what the user is told about the run: the confirmation, or the
// question that resolves an ambiguous request.
func (o Outcome) Reply() string {
	if o.Extraction == nil {
		return ""
	}
	if o.Extraction.Question != "" {
		return o.Extraction.Question
	}
	return o.Extraction.Confirmation
}

// SessionEvent converts the outcome for session.Apply.
func (o Outcome) SessionEvent() session.Event {
	return session.Event{
		RunID:     o.RequestID,
		Text:      o.Request.Text,
		Reply:     o.Reply(),
		Status:    o.Status,
		Generated: o.Artifact != nil,
	}
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	extractor  *extract.Extractor
	synth      synth.Synthesizer
	validator  *validation.Validator
	classifier *diagnostics.Classifier
	archive    *blob.Archive
	ledger     domain.RunLedger
	simulator  Simulator
	logger     *zap.Logger
	tracer     Tracer
	metrics    *Metrics
	newID      func() string
	now        func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtractor replaces the default rule-only extractor.
func WithExtractor(x *extract.Extractor) Option { return func(p *Pipeline) { p.extractor = x } }

// WithValidator replaces the default structural+semantic validator.
func WithValidator(v *validation.Validator) Option { return func(p *Pipeline) { p.validator = v } }

// WithArchive sets where scripts are written. Defaults to an in-memory store.
func WithArchive(a *blob.Archive) Option { return func(p *Pipeline) { p.archive = a } }

// WithLedger records every run.
func WithLedger(l domain.RunLedger) Option { return func(p *Pipeline) { p.ledger = l } }

// WithSimulator enables the simulate stage.
func WithSimulator(s Simulator) Option { return func(p *Pipeline) { p.simulator = s } }

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer sets the stage tracer.
func WithTracer(t Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithMetrics sets the collectors.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithIDSource overrides request id generation.
func WithIDSource(fn func() string) Option { return func(p *Pipeline) { p.newID = fn } }

// WithClock overrides the clock.
func WithClock(fn func() time.Time) Option { return func(p *Pipeline) { p.now = fn } }

// NewPipeline assembles a pipeline with defaults for every collaborator.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:  extract.New(),
		synth:      synth.New(),
		validator:  validation.New(nil),
		classifier: diagnostics.New(),
		archive:    blob.NewArchive(blob.NewMemory()),
		logger:     zap.NewNop(),
		tracer:     noopTracer{},
		metrics:    NewMetrics(nil),
		newID:      uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Archive returns the archive scripts are written to.
func (p *Pipeline) Archive() *blob.Archive { return p.archive }

// Classify classifies a diagnostic with the pipeline's classifier.
func (p *Pipeline) Classify(text string) []domain.ErrorClassification {
	return p.classifier.Classify(text)
}

// Run takes one request through every stage. The outcome is populated with
// the stages that ran; a non-nil error names why the run halted and is one
// of the domain error types, or a wrapped infrastructure error.
func (p *Pipeline) Run(ctx context.Context, req domain.ExperimentRequest, opts RunOptions) (Outcome, error) {
	started := p.now()
	out := Outcome{RequestID: p.newID(), Request: req}
	ctx = withRequestID(ctx, out.RequestID)
	log := p.logger.With(zap.String("request_id", out.RequestID))

	err := p.run(ctx, log, &out, opts)
	out.Status = statusOf(err)
	out.Duration = p.now().Sub(started)

	if recErr := p.record(ctx, out, err, started); recErr != nil {
		log.Error("run not recorded", zap.String("stage", StageRecord), zap.Error(recErr))
		if err == nil {
			err = recErr
			out.Status = domain.RunErrored
		}
	}
	p.metrics.observeOutcome(out)
	fields := []zap.Field{
		zap.String("experiment_type", string(out.Type())),
		zap.String("status", string(out.Status)),
		zap.Int("findings", len(out.Report.Findings)),
		zap.Duration("duration", out.Duration),
	}
	if err != nil {
		log.Info("pipeline halted", append(fields, zap.Error(err))...)
	} else {
		log.Info("pipeline completed", fields...)
	}
	return out, err
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, out *Outcome, opts RunOptions) error {
	var ext extract.Extraction
	err := p.stage(ctx, StageExtract, func(ctx context.Context) error {
		var err error
		ext, err = p.extractor.Extract(ctx, out.Request)
		out.Extraction = &ext
		return err
	})
	// Hazard screening also covers requests too vague to extract.
	if gateErr := p.stage(ctx, StagePolicy, func(context.Context) error {
		return validation.Gate(out.Request.Text, ext.Instruction)
	}); gateErr != nil {
		var v domain.PolicyViolation
		if errors.As(gateErr, &v) {
			out.Report.Add(v.Finding())
			log.Warn("request blocked by policy", zap.Strings("terms", v.Terms))
		}
		return gateErr
	}
	if err != nil {
		return err
	}
	log = log.With(zap.String("experiment_type", string(ext.Type)))

	var script domain.SynthesizedScript
	if err := p.stage(ctx, StageSynthesize, func(context.Context) error {
		var err error
		script, err = p.synth.Synthesize(ext.Type, ext.Parameters)
		return err
	}); err != nil {
		return err
	}
	out.Script = &script

	if err := p.stage(ctx, StageValidate, func(ctx context.Context) error {
		report, err := p.validator.Validate(ctx, script, ext.Instruction)
		if err != nil {
			return fmt.Errorf("validate: %w", err)
		}
		out.Report.Merge(report)
		if report.HasBlocking() {
			return domain.ValidationError{Report: report}
		}
		return nil
	}); err != nil {
		for _, f := range out.Report.Findings {
			log.Debug("finding", zap.String("stage", StageValidate), zap.String("kind", string(f.Kind)), zap.String("message", f.Message))
		}
		return err
	}

	if err := p.stage(ctx, StageArchive, func(ctx context.Context) error {
		art, err := p.archive.Save(ctx, script, out.RequestID, token(out.RequestID))
		if err != nil {
			return err
		}
		out.Artifact = &art
		return nil
	}); err != nil {
		return err
	}
	log.Debug("script archived", zap.String("key", out.Artifact.Key), zap.String("driver", string(p.archive.Driver())))

	if !opts.Simulate || p.simulator == nil {
		return nil
	}
	var result domain.SimulationResult
	if err := p.stage(ctx, StageSimulate, func(ctx context.Context) error {
		path, cleanup, err := p.archive.Materialize(ctx, out.Artifact.Key)
		if err != nil {
			return fmt.Errorf("materialize %s: %w", out.Artifact.Key, err)
		}
		defer cleanup()
		result = p.simulator.Simulate(ctx, path)
		return nil
	}); err != nil {
		return err
	}
	out.Simulation = &result
	// Partial output from a cancelled simulation is still a diagnostic.
	_ = p.stage(context.WithoutCancel(ctx), StageClassify, func(context.Context) error {
		out.Classifications = p.classifier.Classify(result.Diagnostic)
		return nil
	})
	for _, c := range out.Classifications {
		log.Debug("classified", zap.String("category", string(c.Category)), zap.String("evidence", c.Evidence))
	}
	if !result.Success {
		return domain.SimulationError{Result: result, Classifications: out.Classifications}
	}
	return nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, name)
	begin := p.now()
	err := ctx.Err()
	if err == nil {
		err = fn(ctx)
	}
	p.metrics.observeStage(name, p.now().Sub(begin))
	span.End(err)
	return err
}

func (p *Pipeline) record(ctx context.Context, out Outcome, runErr error, started time.Time) error {
	if p.ledger == nil {
		return nil
	}
	rec := domain.RunRecord{
		ID:         out.RequestID,
		CreatedAt:  started.UTC(),
		Text:       out.Request.Text,
		Type:       out.Type(),
		Status:     out.Status,
		Findings:   out.Report.Kinds(),
		Categories: domain.Categories(out.Classifications),
		Duration:   out.Duration,
	}
	if out.Extraction != nil {
		rec.Instruction = out.Extraction.Instruction
	}
	if out.Artifact != nil {
		rec.ArtifactKey = out.Artifact.Key
		rec.Fingerprint = out.Artifact.Fingerprint
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	// Record even when the caller's context is done so halted runs are kept.
	if err := p.ledger.Append(context.WithoutCancel(ctx), rec); err != nil {
		return fmt.Errorf("record run %s: %w", rec.ID, err)
	}
	return nil
}

func statusOf(err error) domain.RunStatus {
	var (
		extractErr  domain.ExtractionError
		policyErr   domain.PolicyViolation
		synthErr    domain.SynthesisError
		validateErr domain.ValidationError
		simErr      domain.SimulationError
	)
	switch {
	case err == nil:
		return domain.RunSucceeded
	case errors.As(err, &policyErr):
		return domain.RunBlockedByPolicy
	case errors.As(err, &extractErr):
		return domain.RunNeedsInput
	case errors.As(err, &synthErr):
		return domain.RunSynthesisFailed
	case errors.As(err, &validateErr):
		return domain.RunValidationFailed
	case errors.As(err, &simErr):
		return domain.RunSimulationFailed
	default:
		return domain.RunErrored
	}
}

func token(requestID string) string {
	return strings.ReplaceAll(requestID, "-", "")
}
