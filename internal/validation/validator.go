// Package validation holds the static checks run on a synthesized script: a
// fail-fast hazard screen over instruction text, structural conformance with
// the platform catalog, and a semantic cross-check against the clean
// instruction.
package validation

import (
	"context"

	"cornucopia/pkg/domain"
)

// NewStructuralRule returns the rule checking platform conformance of the IR.
func NewStructuralRule() domain.Rule { return structural{} }

type structural struct{}

func (structural) Name() string { return structuralRule }

func (structural) Evaluate(_ context.Context, subject domain.Subject) (domain.Report, error) {
	return domain.Report{Findings: CheckStructural(subject.Script.Operations)}, nil
}

// NewSemanticRule returns the rule cross-checking the IR against the clean
// instruction.
func NewSemanticRule() domain.Rule { return semantic{} }

type semantic struct{}

func (semantic) Name() string { return semanticRule }

func (semantic) Evaluate(_ context.Context, subject domain.Subject) (domain.Report, error) {
	return domain.Report{Findings: CheckSemantic(subject.Script, subject.Instruction)}, nil
}

// NewDefaultRulesEngine builds an engine with the structural and semantic
// rules, in that order.
func NewDefaultRulesEngine() *domain.RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewStructuralRule())
	engine.Register(NewSemanticRule())
	return engine
}

// Validator accumulates structural and semantic findings into one report.
type Validator struct {
	engine *domain.RulesEngine
}

// New returns a Validator using engine, or the default engine when nil.
func New(engine *domain.RulesEngine) *Validator {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return &Validator{engine: engine}
}

// Validate evaluates every rule against script and instruction.
func (v *Validator) Validate(ctx context.Context, script domain.SynthesizedScript, instruction string) (domain.Report, error) {
	return v.engine.Evaluate(ctx, domain.Subject{Script: script, Instruction: instruction})
}
