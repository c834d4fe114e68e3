package domain

import (
	"context"
	"fmt"
)

// Severity captures rule outcomes.
type Severity string

// Finding severities decide whether a report blocks execution.
const (
	// SeverityBlock blocks execution of the script.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not block.
	SeverityWarn Severity = "warn"
)

// FindingKind classifies a validation finding.
type FindingKind string

// Validation finding kinds.
const (
	FindingPolicyViolation       FindingKind = "policy_violation"
	FindingUnsupportedInstrument FindingKind = "unsupported_instrument"
	FindingUnsupportedLabware    FindingKind = "unsupported_labware"
	FindingInvalidSlot           FindingKind = "invalid_slot"
	FindingVolumeOutOfRange      FindingKind = "volume_out_of_range"
	FindingIntentMismatch        FindingKind = "intent_mismatch"
)

// Finding reports one failed check. Operation is the index of the offending
// IR element, or -1 when the finding is not tied to a single operation.
type Finding struct {
	Rule      string      `json:"rule"`
	Kind      FindingKind `json:"kind"`
	Severity  Severity    `json:"severity"`
	Message   string      `json:"message"`
	Operation int         `json:"operation"`
}

func (f Finding) String() string {
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Report aggregates findings from the validators.
type Report struct {
	Findings []Finding `json:"findings"`
}

// Merge appends findings from another report.
func (r *Report) Merge(other Report) {
	if len(other.Findings) == 0 {
		return
	}
	r.Findings = append(r.Findings, other.Findings...)
}

// Add appends a single finding.
func (r *Report) Add(f Finding) {
	r.Findings = append(r.Findings, f)
}

// HasBlocking returns true if the report contains blocking findings.
func (r Report) HasBlocking() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Empty reports whether there are no findings at all.
func (r Report) Empty() bool { return len(r.Findings) == 0 }

// Kinds returns the distinct finding kinds in first-seen order.
func (r Report) Kinds() []FindingKind {
	seen := make(map[FindingKind]struct{}, len(r.Findings))
	var out []FindingKind
	for _, f := range r.Findings {
		if _, ok := seen[f.Kind]; ok {
			continue
		}
		seen[f.Kind] = struct{}{}
		out = append(out, f.Kind)
	}
	return out
}

// Subject is what a rule inspects: the synthesized script and the clean
// instruction it was built from.
type Subject struct {
	Script      SynthesizedScript
	Instruction string
}

// Rule defines one validation check.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, subject Subject) (Report, error)
}

// RulesEngine orchestrates rule evaluation. Rules run in registration order
// and their findings accumulate.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rule names in order.
func (e *RulesEngine) Rules() []string {
	names := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		names = append(names, r.Name())
	}
	return names
}

// Evaluate executes all registered rules and aggregates their findings.
func (e *RulesEngine) Evaluate(ctx context.Context, subject Subject) (Report, error) {
	var combined Report
	for _, rule := range e.rules {
		if err := ctx.Err(); err != nil {
			return Report{}, err
		}
		res, err := rule.Evaluate(ctx, subject)
		if err != nil {
			return Report{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}
