package domain

import (
	"fmt"
	"strings"
)

// ExtractionError marks ambiguous or insufficient input. It is terminal but
// not fatal: Question is what to ask the user next.
type ExtractionError struct {
	Reason   string
	Question string
}

func (e ExtractionError) Error() string {
	return "extraction incomplete: " + e.Reason
}

// SynthesisError is returned when no template can serve the resolved type
// and parameters.
type SynthesisError struct {
	Type   ExperimentType
	Reason string
}

func (e SynthesisError) Error() string {
	return fmt.Sprintf("cannot synthesize %s protocol: %s", e.Type, e.Reason)
}

// PolicyViolation is the fail-fast outcome of the hazard screen.
type PolicyViolation struct {
	Terms []string
}

func (e PolicyViolation) Error() string {
	return "blocked by policy: high-risk terms " + strings.Join(e.Terms, ", ")
}

// Finding converts the violation into a report entry.
func (e PolicyViolation) Finding() Finding {
	return Finding{
		Rule:      "policy_gate",
		Kind:      FindingPolicyViolation,
		Severity:  SeverityBlock,
		Message:   fmt.Sprintf("high-risk materials mentioned: %s", strings.Join(e.Terms, ", ")),
		Operation: -1,
	}
}

// ValidationError is returned when a report contains blocking findings.
type ValidationError struct {
	Report Report
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("script blocked by validation: %d finding(s)", len(e.Report.Findings))
}

// SimulationError carries a failed simulation together with its classification.
type SimulationError struct {
	Result          SimulationResult
	Classifications []ErrorClassification
}

func (e SimulationError) Error() string {
	names := make([]string, 0, len(e.Classifications))
	for _, c := range e.Classifications {
		names = append(names, string(c.Category))
	}
	return "simulation failed: " + strings.Join(names, ", ")
}
