package domain

import "time"

// SimulationResult is the outcome of an external simulation run. Diagnostic
// is empty on success and holds whatever output was captured otherwise.
type SimulationResult struct {
	Success    bool          `json:"success"`
	Diagnostic string        `json:"diagnostic,omitempty"`
	ExitCode   int           `json:"exit_code"`
	TimedOut   bool          `json:"timed_out,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// DiagnosticCategory is a class of simulator failure.
type DiagnosticCategory string

// Diagnostic categories. CategoryValidated and CategoryUnknown are the only
// categories that never co-occur with others.
const (
	CategoryValidated            DiagnosticCategory = "validated"
	CategoryMissingParameter     DiagnosticCategory = "missing_parameter"
	CategoryTipShortage          DiagnosticCategory = "tip_shortage"
	CategoryInvalidDeckSlot      DiagnosticCategory = "invalid_deck_slot"
	CategoryMissingDependency    DiagnosticCategory = "missing_dependency"
	CategoryIncompatibleHardware DiagnosticCategory = "incompatible_hardware"
	CategoryVolumeHandling       DiagnosticCategory = "volume_handling"
	CategorySyntaxError          DiagnosticCategory = "syntax_error"
	CategoryIndentationError     DiagnosticCategory = "indentation_error"
	CategoryUndefinedReference   DiagnosticCategory = "undefined_reference"
	CategoryTypeMismatch         DiagnosticCategory = "type_mismatch"
	CategoryUnknown              DiagnosticCategory = "unknown"
)

// ErrorClassification explains one matched diagnostic category.
type ErrorClassification struct {
	Category    DiagnosticCategory `json:"category"`
	Explanation string             `json:"explanation"`
	Suggestions []string           `json:"suggestions"`
	Evidence    string             `json:"evidence,omitempty"`
}

// Categories lists the categories of a classification set in order.
func Categories(set []ErrorClassification) []DiagnosticCategory {
	out := make([]DiagnosticCategory, 0, len(set))
	for _, c := range set {
		out = append(out, c.Category)
	}
	return out
}
