// Package diagnostics classifies raw simulator output into a closed set of
// actionable categories. Categories are matched independently, so one
// diagnostic may yield several classifications.
package diagnostics

import (
	"regexp"
	"strings"

	"cornucopia/pkg/domain"
)

// Signature recognizes one category. A line matching any pattern is evidence.
type Signature struct {
	Category    domain.DiagnosticCategory
	Patterns    []*regexp.Regexp
	Explanation string
	Suggestions []string
}

func patterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

var defaultSignatures = []Signature{
	{
		Category:    domain.CategoryMissingParameter,
		Patterns:    patterns(`\bKeyError\b`, `missing (?:\d+ )?required`, `required (?:parameter|argument|key)`),
		Explanation: "A required parameter or key is missing from the protocol.",
		Suggestions: []string{"Check that every labware, instrument and reagent the protocol references is defined", "Supply the missing argument in the failing call"},
	},
	{
		Category:    domain.CategoryTipShortage,
		Patterns:    patterns(`OutOfTips`, `out of tips`, `no (?:more )?tips`, `tip ?racks? (?:is|are) empty`, `insufficient tips`),
		Explanation: "The protocol uses more tips than the loaded tip racks provide.",
		Suggestions: []string{"Load additional tip racks", "Reuse tips within a reagent phase where contamination allows"},
	},
	{
		Category:    domain.CategoryInvalidDeckSlot,
		Patterns:    patterns(`SlotDoesNotExist`, `invalid (?:deck )?slot`, `not a valid (?:deck )?(?:slot|location)`, `DeckConflict`),
		Explanation: "Labware is placed on a deck position that does not exist or is already occupied.",
		Suggestions: []string{"Use Flex deck coordinates A1 through D3", "Give every labware its own slot"},
	},
	{
		Category:    domain.CategoryMissingDependency,
		Patterns:    patterns(`No module named`, `ModuleNotFoundError`, `ImportError`, `command not found`, `executable file not found`),
		Explanation: "A module or executable the simulation needs is not installed.",
		Suggestions: []string{"Install the opentrons package in the simulation environment", "Check the simulator command and PATH"},
	},
	{
		Category:    domain.CategoryIncompatibleHardware,
		Patterns:    patterns(`incompatible`, `not compatible`, `PipetteNotAttached`, `unsupported (?:pipette|instrument|labware)`),
		Explanation: "The selected instrument does not work with the labware or robot type.",
		Suggestions: []string{"Pick a pipette and tip rack pairing supported by the Flex", "Check the labware definition matches the robot type"},
	},
	{
		Category:    domain.CategoryVolumeHandling,
		Patterns:    patterns(`volume.*(?:exceed|greater than|less than|out of range|above|below|maximum|minimum)`, `cannot (?:aspirate|dispense)`, `(?:exceed|over)s? (?:the )?(?:tip|well|pipette) (?:capacity|volume|max)`),
		Explanation: "A volume is outside what the pipette, tip or well can handle.",
		Suggestions: []string{"Keep every volume between 5 and 1000 µL", "Split large transfers or choose a pipette with a matching range"},
	},
	{
		Category:    domain.CategorySyntaxError,
		Patterns:    patterns(`SyntaxError`, `invalid syntax`),
		Explanation: "The protocol text is not valid Python.",
		Suggestions: []string{"Regenerate the protocol instead of editing it by hand", "Check brackets and quotes near the reported line"},
	},
	{
		Category:    domain.CategoryIndentationError,
		Patterns:    patterns(`IndentationError`, `TabError`, `unexpected indent`, `expected an indented block`),
		Explanation: "The protocol text has inconsistent indentation.",
		Suggestions: []string{"Indent the body of run with four spaces consistently"},
	},
	{
		Category:    domain.CategoryUndefinedReference,
		Patterns:    patterns(`NameError`, `is not defined`, `AttributeError`, `has no attribute`, `UnboundLocalError`),
		Explanation: "The protocol refers to a name or attribute that does not exist.",
		Suggestions: []string{"Define every labware and instrument variable before use", "Check the attribute against the Protocol API version"},
	},
	{
		Category:    domain.CategoryTypeMismatch,
		Patterns:    patterns(`TypeError`, `unsupported operand`, `must be (?:str|int|float)`, `expected (?:type|a number)`),
		Explanation: "A value of the wrong type was passed to a Protocol API call.",
		Suggestions: []string{"Pass numeric volumes and string well names", "Check call arguments against the Protocol API reference"},
	},
}

var (
	validated = domain.ErrorClassification{
		Category:    domain.CategoryValidated,
		Explanation: "Simulation completed without errors or warnings.",
		Suggestions: []string{},
	}
	unknown = domain.ErrorClassification{
		Category:    domain.CategoryUnknown,
		Explanation: "The simulation failed with an unrecognized error.",
		Suggestions: []string{"Review the protocol and the Protocol API documentation"},
	}
)

// Classifier matches diagnostics against an ordered signature table.
type Classifier struct {
	signatures []Signature
}

// New returns a classifier with the built-in signatures.
func New() *Classifier {
	return &Classifier{signatures: defaultSignatures}
}

// Signatures returns the categories of the table in match order.
func (c *Classifier) Signatures() []domain.DiagnosticCategory {
	out := make([]domain.DiagnosticCategory, len(c.signatures))
	for i, s := range c.signatures {
		out[i] = s.Category
	}
	return out
}

// Classify returns one classification per matched category, in table order.
// Blank text is validated; text matching nothing is unknown.
func (c *Classifier) Classify(text string) []domain.ErrorClassification {
	if strings.TrimSpace(text) == "" {
		return []domain.ErrorClassification{clone(validated, "")}
	}
	lines := strings.Split(text, "\n")
	var out []domain.ErrorClassification
	for _, sig := range c.signatures {
		if line, ok := firstMatch(sig.Patterns, lines); ok {
			out = append(out, domain.ErrorClassification{
				Category:    sig.Category,
				Explanation: sig.Explanation,
				Suggestions: append([]string(nil), sig.Suggestions...),
				Evidence:    line,
			})
		}
	}
	if len(out) == 0 {
		return []domain.ErrorClassification{clone(unknown, firstLine(lines))}
	}
	return out
}

// Classify uses the built-in signatures.
func Classify(text string) []domain.ErrorClassification {
	return New().Classify(text)
}

func firstMatch(ps []*regexp.Regexp, lines []string) (string, bool) {
	for _, line := range lines {
		for _, p := range ps {
			if p.MatchString(line) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

func firstLine(lines []string) string {
	for _, l := range lines {
		if s := strings.TrimSpace(l); s != "" {
			return s
		}
	}
	return ""
}

func clone(c domain.ErrorClassification, evidence string) domain.ErrorClassification {
	c.Suggestions = append([]string{}, c.Suggestions...)
	c.Evidence = evidence
	return c
}
