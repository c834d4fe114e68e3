package validation

import (
	"fmt"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

const structuralRule = "structural"

// CheckStructural checks ops against the platform catalog: instrument and
// labware whitelists, deck coordinates and volume bounds. It never looks at
// intent and reports every problem it finds.
func CheckStructural(ops []domain.Operation) []domain.Finding {
	return checkStructural(ops, nil)
}

// checkStructural prefixes messages with source lines when lines is set.
func checkStructural(ops []domain.Operation, lines []int) []domain.Finding {
	var findings []domain.Finding
	add := func(i int, kind domain.FindingKind, msg string) {
		if lines != nil {
			msg = fmt.Sprintf("line %d: %s", lines[i], msg)
		}
		findings = append(findings, domain.Finding{
			Rule:      structuralRule,
			Kind:      kind,
			Severity:  domain.SeverityBlock,
			Message:   msg,
			Operation: i,
		})
	}
	for i, op := range ops {
		switch op.Kind {
		case domain.OpLoadInstrument:
			if _, ok := platform.LookupPipette(op.Instrument.Model); !ok {
				add(i, domain.FindingUnsupportedInstrument, fmt.Sprintf("pipette %q is not a supported model", op.Instrument.Model))
			}
		case domain.OpLoadLabware:
			l := op.Labware
			what := "labware " + l.Name
			if l.LoadName == platform.TrashLoadName {
				what = "trash " + l.Name
			}
			if _, ok := platform.LookupLabware(l.LoadName); !ok {
				add(i, domain.FindingUnsupportedLabware, fmt.Sprintf("labware %q is not supported", l.LoadName))
			}
			if !platform.ValidSlot(l.Slot) {
				add(i, domain.FindingInvalidSlot, fmt.Sprintf("%s slot %q is not a deck coordinate", what, l.Slot))
			}
		}
		for _, v := range op.Volumes() {
			if fault := platform.VolumeFault(v); fault != "" {
				add(i, domain.FindingVolumeOutOfRange, volumeMessage(string(op.Kind), v, fault))
			}
		}
	}
	return findings
}

func volumeMessage(what string, v float64, fault string) string {
	bound := "min " + domain.FormatNumber(platform.MinVolumeUL) + " µL"
	if v > platform.MaxVolumeUL {
		bound = "max " + domain.FormatNumber(platform.MaxVolumeUL) + " µL"
	}
	return fmt.Sprintf("%s volume %s µL %s (%s)", what, domain.FormatNumber(v), fault, bound)
}
