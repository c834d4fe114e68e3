package validation

import (
	"regexp"
	"strconv"
	"strings"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

var (
	scanLabware    = regexp.MustCompile(`(?:(\w+)\s*=\s*)?\w+\.load_labware\(\s*(?:load_name\s*=\s*)?['"]([^'"]+)['"]\s*,\s*(?:location\s*=\s*)?['"]?([^'",)\s]+)`)
	scanTrash      = regexp.MustCompile(`(?:(\w+)\s*=\s*)?\w+\.load_trash_bin\(\s*(?:location\s*=\s*)?['"]?([^'",)\s]+)`)
	scanInstrument = regexp.MustCompile(`(?:(\w+)\s*=\s*)?\w+\.load_instrument\(\s*(?:instrument_name\s*=\s*)?['"]([^'"]+)['"](?:\s*,\s*(?:mount\s*=\s*)?['"]([^'"]+)['"])?`)
	scanLiquid     = regexp.MustCompile(`(\w+)\.(aspirate|dispense|transfer|distribute|consolidate)\(\s*(?:volume\s*=\s*)?(\d+(?:\.\d+)?)`)
	scanMix        = regexp.MustCompile(`(\w+)\.mix\(\s*(?:repetitions\s*=\s*)?(\d+)\s*,\s*(?:volume\s*=\s*)?(\d+(?:\.\d+)?)`)
)

// ScanScript recovers the load and liquid-handling facts of a protocol text
// as operations, with the source line of each. Lines it does not recognize
// are ignored. Each aspirate or dispense becomes its own transfer carrying
// only a volume.
func ScanScript(text string) ([]domain.Operation, []int) {
	var ops []domain.Operation
	var lines []int
	for n, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, op := range scanLine(line) {
			ops = append(ops, op)
			lines = append(lines, n+1)
		}
	}
	return ops, lines
}

func scanLine(line string) []domain.Operation {
	if m := scanTrash.FindStringSubmatch(line); m != nil {
		return []domain.Operation{{Kind: domain.OpLoadLabware, Labware: &domain.LabwareLoad{Name: m[1], LoadName: platform.TrashLoadName, Slot: m[2]}}}
	}
	if m := scanLabware.FindStringSubmatch(line); m != nil {
		return []domain.Operation{{Kind: domain.OpLoadLabware, Labware: &domain.LabwareLoad{Name: m[1], LoadName: m[2], Slot: m[3]}}}
	}
	if m := scanInstrument.FindStringSubmatch(line); m != nil {
		return []domain.Operation{{Kind: domain.OpLoadInstrument, Instrument: &domain.InstrumentLoad{Name: m[1], Model: m[2], Mount: m[3]}}}
	}
	if m := scanMix.FindStringSubmatch(line); m != nil {
		reps, _ := strconv.Atoi(m[2])
		v, _ := strconv.ParseFloat(m[3], 64)
		return []domain.Operation{{Kind: domain.OpMix, Mix: &domain.Mix{Pipette: m[1], Repetitions: reps, Volume: v}}}
	}
	var ops []domain.Operation
	for _, m := range scanLiquid.FindAllStringSubmatch(line, -1) {
		v, _ := strconv.ParseFloat(m[3], 64)
		if m[2] == "distribute" {
			ops = append(ops, domain.Operation{Kind: domain.OpDistribute, Distribute: &domain.Distribute{Pipette: m[1], Volume: v}})
			continue
		}
		ops = append(ops, domain.Operation{Kind: domain.OpTransfer, Transfer: &domain.Transfer{Pipette: m[1], Volume: v}})
	}
	return ops
}

// CheckScriptText runs the structural checks over a protocol text.
func CheckScriptText(text string) []domain.Finding {
	ops, lines := ScanScript(text)
	return checkStructural(ops, lines)
}
