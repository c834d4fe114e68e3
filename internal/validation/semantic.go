package validation

import (
	"fmt"

	"cornucopia/internal/extract"
	"cornucopia/internal/platform"
	"cornucopia/internal/synth"
	"cornucopia/pkg/domain"
)

const semanticRule = "semantic"

// CheckSemantic re-derives plate type, step count, reagent wells, sample
// count and wash cycles from the clean instruction and asserts each against
// the IR of script.
func CheckSemantic(script domain.SynthesizedScript, instruction string) []domain.Finding {
	var findings []domain.Finding
	mismatch := func(format string, args ...any) {
		findings = append(findings, domain.Finding{
			Rule:      semanticRule,
			Kind:      domain.FindingIntentMismatch,
			Severity:  domain.SeverityBlock,
			Message:   fmt.Sprintf(format, args...),
			Operation: -1,
		})
	}
	if instruction == "" {
		mismatch("no clean instruction to compare against")
		return findings
	}
	expected := extract.Derive(instruction, script.Type)
	facts := collect(script.Operations)

	if plate, ok := expected.Text(domain.ParamPlateType); ok && !facts.loadNames[plate] {
		mismatch("plate %s is not loaded", plate)
	}
	if script.Type == domain.ExperimentSerialDilution {
		if n, ok := expected.Number(domain.ParamNumDilutions); ok && float64(facts.chainTransfers) != n {
			mismatch("expected %s dilution steps, script performs %d", domain.FormatNumber(n), facts.chainTransfers)
		}
		for _, key := range []string{domain.ParamDiluentWell, domain.ParamSampleWell, domain.ParamWaterWell} {
			pos, ok := expected.Number(key)
			if !ok || (key == domain.ParamWaterWell && expected.Has(domain.ParamDiluentWell)) {
				continue
			}
			well, err := platform.ReservoirWell(int(pos))
			if err != nil || !facts.reservoirSources[well] {
				mismatch("%s column %s is never drawn from", key, domain.FormatNumber(pos))
			}
		}
	}
	if n, ok := expected.Number(domain.ParamNumSamples); ok {
		target := synth.PlateName
		if script.Type == domain.ExperimentSampleTransfer {
			target = synth.DestName
		}
		if p, known := platform.LookupPipette(facts.pipette); known {
			want := platform.Units(p, int(n))
			if got := len(facts.destinations[target]); got != want {
				mismatch("expected %s samples in %d units, script fills %d", domain.FormatNumber(n), want, got)
			}
		}
	}
	if script.Type == domain.ExperimentPlateWashing {
		if n, ok := expected.Number(domain.ParamWashCycles); ok && float64(facts.delays) != n {
			mismatch("expected %s wash cycles, script soaks %d times", domain.FormatNumber(n), facts.delays)
		}
	}
	return findings
}

type irFacts struct {
	loadNames        map[string]bool
	pipette          string
	chainTransfers   int
	reservoirSources map[string]bool
	destinations     map[string]map[string]bool
	delays           int
}

func collect(ops []domain.Operation) irFacts {
	f := irFacts{
		loadNames:        map[string]bool{},
		reservoirSources: map[string]bool{},
		destinations:     map[string]map[string]bool{},
	}
	dest := func(ref domain.WellRef) {
		if ref.Well == "" {
			return
		}
		if f.destinations[ref.Labware] == nil {
			f.destinations[ref.Labware] = map[string]bool{}
		}
		f.destinations[ref.Labware][ref.Well] = true
	}
	source := func(ref domain.WellRef) {
		if ref.Labware == synth.ReservoirName {
			f.reservoirSources[ref.Well] = true
		}
	}
	for _, op := range ops {
		switch op.Kind {
		case domain.OpLoadLabware:
			f.loadNames[op.Labware.LoadName] = true
		case domain.OpLoadInstrument:
			f.pipette = op.Instrument.Model
		case domain.OpTransfer:
			tr := op.Transfer
			if tr.Source.Labware == synth.PlateName && tr.Dest.Labware == synth.PlateName {
				f.chainTransfers++
			}
			source(tr.Source)
			dest(tr.Dest)
		case domain.OpDistribute:
			source(op.Distribute.Source)
			for _, d := range op.Distribute.Dests {
				dest(d)
			}
		case domain.OpDelay:
			f.delays++
		}
	}
	return f
}
