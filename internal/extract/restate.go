package extract

import (
	"fmt"
	"strings"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

var fieldLabels = map[string]struct{ label, unit string }{
	domain.ParamNumDilutions:      {"number of dilutions", ""},
	domain.ParamDilutionFactor:    {"dilution factor", ""},
	domain.ParamStartingVolume:    {"starting volume", "µL"},
	domain.ParamNumSamples:        {"number of samples", ""},
	domain.ParamReactionVolume:    {"reaction volume", "µL"},
	domain.ParamWashCycles:        {"wash cycles", ""},
	domain.ParamWashVolume:        {"wash volume", "µL"},
	domain.ParamSoakSeconds:       {"soak time", "s"},
	domain.ParamTransferVolume:    {"transfer volume", "µL"},
	domain.ParamMediaVolume:       {"media volume", "µL"},
	domain.ParamIncubationMinutes: {"incubation", "min"},
	domain.ParamPipette:           {"pipette", ""},
	domain.ParamSampleWell:        {"sample reservoir column", ""},
	domain.ParamDiluentWell:       {"diluent reservoir column", ""},
	domain.ParamWaterWell:         {"water reservoir column", ""},
}

var provenanceNotes = map[domain.Provenance]string{
	domain.ProvenanceUser:        "specified",
	domain.ProvenanceDefault:     "default",
	domain.ProvenanceInterpreted: "interpreted",
}

// Confirmation restates the resolved parameters of t, required keys first in
// template order followed by any optional keys that are set.
func Confirmation(t domain.ExperimentType, params domain.ParameterSet) string {
	tpl := templates[t]
	keys := append(append([]string{}, tpl.required...), tpl.optional...)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		v, ok := params.Get(key)
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s (%s)", describe(key, v), provenanceNotes[v.Provenance]))
	}
	return fmt.Sprintf("Please confirm: %s with %s.", t.Label(), strings.Join(parts, ", "))
}

func describe(key string, v domain.Value) string {
	if key == domain.ParamPlateType {
		return "plate " + plateDescription(v.String()) + " " + v.String()
	}
	f := fieldLabels[key]
	if f.unit == "" {
		return f.label + " " + v.String()
	}
	return f.label + " " + v.String() + " " + f.unit
}

func plateDescription(loadName string) string {
	if l, ok := platform.LookupLabware(loadName); ok && l.Class == platform.ClassPlate {
		return l.Described
	}
	return "plate"
}

// Instruction builds the clean instruction for t: a sentence that yields the
// same values when run back through Derive.
func Instruction(t domain.ExperimentType, params domain.ParameterSet) string {
	n := func(key string) string {
		v, _ := params.Get(key)
		return v.String()
	}
	plate := n(domain.ParamPlateType) + " " + plateDescription(n(domain.ParamPlateType))
	var b strings.Builder
	switch t {
	case domain.ExperimentSerialDilution:
		fmt.Fprintf(&b, "Perform a 1:%s serial dilution with %s dilution steps starting at %s µL in a %s.",
			n(domain.ParamDilutionFactor), n(domain.ParamNumDilutions), n(domain.ParamStartingVolume), plate)
		for _, r := range []struct{ key, name string }{
			{domain.ParamDiluentWell, "diluent"},
			{domain.ParamSampleWell, "sample"},
			{domain.ParamWaterWell, "water"},
		} {
			if params.Has(r.key) {
				fmt.Fprintf(&b, " Take %s from reservoir column %s.", r.name, n(r.key))
			}
		}
	case domain.ExperimentPCRSetup:
		fmt.Fprintf(&b, "Set up PCR for %s samples with %s µL reactions in a %s.",
			n(domain.ParamNumSamples), n(domain.ParamReactionVolume), plate)
	case domain.ExperimentPlateWashing:
		fmt.Fprintf(&b, "Wash %s samples in a %s for %s wash cycles with %s µL of wash buffer, soaking %s seconds per cycle.",
			n(domain.ParamNumSamples), plate, n(domain.ParamWashCycles), n(domain.ParamWashVolume), n(domain.ParamSoakSeconds))
	case domain.ExperimentSampleTransfer:
		fmt.Fprintf(&b, "Transfer %s µL from each of %s samples in the source %s to a destination plate.",
			n(domain.ParamTransferVolume), n(domain.ParamNumSamples), plate)
	case domain.ExperimentCellCulture:
		fmt.Fprintf(&b, "Perform a cell culture media exchange of %s µL for %s samples in a %s, then incubate for %s minutes.",
			n(domain.ParamMediaVolume), n(domain.ParamNumSamples), plate, n(domain.ParamIncubationMinutes))
	case domain.ExperimentEnzymeAssay:
		fmt.Fprintf(&b, "Run an enzyme assay for %s samples with %s µL reactions in a %s, incubating for %s minutes.",
			n(domain.ParamNumSamples), n(domain.ParamReactionVolume), plate, n(domain.ParamIncubationMinutes))
	default:
		return ""
	}
	if params.Has(domain.ParamPipette) {
		fmt.Fprintf(&b, " Use the %s pipette.", n(domain.ParamPipette))
	}
	return b.String()
}
