package extract

import (
	"strings"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

// TypeRule maps a set of keywords to an experiment type. A rule matches when
// any keyword is a substring of the lowercased request.
type TypeRule struct {
	Type     domain.ExperimentType
	Keywords []string
}

// precedence is evaluated top to bottom and the first match wins, so a request
// that mentions both washing and transferring resolves to plate_washing.
var precedence = []TypeRule{
	{Type: domain.ExperimentSerialDilution, Keywords: []string{"serial dilution", "serially dilute", "dilution series", "titration", "dilution"}},
	{Type: domain.ExperimentPCRSetup, Keywords: []string{"pcr", "master mix", "mastermix", "thermocycl", "amplif"}},
	{Type: domain.ExperimentPlateWashing, Keywords: []string{"wash"}},
	{Type: domain.ExperimentSampleTransfer, Keywords: []string{"transfer", "aliquot", "replicate", "copy plate", "move samples"}},
	{Type: domain.ExperimentCellCulture, Keywords: []string{"cell culture", "culture", "media change", "medium change", "feed cells", "passage"}},
	{Type: domain.ExperimentEnzymeAssay, Keywords: []string{"enzyme", "assay", "kinetic", "substrate", "elisa"}},
}

// Precedence returns a copy of the classification table in evaluation order.
// generic is the implicit final entry and has no keywords.
func Precedence() []TypeRule {
	out := make([]TypeRule, 0, len(precedence)+1)
	for _, r := range precedence {
		kw := make([]string, len(r.Keywords))
		copy(kw, r.Keywords)
		out = append(out, TypeRule{Type: r.Type, Keywords: kw})
	}
	return append(out, TypeRule{Type: domain.ExperimentGeneric})
}

// Classify returns the first type whose keywords occur in text, or generic.
func Classify(text string) domain.ExperimentType {
	lower := strings.ToLower(text)
	for _, r := range precedence {
		for _, kw := range r.Keywords {
			if strings.Contains(lower, kw) {
				return r.Type
			}
		}
	}
	return domain.ExperimentGeneric
}

// template lists the required keys of a type in confirmation order, with
// their defaults, followed by the primary volume field and the optional keys
// the type accepts.
type template struct {
	required []string
	defaults map[string]domain.Value
	primary  string
	optional []string
}

func num(v float64) domain.Value { return domain.Number(v, domain.ProvenanceDefault) }
func txt(v string) domain.Value  { return domain.Text(v, domain.ProvenanceDefault) }

var templates = map[domain.ExperimentType]template{
	domain.ExperimentSerialDilution: {
		required: []string{domain.ParamNumDilutions, domain.ParamDilutionFactor, domain.ParamStartingVolume, domain.ParamPlateType},
		defaults: map[string]domain.Value{
			domain.ParamNumDilutions:   num(5),
			domain.ParamDilutionFactor: num(2),
			domain.ParamStartingVolume: num(100),
			domain.ParamPlateType:      txt("nest_96_wellplate_200ul_flat"),
		},
		primary:  domain.ParamStartingVolume,
		optional: []string{domain.ParamPipette, domain.ParamDiluentWell, domain.ParamSampleWell, domain.ParamWaterWell},
	},
	domain.ExperimentPCRSetup: {
		required: []string{domain.ParamNumSamples, domain.ParamReactionVolume, domain.ParamPlateType},
		defaults: map[string]domain.Value{
			domain.ParamNumSamples:     num(8),
			domain.ParamReactionVolume: num(50),
			domain.ParamPlateType:      txt("nest_96_wellplate_100ul_pcr_full_skirt"),
		},
		primary:  domain.ParamReactionVolume,
		optional: []string{domain.ParamPipette},
	},
	domain.ExperimentPlateWashing: {
		required: []string{domain.ParamNumSamples, domain.ParamWashCycles, domain.ParamWashVolume, domain.ParamSoakSeconds, domain.ParamPlateType},
		defaults: map[string]domain.Value{
			domain.ParamNumSamples:  num(96),
			domain.ParamWashCycles:  num(3),
			domain.ParamWashVolume:  num(150),
			domain.ParamSoakSeconds: num(30),
			domain.ParamPlateType:   txt("nest_96_wellplate_200ul_flat"),
		},
		primary:  domain.ParamWashVolume,
		optional: []string{domain.ParamPipette},
	},
	domain.ExperimentSampleTransfer: {
		required: []string{domain.ParamNumSamples, domain.ParamTransferVolume, domain.ParamPlateType},
		defaults: map[string]domain.Value{
			domain.ParamNumSamples:     num(8),
			domain.ParamTransferVolume: num(50),
			domain.ParamPlateType:      txt("nest_96_wellplate_200ul_flat"),
		},
		primary:  domain.ParamTransferVolume,
		optional: []string{domain.ParamPipette},
	},
	domain.ExperimentCellCulture: {
		required: []string{domain.ParamNumSamples, domain.ParamMediaVolume, domain.ParamIncubationMinutes, domain.ParamPlateType},
		defaults: map[string]domain.Value{
			domain.ParamNumSamples:        num(24),
			domain.ParamMediaVolume:       num(150),
			domain.ParamIncubationMinutes: num(10),
			domain.ParamPlateType:         txt("corning_96_wellplate_360ul_flat"),
		},
		primary:  domain.ParamMediaVolume,
		optional: []string{domain.ParamPipette},
	},
	domain.ExperimentEnzymeAssay: {
		required: []string{domain.ParamNumSamples, domain.ParamReactionVolume, domain.ParamIncubationMinutes, domain.ParamPlateType},
		defaults: map[string]domain.Value{
			domain.ParamNumSamples:        num(8),
			domain.ParamReactionVolume:    num(100),
			domain.ParamIncubationMinutes: num(15),
			domain.ParamPlateType:         txt("nest_96_wellplate_200ul_flat"),
		},
		primary:  domain.ParamReactionVolume,
		optional: []string{domain.ParamPipette},
	},
}

// RequiredKeys returns the keys every parameter set of type t carries after
// extraction, in confirmation order. generic has none.
func RequiredKeys(t domain.ExperimentType) []string {
	tpl, ok := templates[t]
	if !ok {
		return nil
	}
	out := make([]string, len(tpl.required))
	copy(out, tpl.required)
	return out
}

// Defaults returns a fresh parameter set holding the defaults of type t.
func Defaults(t domain.ExperimentType) domain.ParameterSet {
	ps := domain.NewParameterSet()
	for k, v := range templates[t].defaults {
		ps.Set(k, v)
	}
	return ps
}

// fitDefaultVolume caps a defaulted primary volume at the capacity of the
// chosen pipette. A stated volume is left alone.
func fitDefaultVolume(tpl template, params *domain.ParameterSet) {
	model, ok := params.Text(domain.ParamPipette)
	if !ok {
		return
	}
	p, ok := platform.LookupPipette(model)
	if !ok {
		return
	}
	v, ok := params.Get(tpl.primary)
	if !ok || v.Provenance != domain.ProvenanceDefault || v.Kind != domain.KindNumber {
		return
	}
	if v.Number > p.MaxUL {
		params.Set(tpl.primary, num(p.MaxUL))
	}
}

func (tpl template) accepts(key string) bool {
	if _, ok := tpl.defaults[key]; ok {
		return true
	}
	for _, k := range tpl.optional {
		if k == key {
			return true
		}
	}
	return false
}
