// Package synth builds a typed operation list from a resolved parameter set
// and renders it to protocol text. Every identifier comes from the platform
// catalog and every computed volume is bounds-checked, so a successful
// synthesis always passes structural validation.
package synth

import (
	"errors"
	"fmt"
	"math"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

// Synthesizer turns parameters into scripts. It has no state.
type Synthesizer struct{}

// New returns a Synthesizer.
func New() Synthesizer { return Synthesizer{} }

var protocolNames = map[domain.ExperimentType]string{
	domain.ExperimentSerialDilution: "Serial Dilution",
	domain.ExperimentPCRSetup:       "PCR Setup",
	domain.ExperimentPlateWashing:   "Plate Washing",
	domain.ExperimentSampleTransfer: "Sample Transfer",
	domain.ExperimentCellCulture:    "Cell Culture",
	domain.ExperimentEnzymeAssay:    "Enzyme Assay",
}

type templateFunc func(b *builder) error

var templateFuncs = map[domain.ExperimentType]templateFunc{
	domain.ExperimentSerialDilution: serialDilution,
	domain.ExperimentPCRSetup:       pcrSetup,
	domain.ExperimentPlateWashing:   plateWashing,
	domain.ExperimentSampleTransfer: sampleTransfer,
	domain.ExperimentCellCulture:    cellCulture,
	domain.ExperimentEnzymeAssay:    enzymeAssay,
}

// Synthesize builds the IR for t and renders it.
func (Synthesizer) Synthesize(t domain.ExperimentType, params domain.ParameterSet) (domain.SynthesizedScript, error) {
	fn, ok := templateFuncs[t]
	if !ok {
		return domain.SynthesizedScript{}, domain.SynthesisError{Type: t, Reason: "no template for this experiment type"}
	}
	b, err := newBuilder(t, params)
	if err != nil {
		return domain.SynthesizedScript{}, err
	}
	if err := fn(b); err != nil {
		return domain.SynthesizedScript{}, b.fail(err)
	}
	ops, err := b.assemble()
	if err != nil {
		return domain.SynthesizedScript{}, b.fail(err)
	}
	text := RenderProtocol(protocolNames[t], ops)
	return domain.SynthesizedScript{
		Type:        t,
		Parameters:  params.Clone(),
		Operations:  ops,
		Text:        text,
		Fingerprint: domain.Fingerprint(text),
	}, nil
}

// Render renders ops under a generic protocol name.
func (Synthesizer) Render(ops []domain.Operation) string {
	return RenderProtocol("Generated Protocol", ops)
}

// builder accumulates the body of one template. Load operations are added
// by assemble once the tip budget is known.
type builder struct {
	t       domain.ExperimentType
	params  domain.ParameterSet
	pipette platform.Pipette
	plate   platform.Labware
	labware []domain.Operation
	body    []domain.Operation
}

func newBuilder(t domain.ExperimentType, params domain.ParameterSet) (*builder, error) {
	model := platform.DefaultPipette
	if m, ok := params.Text(domain.ParamPipette); ok {
		model = m
	}
	p, ok := platform.LookupPipette(model)
	if !ok {
		return nil, domain.SynthesisError{Type: t, Reason: fmt.Sprintf("pipette %q is not supported", model)}
	}
	plateName, ok := params.Text(domain.ParamPlateType)
	if !ok {
		return nil, domain.SynthesisError{Type: t, Reason: "plate_type is required"}
	}
	if !platform.IsPlate(plateName) {
		return nil, domain.SynthesisError{Type: t, Reason: fmt.Sprintf("plate %q is not supported", plateName)}
	}
	plate, _ := platform.LookupLabware(plateName)
	return &builder{t: t, params: params, pipette: p, plate: plate}, nil
}

func (b *builder) fail(err error) error {
	var se domain.SynthesisError
	if errors.As(err, &se) {
		return err
	}
	return domain.SynthesisError{Type: b.t, Reason: err.Error()}
}

// count reads a whole, positive parameter.
func (b *builder) count(key string) (int, error) {
	v, ok := b.params.Number(key)
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	if v < 1 || v != math.Trunc(v) {
		return 0, fmt.Errorf("%s must be a positive whole number, got %s", key, domain.FormatNumber(v))
	}
	return int(v), nil
}

func (b *builder) number(key string) (float64, error) {
	v, ok := b.params.Number(key)
	if !ok {
		return 0, fmt.Errorf("%s is required", key)
	}
	if v < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return v, nil
}

// volume rounds v to 0.01 µL and checks it against the platform bounds and
// the pipette range.
func (b *builder) volume(what string, v float64) (float64, error) {
	v = math.Round(v*100) / 100
	if fault := platform.VolumeFault(v); fault != "" {
		return 0, fmt.Errorf("%s of %s µL is %s", what, domain.FormatNumber(v), fault)
	}
	if v < b.pipette.MinUL || v > b.pipette.MaxUL {
		return 0, fmt.Errorf("%s of %s µL is outside the %s range", what, domain.FormatNumber(v), b.pipette.Model)
	}
	return v, nil
}

func (b *builder) fits(what string, v float64) error {
	if b.plate.MaxWellUL > 0 && v > b.plate.MaxWellUL {
		return fmt.Errorf("%s of %s µL overflows %s wells (%s µL)", what, domain.FormatNumber(v), b.plate.LoadName, domain.FormatNumber(b.plate.MaxWellUL))
	}
	return nil
}

func (b *builder) units(count int) ([]string, error) {
	if limit := platform.MaxUnits(b.pipette); platform.Units(b.pipette, count) > limit {
		return nil, fmt.Errorf("%d samples exceed plate capacity for %s", count, b.pipette.Model)
	}
	return sampleUnits(b.pipette, count), nil
}

func (b *builder) reservoirWell(key string, fallback int) (string, error) {
	pos := float64(fallback)
	if v, ok := b.params.Number(key); ok {
		pos = v
	}
	if pos != math.Trunc(pos) {
		return "", fmt.Errorf("%s must be a whole reservoir column", key)
	}
	return platform.ReservoirWell(int(pos))
}

func (b *builder) load(name, loadName, slot string) {
	b.labware = append(b.labware, loadLabware(name, loadName, slot))
}

func (b *builder) usePlate()     { b.load(PlateName, b.plate.LoadName, PlateSlot) }
func (b *builder) useReservoir() { b.load(ReservoirName, platform.ReservoirLoad, ReservoirSlot) }
func (b *builder) useTrash()     { b.load(TrashName, platform.TrashLoadName, TrashSlot) }

func (b *builder) comment(text string) {
	b.body = append(b.body, domain.Operation{Kind: domain.OpComment, Comment: &domain.Comment{Text: text}})
}

func (b *builder) transfer(v float64, src, dst domain.WellRef, newTip bool) {
	b.body = append(b.body, domain.Operation{Kind: domain.OpTransfer, Transfer: &domain.Transfer{
		Pipette: PipetteName, Volume: v, Source: src, Dest: dst, NewTip: newTip,
	}})
}

func (b *builder) distribute(v float64, src domain.WellRef, dests []domain.WellRef) {
	b.body = append(b.body, domain.Operation{Kind: domain.OpDistribute, Distribute: &domain.Distribute{
		Pipette: PipetteName, Volume: v, Source: src, Dests: dests,
	}})
}

func (b *builder) mix(reps int, v float64, loc domain.WellRef) {
	b.body = append(b.body, domain.Operation{Kind: domain.OpMix, Mix: &domain.Mix{
		Pipette: PipetteName, Repetitions: reps, Volume: v, Location: loc,
	}})
}

func (b *builder) delay(seconds float64) {
	b.body = append(b.body, domain.Operation{Kind: domain.OpDelay, Delay: &domain.Delay{Seconds: seconds}})
}

// assemble prepends tip racks, labware and the instrument to the body.
func (b *builder) assemble() ([]domain.Operation, error) {
	pickups := walkTips(b.body, func(int, bool, bool) {})
	racks, err := tipRacks(b.pipette, pickups)
	if err != nil {
		return nil, err
	}
	ops := make([]domain.Operation, 0, racks+len(b.labware)+1+len(b.body))
	names := make([]string, racks)
	for i := 0; i < racks; i++ {
		names[i] = tipRackName(i)
		ops = append(ops, loadLabware(names[i], b.pipette.TipRack, tipRackSlots[i]))
	}
	ops = append(ops, b.labware...)
	ops = append(ops, domain.Operation{Kind: domain.OpLoadInstrument, Instrument: &domain.InstrumentLoad{
		Name: PipetteName, Model: b.pipette.Model, Mount: platform.DefaultMount, TipRacks: names,
	}})
	return append(ops, b.body...), nil
}
