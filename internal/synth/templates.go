package synth

import (
	"errors"
	"fmt"
	"strings"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

const mixRepetitions = 3

// Fixed composition of the volume-ratio templates.
const (
	pcrMasterMix = 0.70
	pcrPrimer    = 0.20
	pcrTemplate  = 0.10

	enzymeBuffer    = 0.50
	enzymeSubstrate = 0.30
	enzymeEnzyme    = 0.20

	cultureMedium     = 0.90
	cultureSupplement = 0.10
)

// Default reservoir columns of the serial dilution reagents.
const (
	defaultDiluentColumn = 1
	defaultSampleColumn  = 2
)

// serialDilution fills units 2..N+1 with diluent and unit 1 with sample, then
// chains N transfers unit i -> unit i+1, mixing each destination.
func serialDilution(b *builder) error {
	steps, err := b.count(domain.ParamNumDilutions)
	if err != nil {
		return err
	}
	factor, err := b.number(domain.ParamDilutionFactor)
	if err != nil {
		return err
	}
	if factor < 1 {
		return fmt.Errorf("dilution factor must be at least 1, got %s", domain.FormatNumber(factor))
	}
	start, err := b.number(domain.ParamStartingVolume)
	if err != nil {
		return err
	}
	if start, err = b.volume("starting volume", start); err != nil {
		return err
	}
	if err := b.fits("starting volume", start); err != nil {
		return err
	}
	if limit := platform.MaxUnits(b.pipette); steps+1 > limit {
		return fmt.Errorf("%d dilution steps need %d units, plate offers %d for %s", steps, steps+1, limit, b.pipette.Model)
	}
	move, err := b.volume("transfer volume", start/factor)
	if err != nil {
		return err
	}
	mixVol, err := b.volume("mix volume", start/2)
	if err != nil {
		return err
	}
	diluentKey := domain.ParamDiluentWell
	if !b.params.Has(diluentKey) && b.params.Has(domain.ParamWaterWell) {
		diluentKey = domain.ParamWaterWell
	}
	diluentWell, err := b.reservoirWell(diluentKey, defaultDiluentColumn)
	if err != nil {
		return err
	}
	sampleWell, err := b.reservoirWell(domain.ParamSampleWell, defaultSampleColumn)
	if err != nil {
		return err
	}

	b.usePlate()
	b.useReservoir()
	b.useTrash()
	units := chainUnits(b.pipette, steps+1)
	b.comment(fmt.Sprintf("Serial dilution: %d steps at 1:%s from %s µL", steps, domain.FormatNumber(factor), domain.FormatNumber(start)))
	if factor > 1 {
		diluent, err := b.volume("diluent volume", start-move)
		if err != nil {
			return err
		}
		b.distribute(diluent, at(ReservoirName, diluentWell), refs(PlateName, units[1:]))
	}
	b.distribute(start, at(ReservoirName, sampleWell), refs(PlateName, units[:1]))
	for i := 0; i < steps; i++ {
		dst := at(PlateName, units[i+1])
		b.transfer(move, at(PlateName, units[i]), dst, true)
		b.mix(mixRepetitions, mixVol, dst)
	}
	return nil
}

// ratioVolumes splits total by fractions and bounds-checks every part. All
// out-of-range parts are reported together.
func (b *builder) ratioVolumes(total float64, parts map[string]float64, order []string) (map[string]float64, error) {
	out := make(map[string]float64, len(parts))
	var faults []string
	for _, name := range order {
		v, err := b.volume(name+" volume", total*parts[name])
		if err != nil {
			faults = append(faults, err.Error())
			continue
		}
		out[name] = v
	}
	if len(faults) > 0 {
		return nil, errors.New(strings.Join(faults, "; "))
	}
	return out, nil
}

func (b *builder) samplesAndVolume(volumeKey string) ([]string, float64, error) {
	n, err := b.count(domain.ParamNumSamples)
	if err != nil {
		return nil, 0, err
	}
	units, err := b.units(n)
	if err != nil {
		return nil, 0, err
	}
	total, err := b.number(volumeKey)
	if err != nil {
		return nil, 0, err
	}
	if err := b.fits(volumeKey, total); err != nil {
		return nil, 0, err
	}
	return units, total, nil
}

func pcrSetup(b *builder) error {
	units, total, err := b.samplesAndVolume(domain.ParamReactionVolume)
	if err != nil {
		return err
	}
	vols, err := b.ratioVolumes(total, map[string]float64{
		"master mix": pcrMasterMix, "primer": pcrPrimer, "template": pcrTemplate,
	}, []string{"master mix", "primer", "template"})
	if err != nil {
		return err
	}
	mixVol, err := b.volume("mix volume", total/2)
	if err != nil {
		return err
	}
	b.usePlate()
	b.load(SourceName, SourcePlate, SourceSlot)
	b.useReservoir()
	b.useTrash()
	b.comment("PCR setup: master mix, primer, then template")
	b.distribute(vols["master mix"], at(ReservoirName, "A1"), refs(PlateName, units))
	b.distribute(vols["primer"], at(ReservoirName, "A2"), refs(PlateName, units))
	for _, u := range units {
		b.transfer(vols["template"], at(SourceName, u), at(PlateName, u), true)
		b.mix(mixRepetitions, mixVol, at(PlateName, u))
	}
	return nil
}

// plateWashing repeats dispense, soak and aspirate-to-trash. Tips are reused
// within each phase of a cycle.
func plateWashing(b *builder) error {
	units, total, err := b.samplesAndVolume(domain.ParamWashVolume)
	if err != nil {
		return err
	}
	vol, err := b.volume("wash volume", total)
	if err != nil {
		return err
	}
	cycles, err := b.count(domain.ParamWashCycles)
	if err != nil {
		return err
	}
	soak, err := b.number(domain.ParamSoakSeconds)
	if err != nil {
		return err
	}
	b.usePlate()
	b.useReservoir()
	b.useTrash()
	trash := domain.WellRef{Labware: TrashName}
	for c := 1; c <= cycles; c++ {
		b.comment(fmt.Sprintf("Wash cycle %d of %d", c, cycles))
		for i, u := range units {
			b.transfer(vol, at(ReservoirName, "A1"), at(PlateName, u), i == 0)
		}
		b.delay(soak)
		for i, u := range units {
			b.transfer(vol, at(PlateName, u), trash, i == 0)
		}
	}
	return nil
}

func sampleTransfer(b *builder) error {
	units, total, err := b.samplesAndVolume(domain.ParamTransferVolume)
	if err != nil {
		return err
	}
	vol, err := b.volume("transfer volume", total)
	if err != nil {
		return err
	}
	b.load(SourceName, b.plate.LoadName, SourceSlot)
	b.load(DestName, b.plate.LoadName, DestSlot)
	b.useTrash()
	b.comment(fmt.Sprintf("Sample transfer: %s µL per sample", domain.FormatNumber(vol)))
	for _, u := range units {
		b.transfer(vol, at(SourceName, u), at(DestName, u), true)
	}
	return nil
}

// cellCulture removes spent medium, adds fresh medium and supplement, then
// incubates.
func cellCulture(b *builder) error {
	units, total, err := b.samplesAndVolume(domain.ParamMediaVolume)
	if err != nil {
		return err
	}
	spent, err := b.volume("spent medium volume", total)
	if err != nil {
		return err
	}
	vols, err := b.ratioVolumes(total, map[string]float64{
		"fresh medium": cultureMedium, "supplement": cultureSupplement,
	}, []string{"fresh medium", "supplement"})
	if err != nil {
		return err
	}
	minutes, err := b.number(domain.ParamIncubationMinutes)
	if err != nil {
		return err
	}
	b.usePlate()
	b.useReservoir()
	b.useTrash()
	b.comment("Cell culture: media exchange")
	trash := domain.WellRef{Labware: TrashName}
	for _, u := range units {
		b.transfer(spent, at(PlateName, u), trash, true)
	}
	b.distribute(vols["fresh medium"], at(ReservoirName, "A1"), refs(PlateName, units))
	b.distribute(vols["supplement"], at(ReservoirName, "A2"), refs(PlateName, units))
	b.delay(minutes * 60)
	return nil
}

func enzymeAssay(b *builder) error {
	units, total, err := b.samplesAndVolume(domain.ParamReactionVolume)
	if err != nil {
		return err
	}
	vols, err := b.ratioVolumes(total, map[string]float64{
		"buffer": enzymeBuffer, "substrate": enzymeSubstrate, "enzyme": enzymeEnzyme,
	}, []string{"buffer", "substrate", "enzyme"})
	if err != nil {
		return err
	}
	mixVol, err := b.volume("mix volume", total/2)
	if err != nil {
		return err
	}
	minutes, err := b.number(domain.ParamIncubationMinutes)
	if err != nil {
		return err
	}
	b.usePlate()
	b.useReservoir()
	b.useTrash()
	b.comment("Enzyme assay: buffer, substrate, then enzyme to start the reaction")
	b.distribute(vols["buffer"], at(ReservoirName, "A1"), refs(PlateName, units))
	b.distribute(vols["substrate"], at(ReservoirName, "A2"), refs(PlateName, units))
	for _, u := range units {
		b.transfer(vols["enzyme"], at(ReservoirName, "A3"), at(PlateName, u), true)
		b.mix(mixRepetitions, mixVol, at(PlateName, u))
	}
	b.delay(minutes * 60)
	return nil
}
