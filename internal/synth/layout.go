package synth

import (
	"fmt"
	"strconv"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

// Labware variable names and deck slots. The layout is fixed for every
// template; a template loads only the positions it uses.
const (
	PlateName     = "plate"
	SourceName    = "source"
	DestName      = "dest"
	ReservoirName = "reservoir"
	TrashName     = "trash"
	PipetteName   = "pipette"

	PlateSlot     = "D2"
	SourceSlot    = "C2"
	DestSlot      = "D3"
	ReservoirSlot = "B2"
	TrashSlot     = "A3"
)

// SourcePlate holds template samples for PCR setup.
const SourcePlate = "nest_96_wellplate_200ul_flat"

var tipRackSlots = []string{"A1", "A2", "B1"}

func tipRackName(i int) string { return "tips_" + strconv.Itoa(i+1) }

// chainUnits addresses n consecutive units for an iterative chain: column
// heads for a multi-channel pipette, row-major wells otherwise.
func chainUnits(p platform.Pipette, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		if p.MultiChannel() {
			out[i] = platform.Well(0, i)
		} else {
			out[i] = platform.Well(i/platform.PlateColumns, i%platform.PlateColumns)
		}
	}
	return out
}

// sampleUnits addresses the units holding count samples: column heads for a
// multi-channel pipette, column-major wells otherwise.
func sampleUnits(p platform.Pipette, count int) []string {
	units := platform.Units(p, count)
	out := make([]string, units)
	for i := 0; i < units; i++ {
		if p.MultiChannel() {
			out[i] = platform.Well(0, i)
		} else {
			out[i] = platform.Well(i%platform.PlateRows, i/platform.PlateRows)
		}
	}
	return out
}

func at(labware, well string) domain.WellRef {
	return domain.WellRef{Labware: labware, Well: well}
}

func refs(labware string, wells []string) []domain.WellRef {
	out := make([]domain.WellRef, len(wells))
	for i, w := range wells {
		out[i] = at(labware, w)
	}
	return out
}

func loadLabware(name, loadName, slot string) domain.Operation {
	return domain.Operation{Kind: domain.OpLoadLabware, Labware: &domain.LabwareLoad{Name: name, LoadName: loadName, Slot: slot}}
}

// walkTips replays the tip handling of ops. Transfers with NewTip, or with no
// tip attached, pick up a tip; a distribute handles its own tip; a mix reuses
// the attached tip.
func walkTips(ops []domain.Operation, visit func(i int, pickUp, dropFirst bool)) int {
	attached := false
	pickups := 0
	for i, op := range ops {
		switch op.Kind {
		case domain.OpTransfer:
			if op.Transfer.NewTip || !attached {
				visit(i, true, attached)
				attached = true
				pickups++
				continue
			}
		case domain.OpDistribute:
			visit(i, false, attached)
			attached = false
			pickups++
			continue
		case domain.OpMix:
			if !attached {
				visit(i, true, false)
				attached = true
				pickups++
				continue
			}
		}
		visit(i, false, false)
	}
	return pickups
}

// tipRacks returns how many racks the body needs.
func tipRacks(p platform.Pipette, pickups int) (int, error) {
	perRack := platform.TipsPerRack
	if p.MultiChannel() {
		perRack = platform.TipsPerRack / platform.PlateRows
	}
	racks := (pickups + perRack - 1) / perRack
	if racks == 0 {
		racks = 1
	}
	if racks > platform.MaxTipRacks {
		return 0, fmt.Errorf("needs %d tip pickups, %d racks hold only %d", pickups, platform.MaxTipRacks, platform.MaxTipRacks*perRack)
	}
	return racks, nil
}
