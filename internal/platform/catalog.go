// Package platform describes the fixed hardware catalog of the target robot:
// supported pipettes and labware, the deck grid, volume bounds and well
// geometry. Synthesis and validation both read from it so a generated script
// can only ever reference identifiers the structural checks accept.
package platform

import (
	"fmt"
	"sort"
	"strconv"
)

// Robot and API identifiers emitted in the script preamble.
const (
	RobotType = "Flex"
	APILevel  = "2.19"
)

// Volume bounds in microliters. Both ends are inclusive.
const (
	MinVolumeUL = 5.0
	MaxVolumeUL = 1000.0
)

// Plate and rack geometry.
const (
	PlateRows      = 8
	PlateColumns   = 12
	PlateWells     = PlateRows * PlateColumns
	ReservoirWells = 12
	TipsPerRack    = 96
	MaxTipRacks    = 3
	TrashLoadName  = "opentrons_flex_trash"
	DefaultPipette = "flex_8channel_1000"
	SingleChannel  = "flex_1channel_1000"
	ReservoirLoad  = "nest_12_reservoir_15ml"
	DefaultTipRack = "opentrons_flex_96_tiprack_1000ul"
	DefaultMount   = "right"
)

// LabwareClass groups labware by how templates use it.
type LabwareClass string

// Labware classes.
const (
	ClassTipRack   LabwareClass = "tiprack"
	ClassPlate     LabwareClass = "plate"
	ClassReservoir LabwareClass = "reservoir"
	ClassTrash     LabwareClass = "trash"
)

// Pipette is a supported instrument model.
type Pipette struct {
	Model     string
	Channels  int
	MinUL     float64
	MaxUL     float64
	TipRack   string
	Described string
}

// MultiChannel reports whether the pipette addresses whole columns.
func (p Pipette) MultiChannel() bool { return p.Channels > 1 }

// Labware is a supported labware definition.
type Labware struct {
	LoadName  string
	Class     LabwareClass
	Wells     int
	MaxWellUL float64
	Described string
}

var pipettes = map[string]Pipette{
	"flex_1channel_50": {
		Model: "flex_1channel_50", Channels: 1, MinUL: 1, MaxUL: 50,
		TipRack: "opentrons_flex_96_tiprack_50ul", Described: "single-channel 50 µL",
	},
	"flex_1channel_1000": {
		Model: "flex_1channel_1000", Channels: 1, MinUL: 5, MaxUL: 1000,
		TipRack: DefaultTipRack, Described: "single-channel 1000 µL",
	},
	"flex_8channel_1000": {
		Model: "flex_8channel_1000", Channels: 8, MinUL: 5, MaxUL: 1000,
		TipRack: DefaultTipRack, Described: "8-channel 1000 µL",
	},
}

var labware = map[string]Labware{
	"opentrons_flex_96_tiprack_50ul":         {LoadName: "opentrons_flex_96_tiprack_50ul", Class: ClassTipRack, Wells: TipsPerRack, Described: "50 µL tip rack"},
	"opentrons_flex_96_tiprack_200ul":        {LoadName: "opentrons_flex_96_tiprack_200ul", Class: ClassTipRack, Wells: TipsPerRack, Described: "200 µL tip rack"},
	"opentrons_flex_96_tiprack_1000ul":       {LoadName: "opentrons_flex_96_tiprack_1000ul", Class: ClassTipRack, Wells: TipsPerRack, Described: "1000 µL tip rack"},
	"nest_96_wellplate_200ul_flat":           {LoadName: "nest_96_wellplate_200ul_flat", Class: ClassPlate, Wells: PlateWells, MaxWellUL: 200, Described: "96-well plate"},
	"nest_96_wellplate_100ul_pcr_full_skirt": {LoadName: "nest_96_wellplate_100ul_pcr_full_skirt", Class: ClassPlate, Wells: PlateWells, MaxWellUL: 100, Described: "96-well PCR plate"},
	"corning_96_wellplate_360ul_flat":        {LoadName: "corning_96_wellplate_360ul_flat", Class: ClassPlate, Wells: PlateWells, MaxWellUL: 360, Described: "96-well culture plate"},
	"nest_12_reservoir_15ml":                 {LoadName: "nest_12_reservoir_15ml", Class: ClassReservoir, Wells: ReservoirWells, MaxWellUL: 15000, Described: "12-well reservoir"},
	TrashLoadName:                            {LoadName: TrashLoadName, Class: ClassTrash, Described: "trash bin"},
}

// LookupPipette returns the pipette with the given model id.
func LookupPipette(model string) (Pipette, bool) {
	p, ok := pipettes[model]
	return p, ok
}

// LookupLabware returns the labware with the given load name.
func LookupLabware(loadName string) (Labware, bool) {
	l, ok := labware[loadName]
	return l, ok
}

// IsPlate reports whether loadName is a whitelisted well plate.
func IsPlate(loadName string) bool {
	l, ok := labware[loadName]
	return ok && l.Class == ClassPlate
}

// PipetteModels returns the whitelisted pipette models in sorted order.
func PipetteModels() []string {
	out := make([]string, 0, len(pipettes))
	for k := range pipettes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LabwareNames returns the whitelisted labware load names in sorted order.
func LabwareNames() []string {
	out := make([]string, 0, len(labware))
	for k := range labware {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PlateNames returns the whitelisted plate load names in sorted order.
func PlateNames() []string {
	var out []string
	for _, name := range LabwareNames() {
		if labware[name].Class == ClassPlate {
			out = append(out, name)
		}
	}
	return out
}

var deckRows = []byte{'A', 'B', 'C', 'D'}

const deckColumns = 3

// ValidSlot reports whether slot is a coordinate on the deck grid.
func ValidSlot(slot string) bool {
	if len(slot) != 2 {
		return false
	}
	row, col := slot[0], slot[1]
	found := false
	for _, r := range deckRows {
		if r == row {
			found = true
			break
		}
	}
	return found && col >= '1' && col <= '0'+deckColumns
}

// Slots returns every deck coordinate in row-major order.
func Slots() []string {
	out := make([]string, 0, len(deckRows)*deckColumns)
	for _, r := range deckRows {
		for c := 1; c <= deckColumns; c++ {
			out = append(out, string(r)+strconv.Itoa(c))
		}
	}
	return out
}

// VolumeFault describes why a volume is out of bounds, or "" when it is in bounds.
func VolumeFault(v float64) string {
	switch {
	case v < MinVolumeUL:
		return "below reliable dispensing accuracy"
	case v > MaxVolumeUL:
		return "exceeds single-channel capacity"
	default:
		return ""
	}
}

// Well returns the name of the well at zero based row and column.
func Well(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+row, col+1)
}

// ReservoirWell returns the reservoir well for a one based position, rejecting
// positions outside 1..12.
func ReservoirWell(position int) (string, error) {
	if position < 1 || position > ReservoirWells {
		return "", fmt.Errorf("reservoir position %d outside 1-%d", position, ReservoirWells)
	}
	return "A" + strconv.Itoa(position), nil
}

// Units returns how many addressable units a pipette needs for count
// samples: columns for a multi-channel pipette, wells otherwise.
func Units(p Pipette, count int) int {
	if count <= 0 {
		return 0
	}
	if !p.MultiChannel() {
		return count
	}
	return (count + PlateRows - 1) / PlateRows
}

// MaxUnits is the number of units a plate offers to the pipette.
func MaxUnits(p Pipette) int {
	if p.MultiChannel() {
		return PlateColumns
	}
	return PlateWells
}
