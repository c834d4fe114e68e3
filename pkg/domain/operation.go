package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// OperationKind tags an IR element.
type OperationKind string

// IR operation kinds.
const (
	OpLoadLabware    OperationKind = "load_labware"
	OpLoadInstrument OperationKind = "load_instrument"
	OpTransfer       OperationKind = "transfer"
	OpDistribute     OperationKind = "distribute"
	OpMix            OperationKind = "mix"
	OpDelay          OperationKind = "delay"
	OpComment        OperationKind = "comment"
)

// WellRef addresses a well on a loaded labware by variable name. An empty
// Well addresses the labware as a whole, which is how the trash is targeted.
type WellRef struct {
	Labware string `json:"labware"`
	Well    string `json:"well,omitempty"`
}

// LabwareLoad places a labware definition on a deck slot.
type LabwareLoad struct {
	Name     string `json:"name"`
	LoadName string `json:"load_name"`
	Slot     string `json:"slot"`
}

// InstrumentLoad mounts a pipette.
type InstrumentLoad struct {
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Mount    string   `json:"mount"`
	TipRacks []string `json:"tip_racks"`
}

// Transfer moves a volume from one location to another. NewTip requests a
// fresh tip before aspirating; otherwise the attached tip is reused.
type Transfer struct {
	Pipette string  `json:"pipette"`
	Volume  float64 `json:"volume_ul"`
	Source  WellRef `json:"source"`
	Dest    WellRef `json:"dest"`
	NewTip  bool    `json:"new_tip"`
}

// Distribute dispenses one volume from a single source into many destinations
// using a single tip.
type Distribute struct {
	Pipette string    `json:"pipette"`
	Volume  float64   `json:"volume_ul"`
	Source  WellRef   `json:"source"`
	Dests   []WellRef `json:"dests"`
}

// Mix aspirates and dispenses in place with the attached tip.
type Mix struct {
	Pipette     string  `json:"pipette"`
	Repetitions int     `json:"repetitions"`
	Volume      float64 `json:"volume_ul"`
	Location    WellRef `json:"location"`
}

// Delay pauses the run.
type Delay struct {
	Seconds float64 `json:"seconds"`
}

// Comment annotates the run log.
type Comment struct {
	Text string `json:"text"`
}

// Operation is one IR element. Exactly one payload field matching Kind is set.
type Operation struct {
	Kind       OperationKind   `json:"kind"`
	Labware    *LabwareLoad    `json:"labware,omitempty"`
	Instrument *InstrumentLoad `json:"instrument,omitempty"`
	Transfer   *Transfer       `json:"transfer,omitempty"`
	Distribute *Distribute     `json:"distribute,omitempty"`
	Mix        *Mix            `json:"mix,omitempty"`
	Delay      *Delay          `json:"delay,omitempty"`
	Comment    *Comment        `json:"comment,omitempty"`
}

// Volumes returns every liquid volume the operation handles.
func (o Operation) Volumes() []float64 {
	switch o.Kind {
	case OpTransfer:
		return []float64{o.Transfer.Volume}
	case OpDistribute:
		return []float64{o.Distribute.Volume}
	case OpMix:
		return []float64{o.Mix.Volume}
	default:
		return nil
	}
}

// Pipette returns the instrument variable a liquid-handling operation uses.
func (o Operation) Pipette() string {
	switch o.Kind {
	case OpTransfer:
		return o.Transfer.Pipette
	case OpDistribute:
		return o.Distribute.Pipette
	case OpMix:
		return o.Mix.Pipette
	default:
		return ""
	}
}

// SynthesizedScript is the output of synthesis: the ordered IR, its rendered
// text and the inputs used to build it.
type SynthesizedScript struct {
	Type        ExperimentType `json:"type"`
	Parameters  ParameterSet   `json:"parameters"`
	Operations  []Operation    `json:"operations"`
	Text        string         `json:"text"`
	Fingerprint string         `json:"fingerprint"`
}

// OperationsOf returns the operations with the given kind, in order.
func (s SynthesizedScript) OperationsOf(kind OperationKind) []Operation {
	var out []Operation
	for _, op := range s.Operations {
		if op.Kind == kind {
			out = append(out, op)
		}
	}
	return out
}

// Fingerprint returns the hex encoded sha256 of the rendered text.
func Fingerprint(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
