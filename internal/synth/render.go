package synth

import (
	"strconv"
	"strings"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

const indent = "    "

// RenderProtocol renders ops as a Flex protocol named name: a fixed preamble,
// the load block, then the body with explicit tip handling.
func RenderProtocol(name string, ops []domain.Operation) string {
	var b strings.Builder
	b.WriteString("from opentrons import protocol_api\n\n")
	b.WriteString("metadata = {\n")
	b.WriteString(indent + `"protocolName": ` + strconv.Quote(name) + ",\n")
	b.WriteString(indent + `"author": "cornucopia",` + "\n")
	b.WriteString("}\n\n")
	b.WriteString(`requirements = {"robotType": ` + strconv.Quote(platform.RobotType) + `, "apiLevel": ` + strconv.Quote(platform.APILevel) + "}\n\n\n")
	b.WriteString("def run(protocol: protocol_api.ProtocolContext):\n")

	line := func(s string) {
		b.WriteString(indent)
		b.WriteString(s)
		b.WriteByte('\n')
	}
	bodyStarted := false
	attached := false
	walkTips(ops, func(i int, pickUp, dropFirst bool) {
		op := ops[i]
		if op.Kind != domain.OpLoadLabware && op.Kind != domain.OpLoadInstrument && !bodyStarted {
			bodyStarted = true
			b.WriteByte('\n')
		}
		if dropFirst {
			line(op.Pipette() + ".drop_tip()")
			attached = false
		}
		if pickUp {
			line(op.Pipette() + ".pick_up_tip()")
			attached = true
		}
		switch op.Kind {
		case domain.OpLoadLabware:
			line(renderLoad(op.Labware))
		case domain.OpLoadInstrument:
			in := op.Instrument
			line(in.Name + " = protocol.load_instrument(" + strconv.Quote(in.Model) + ", " + strconv.Quote(in.Mount) + ", tip_racks=[" + strings.Join(in.TipRacks, ", ") + "])")
		case domain.OpTransfer:
			tr := op.Transfer
			line(tr.Pipette + ".aspirate(" + num(tr.Volume) + ", " + location(tr.Source) + ")")
			line(tr.Pipette + ".dispense(" + num(tr.Volume) + ", " + location(tr.Dest) + ")")
		case domain.OpDistribute:
			d := op.Distribute
			dests := make([]string, len(d.Dests))
			for j, ref := range d.Dests {
				dests[j] = location(ref)
			}
			line(d.Pipette + ".distribute(" + num(d.Volume) + ", " + location(d.Source) + ", [" + strings.Join(dests, ", ") + `], new_tip="once")`)
			attached = false
		case domain.OpMix:
			m := op.Mix
			line(m.Pipette + ".mix(" + strconv.Itoa(m.Repetitions) + ", " + num(m.Volume) + ", " + location(m.Location) + ")")
		case domain.OpDelay:
			line("protocol.delay(seconds=" + num(op.Delay.Seconds) + ")")
		case domain.OpComment:
			line("protocol.comment(" + strconv.Quote(op.Comment.Text) + ")")
		}
	})
	if attached {
		line(PipetteName + ".drop_tip()")
	}
	return b.String()
}

func renderLoad(l *domain.LabwareLoad) string {
	if l.LoadName == platform.TrashLoadName {
		return l.Name + " = protocol.load_trash_bin(" + strconv.Quote(l.Slot) + ")"
	}
	return l.Name + " = protocol.load_labware(" + strconv.Quote(l.LoadName) + ", " + strconv.Quote(l.Slot) + ")"
}

func location(ref domain.WellRef) string {
	if ref.Well == "" {
		return ref.Labware
	}
	return ref.Labware + "[" + strconv.Quote(ref.Well) + "]"
}

func num(v float64) string { return domain.FormatNumber(v) }
