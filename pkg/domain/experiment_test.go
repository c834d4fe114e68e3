package domain

import (
	"encoding/json"
	"testing"
)

func TestParseExperimentType(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want ExperimentType
	}{
		{"serial_dilution", ExperimentSerialDilution},
		{"  PCR_SETUP ", ExperimentPCRSetup},
		{"generic", ExperimentGeneric},
	} {
		got, err := ParseExperimentType(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("parse %q: got %s want %s", tc.raw, got, tc.want)
		}
	}
	if _, err := ParseExperimentType("western_blot"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestExperimentTypesReturnsCopy(t *testing.T) {
	types := ExperimentTypes()
	if len(types) != 7 {
		t.Fatalf("expected 7 types, got %d", len(types))
	}
	types[0] = "mutated"
	if ExperimentTypes()[0] != ExperimentSerialDilution {
		t.Fatalf("ExperimentTypes must not expose internal slice")
	}
	if ExperimentPlateWashing.Label() != "plate washing" {
		t.Fatalf("unexpected label %q", ExperimentPlateWashing.Label())
	}
}

func TestParameterSetUserValuesWin(t *testing.T) {
	var ps ParameterSet
	if !ps.Set("num_dilutions", Number(8, ProvenanceUser)) {
		t.Fatalf("expected first set to succeed")
	}
	if ps.Set("num_dilutions", Number(5, ProvenanceDefault)) {
		t.Fatalf("default must not overwrite a user value")
	}
	if ps.Set("num_dilutions", Number(6, ProvenanceInterpreted)) {
		t.Fatalf("interpreted value must not overwrite a user value")
	}
	if v, _ := ps.Number("num_dilutions"); v != 8 {
		t.Fatalf("expected 8, got %v", v)
	}
	if !ps.Set("num_dilutions", Number(9, ProvenanceUser)) {
		t.Fatalf("user value should replace user value")
	}
	ps.Set("plate_type", Text("nest_96_wellplate_200ul_flat", ProvenanceDefault))
	if !ps.Set("plate_type", Text("corning_96_wellplate_360ul_flat", ProvenanceInterpreted)) {
		t.Fatalf("interpreted value should replace a default")
	}
	if _, ok := ps.Number("plate_type"); ok {
		t.Fatalf("text value must not read as number")
	}
	if keys := ps.Keys(); len(keys) != 2 || keys[0] != "num_dilutions" || keys[1] != "plate_type" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestParameterSetCloneIsIndependent(t *testing.T) {
	ps := NewParameterSet()
	ps.Set("a", Number(1, ProvenanceUser))
	clone := ps.Clone()
	clone.Set("b", Number(2, ProvenanceUser))
	if ps.Has("b") {
		t.Fatalf("clone mutation leaked into original")
	}
	if clone.Len() != 2 {
		t.Fatalf("expected clone length 2, got %d", clone.Len())
	}
}

func TestParameterSetJSON(t *testing.T) {
	ps := NewParameterSet()
	ps.Set("starting_volume_ul", Number(100, ProvenanceDefault))
	ps.Set("plate_type", Text("nest_96_wellplate_200ul_flat", ProvenanceUser))
	raw, err := json.Marshal(ps)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ParameterSet
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	v, ok := decoded.Get("plate_type")
	if !ok || v.Provenance != ProvenanceUser || v.Text != "nest_96_wellplate_200ul_flat" {
		t.Fatalf("unexpected decoded value %+v", v)
	}
	if n, _ := decoded.Number("starting_volume_ul"); n != 100 {
		t.Fatalf("unexpected volume %v", n)
	}
}

func TestFormatNumber(t *testing.T) {
	for in, want := range map[float64]string{100: "100", 50: "50", 33.5: "33.5", 0.25: "0.25"} {
		if got := FormatNumber(in); got != want {
			t.Fatalf("FormatNumber(%v) = %q want %q", in, got, want)
		}
	}
}
