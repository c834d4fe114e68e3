package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cornucopia/internal/interpret"
	"cornucopia/pkg/domain"
)

func extract(t *testing.T, x *Extractor, text string, hint domain.ExperimentType) (Extraction, error) {
	t.Helper()
	return x.Extract(context.Background(), domain.ExperimentRequest{Text: text, TypeHint: hint})
}

func requireNumber(t *testing.T, ps domain.ParameterSet, key string, want float64, prov domain.Provenance) {
	t.Helper()
	v, ok := ps.Get(key)
	require.True(t, ok, "missing %s", key)
	assert.Equal(t, domain.KindNumber, v.Kind, key)
	assert.Equal(t, want, v.Number, key)
	assert.Equal(t, prov, v.Provenance, key)
}

func TestDoASerialDilution(t *testing.T) {
	got, err := extract(t, New(), "do a serial dilution", "")
	require.NoError(t, err)
	require.False(t, got.Terminal())
	assert.Equal(t, domain.ExperimentSerialDilution, got.Type)

	requireNumber(t, got.Parameters, domain.ParamNumDilutions, 5, domain.ProvenanceDefault)
	requireNumber(t, got.Parameters, domain.ParamDilutionFactor, 2, domain.ProvenanceDefault)
	requireNumber(t, got.Parameters, domain.ParamStartingVolume, 100, domain.ProvenanceDefault)
	plate, _ := got.Parameters.Get(domain.ParamPlateType)
	assert.Equal(t, "nest_96_wellplate_200ul_flat", plate.Text)
	assert.Equal(t, domain.ProvenanceDefault, plate.Provenance)
	assert.Equal(t, 4, got.Parameters.Len())

	assert.Equal(t, "Please confirm: serial dilution with number of dilutions 5 (default), dilution factor 2 (default), "+
		"starting volume 100 µL (default), plate 96-well plate nest_96_wellplate_200ul_flat (default).", got.Confirmation)
	assert.Equal(t, "Perform a 1:2 serial dilution with 5 dilution steps starting at 100 µL in a nest_96_wellplate_200ul_flat 96-well plate.", got.Instruction)
	assert.Contains(t, got.Instruction, "96-well plate")
}

func TestExplicitValuesSurviveAsUserValues(t *testing.T) {
	got, err := extract(t, New(), "Run a serial dilution with 8 steps at 1:3, starting volume 150 µL", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamNumDilutions, 8, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamDilutionFactor, 3, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamStartingVolume, 150, domain.ProvenanceUser)
	assert.Contains(t, got.Confirmation, "number of dilutions 8 (specified)")
	assert.Contains(t, got.Confirmation, "plate 96-well plate nest_96_wellplate_200ul_flat (default)")
}

func TestThousandsSeparatorIsOneNumber(t *testing.T) {
	got, err := extract(t, New(), "serial dilution starting volume 1,000 µL", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamStartingVolume, 1000, domain.ProvenanceUser)

	got, err = extract(t, New(), "plate washing with 1,000.5 µL per well", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamWashVolume, 1000.5, domain.ProvenanceUser)

	got, err = extract(t, New(), "serial dilution at 1:1,000 from 100 µL", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamDilutionFactor, 1000, domain.ProvenanceUser)
}

func TestDefaultVolumeFitsChosenPipette(t *testing.T) {
	got, err := extract(t, New(), "serial dilution using the flex_1channel_50 pipette", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamStartingVolume, 50, domain.ProvenanceDefault)

	got, err = extract(t, New(), "serial dilution from 150 µL using the flex_1channel_50 pipette", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamStartingVolume, 150, domain.ProvenanceUser)

	got, err = extract(t, New(), "plate washing with the flex_8channel_1000", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamWashVolume, 150, domain.ProvenanceDefault)
}

func TestRatioIsNotAStepCount(t *testing.T) {
	got, err := extract(t, New(), "please make a 1:4 dilution of my sample", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamDilutionFactor, 4, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamNumDilutions, 5, domain.ProvenanceDefault)
}

func TestStepCountForms(t *testing.T) {
	for text, want := range map[string]float64{
		"serial dilution with 7 dilutions":      7,
		"a 6-step serial dilution":              6,
		"serial dilution, 4 steps, 3-fold":      4,
		"make 9 serial dilutions of sample":     9,
		"dilution series with 3 dilution steps": 3,
	} {
		got, err := extract(t, New(), text, "")
		require.NoError(t, err, text)
		requireNumber(t, got.Parameters, domain.ParamNumDilutions, want, domain.ProvenanceUser)
	}
}

func TestClassificationPrecedence(t *testing.T) {
	got, err := extract(t, New(), "wash the plate then transfer samples to a new plate", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentPlateWashing, got.Type)

	table := Precedence()
	want := []domain.ExperimentType{
		domain.ExperimentSerialDilution, domain.ExperimentPCRSetup, domain.ExperimentPlateWashing,
		domain.ExperimentSampleTransfer, domain.ExperimentCellCulture, domain.ExperimentEnzymeAssay,
		domain.ExperimentGeneric,
	}
	require.Len(t, table, len(want))
	for i, r := range table {
		assert.Equal(t, want[i], r.Type)
	}
	assert.Empty(t, table[len(table)-1].Keywords)

	table[0].Keywords[0] = "mutated"
	assert.Equal(t, "serial dilution", Precedence()[0].Keywords[0])
}

func TestClassifyEachType(t *testing.T) {
	for text, want := range map[string]domain.ExperimentType{
		"set up a PCR reaction for my primers":        domain.ExperimentPCRSetup,
		"transfer samples into a fresh plate":         domain.ExperimentSampleTransfer,
		"feed cells with fresh media in cell culture": domain.ExperimentCellCulture,
		"run an enzyme kinetics assay":                domain.ExperimentEnzymeAssay,
		"dilution series across the plate":            domain.ExperimentSerialDilution,
		"please do something nice":                    domain.ExperimentGeneric,
	} {
		assert.Equal(t, want, Classify(text), text)
	}
}

func TestDegenerateInputIsTerminal(t *testing.T) {
	for _, text := range []string{"", "  hi  ", "dilute", "please do something nice for me"} {
		got, err := extract(t, New(), text, "")
		var xe domain.ExtractionError
		require.True(t, errors.As(err, &xe), text)
		assert.True(t, got.Terminal(), text)
		assert.Equal(t, domain.ExperimentGeneric, got.Type)
		assert.Empty(t, got.Instruction)
		assert.NotEmpty(t, got.Question)
		assert.Equal(t, got.Question, xe.Question)
	}
}

func TestGenericHintIsTerminal(t *testing.T) {
	got, err := extract(t, New(), "do a serial dilution please", domain.ExperimentGeneric)
	require.Error(t, err)
	assert.True(t, got.Terminal())
}

func TestHintBypassesClassification(t *testing.T) {
	got, err := extract(t, New(), "prepare 16 samples with 20 µL each", domain.ExperimentPCRSetup)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentPCRSetup, got.Type)
	requireNumber(t, got.Parameters, domain.ParamNumSamples, 16, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamReactionVolume, 20, domain.ProvenanceUser)
}

func TestVolumeBindsOnlyToPrimaryOrLabeledField(t *testing.T) {
	got, err := extract(t, New(), "plate washing of 48 samples with 200 µL", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamWashVolume, 200, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamNumSamples, 48, domain.ProvenanceUser)

	got, err = extract(t, New(), "cell culture for 12 samples, media volume 200 µL, incubate for 20 minutes", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamMediaVolume, 200, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamIncubationMinutes, 20, domain.ProvenanceUser)

	got, err = extract(t, New(), "enzyme assay with a total of 80 µL per well", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamReactionVolume, 80, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamIncubationMinutes, 15, domain.ProvenanceDefault)
}

func TestPlateFormatIsNotASampleCount(t *testing.T) {
	got, err := extract(t, New(), "pcr setup in a 96 well plate", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamNumSamples, 8, domain.ProvenanceDefault)

	got, err = extract(t, New(), "transfer 3 columns of samples", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamNumSamples, 24, domain.ProvenanceUser)
}

func TestOptionalKeys(t *testing.T) {
	got, err := extract(t, New(), "serial dilution using a single-channel pipette, diluent in column 3 and sample in column 4", "")
	require.NoError(t, err)
	pip, _ := got.Parameters.Text(domain.ParamPipette)
	assert.Equal(t, "flex_1channel_1000", pip)
	requireNumber(t, got.Parameters, domain.ParamDiluentWell, 3, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamSampleWell, 4, domain.ProvenanceUser)
	assert.Contains(t, got.Instruction, "Take diluent from reservoir column 3.")
	assert.Contains(t, got.Instruction, "Use the flex_1channel_1000 pipette.")

	got, err = extract(t, New(), "pcr setup in a pcr plate with the 8-channel", "")
	require.NoError(t, err)
	plate, _ := got.Parameters.Text(domain.ParamPlateType)
	assert.Equal(t, "nest_96_wellplate_100ul_pcr_full_skirt", plate)
	pip, _ = got.Parameters.Text(domain.ParamPipette)
	assert.Equal(t, "flex_8channel_1000", pip)
}

func TestInstructionRederivesResolvedValues(t *testing.T) {
	for _, typ := range domain.ExperimentTypes() {
		if typ == domain.ExperimentGeneric {
			continue
		}
		params := Defaults(typ)
		params.Set(domain.ParamPipette, domain.Text("flex_1channel_1000", domain.ProvenanceUser))
		if typ == domain.ExperimentSerialDilution {
			params.Set(domain.ParamSampleWell, domain.Number(4, domain.ProvenanceUser))
			params.Set(domain.ParamDiluentWell, domain.Number(2, domain.ProvenanceUser))
		}
		derived := Derive(Instruction(typ, params), typ)
		assert.Equal(t, params.Keys(), derived.Keys(), typ)
		for _, key := range params.Keys() {
			want, _ := params.Get(key)
			got, _ := derived.Get(key)
			assert.Equal(t, want.String(), got.String(), "%s %s", typ, key)
			assert.Equal(t, domain.ProvenanceUser, got.Provenance)
		}
	}
}

func TestEveryTypeCarriesRequiredKeys(t *testing.T) {
	texts := map[domain.ExperimentType]string{
		domain.ExperimentSerialDilution: "serial dilution",
		domain.ExperimentPCRSetup:       "pcr setup please",
		domain.ExperimentPlateWashing:   "wash my plate",
		domain.ExperimentSampleTransfer: "transfer my samples",
		domain.ExperimentCellCulture:    "cell culture media change",
		domain.ExperimentEnzymeAssay:    "enzyme assay please",
	}
	for typ, text := range texts {
		got, err := extract(t, New(), text, "")
		require.NoError(t, err, text)
		require.Equal(t, typ, got.Type, text)
		for _, key := range RequiredKeys(typ) {
			assert.True(t, got.Parameters.Has(key), "%s missing %s", typ, key)
		}
		assert.NotEmpty(t, got.Instruction)
	}
	assert.Nil(t, RequiredKeys(domain.ExperimentGeneric))
}

func backend(interp interpret.Interpretation, err error) interpret.Backend {
	return interpret.Func(func(context.Context, interpret.Prompt) (interpret.Interpretation, error) {
		return interp, err
	})
}

func TestBackendFillsDefaultsOnly(t *testing.T) {
	x := New(WithBackend(backend(interpret.Interpretation{
		Parameters: map[string]any{"num_dilutions": 7.0, "starting_volume_ul": 300.0, "unknown_key": "x"},
	}, nil)))
	got, err := extract(t, x, "serial dilution starting at 150 µL", "")
	require.NoError(t, err)
	requireNumber(t, got.Parameters, domain.ParamNumDilutions, 7, domain.ProvenanceInterpreted)
	requireNumber(t, got.Parameters, domain.ParamStartingVolume, 150, domain.ProvenanceUser)
	requireNumber(t, got.Parameters, domain.ParamDilutionFactor, 2, domain.ProvenanceDefault)
	assert.False(t, got.Parameters.Has("unknown_key"))
	assert.Contains(t, got.Confirmation, "number of dilutions 7 (interpreted)")
}

func TestBackendTypesUnmatchedRequests(t *testing.T) {
	x := New(WithBackend(backend(interpret.Interpretation{Type: "pcr_setup"}, nil)))
	got, err := extract(t, x, "please prepare my plates today", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentPCRSetup, got.Type)

	x = New(WithBackend(backend(interpret.Interpretation{Type: "pcr_setup"}, nil)))
	got, err = extract(t, x, "run a serial dilution", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentSerialDilution, got.Type)
}

func TestBackendMalformedResultsAreTerminal(t *testing.T) {
	cases := map[string]interpret.Backend{
		"error":        backend(interpret.Interpretation{}, errors.New("timeout")),
		"empty":        backend(interpret.Interpretation{}, nil),
		"unknown type": backend(interpret.Interpretation{Type: "western_blot"}, nil),
		"wrong kind":   backend(interpret.Interpretation{Parameters: map[string]any{"plate_type": 5.0}}, nil),
		"text number":  backend(interpret.Interpretation{Parameters: map[string]any{"num_dilutions": "five"}}, nil),
	}
	for name, b := range cases {
		got, err := extract(t, New(WithBackend(b)), "do a serial dilution", "")
		var xe domain.ExtractionError
		require.True(t, errors.As(err, &xe), name)
		assert.True(t, got.Terminal(), name)
		assert.NotEmpty(t, got.Question, name)
	}
}

func TestNoneBackendIsIgnored(t *testing.T) {
	got, err := extract(t, New(WithBackend(interpret.None{})), "do a serial dilution", "")
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentSerialDilution, got.Type)
}
