package domain

// Parameter keys shared by extraction, synthesis and semantic validation.
const (
	ParamNumDilutions      = "num_dilutions"
	ParamDilutionFactor    = "dilution_factor"
	ParamStartingVolume    = "starting_volume_ul"
	ParamPlateType         = "plate_type"
	ParamNumSamples        = "num_samples"
	ParamReactionVolume    = "reaction_volume_ul"
	ParamWashCycles        = "wash_cycles"
	ParamWashVolume        = "wash_volume_ul"
	ParamSoakSeconds       = "soak_seconds"
	ParamTransferVolume    = "transfer_volume_ul"
	ParamMediaVolume       = "media_volume_ul"
	ParamIncubationMinutes = "incubation_minutes"
	ParamPipette           = "pipette"
	ParamSampleWell        = "sample_well"
	ParamDiluentWell       = "diluent_well"
	ParamWaterWell         = "water_well"
)

// IsTextParam reports whether the key holds a textual value.
func IsTextParam(key string) bool {
	return key == ParamPlateType || key == ParamPipette
}
