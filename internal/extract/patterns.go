package extract

import (
	"regexp"
	"strconv"
	"strings"

	"cornucopia/internal/platform"
	"cornucopia/pkg/domain"
)

// number accepts an optional thousands separator, as in "1,000".
const number = `((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?)`

var (
	volumePattern  = regexp.MustCompile(`\b` + number + `\s*(?:µl|μl|ul|microlit(?:er|re)s?)\b`)
	samplePattern  = regexp.MustCompile(`\b(\d+)\s*(samples?|wells?|reactions?|columns?)\b`)
	stepPattern    = regexp.MustCompile(`\b(\d+)\s*-?\s*(?:serial\s+)?(?:dilution\s+)?(?:steps?|dilutions?)\b`)
	factorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b1\s*:\s*` + number),
		regexp.MustCompile(number + `\s*-?\s*fold\b`),
		regexp.MustCompile(`(?:dilution\s+)?factor\s*(?:of|=|:|is)?\s*` + number),
	}
	incubationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`incubat\w*\s*(?:for\s*)?` + number + `\s*(?:min|mins|minutes?)\b`),
		regexp.MustCompile(number + `\s*(?:min|mins|minutes?)\s*(?:of\s*)?incubation`),
	}
	cyclePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(\d+)\s*(?:wash\s+)?(?:cycles?|rounds?|washes)\b`),
		regexp.MustCompile(`wash\w*\s*(?:the\s+\w+\s+)?(\d+)\s*(?:x|times)\b`),
		regexp.MustCompile(`\b(\d+)\s*times\b`),
	}
	soakPatterns = []*regexp.Regexp{
		regexp.MustCompile(`soak\w*\s*(?:for\s*)?` + number + `\s*(?:s|sec|secs|seconds?)\b`),
		regexp.MustCompile(number + `\s*(?:s|sec|secs|seconds?)\s*soak`),
	}
	plateNamePattern   = regexp.MustCompile(`\b[a-z0-9]+_\d+_wellplate_[a-z0-9_]+`)
	pipetteNamePattern = regexp.MustCompile(`\bflex_\d+channel_\d+\b`)
	reagentPattern     = regexp.MustCompile(`\b(sample|diluent|water)s?\b[^.;,]*?\b(?:column|well|position)\s*(\d+)`)
	plateFollows       = regexp.MustCompile(`^\s*-?\s*plates?\b`)
)

// volumeLabels maps words that may precede a volume to the field they name.
var volumeLabels = []struct {
	word string
	key  string
}{
	{"start", domain.ParamStartingVolume},
	{"initial", domain.ParamStartingVolume},
	{"reaction", domain.ParamReactionVolume},
	{"total", domain.ParamReactionVolume},
	{"wash", domain.ParamWashVolume},
	{"transfer", domain.ParamTransferVolume},
	{"media", domain.ParamMediaVolume},
	{"medium", domain.ParamMediaVolume},
}

const labelWindow = 40

var reagentKeys = map[string]string{
	"sample":  domain.ParamSampleWell,
	"diluent": domain.ParamDiluentWell,
	"water":   domain.ParamWaterWell,
}

// Derive applies the pattern rules for type t to text and returns only the
// values the text states, all with user provenance. Keys the type does not
// accept are dropped.
func Derive(text string, t domain.ExperimentType) domain.ParameterSet {
	tpl, ok := templates[t]
	out := domain.NewParameterSet()
	if !ok {
		return out
	}
	lower := strings.ToLower(text)
	set := func(key string, v domain.Value) {
		if tpl.accepts(key) && !out.Has(key) {
			out.Set(key, v)
		}
	}
	user := func(n float64) domain.Value { return domain.Number(n, domain.ProvenanceUser) }

	deriveVolumes(lower, tpl, set)

	if n, ok := firstNumber(factorPatterns, lower); ok {
		set(domain.ParamDilutionFactor, user(n))
	}
	if n, ok := stepCount(lower); ok {
		set(domain.ParamNumDilutions, user(n))
	}
	if n, ok := sampleCount(lower); ok {
		set(domain.ParamNumSamples, user(n))
	}
	if n, ok := firstNumber(incubationPatterns, lower); ok {
		set(domain.ParamIncubationMinutes, user(n))
	}
	if n, ok := firstNumber(cyclePatterns, lower); ok {
		set(domain.ParamWashCycles, user(n))
	}
	if n, ok := firstNumber(soakPatterns, lower); ok {
		set(domain.ParamSoakSeconds, user(n))
	}
	if plate, ok := plateType(lower); ok {
		set(domain.ParamPlateType, domain.Text(plate, domain.ProvenanceUser))
	}
	if model, ok := pipetteModel(lower); ok {
		set(domain.ParamPipette, domain.Text(model, domain.ProvenanceUser))
	}
	for _, m := range reagentPattern.FindAllStringSubmatch(lower, -1) {
		n, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		set(reagentKeys[m[1]], user(n))
	}
	return out
}

// deriveVolumes binds labeled volumes to their fields and the first unlabeled
// volume to the primary field of the type. No other field is aliased.
func deriveVolumes(lower string, tpl template, set func(string, domain.Value)) {
	matches := volumePattern.FindAllStringSubmatchIndex(lower, -1)
	prevEnd := 0
	var unlabeled []float64
	labeled := map[string]bool{}
	for _, m := range matches {
		n, err := parseNumber(lower[m[2]:m[3]])
		if err != nil {
			continue
		}
		start := m[0] - labelWindow
		if start < prevEnd {
			start = prevEnd
		}
		window := lower[start:m[0]]
		prevEnd = m[1]
		key := ""
		for _, l := range volumeLabels {
			if strings.Contains(window, l.word) && tpl.accepts(l.key) {
				key = l.key
				break
			}
		}
		if key == "" {
			unlabeled = append(unlabeled, n)
			continue
		}
		labeled[key] = true
		set(key, domain.Number(n, domain.ProvenanceUser))
	}
	if len(unlabeled) > 0 && !labeled[tpl.primary] {
		set(tpl.primary, domain.Number(unlabeled[0], domain.ProvenanceUser))
	}
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func firstNumber(patterns []*regexp.Regexp, lower string) (float64, bool) {
	for _, p := range patterns {
		if m := p.FindStringSubmatch(lower); m != nil {
			if n, err := parseNumber(m[1]); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// stepCount skips matches whose number is the denominator of a 1:N ratio.
func stepCount(lower string) (float64, bool) {
	for _, m := range stepPattern.FindAllStringSubmatchIndex(lower, -1) {
		before := strings.TrimRight(lower[:m[2]], " ")
		if strings.HasSuffix(before, ":") {
			continue
		}
		if n, err := strconv.ParseFloat(lower[m[2]:m[3]], 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// sampleCount ignores plate formats such as "96 well plate" and counts a
// column as a full column of wells.
func sampleCount(lower string) (float64, bool) {
	for _, m := range samplePattern.FindAllStringSubmatchIndex(lower, -1) {
		unit := lower[m[4]:m[5]]
		if strings.HasPrefix(unit, "well") && plateFollows.MatchString(lower[m[1]:]) {
			continue
		}
		n, err := strconv.ParseFloat(lower[m[2]:m[3]], 64)
		if err != nil {
			continue
		}
		if strings.HasPrefix(unit, "column") {
			n *= platform.PlateRows
		}
		return n, true
	}
	return 0, false
}

func plateType(lower string) (string, bool) {
	for _, name := range platform.PlateNames() {
		if strings.Contains(lower, name) {
			return name, true
		}
	}
	if m := plateNamePattern.FindString(lower); m != "" {
		return m, true
	}
	if strings.Contains(lower, "pcr plate") {
		return "nest_96_wellplate_100ul_pcr_full_skirt", true
	}
	return "", false
}

func pipetteModel(lower string) (string, bool) {
	if m := pipetteNamePattern.FindString(lower); m != "" {
		return m, true
	}
	for _, kw := range []string{"8-channel", "8 channel", "multichannel", "multi-channel"} {
		if strings.Contains(lower, kw) {
			return platform.DefaultPipette, true
		}
	}
	for _, kw := range []string{"single-channel", "single channel", "1-channel"} {
		if strings.Contains(lower, kw) {
			return platform.SingleChannel, true
		}
	}
	return "", false
}
