package validation

import (
	"strings"
	"unicode"

	"cornucopia/pkg/domain"
)

// hazard maps normalized spellings to the term reported back to the caller.
type hazard struct {
	term      string
	spellings []string
}

var hazards = []hazard{
	{"pathogen", []string{"pathogen"}},
	{"bsl-3", []string{"bsl 3", "bsl3", "biosafety level 3"}},
	{"bsl-4", []string{"bsl 4", "bsl4", "biosafety level 4"}},
	{"live virus", []string{"live virus", "live viruses"}},
	{"toxic", []string{"toxic"}},
	{"carcinogen", []string{"carcinogen"}},
	{"corrosive", []string{"corrosive"}},
	{"hydrofluoric", []string{"hydrofluoric"}},
	{"cyanide", []string{"cyanide"}},
	{"radioactive", []string{"radioactive"}},
	{"select agent", []string{"select agent"}},
}

// HazardTerms returns the reported hazard terms in screening order.
func HazardTerms() []string {
	out := make([]string, len(hazards))
	for i, h := range hazards {
		out[i] = h.term
	}
	return out
}

// normalize lowercases text and folds punctuation and whitespace runs into
// single spaces so "BSL-3", "bsl_3" and "bsl  3" compare equal.
func normalize(text string) string {
	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return " " + strings.TrimSpace(b.String()) + " "
}

// matchHazards returns the hazard terms found in text, in screening order.
func matchHazards(text string) []string {
	norm := normalize(text)
	var terms []string
	for _, h := range hazards {
		for _, s := range h.spellings {
			if strings.Contains(norm, s) {
				terms = append(terms, h.term)
				break
			}
		}
	}
	return terms
}

// CheckPolicy screens text for hazard keywords. It returns nil when the text
// is clean.
func CheckPolicy(text string) *domain.Finding {
	terms := matchHazards(text)
	if len(terms) == 0 {
		return nil
	}
	f := domain.PolicyViolation{Terms: terms}.Finding()
	return &f
}

// Gate screens every text and fails fast with a domain.PolicyViolation naming
// all matched terms.
func Gate(texts ...string) error {
	var terms []string
	seen := map[string]bool{}
	for _, text := range texts {
		for _, term := range matchHazards(text) {
			if !seen[term] {
				seen[term] = true
				terms = append(terms, term)
			}
		}
	}
	if len(terms) > 0 {
		return domain.PolicyViolation{Terms: terms}
	}
	return nil
}
