// Package domain holds the vocabulary shared by every stage of the
// request-to-script pipeline: experiment requests, provenance-tagged
// parameters, the operation IR, validation reports and simulation diagnostics.
package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ExperimentType tags the template family a request resolves to.
type ExperimentType string

// Supported experiment types. The order of the block is not significant;
// classification precedence lives with the extractor's rule table.
const (
	ExperimentSerialDilution ExperimentType = "serial_dilution"
	ExperimentPCRSetup       ExperimentType = "pcr_setup"
	ExperimentPlateWashing   ExperimentType = "plate_washing"
	ExperimentSampleTransfer ExperimentType = "sample_transfer"
	ExperimentCellCulture    ExperimentType = "cell_culture"
	ExperimentEnzymeAssay    ExperimentType = "enzyme_assay"
	ExperimentGeneric        ExperimentType = "generic"
)

var experimentTypes = []ExperimentType{
	ExperimentSerialDilution,
	ExperimentPCRSetup,
	ExperimentPlateWashing,
	ExperimentSampleTransfer,
	ExperimentCellCulture,
	ExperimentEnzymeAssay,
	ExperimentGeneric,
}

// ExperimentTypes returns every supported type.
func ExperimentTypes() []ExperimentType {
	out := make([]ExperimentType, len(experimentTypes))
	copy(out, experimentTypes)
	return out
}

// ParseExperimentType converts a tag into an ExperimentType, rejecting unknown tags.
func ParseExperimentType(raw string) (ExperimentType, error) {
	tag := ExperimentType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range experimentTypes {
		if t == tag {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown experiment type %q", raw)
}

// Label returns the human readable name of the type.
func (t ExperimentType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// ExperimentRequest is one user submission. An empty TypeHint means the
// extractor classifies the text itself.
type ExperimentRequest struct {
	Text     string         `json:"text"`
	TypeHint ExperimentType `json:"type_hint,omitempty"`
}

// Provenance records where a parameter value came from.
type Provenance string

// Parameter provenances.
const (
	ProvenanceUser        Provenance = "user"
	ProvenanceDefault     Provenance = "default"
	ProvenanceInterpreted Provenance = "interpreted"
)

// ValueKind distinguishes numeric from textual parameters.
type ValueKind string

// Value kinds.
const (
	KindNumber ValueKind = "number"
	KindText   ValueKind = "text"
)

// Value is a single provenance-tagged parameter value.
type Value struct {
	Kind       ValueKind  `json:"kind"`
	Number     float64    `json:"number,omitempty"`
	Text       string     `json:"text,omitempty"`
	Provenance Provenance `json:"provenance"`
}

// Number builds a numeric value.
func Number(v float64, p Provenance) Value {
	return Value{Kind: KindNumber, Number: v, Provenance: p}
}

// Text builds a textual value.
func Text(v string, p Provenance) Value {
	return Value{Kind: KindText, Text: v, Provenance: p}
}

// String formats the value without its provenance.
func (v Value) String() string {
	if v.Kind == KindNumber {
		return FormatNumber(v.Number)
	}
	return v.Text
}

// FormatNumber renders a number in its shortest exact decimal form.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParameterSet maps parameter names to values. The zero value is ready to use.
type ParameterSet struct {
	values map[string]Value
}

// NewParameterSet returns an empty set.
func NewParameterSet() ParameterSet {
	return ParameterSet{values: make(map[string]Value)}
}

// Set stores a value. A user-specified value is never replaced by a default;
// the call reports whether the value was stored.
func (p *ParameterSet) Set(key string, v Value) bool {
	if p.values == nil {
		p.values = make(map[string]Value)
	}
	if cur, ok := p.values[key]; ok && cur.Provenance == ProvenanceUser && v.Provenance != ProvenanceUser {
		return false
	}
	p.values[key] = v
	return true
}

// Get returns the value for key.
func (p ParameterSet) Get(key string) (Value, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Has reports whether key is present.
func (p ParameterSet) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Number returns the numeric value of key, or false when absent or textual.
func (p ParameterSet) Number(key string) (float64, bool) {
	v, ok := p.values[key]
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Number, true
}

// Text returns the textual value of key, or false when absent or numeric.
func (p ParameterSet) Text(key string) (string, bool) {
	v, ok := p.values[key]
	if !ok || v.Kind != KindText {
		return "", false
	}
	return v.Text, true
}

// Keys returns all keys in ascending order.
func (p ParameterSet) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of parameters.
func (p ParameterSet) Len() int { return len(p.values) }

// Clone returns an independent copy.
func (p ParameterSet) Clone() ParameterSet {
	out := NewParameterSet()
	for k, v := range p.values {
		out.values[k] = v
	}
	return out
}

// Map returns a copy of the underlying values, for serialization.
func (p ParameterSet) Map() map[string]Value {
	out := make(map[string]Value, len(p.values))
	for k, v := range p.values {
		out[k] = v
	}
	return out
}

// ParameterSetFrom builds a set from a map, typically a decoded record.
func ParameterSetFrom(values map[string]Value) ParameterSet {
	out := NewParameterSet()
	for k, v := range values {
		out.values[k] = v
	}
	return out
}

// MarshalJSON encodes the set as an object keyed by parameter name.
func (p ParameterSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Map())
}

// UnmarshalJSON decodes an object keyed by parameter name.
func (p *ParameterSet) UnmarshalJSON(data []byte) error {
	var values map[string]Value
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*p = ParameterSetFrom(values)
	return nil
}
