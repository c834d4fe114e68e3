// Package extract turns free-text requests into a typed, provenance-tagged
// parameter set using an ordered rule table and fixed pattern rules.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"cornucopia/internal/interpret"
	"cornucopia/pkg/domain"
)

// MinTextLength is the shortest trimmed request that is classified at all.
const MinTextLength = 8

const (
	questionDetail = `Could you describe the experiment in more detail? For example: "serial dilution with 6 steps starting at 150 µL".`
	questionType   = "Which protocol should I prepare: serial dilution, PCR setup, plate washing, sample transfer, cell culture or enzyme assay?"
	questionAssist = "I could not interpret that request. Could you restate it with explicit volumes and counts?"
)

// Extraction is the resolved form of a request. An empty Instruction marks
// the terminal clarifying state, in which Question holds what to ask next.
type Extraction struct {
	Type         domain.ExperimentType `json:"type"`
	Parameters   domain.ParameterSet   `json:"parameters"`
	Confirmation string                `json:"confirmation"`
	Instruction  string                `json:"clean_instruction"`
	Question     string                `json:"question,omitempty"`
}

// Terminal reports whether downstream stages must not run.
func (e Extraction) Terminal() bool { return e.Instruction == "" }

// Extractor resolves requests. The zero value is not usable; call New.
type Extractor struct {
	backend interpret.Backend
	logger  *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithBackend consults b after rule extraction.
func WithBackend(b interpret.Backend) Option {
	return func(x *Extractor) { x.backend = b }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(x *Extractor) {
		if l != nil {
			x.logger = l
		}
	}
}

// New constructs an Extractor.
func New(opts ...Option) *Extractor {
	x := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract resolves req. The returned error is non-nil exactly when the
// extraction is terminal, and is always a domain.ExtractionError.
func (x *Extractor) Extract(ctx context.Context, req domain.ExperimentRequest) (Extraction, error) {
	text := strings.TrimSpace(req.Text)
	if len([]rune(text)) < MinTextLength {
		return terminal("request too short to classify", questionDetail)
	}
	t, err := domain.ParseExperimentType(string(req.TypeHint))
	if err != nil || req.TypeHint == "" {
		t = Classify(text)
	} else if t == domain.ExperimentGeneric {
		return terminal("generic requests have no protocol template", questionType)
	}

	params := Derive(text, t)
	if x.backend != nil {
		t, params, err = x.assist(ctx, text, t, params)
		if err != nil {
			x.logger.Warn("interpretation rejected", zap.String("backend", x.backend.Name()), zap.Error(err))
			return terminal(err.Error(), questionAssist)
		}
	}
	if t == domain.ExperimentGeneric {
		return terminal("no experiment type matched the request", questionType)
	}
	for k, v := range templates[t].defaults {
		if !params.Has(k) {
			params.Set(k, v)
		}
	}
	fitDefaultVolume(templates[t], &params)
	return Extraction{
		Type:         t,
		Parameters:   params,
		Confirmation: Confirmation(t, params),
		Instruction:  Instruction(t, params),
	}, nil
}

func terminal(reason, question string) (Extraction, error) {
	return Extraction{
			Type:         domain.ExperimentGeneric,
			Parameters:   domain.NewParameterSet(),
			Confirmation: question,
			Question:     question,
		}, domain.ExtractionError{
			Reason:   reason,
			Question: question,
		}
}

// assist adopts backend values for keys the text left unstated. Rule
// classification wins over the backend; the backend only types requests the
// rules left generic.
func (x *Extractor) assist(ctx context.Context, text string, t domain.ExperimentType, params domain.ParameterSet) (domain.ExperimentType, domain.ParameterSet, error) {
	prompt := interpret.Prompt{Text: text}
	if t != domain.ExperimentGeneric {
		prompt.Type = string(t)
	}
	interp, err := x.backend.Interpret(ctx, prompt)
	if errors.Is(err, interpret.ErrNoOpinion) {
		return t, params, nil
	}
	if err != nil {
		return t, params, fmt.Errorf("interpretation failed: %w", err)
	}
	if interp.Empty() {
		return t, params, errors.New("interpretation was empty")
	}
	if interp.Type != "" {
		proposed, err := domain.ParseExperimentType(interp.Type)
		if err != nil {
			return t, params, fmt.Errorf("malformed interpretation: %w", err)
		}
		if t == domain.ExperimentGeneric {
			t = proposed
			params = Derive(text, t)
		}
	}
	if t == domain.ExperimentGeneric {
		return t, params, nil
	}
	tpl := templates[t]
	keys := make([]string, 0, len(interp.Parameters))
	for k := range interp.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !tpl.accepts(key) {
			x.logger.Debug("interpretation key ignored", zap.String("key", key), zap.String("experiment_type", string(t)))
			continue
		}
		v, err := interpretedValue(key, interp.Parameters[key])
		if err != nil {
			return t, params, fmt.Errorf("malformed interpretation: %w", err)
		}
		if params.Has(key) {
			continue
		}
		params.Set(key, v)
	}
	return t, params, nil
}

func interpretedValue(key string, raw any) (domain.Value, error) {
	if domain.IsTextParam(key) {
		s, ok := raw.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return domain.Value{}, fmt.Errorf("%s must be a non-empty string", key)
		}
		return domain.Text(strings.TrimSpace(s), domain.ProvenanceInterpreted), nil
	}
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return domain.Value{}, fmt.Errorf("%s: %w", key, err)
		}
		n = f
	default:
		return domain.Value{}, fmt.Errorf("%s must be a number, got %T", key, raw)
	}
	return domain.Number(n, domain.ProvenanceInterpreted), nil
}
