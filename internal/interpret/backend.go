// Package interpret defines the pluggable interpretation backend consulted by
// the extractor when rule-based extraction leaves parameters at their defaults.
package interpret

import (
	"context"
	"errors"
)

// ErrNoOpinion is returned by backends that decline to interpret a prompt.
var ErrNoOpinion = errors.New("interpret: no opinion")

// Prompt is what a backend receives.
type Prompt struct {
	Text string `json:"text"`
	Type string `json:"type,omitempty"`
}

// Interpretation is a structured parameter map. Numbers arrive as float64,
// int or json.Number; text arrives as string.
type Interpretation struct {
	Type       string         `json:"experiment_type"`
	Parameters map[string]any `json:"parameters"`
}

// Empty reports whether the backend produced nothing usable.
func (i Interpretation) Empty() bool {
	return i.Type == "" && len(i.Parameters) == 0
}

// Backend turns free text into a parameter map.
type Backend interface {
	Name() string
	Interpret(ctx context.Context, prompt Prompt) (Interpretation, error)
}

// None never interprets anything.
type None struct{}

// Name implements Backend.
func (None) Name() string { return "none" }

// Interpret implements Backend.
func (None) Interpret(context.Context, Prompt) (Interpretation, error) {
	return Interpretation{}, ErrNoOpinion
}

// Func adapts a function into a Backend.
type Func func(ctx context.Context, prompt Prompt) (Interpretation, error)

// Name implements Backend.
func (Func) Name() string { return "func" }

// Interpret implements Backend.
func (f Func) Interpret(ctx context.Context, prompt Prompt) (Interpretation, error) {
	return f(ctx, prompt)
}
