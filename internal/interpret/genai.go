package interpret

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = `You extract liquid-handling experiment parameters from a lab request.
Reply with a single JSON object: {"experiment_type": string, "parameters": object}.
experiment_type is one of serial_dilution, pcr_setup, plate_washing, sample_transfer,
cell_culture, enzyme_assay, or "" when unsure. parameters may contain only these keys:
num_dilutions, dilution_factor, starting_volume_ul, num_samples, reaction_volume_ul,
wash_cycles, wash_volume_ul, soak_seconds, transfer_volume_ul, media_volume_ul,
incubation_minutes (numbers) and plate_type, pipette (strings). Omit anything not stated.`

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAI asks a Gemini model for a JSON parameter map.
type GenAI struct {
	models contentGenerator
	model  string
}

// NewGenAI creates a backend using the given API key.
func NewGenAI(ctx context.Context, apiKey, model string) (*GenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenAI(client.Models, model), nil
}

func newGenAI(models contentGenerator, model string) *GenAI {
	if model == "" {
		model = DefaultModel
	}
	return &GenAI{models: models, model: model}
}

// Name implements Backend.
func (g *GenAI) Name() string {
	return "genai:" + g.model
}

// Interpret implements Backend.
func (g *GenAI) Interpret(ctx context.Context, prompt Prompt) (Interpretation, error) {
	text := prompt.Text
	if prompt.Type != "" {
		text = fmt.Sprintf("Experiment type: %s\nRequest: %s", prompt.Type, prompt.Text)
	}
	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}, config)
	if err != nil {
		return Interpretation{}, fmt.Errorf("GenAI generate failed: %w", err)
	}
	if resp == nil {
		return Interpretation{}, fmt.Errorf("GenAI returned no response")
	}
	return Decode(resp.Text())
}

// Decode parses a backend JSON reply. Markdown code fences are tolerated.
func Decode(raw string) (Interpretation, error) {
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)
	if body == "" {
		return Interpretation{}, fmt.Errorf("empty interpretation")
	}
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var out Interpretation
	if err := dec.Decode(&out); err != nil {
		return Interpretation{}, fmt.Errorf("malformed interpretation: %w", err)
	}
	return out, nil
}
