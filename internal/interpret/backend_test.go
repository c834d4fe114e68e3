package interpret

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeGenerator struct {
	model  string
	config *genai.GenerateContentConfig
	text   string
	err    error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, model string, _ []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestNoneHasNoOpinion(t *testing.T) {
	_, err := None{}.Interpret(context.Background(), Prompt{Text: "anything"})
	assert.ErrorIs(t, err, ErrNoOpinion)
	assert.Equal(t, "none", None{}.Name())
}

func TestFuncAdapter(t *testing.T) {
	b := Func(func(_ context.Context, p Prompt) (Interpretation, error) {
		return Interpretation{Type: p.Type}, nil
	})
	got, err := b.Interpret(context.Background(), Prompt{Type: "pcr_setup"})
	require.NoError(t, err)
	assert.Equal(t, "pcr_setup", got.Type)
}

func TestGenAIDecodesJSONReply(t *testing.T) {
	gen := &fakeGenerator{text: "```json\n{\"experiment_type\":\"pcr_setup\",\"parameters\":{\"num_samples\":16}}\n```"}
	b := newGenAI(gen, "")
	got, err := b.Interpret(context.Background(), Prompt{Text: "set up pcr for 16 samples"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, gen.model)
	require.NotNil(t, gen.config.Temperature)
	assert.Equal(t, float32(0), *gen.config.Temperature)
	assert.Equal(t, "application/json", gen.config.ResponseMIMEType)
	assert.Equal(t, "pcr_setup", got.Type)
	assert.Equal(t, json.Number("16"), got.Parameters["num_samples"])
	assert.Equal(t, "genai:"+DefaultModel, b.Name())
}

func TestGenAIMalformedReplies(t *testing.T) {
	for _, reply := range []string{"", "   ", "not json", "{\"parameters\": 3}"} {
		b := newGenAI(&fakeGenerator{text: reply}, "m")
		_, err := b.Interpret(context.Background(), Prompt{Text: "x"})
		assert.Error(t, err, "reply %q", reply)
	}
}

func TestGenAIPropagatesTransportError(t *testing.T) {
	boom := errors.New("quota")
	b := newGenAI(&fakeGenerator{err: boom}, "m")
	_, err := b.Interpret(context.Background(), Prompt{Text: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestNewGenAIRequiresKey(t *testing.T) {
	_, err := NewGenAI(context.Background(), "", "")
	assert.Error(t, err)
}

func TestInterpretationEmpty(t *testing.T) {
	assert.True(t, Interpretation{}.Empty())
	assert.False(t, Interpretation{Type: "pcr_setup"}.Empty())
}
