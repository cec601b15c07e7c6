package models

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rickchristie/infill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeLLM is a minimal llms.Model returning a canned response.
type fakeLLM struct {
	response *llms.ContentResponse
	err      error
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.messages = messages
	return f.response, f.err
}

func (f *fakeLLM) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func TestLCGWrapper_ConvertsToolCallsAndTokens(t *testing.T) {
	llm := &fakeLLM{
		response: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{
				{
					StopReason: "tool_calls",
					ToolCalls: []llms.ToolCall{
						{
							ID:   "call_1",
							Type: "function",
							FunctionCall: &llms.FunctionCall{
								Name:      "replace_selection",
								Arguments: `{"selectionReplacement":"X"}`,
							},
						},
					},
					GenerationInfo: map[string]any{
						"PromptTokens":     120,
						"CompletionTokens": float64(8),
					},
				},
			},
		},
	}

	model := NewLCGWrapper(llm).WithModelName("gpt-test")
	assert.Equal(t, "gpt-test", model.ModelName())
	assert.Same(t, llm, model.Unwrap())

	resp, err := model.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
	})
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	require.Len(t, resp.Choices[0].ToolCalls, 1)
	assert.Equal(t, "replace_selection", resp.Choices[0].ToolCalls[0].FunctionCall.Name)
	assert.Equal(t, "tool_calls", resp.Choices[0].StopReason)

	assert.Equal(t, 120, resp.Info.InputTokens)
	assert.Equal(t, 8, resp.Info.OutputTokens)
	assert.Equal(t, 128, resp.Info.TotalTokens)
	assert.Len(t, llm.messages, 1)
}

func TestLCGWrapper_EmptyAndError(t *testing.T) {
	t.Run("nil response yields no choices", func(t *testing.T) {
		resp, err := NewLCGWrapper(&fakeLLM{}).GenerateContent(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, resp.Choices)
	})

	t.Run("error is passed through", func(t *testing.T) {
		boom := errors.New("429 too many requests")
		resp, err := NewLCGWrapper(&fakeLLM{err: boom}).GenerateContent(context.Background(), nil)
		assert.ErrorIs(t, err, boom)
		assert.Nil(t, resp)
	})
}

func TestTokenExtraction(t *testing.T) {
	tests := []struct {
		name   string
		info   map[string]any
		input  int
		output int
		total  int
	}{
		{
			name:   "openai keys",
			info:   map[string]any{"PromptTokens": 10, "CompletionTokens": 5, "TotalTokens": 15},
			input:  10,
			output: 5,
			total:  15,
		},
		{
			name:   "anthropic keys with computed total",
			info:   map[string]any{"InputTokens": int64(7), "OutputTokens": int32(3)},
			input:  7,
			output: 3,
			total:  10,
		},
		{
			name:   "snake case keys",
			info:   map[string]any{"input_tokens": float32(4), "output_tokens": 2, "total_tokens": 6},
			input:  4,
			output: 2,
			total:  6,
		},
		{
			name:  "unknown value types are ignored",
			info:  map[string]any{"PromptTokens": "12"},
			input: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := extractInputTokens(tt.info)
			out := extractOutputTokens(tt.info)
			assert.Equal(t, tt.input, in)
			assert.Equal(t, tt.output, out)
			assert.Equal(t, tt.total, extractTotalTokens(tt.info, in, out))
		})
	}
}

func TestNewOpenAIModel_RequiresAPIKey(t *testing.T) {
	model, err := NewOpenAIModel(infill.DefaultSettings())
	assert.ErrorIs(t, err, infill.ErrMissingAPIKey)
	assert.Nil(t, model)
}

func TestNewOpenAIModel_Builds(t *testing.T) {
	settings := infill.DefaultSettings()
	settings.APIKey = "sk-test"
	settings.BaseURL = "http://localhost:1234/v1"

	model, err := OpenAIFactory()(settings)
	require.NoError(t, err)
	wrapper, ok := model.(*LCGWrapper)
	require.True(t, ok)
	assert.Equal(t, infill.DefaultModel, wrapper.ModelName())
}

func TestOpenAIGenerate(t *testing.T) {
	apiKey := os.Getenv("INFILL_TEST_OPENAI_KEY")
	if apiKey == "" {
		t.Skip("INFILL_TEST_OPENAI_KEY not set")
	}

	settings := infill.DefaultSettings()
	settings.APIKey = apiKey
	model, err := NewOpenAIModel(settings)
	require.NoError(t, err)

	resp, err := model.GenerateContent(context.Background(), []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "Reply with exactly: hello"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Choices)
	assert.NotEmpty(t, resp.Choices[0].Content)
}
