package infill

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// Model is the backend capability the generation client talks to. It wraps
// LangChainGo's llms.Model with normalized token usage so that logging does
// not depend on the provider.
type Model interface {
	// GenerateContent generates content from a sequence of messages.
	GenerateContent(
		ctx context.Context,
		messages []llms.MessageContent,
		options ...llms.CallOption,
	) (*ContentResponse, error)
}

// ContentResponse is the response from a GenerateContent call.
type ContentResponse struct {
	// Choices contains the generated candidates. Empty when the backend
	// returned nothing.
	Choices []*ContentChoice

	// Info contains generation metadata including normalized token counts.
	Info *GenerationInfo
}

// ContentChoice is a single candidate from the model.
type ContentChoice struct {
	// Content is the free-text part of the candidate.
	Content string

	// StopReason is the reason the model stopped generating.
	StopReason string

	// FuncCall is set by providers that still use the legacy single
	// function-call field.
	FuncCall *llms.FunctionCall

	// ToolCalls is the list of tool calls the model asks to invoke.
	ToolCalls []llms.ToolCall
}

// GenerationInfo contains metadata about the generation.
type GenerationInfo struct {
	// InputTokens is the number of prompt tokens, normalized across
	// providers.
	InputTokens int

	// OutputTokens is the number of completion tokens, normalized across
	// providers.
	OutputTokens int

	// TotalTokens is InputTokens + OutputTokens when the provider does not
	// report it directly.
	TotalTokens int

	// Duration is how long the call took.
	Duration time.Duration
}
