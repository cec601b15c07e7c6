package models

import (
	"fmt"

	"github.com/rickchristie/infill"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewOpenAIModel creates a Model backed by the OpenAI chat completions API,
// or any OpenAI-compatible endpoint when settings.BaseURL is set.
//
// It has the signature of generator.ModelFactory, so it can be handed to the
// generation client directly:
//
//	client := generator.New(models.NewOpenAIModel, settings)
func NewOpenAIModel(settings infill.Settings) (infill.Model, error) {
	return newOpenAIModel(settings)
}

// OpenAIFactory returns a model factory that passes extra openai.Option
// values (for example openai.WithHTTPClient) to every client it builds.
//
//	client := generator.New(models.OpenAIFactory(openai.WithHTTPClient(hc)), settings)
func OpenAIFactory(opts ...openai.Option) func(infill.Settings) (infill.Model, error) {
	return func(settings infill.Settings) (infill.Model, error) {
		return newOpenAIModel(settings, opts...)
	}
}

func newOpenAIModel(settings infill.Settings, opts ...openai.Option) (infill.Model, error) {
	if settings.APIKey == "" {
		return nil, infill.ErrMissingAPIKey
	}

	baseOpts := []openai.Option{
		openai.WithToken(settings.APIKey),
		openai.WithModel(settings.Model),
	}
	if settings.BaseURL != "" {
		baseOpts = append(baseOpts, openai.WithBaseURL(settings.BaseURL))
	}

	// Caller options come after so they can override defaults.
	allOpts := append(baseOpts, opts...)

	llm, err := openai.New(allOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return NewLCGWrapper(llm).WithModelName(settings.Model), nil
}
