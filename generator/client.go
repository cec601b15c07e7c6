// Package generator is the generation client: it turns a GenerationRequest
// into a forced single-field function call against the backend and maps
// every outcome onto infill.GenerationResult.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickchristie/infill"
	"github.com/rickchristie/infill/schema"
	"github.com/tmc/langchaingo/llms"
)

const (
	// FunctionName is the only function the backend is allowed to call.
	FunctionName = "replace_selection"

	// ReplacementField is the single string argument of FunctionName.
	ReplacementField = "selectionReplacement"
)

// Messages shown to the user for each failure kind.
const (
	MessageNoBackend = "No generation backend is configured. Set an API key in the settings."
	MessageEmpty     = "The generation backend returned no candidates."
	MessageMalformed = "The generation backend did not return a usable replacement."
	MessageTransport = "The generation backend could not be reached. Check the logs for details."
)

// ModelFactory builds a backend model from settings. It returns
// infill.ErrMissingAPIKey when no credential is configured.
type ModelFactory func(settings infill.Settings) (infill.Model, error)

var replacementParams = schema.Object(map[string]*schema.Property{
	ReplacementField: schema.String(
		"The exact text that replaces the target span. No commentary, " +
			"no alternatives, no markdown fences.",
	),
}, ReplacementField).Strict()

var replacementSchema = schema.MustCompile(replacementParams.Raw())

// Client is the generation client. It is safe for concurrent use.
type Client struct {
	factory ModelFactory
	logger  *slog.Logger

	mu       sync.RWMutex
	model    infill.Model
	modelID  string
	setupErr error
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Client and builds the initial model from settings. A missing
// credential is not an error here; Generate reports it as
// FailureNoBackendConfigured.
func New(factory ModelFactory, settings infill.Settings, opts ...Option) *Client {
	c := &Client{
		factory: factory,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reconfigure(settings)
	return c
}

// NewWithModel creates a Client around an existing model. Reconfigure
// keeps the model.
func NewWithModel(model infill.Model, opts ...Option) *Client {
	c := New(func(infill.Settings) (infill.Model, error) {
		if model == nil {
			return nil, infill.ErrMissingAPIKey
		}
		return model, nil
	}, infill.DefaultSettings(), opts...)
	return c
}

// Reconfigure rebuilds the backend model. Call it whenever the credential,
// base URL, or model changes.
func (c *Client) Reconfigure(settings infill.Settings) {
	var (
		model infill.Model
		err   error
	)
	if c.factory == nil {
		err = infill.ErrMissingAPIKey
	} else {
		model, err = c.factory(settings)
	}

	c.mu.Lock()
	c.model = model
	c.modelID = settings.Model
	c.setupErr = err
	c.mu.Unlock()

	if err != nil && !errors.Is(err, infill.ErrMissingAPIKey) {
		c.logger.Warn("generation backend setup failed", "model", settings.Model, "error", err)
	}
}

// Ready reports whether a backend model is available.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Generate sends the request and extracts the replacement. It never
// returns an error; every failure is a GenerationResult.
func (c *Client) Generate(ctx context.Context, req infill.GenerationRequest) infill.GenerationResult {
	c.mu.RLock()
	model, setupErr := c.model, c.setupErr
	c.mu.RUnlock()

	if model == nil {
		c.logger.Info("generation skipped: no backend configured", "error", setupErr)
		return infill.Failure(infill.FailureNoBackendConfigured, MessageNoBackend)
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, BuildMessages(req), CallOptions(req)...)
	if err != nil {
		c.logger.Warn("generation backend call failed",
			"model", req.ModelID(),
			"duration", time.Since(start),
			"error", err,
		)
		return infill.Failure(infill.FailureTransportError, MessageTransport)
	}

	result := ExtractReplacement(resp)
	attrs := []any{"model", req.ModelID(), "duration", time.Since(start), "outcome", result.Failure.String()}
	if resp != nil && resp.Info != nil {
		attrs = append(attrs, "input_tokens", resp.Info.InputTokens, "output_tokens", resp.Info.OutputTokens)
	}
	if result.OK() {
		c.logger.Debug("generation completed", attrs...)
	} else {
		c.logger.Warn("generation returned unusable response", attrs...)
	}
	return result
}

// BuildMessages returns the system instruction and the user message holding
// the context window and the exact target span.
func BuildMessages(req infill.GenerationRequest) []llms.MessageContent {
	var sb strings.Builder
	sb.WriteString("Here is the surrounding document text:\n")
	sb.WriteString("<document>\n")
	sb.WriteString(req.ContextWindow())
	sb.WriteString("\n</document>\n\n")
	sb.WriteString("Replace exactly this span, including its delimiters:\n")
	sb.WriteString("<target>")
	sb.WriteString(req.TargetSpan())
	sb.WriteString("</target>\n\n")
	fmt.Fprintf(&sb, "Respond only by calling %s with the replacement text in %q.", FunctionName, ReplacementField)

	return []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, sb.String()),
	}
}

// CallOptions returns the options that force the single structured call.
func CallOptions(req infill.GenerationRequest) []llms.CallOption {
	opts := []llms.CallOption{
		llms.WithTools([]llms.Tool{ReplacementTool()}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: FunctionName},
		}),
		llms.WithCandidateCount(1),
	}
	if req.ModelID() != "" {
		opts = append(opts, llms.WithModel(req.ModelID()))
	}
	return opts
}

// ReplacementTool returns the function definition offered to the backend.
func ReplacementTool() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        FunctionName,
			Description: "Replace the target span in the user's document with new text.",
			Parameters:  replacementParams.Raw(),
		},
	}
}

// ExtractReplacement finds the replacement in a backend response.
//
//   - no choices: FailureEmptyResponse
//   - no call to FunctionName, unparsable arguments, or arguments that do
//     not satisfy the schema: FailureMalformedResponse
func ExtractReplacement(resp *infill.ContentResponse) infill.GenerationResult {
	if resp == nil || len(resp.Choices) == 0 {
		return infill.Failure(infill.FailureEmptyResponse, MessageEmpty)
	}

	args, ok := findCallArguments(resp.Choices)
	if !ok {
		return infill.Failure(infill.FailureMalformedResponse, MessageMalformed)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(args), &decoded); err != nil {
		return infill.Failure(infill.FailureMalformedResponse, MessageMalformed)
	}
	if err := replacementSchema.Validate(decoded); err != nil {
		return infill.Failure(infill.FailureMalformedResponse, MessageMalformed)
	}

	text, ok := decoded[ReplacementField].(string)
	if !ok {
		return infill.Failure(infill.FailureMalformedResponse, MessageMalformed)
	}
	return infill.Replacement(text)
}

// findCallArguments returns the arguments of the first call to FunctionName
// across all choices, checking tool calls before the legacy function call.
func findCallArguments(choices []*infill.ContentChoice) (string, bool) {
	for _, choice := range choices {
		if choice == nil {
			continue
		}
		for _, call := range choice.ToolCalls {
			if call.FunctionCall != nil && call.FunctionCall.Name == FunctionName {
				return call.FunctionCall.Arguments, true
			}
		}
		if choice.FuncCall != nil && choice.FuncCall.Name == FunctionName {
			return choice.FuncCall.Arguments, true
		}
	}
	return "", false
}

// Compile-time check that Client implements infill.Generator.
var _ infill.Generator = (*Client)(nil)
