package tt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rickchristie/infill"
	"github.com/tmc/langchaingo/llms"
)

// -----------------------------------------------------------------------------
// MockModel - implements infill.Model with queued responses
// -----------------------------------------------------------------------------

// MockModel is a configurable mock that implements infill.Model. Responses
// and errors are consumed in call order; once the queue is exhausted it
// returns an empty response.
type MockModel struct {
	mu        sync.Mutex
	responses []*infill.ContentResponse
	errors    []error
	callCount int

	// CapturedMessages stores the messages passed to each GenerateContent
	// call.
	CapturedMessages [][]llms.MessageContent

	// CapturedOptions stores the resolved call options of each call.
	CapturedOptions []llms.CallOptions
}

// NewMockModel creates a new MockModel.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// AddReplacement queues a response that calls the replacement function with
// text as its only argument.
func (m *MockModel) AddReplacement(text string) *MockModel {
	args, _ := json.Marshal(map[string]any{"selectionReplacement": text})
	return m.AddToolCall("replace_selection", string(args))
}

// AddToolCall queues a response with a single tool call.
func (m *MockModel) AddToolCall(name, arguments string) *MockModel {
	return m.AddRawResponse(&infill.ContentResponse{
		Choices: []*infill.ContentChoice{{
			StopReason: "tool_calls",
			ToolCalls: []llms.ToolCall{{
				ID:   "call_mock",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      name,
					Arguments: arguments,
				},
			}},
		}},
		Info: &infill.GenerationInfo{InputTokens: 10, OutputTokens: 5},
	})
}

// AddText queues a free-text response with no tool call.
func (m *MockModel) AddText(content string) *MockModel {
	return m.AddRawResponse(&infill.ContentResponse{
		Choices: []*infill.ContentChoice{{Content: content, StopReason: "stop"}},
		Info:    &infill.GenerationInfo{InputTokens: 10, OutputTokens: 5},
	})
}

// AddRawResponse queues a raw ContentResponse.
// Use this when you need full control over the response
// structure (e.g., empty Choices slice).
func (m *MockModel) AddRawResponse(resp *infill.ContentResponse) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errors = append(m.errors, nil)
	return m
}

// AddError queues an error for the next call.
func (m *MockModel) AddError(err error) *MockModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, nil)
	m.errors = append(m.errors, err)
	return m
}

// CallCount returns the number of times GenerateContent has been called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// GenerateContent implements infill.Model.
func (m *MockModel) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*infill.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.callCount
	m.callCount++

	var resolved llms.CallOptions
	for _, opt := range options {
		opt(&resolved)
	}
	m.CapturedMessages = append(m.CapturedMessages, messages)
	m.CapturedOptions = append(m.CapturedOptions, resolved)

	if idx < len(m.errors) && m.errors[idx] != nil {
		return nil, m.errors[idx]
	}
	if idx < len(m.responses) && m.responses[idx] != nil {
		return m.responses[idx], nil
	}
	return &infill.ContentResponse{Info: &infill.GenerationInfo{}}, nil
}

// Compile-time check that MockModel implements infill.Model.
var _ infill.Model = (*MockModel)(nil)

// -----------------------------------------------------------------------------
// GeneratorFunc - adapts a function to infill.Generator
// -----------------------------------------------------------------------------

// GeneratorFunc adapts a plain function to infill.Generator.
type GeneratorFunc func(ctx context.Context, req infill.GenerationRequest) infill.GenerationResult

// Generate implements infill.Generator.
func (f GeneratorFunc) Generate(ctx context.Context, req infill.GenerationRequest) infill.GenerationResult {
	return f(ctx, req)
}

// StaticGenerator returns a Generator that always returns result and records
// the requests it received.
type StaticGenerator struct {
	mu       sync.Mutex
	result   infill.GenerationResult
	requests []infill.GenerationRequest
}

// NewStaticGenerator creates a StaticGenerator.
func NewStaticGenerator(result infill.GenerationResult) *StaticGenerator {
	return &StaticGenerator{result: result}
}

// Generate implements infill.Generator.
func (g *StaticGenerator) Generate(_ context.Context, req infill.GenerationRequest) infill.GenerationResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	return g.result
}

// Requests returns the received requests.
func (g *StaticGenerator) Requests() []infill.GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]infill.GenerationRequest(nil), g.requests...)
}

// -----------------------------------------------------------------------------
// ScriptedPrompter - answers both dialog stages from a script
// -----------------------------------------------------------------------------

// ScriptedPrompter answers the two confirmation dialogs from queued answers.
// When a queue is exhausted it answers true. It records everything it was
// shown.
type ScriptedPrompter struct {
	mu                 sync.Mutex
	triggerAnswers     []bool
	replacementAnswers []bool
	err                error

	triggers   []infill.Match
	candidates []string
	failures   []infill.GenerationResult
}

// NewScriptedPrompter creates a ScriptedPrompter that accepts everything.
func NewScriptedPrompter() *ScriptedPrompter {
	return &ScriptedPrompter{}
}

// AnswerTrigger queues answers for the first-stage dialog.
func (p *ScriptedPrompter) AnswerTrigger(answers ...bool) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triggerAnswers = append(p.triggerAnswers, answers...)
	return p
}

// AnswerReplacement queues answers for the second-stage dialog.
func (p *ScriptedPrompter) AnswerReplacement(answers ...bool) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replacementAnswers = append(p.replacementAnswers, answers...)
	return p
}

// FailWith makes every dialog return err.
func (p *ScriptedPrompter) FailWith(err error) *ScriptedPrompter {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
	return p
}

// ConfirmTrigger answers the first-stage dialog.
func (p *ScriptedPrompter) ConfirmTrigger(_ context.Context, match infill.Match) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triggers = append(p.triggers, match)
	if p.err != nil {
		return false, p.err
	}
	return pop(&p.triggerAnswers), nil
}

// ConfirmReplacement answers the second-stage dialog.
func (p *ScriptedPrompter) ConfirmReplacement(_ context.Context, _ infill.Match, candidate string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.candidates = append(p.candidates, candidate)
	if p.err != nil {
		return false, p.err
	}
	return pop(&p.replacementAnswers), nil
}

// ReportFailure records a failure routed away from the confirmation flow.
func (p *ScriptedPrompter) ReportFailure(_ context.Context, _ infill.Match, result infill.GenerationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, result)
}

// Triggers returns the matches shown in the first-stage dialog.
func (p *ScriptedPrompter) Triggers() []infill.Match {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]infill.Match(nil), p.triggers...)
}

// Candidates returns the candidates shown in the second-stage dialog.
func (p *ScriptedPrompter) Candidates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.candidates...)
}

// Failures returns the failures reported outside the confirmation flow.
func (p *ScriptedPrompter) Failures() []infill.GenerationResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]infill.GenerationResult(nil), p.failures...)
}

func pop(queue *[]bool) bool {
	if len(*queue) == 0 {
		return true
	}
	v := (*queue)[0]
	*queue = (*queue)[1:]
	return v
}
