package infill

import (
	"fmt"
	"time"
)

// Documented defaults.
const (
	DefaultModel          = "gpt-3.5-turbo"
	DefaultTriggerPattern = `@\[(.*?)\]`
	DefaultWindowSize     = 8000
	DefaultDebounceMs     = 2000

	// DefaultSystemPrompt instructs the backend to answer only through the
	// replacement function.
	DefaultSystemPrompt = "You are a writing assistant embedded in a text editor. " +
		"The user has marked a span of their document with an instruction. " +
		"Write the text that should replace the marked span so that it fits " +
		"naturally into the surrounding document. Do not repeat the surrounding " +
		"text, do not add commentary, and do not wrap the result in markdown " +
		"fences. Always answer by calling the provided function."
)

// TriggerScope selects where the trigger matcher looks.
type TriggerScope string

const (
	// ScopeDocument scans the whole document.
	ScopeDocument TriggerScope = "document"

	// ScopeLine scans only the line holding the cursor.
	ScopeLine TriggerScope = "line"
)

// Settings is the flat, process-wide configuration record.
//
// Settings are read, never mutated, during a generation cycle. Changes go
// through an explicit settings-change action (see the settings package),
// after which the generation client and controller are reconfigured.
type Settings struct {
	// APIKey is the backend credential.
	APIKey string `yaml:"openaiApiKey" mapstructure:"openaiApiKey"`

	// BaseURL optionally points at an OpenAI-compatible endpoint.
	BaseURL string `yaml:"customURL,omitempty" mapstructure:"customURL"`

	// Model is the backend model identifier.
	Model string `yaml:"model" mapstructure:"model"`

	// TriggerPattern is a regular expression with exactly one capturing
	// group holding the payload.
	TriggerPattern string `yaml:"triggerRegex" mapstructure:"triggerRegex"`

	// WindowSize is the context budget in characters.
	WindowSize int `yaml:"windowSize" mapstructure:"windowSize"`

	// DebounceMs is the quiet period after an edit before detection runs.
	DebounceMs int `yaml:"debounceMs" mapstructure:"debounceMs"`

	// SystemPrompt is the persona/policy text sent as the system message.
	SystemPrompt string `yaml:"systemPrompt" mapstructure:"systemPrompt"`

	// TriggerScope selects whole-document or current-line detection.
	TriggerScope TriggerScope `yaml:"triggerScope" mapstructure:"triggerScope"`
}

// DefaultSettings returns the documented defaults. APIKey is empty.
func DefaultSettings() Settings {
	return Settings{
		Model:          DefaultModel,
		TriggerPattern: DefaultTriggerPattern,
		WindowSize:     DefaultWindowSize,
		DebounceMs:     DefaultDebounceMs,
		SystemPrompt:   DefaultSystemPrompt,
		TriggerScope:   ScopeDocument,
	}
}

// Merge returns s with every non-zero field of override applied on top.
// Unset fields keep the value from s.
func (s Settings) Merge(override Settings) Settings {
	if override.APIKey != "" {
		s.APIKey = override.APIKey
	}
	if override.BaseURL != "" {
		s.BaseURL = override.BaseURL
	}
	if override.Model != "" {
		s.Model = override.Model
	}
	if override.TriggerPattern != "" {
		s.TriggerPattern = override.TriggerPattern
	}
	if override.WindowSize != 0 {
		s.WindowSize = override.WindowSize
	}
	if override.DebounceMs != 0 {
		s.DebounceMs = override.DebounceMs
	}
	if override.SystemPrompt != "" {
		s.SystemPrompt = override.SystemPrompt
	}
	if override.TriggerScope != "" {
		s.TriggerScope = override.TriggerScope
	}
	return s
}

// Validate checks every field that can make a cycle fail before it starts.
// A missing API key is not a validation error: the generation client
// reports it as NoBackendConfigured.
func (s Settings) Validate() error {
	if _, err := CompileTriggerPattern(s.TriggerPattern); err != nil {
		return err
	}
	if s.WindowSize <= 0 {
		return fmt.Errorf("%w: windowSize must be positive, got %d", ErrInvalidSettings, s.WindowSize)
	}
	if s.DebounceMs < 0 {
		return fmt.Errorf("%w: debounceMs must not be negative, got %d", ErrInvalidSettings, s.DebounceMs)
	}
	switch s.TriggerScope {
	case "", ScopeDocument, ScopeLine:
	default:
		return fmt.Errorf("%w: unknown triggerScope %q", ErrInvalidSettings, s.TriggerScope)
	}
	return nil
}

// Debounce returns DebounceMs as a duration.
func (s Settings) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// Scope returns the configured scope, defaulting to ScopeDocument.
func (s Settings) Scope() TriggerScope {
	if s.TriggerScope == "" {
		return ScopeDocument
	}
	return s.TriggerScope
}
