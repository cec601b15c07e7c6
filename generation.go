package infill

import (
	"context"
	"fmt"
)

// GenerationRequest is everything the generation client needs for one call.
// It is immutable once constructed.
type GenerationRequest struct {
	systemPrompt  string
	contextWindow string
	targetSpan    string
	modelID       string
}

// NewGenerationRequest builds a request from the settings in effect and the
// window built around the match.
func NewGenerationRequest(settings Settings, window ContextWindow) GenerationRequest {
	return GenerationRequest{
		systemPrompt:  settings.SystemPrompt,
		contextWindow: window.Text,
		targetSpan:    window.MatchFullText,
		modelID:       settings.Model,
	}
}

// SystemPrompt returns the system instruction text.
func (r GenerationRequest) SystemPrompt() string { return r.systemPrompt }

// ContextWindow returns the document excerpt.
func (r GenerationRequest) ContextWindow() string { return r.contextWindow }

// TargetSpan returns the exact text to be replaced.
func (r GenerationRequest) TargetSpan() string { return r.targetSpan }

// ModelID returns the backend model identifier.
func (r GenerationRequest) ModelID() string { return r.modelID }

// FailureKind enumerates why a generation produced no replacement.
type FailureKind int

const (
	// FailureNone means the result holds a replacement.
	FailureNone FailureKind = iota

	// FailureNoBackendConfigured means no credential or client is available.
	FailureNoBackendConfigured

	// FailureEmptyResponse means the backend returned zero candidates.
	FailureEmptyResponse

	// FailureMalformedResponse means the structured call was missing, the
	// field was absent, or the payload did not parse.
	FailureMalformedResponse

	// FailureTransportError covers network, auth, and rate-limit errors.
	FailureTransportError
)

// String returns a stable identifier, used as a metrics label.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNoBackendConfigured:
		return "no_backend_configured"
	case FailureEmptyResponse:
		return "empty_response"
	case FailureMalformedResponse:
		return "malformed_response"
	case FailureTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// ErrorKind maps the failure onto the error taxonomy.
func (k FailureKind) ErrorKind() ErrorKind {
	switch k {
	case FailureNoBackendConfigured:
		return ErrorKindConfiguration
	case FailureEmptyResponse, FailureMalformedResponse:
		return ErrorKindProtocol
	case FailureTransportError:
		return ErrorKindTransport
	default:
		return ""
	}
}

// GenerationResult is either a replacement or a failure with a
// user-displayable message.
type GenerationResult struct {
	// Text is the replacement. Empty on failure.
	Text string

	// Failure is FailureNone on success.
	Failure FailureKind

	// Message describes the failure for display. It never contains raw
	// transport errors.
	Message string
}

// Replacement builds a successful result.
func Replacement(text string) GenerationResult {
	return GenerationResult{Text: text}
}

// Failure builds a failed result.
func Failure(kind FailureKind, message string) GenerationResult {
	return GenerationResult{Failure: kind, Message: message}
}

// OK reports whether the result holds a replacement.
func (r GenerationResult) OK() bool {
	return r.Failure == FailureNone
}

// Candidate returns the text offered to the user: the replacement, or the
// failure message.
func (r GenerationResult) Candidate() string {
	if r.OK() {
		return r.Text
	}
	return r.Message
}

// Generator produces replacement text for a request. Implementations must
// not return errors past this boundary; failures are reported in the
// result.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) GenerationResult
}
