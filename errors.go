package infill

import "errors"

// Configuration errors.
var (
	// ErrInvalidPattern is returned when a trigger pattern does not compile or
	// does not have exactly one capturing group.
	ErrInvalidPattern = errors.New("infill: invalid trigger pattern")

	// ErrMissingAPIKey is returned when no backend credential is configured.
	ErrMissingAPIKey = errors.New("infill: no API key configured")

	// ErrInvalidSettings is returned when a settings field is out of range.
	ErrInvalidSettings = errors.New("infill: invalid settings")
)

// Cycle outcomes.
var (
	// ErrNoMatch signals that detection found no trigger. It is a normal
	// negative outcome, never shown to the user.
	ErrNoMatch = errors.New("infill: no trigger found")

	// ErrStaleMatch is returned when the matched text is no longer present
	// in the document at substitution time.
	ErrStaleMatch = errors.New("infill: matched text no longer in document")

	// ErrBusy is returned when a cycle is requested while another one is
	// already past detection.
	ErrBusy = errors.New("infill: a generation cycle is already active")
)

// ErrorKind classifies failures for telemetry and display.
type ErrorKind string

const (
	// ErrorKindConfiguration covers malformed trigger patterns and missing
	// credentials.
	ErrorKindConfiguration ErrorKind = "configuration"

	// ErrorKindTransport covers unreachable backends, rejected auth, and
	// rate limiting.
	ErrorKindTransport ErrorKind = "transport"

	// ErrorKindProtocol covers responses that did not come through the
	// required structured call.
	ErrorKindProtocol ErrorKind = "protocol"
)

// KindOf maps an error to its ErrorKind. Errors outside the configuration
// sentinels are reported as transport errors.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidPattern),
		errors.Is(err, ErrMissingAPIKey),
		errors.Is(err, ErrInvalidSettings):
		return ErrorKindConfiguration
	default:
		return ErrorKindTransport
	}
}
