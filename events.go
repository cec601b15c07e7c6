package infill

import "time"

// State is a Trigger Controller state.
type State string

const (
	StateIdle                 State = "idle"
	StatePendingTrigger       State = "pending_trigger"
	StateDetecting            State = "detecting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateGenerating           State = "generating"
	StateAwaitingUserDecision State = "awaiting_user_decision"
	StateApplying             State = "applying"
)

// Busy reports whether a cycle in this state blocks a new one from
// starting.
func (s State) Busy() bool {
	switch s {
	case StateAwaitingConfirmation, StateGenerating, StateAwaitingUserDecision, StateApplying:
		return true
	default:
		return false
	}
}

// Event names.
const (
	EventNameStateChange  = "infill:state_change"
	EventNameDetection    = "infill:detection"
	EventNameGeneration   = "infill:generation"
	EventNameSubstitution = "infill:substitution"
	EventNameError        = "infill:error"
)

// Event is implemented by every controller event.
type Event interface {
	// EventName returns one of the EventName constants.
	EventName() string

	// Base returns the common fields.
	Base() *BaseEvent
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Name      string    `yaml:"name"`
	Timestamp time.Time `yaml:"timestamp"`

	// CycleID identifies one detection-to-idle cycle. Empty for events
	// emitted outside a cycle.
	CycleID string `yaml:"cycle_id,omitempty"`
}

// EventName implements Event.
func (b *BaseEvent) EventName() string { return b.Name }

// Base implements Event.
func (b *BaseEvent) Base() *BaseEvent { return b }

// StateChangeEvent is emitted on every controller state transition.
type StateChangeEvent struct {
	BaseEvent `yaml:",inline"`
	From      State `yaml:"from"`
	To        State `yaml:"to"`
}

// DetectionEvent is emitted after each detection pass. Match is nil when
// nothing was found.
type DetectionEvent struct {
	BaseEvent `yaml:",inline"`
	Match     *Match       `yaml:"match,omitempty"`
	Scope     TriggerScope `yaml:"scope"`

	// Explicit is true when the pass came from an invoke-now action rather
	// than the debounce timer.
	Explicit bool `yaml:"explicit"`
}

// GenerationEvent is emitted when the generation client returns.
type GenerationEvent struct {
	BaseEvent `yaml:",inline"`
	Model     string           `yaml:"model"`
	Window    ContextWindow    `yaml:"window"`
	Result    GenerationResult `yaml:"result"`
	Duration  time.Duration    `yaml:"duration"`
}

// SubstitutionEvent is emitted after the user confirms a candidate.
type SubstitutionEvent struct {
	BaseEvent   `yaml:",inline"`
	Match       Match    `yaml:"match"`
	Replacement string   `yaml:"replacement"`
	Cursor      Position `yaml:"cursor"`

	// Positional is true when the recorded offsets were still valid and no
	// literal search was needed.
	Positional bool `yaml:"positional"`

	// Err is ErrStaleMatch when the match text had disappeared.
	Err error `yaml:"-"`
}

// ErrorEvent is emitted for configuration problems and dialog failures.
type ErrorEvent struct {
	BaseEvent `yaml:",inline"`
	Kind      ErrorKind `yaml:"kind"`
	Err       error     `yaml:"-"`
}

// Subscriber interfaces. Implement any combination on one struct; the events
// registry calls only the ones implemented.

// StateChangeSubscriber receives StateChangeEvent events.
type StateChangeSubscriber interface {
	OnStateChange(event *StateChangeEvent)
}

// DetectionSubscriber receives DetectionEvent events.
type DetectionSubscriber interface {
	OnDetection(event *DetectionEvent)
}

// GenerationSubscriber receives GenerationEvent events.
type GenerationSubscriber interface {
	OnGeneration(event *GenerationEvent)
}

// SubstitutionSubscriber receives SubstitutionEvent events.
type SubstitutionSubscriber interface {
	OnSubstitution(event *SubstitutionEvent)
}

// ErrorSubscriber receives ErrorEvent events.
type ErrorSubscriber interface {
	OnError(event *ErrorEvent)
}
