package tt

import (
	"sync"

	"github.com/rickchristie/infill"
)

// RecordingSubscriber implements every subscriber interface and keeps the
// events it receives, in order.
type RecordingSubscriber struct {
	mu     sync.Mutex
	events []infill.Event
}

// NewRecordingSubscriber creates an empty RecordingSubscriber.
func NewRecordingSubscriber() *RecordingSubscriber {
	return &RecordingSubscriber{}
}

func (r *RecordingSubscriber) record(e infill.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *RecordingSubscriber) OnStateChange(e *infill.StateChangeEvent)   { r.record(e) }
func (r *RecordingSubscriber) OnDetection(e *infill.DetectionEvent)       { r.record(e) }
func (r *RecordingSubscriber) OnGeneration(e *infill.GenerationEvent)     { r.record(e) }
func (r *RecordingSubscriber) OnSubstitution(e *infill.SubstitutionEvent) { r.record(e) }
func (r *RecordingSubscriber) OnError(e *infill.ErrorEvent)               { r.record(e) }

// Events returns a copy of all recorded events.
func (r *RecordingSubscriber) Events() []infill.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]infill.Event(nil), r.events...)
}

// Transitions returns the target state of every state change, in order.
func (r *RecordingSubscriber) Transitions() []infill.State {
	var out []infill.State
	for _, e := range r.Events() {
		if sc, ok := e.(*infill.StateChangeEvent); ok {
			out = append(out, sc.To)
		}
	}
	return out
}

// Detections returns every detection event.
func (r *RecordingSubscriber) Detections() []*infill.DetectionEvent {
	return collect[*infill.DetectionEvent](r)
}

// Generations returns every generation event.
func (r *RecordingSubscriber) Generations() []*infill.GenerationEvent {
	return collect[*infill.GenerationEvent](r)
}

// Substitutions returns every substitution event.
func (r *RecordingSubscriber) Substitutions() []*infill.SubstitutionEvent {
	return collect[*infill.SubstitutionEvent](r)
}

// Errors returns every error event.
func (r *RecordingSubscriber) Errors() []*infill.ErrorEvent {
	return collect[*infill.ErrorEvent](r)
}

func collect[T infill.Event](r *RecordingSubscriber) []T {
	var out []T
	for _, e := range r.Events() {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
