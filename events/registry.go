package events

import (
	"sync"

	"github.com/rickchristie/infill"
)

// Registry manages event subscribers and dispatches events to them.
//
// Subscribers can implement any combination of subscriber interfaces - they
// only receive events for the interfaces they implement.
//
//	registry := events.NewRegistry()
//	registry.Subscribe(loggers.NewLoggerHook())
//	registry.Subscribe(metrics.New(prometheus.DefaultRegisterer))
//
//	ctrl, _ := controller.New(controller.Config{Events: registry, ...})
//
// Subscribe and Dispatch may be called concurrently. Subscribers are called
// in registration order on the dispatching goroutine, so they should return
// quickly.
type Registry struct {
	mu          sync.RWMutex
	subscribers []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe adds a subscriber. Returns the registry for chaining.
func (r *Registry) Subscribe(subscriber any) *Registry {
	r.mu.Lock()
	r.subscribers = append(r.subscribers, subscriber)
	r.mu.Unlock()
	return r
}

// Len returns the number of subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}

// Dispatch sends an event to all matching subscribers. A nil registry is a
// no-op.
func (r *Registry) Dispatch(event infill.Event) {
	if r == nil {
		return
	}
	r.mu.RLock()
	subs := make([]any, len(r.subscribers))
	copy(subs, r.subscribers)
	r.mu.RUnlock()

	switch e := event.(type) {
	case *infill.StateChangeEvent:
		for _, s := range subs {
			if sub, ok := s.(infill.StateChangeSubscriber); ok {
				sub.OnStateChange(e)
			}
		}
	case *infill.DetectionEvent:
		for _, s := range subs {
			if sub, ok := s.(infill.DetectionSubscriber); ok {
				sub.OnDetection(e)
			}
		}
	case *infill.GenerationEvent:
		for _, s := range subs {
			if sub, ok := s.(infill.GenerationSubscriber); ok {
				sub.OnGeneration(e)
			}
		}
	case *infill.SubstitutionEvent:
		for _, s := range subs {
			if sub, ok := s.(infill.SubstitutionSubscriber); ok {
				sub.OnSubstitution(e)
			}
		}
	case *infill.ErrorEvent:
		for _, s := range subs {
			if sub, ok := s.(infill.ErrorSubscriber); ok {
				sub.OnError(e)
			}
		}
	}
}
