// Package events provides the subscriber registry for controller events.
//
// # Overview
//
// The controller publishes an [infill.Event] on every state transition,
// detection pass, generation, and substitution. Subscribers registered with
// a [Registry] receive them through type-safe interfaces defined in the
// root package.
//
// # Quick Start
//
//	type CountingSubscriber struct{ generations int }
//
//	func (s *CountingSubscriber) OnGeneration(event *infill.GenerationEvent) {
//	    s.generations++
//	}
//
//	registry := events.NewRegistry()
//	registry.Subscribe(&CountingSubscriber{})
//
// # Available Interfaces
//
//   - [infill.StateChangeSubscriber]
//   - [infill.DetectionSubscriber]
//   - [infill.GenerationSubscriber]
//   - [infill.SubstitutionSubscriber]
//   - [infill.ErrorSubscriber]
package events
