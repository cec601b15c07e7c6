// Package controller implements the trigger controller: the state machine
// that debounces document edits, detects a trigger, asks the user, runs the
// generation client, and applies the confirmed replacement.
//
//	idle -> pending_trigger -> detecting -> awaiting_confirmation
//	     -> generating -> awaiting_user_decision -> applying -> idle
//
// An explicit Invoke skips pending_trigger. A declined dialog, a missing
// match, or a cancelled candidate returns to idle without touching the
// document.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/rickchristie/infill"
	"github.com/rickchristie/infill/events"
)

// Prompter is the two-stage dialog surface.
//
// Both methods may block until the user answers; the controller calls them
// from a cycle goroutine, never while holding its lock. ctx is cancelled when
// the controller is closed. An error is treated as a decline.
type Prompter interface {
	// ConfirmTrigger shows the match payload and asks whether to generate.
	ConfirmTrigger(ctx context.Context, match infill.Match) (bool, error)

	// ConfirmReplacement shows the candidate text and asks whether to apply
	// it in place of match.
	ConfirmReplacement(ctx context.Context, match infill.Match, candidate string) (bool, error)
}

// FailureReporter is implemented by prompters that can show a generation
// failure outside the confirmation flow. It is used with FailureReport.
type FailureReporter interface {
	ReportFailure(ctx context.Context, match infill.Match, result infill.GenerationResult)
}

// FailurePolicy decides what happens to a failed generation.
type FailurePolicy int

const (
	// FailureOfferAsCandidate shows the failure message in the second
	// dialog exactly like a replacement, so confirming it writes the message
	// into the document. This is the historical behavior.
	FailureOfferAsCandidate FailurePolicy = iota

	// FailureReport sends failures to FailureReporter and ends the cycle
	// without offering anything for substitution.
	FailureReport
)

// Config configures a Controller.
type Config struct {
	// Settings in effect. Zero fields take the documented defaults.
	Settings infill.Settings

	// Document is the edited document. Required.
	Document infill.Document

	// Generator produces replacements. Required.
	Generator infill.Generator

	// Prompter asks the user. Required.
	Prompter Prompter

	// Events receives controller events. Optional.
	Events *events.Registry

	// Time drives the debounce timer. Defaults to the system clock.
	Time infill.TimeProvider

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// FailurePolicy defaults to FailureOfferAsCandidate.
	FailurePolicy FailurePolicy
}

// Controller is the trigger controller for one document. All state changes
// happen under one lock, which stands in for the editor's event thread.
type Controller struct {
	doc      infill.Document
	gen      infill.Generator
	prompter Prompter
	events   *events.Registry
	clock    infill.TimeProvider
	logger   *slog.Logger
	policy   FailurePolicy

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	settings infill.Settings
	pattern  *infill.TriggerPattern
	state    infill.State
	debounce *debouncer
	closed   bool
}

// cycle is the data owned by one in-flight generation cycle.
type cycle struct {
	id       string
	match    infill.Match
	snapshot string
	settings infill.Settings
}

// New creates a Controller in the idle state.
//
// An invalid trigger pattern does not fail construction: the default pattern
// is used instead and an ErrorEvent reports the problem.
func New(cfg Config) (*Controller, error) {
	if cfg.Document == nil {
		return nil, errors.New("controller: Document is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("controller: Generator is required")
	}
	if cfg.Prompter == nil {
		return nil, errors.New("controller: Prompter is required")
	}

	c := &Controller{
		doc:      cfg.Document,
		gen:      cfg.Generator,
		prompter: cfg.Prompter,
		events:   cfg.Events,
		clock:    cfg.Time,
		logger:   cfg.Logger,
		policy:   cfg.FailurePolicy,
		state:    infill.StateIdle,
	}
	if c.clock == nil {
		c.clock = infill.NewDefaultTimeProvider()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())

	settings := infill.DefaultSettings().Merge(cfg.Settings)
	c.debounce = newDebouncer(c.clock, settings.Debounce())

	c.mu.Lock()
	c.applySettingsLocked(settings)
	c.mu.Unlock()

	return c, nil
}

// State returns the current state.
func (c *Controller) State() infill.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Settings returns the settings in effect.
func (c *Controller) Settings() infill.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// OnChange is the document-change notification. It (re)starts the debounce
// timer; only the last change in a burst leads to a detection pass. Changes
// are ignored while a cycle is past detection.
func (c *Controller) OnChange() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if c.state.Busy() {
		c.logger.Debug("change ignored: cycle active", "state", c.state)
		return
	}

	c.setStateLocked("", infill.StatePendingTrigger)
	c.debounce.schedule(c.onTimer)
}

// Invoke runs detection immediately, cancelling any pending debounce.
// It returns ErrBusy when a cycle is active and ErrNoMatch when the
// document holds no trigger. On a match the cycle continues in the
// background; use Wait to block until it ends.
func (c *Controller) Invoke() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("controller: closed")
	}
	if c.state.Busy() {
		return infill.ErrBusy
	}

	c.debounce.cancel()
	if !c.detectLocked(true) {
		return infill.ErrNoMatch
	}
	return nil
}

// UpdateSettings validates and installs new settings. Cycles already in
// flight keep the settings they started with.
func (c *Controller) UpdateSettings(settings infill.Settings) error {
	settings = infill.DefaultSettings().Merge(settings)
	if err := settings.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.applySettingsLocked(settings)
	return nil
}

// Wait blocks until no cycle goroutine is running.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels the pending timer, cancels open dialogs, and waits for the
// in-flight cycle to finish. A running generation is not interrupted.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.debounce.cancel()
	if c.state == infill.StatePendingTrigger {
		c.setStateLocked("", infill.StateIdle)
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (c *Controller) applySettingsLocked(settings infill.Settings) {
	pattern, err := infill.CompileTriggerPatternOrDefault(settings.TriggerPattern)
	if err != nil {
		c.logger.Warn("invalid trigger pattern, using default",
			"pattern", settings.TriggerPattern,
			"default", infill.DefaultTriggerPattern,
			"error", err,
		)
		c.dispatch(&infill.ErrorEvent{
			BaseEvent: c.base(infill.EventNameError, ""),
			Kind:      infill.ErrorKindConfiguration,
			Err:       err,
		})
	}
	c.settings = settings
	c.pattern = pattern
	c.debounce.delay = settings.Debounce()
}

// onTimer runs on the timer goroutine.
func (c *Controller) onTimer(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.debounce.current(seq) {
		return
	}
	c.debounce.fired()
	if c.state != infill.StatePendingTrigger {
		return
	}
	c.detectLocked(false)
}

// detectLocked reads the current document, looks for a trigger, and starts a
// cycle goroutine on a match. It reports whether a match was found.
func (c *Controller) detectLocked(explicit bool) bool {
	id := uuid.NewString()
	c.setStateLocked(id, infill.StateDetecting)

	text := c.doc.GetValue()
	scope := c.settings.Scope()

	var match *infill.Match
	switch scope {
	case infill.ScopeLine:
		match = infill.FindTriggerInLine(text, c.doc.GetCursor().Line, c.pattern)
	default:
		match = infill.FindTrigger(text, c.pattern)
	}

	c.dispatch(&infill.DetectionEvent{
		BaseEvent: c.base(infill.EventNameDetection, id),
		Match:     match,
		Scope:     scope,
		Explicit:  explicit,
	})

	if match == nil {
		c.setStateLocked(id, infill.StateIdle)
		return false
	}

	c.setStateLocked(id, infill.StateAwaitingConfirmation)
	cy := &cycle{
		id:       id,
		match:    *match,
		snapshot: text,
		settings: c.settings,
	}
	c.wg.Add(1)
	go c.run(cy)
	return true
}

// run drives one cycle from confirmation to idle.
func (c *Controller) run(cy *cycle) {
	defer c.wg.Done()
	logger := c.logger.With("cycle_id", cy.id)

	ok, err := c.prompter.ConfirmTrigger(c.ctx, cy.match)
	if err != nil {
		c.dialogFailed(cy, "trigger confirmation", err)
		return
	}
	if !ok {
		logger.Debug("trigger declined", "payload", cy.match.Payload)
		c.finish(cy)
		return
	}

	c.setState(cy, infill.StateGenerating)
	window := infill.BuildWindow(cy.snapshot, cy.match, cy.settings.WindowSize)
	req := infill.NewGenerationRequest(cy.settings, window)

	// Edits and Close must not abort the backend call.
	start := c.clock.Now()
	result := c.gen.Generate(context.WithoutCancel(c.ctx), req)
	c.dispatch(&infill.GenerationEvent{
		BaseEvent: c.base(infill.EventNameGeneration, cy.id),
		Model:     cy.settings.Model,
		Window:    window,
		Result:    result,
		Duration:  c.clock.Now().Sub(start),
	})

	if !result.OK() {
		logger.Info("generation failed", "failure", result.Failure.String())
		if c.policy == FailureReport {
			if reporter, ok := c.prompter.(FailureReporter); ok {
				reporter.ReportFailure(c.ctx, cy.match, result)
			} else {
				logger.Warn("prompter cannot report failures", "message", result.Message)
			}
			c.finish(cy)
			return
		}
	}

	candidate := result.Candidate()
	c.setState(cy, infill.StateAwaitingUserDecision)
	ok, err = c.prompter.ConfirmReplacement(c.ctx, cy.match, candidate)
	if err != nil {
		c.dialogFailed(cy, "replacement confirmation", err)
		return
	}
	if !ok {
		logger.Debug("replacement cancelled")
		c.finish(cy)
		return
	}

	c.apply(cy, candidate)
}

// apply substitutes the candidate. The document is written outside the lock
// so a host that notifies synchronously from SetValue sees the applying
// state and does not start a new cycle.
func (c *Controller) apply(cy *cycle, replacement string) {
	c.setState(cy, infill.StateApplying)

	current := c.doc.GetValue()
	updated, cursor, positional, err := infill.ApplyMatch(current, cy.match, replacement)
	if err == nil {
		c.doc.SetValue(updated)
		c.doc.SetCursor(cursor)
	} else {
		c.logger.Warn("substitution skipped",
			"cycle_id", cy.id,
			"match", cy.match.FullText,
			"error", err,
		)
	}

	c.dispatch(&infill.SubstitutionEvent{
		BaseEvent:   c.base(infill.EventNameSubstitution, cy.id),
		Match:       cy.match,
		Replacement: replacement,
		Cursor:      cursor,
		Positional:  positional,
		Err:         err,
	})
	c.finish(cy)
}

func (c *Controller) dialogFailed(cy *cycle, stage string, err error) {
	if !errors.Is(err, context.Canceled) {
		c.logger.Warn("dialog failed", "cycle_id", cy.id, "stage", stage, "error", err)
	}
	c.dispatch(&infill.ErrorEvent{
		BaseEvent: c.base(infill.EventNameError, cy.id),
		Err:       fmt.Errorf("%s: %w", stage, err),
	})
	c.finish(cy)
}

func (c *Controller) finish(cy *cycle) {
	c.setState(cy, infill.StateIdle)
}

func (c *Controller) setState(cy *cycle, to infill.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setStateLocked(cy.id, to)
}

func (c *Controller) setStateLocked(cycleID string, to infill.State) {
	from := c.state
	if from == to {
		return
	}
	c.state = to
	c.dispatch(&infill.StateChangeEvent{
		BaseEvent: c.base(infill.EventNameStateChange, cycleID),
		From:      from,
		To:        to,
	})
}

func (c *Controller) base(name, cycleID string) infill.BaseEvent {
	return infill.BaseEvent{
		Name:      name,
		Timestamp: c.clock.Now(),
		CycleID:   cycleID,
	}
}

func (c *Controller) dispatch(e infill.Event) {
	c.events.Dispatch(e)
}
