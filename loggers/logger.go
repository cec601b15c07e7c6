// Package loggers provides an event subscriber that prints every controller
// event as readable YAML.
package loggers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rickchristie/infill"
	"gopkg.in/yaml.v3"
)

// LoggerHook implements all subscriber interfaces to log everything that
// happens during a cycle. Structs are logged as YAML with block scalars for
// easy reading. Nothing is truncated.
type LoggerHook struct {
	mu  sync.Mutex
	out io.Writer

	// StateChanges enables logging of every state transition. Off by
	// default because a cycle produces several.
	StateChanges bool
}

// NewLoggerHook creates a new LoggerHook that writes to stdout.
func NewLoggerHook() *LoggerHook {
	return &LoggerHook{
		out: os.Stdout,
	}
}

// NewLoggerHookWithWriter creates a new LoggerHook that writes to the given writer.
func NewLoggerHookWithWriter(w io.Writer) *LoggerHook {
	return &LoggerHook{
		out: w,
	}
}

// logEvent logs an event header with the event timestamp and cycle id.
func (h *LoggerHook) logEvent(title string, base *infill.BaseEvent) {
	timestamp := base.Timestamp.Format("2006-01-02 15:04:05.000")
	if base.CycleID != "" {
		fmt.Fprintf(h.out, "\n>>> [%s]: %s (cycle %s)\n", title, timestamp, base.CycleID)
		return
	}
	fmt.Fprintf(h.out, "\n>>> [%s]: %s\n", title, timestamp)
}

func (h *LoggerHook) logYAML(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		fmt.Fprintf(h.out, "(failed to marshal: %v)\n", err)
		return
	}
	fmt.Fprint(h.out, string(data))
}

// OnStateChange logs a transition when StateChanges is set.
func (h *LoggerHook) OnStateChange(event *infill.StateChangeEvent) {
	if !h.StateChanges {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logEvent("StateChange", &event.BaseEvent)
	fmt.Fprintf(h.out, "%s -> %s\n", event.From, event.To)
}

// OnDetection logs the result of a detection pass.
func (h *LoggerHook) OnDetection(event *infill.DetectionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logEvent("Detection", &event.BaseEvent)
	data := map[string]any{
		"scope":    string(event.Scope),
		"explicit": event.Explicit,
	}
	if event.Match != nil {
		data["match"] = map[string]any{
			"full_text": event.Match.FullText,
			"payload":   event.Match.Payload,
			"start":     event.Match.StartOffset,
			"end":       event.Match.EndOffset,
		}
	} else {
		data["match"] = nil
	}
	h.logYAML(data)
}

// OnGeneration logs the window sent and the result received.
func (h *LoggerHook) OnGeneration(event *infill.GenerationEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logEvent(fmt.Sprintf("Generation: %s", event.Model), &event.BaseEvent)
	fmt.Fprintf(h.out, "Duration: %s\n", event.Duration)
	fmt.Fprintln(h.out, "Window:")
	for _, line := range strings.Split(event.Window.Text, "\n") {
		fmt.Fprintf(h.out, "    %s\n", line)
	}

	result := map[string]any{
		"outcome": event.Result.Failure.String(),
	}
	if event.Result.OK() {
		result["replacement"] = event.Result.Text
	} else {
		result["message"] = event.Result.Message
	}
	h.logYAML(result)
}

// OnSubstitution logs an applied or skipped substitution.
func (h *LoggerHook) OnSubstitution(event *infill.SubstitutionEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logEvent("Substitution", &event.BaseEvent)
	data := map[string]any{
		"match":       event.Match.FullText,
		"replacement": event.Replacement,
		"positional":  event.Positional,
		"cursor":      event.Cursor,
	}
	if event.Err != nil {
		data["error"] = event.Err.Error()
	}
	h.logYAML(data)
}

// OnError logs controller errors.
func (h *LoggerHook) OnError(event *infill.ErrorEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.logEvent("Error", &event.BaseEvent)
	data := map[string]any{
		"kind": string(event.Kind),
	}
	if event.Err != nil {
		data["error"] = event.Err.Error()
	}
	h.logYAML(data)
}

// Compile-time checks.
var (
	_ infill.StateChangeSubscriber  = (*LoggerHook)(nil)
	_ infill.DetectionSubscriber    = (*LoggerHook)(nil)
	_ infill.GenerationSubscriber   = (*LoggerHook)(nil)
	_ infill.SubstitutionSubscriber = (*LoggerHook)(nil)
	_ infill.ErrorSubscriber        = (*LoggerHook)(nil)
)
