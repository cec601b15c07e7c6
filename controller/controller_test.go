package controller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickchristie/infill"
	"github.com/rickchristie/infill/events"
	"github.com/rickchristie/infill/generator"
	"github.com/rickchristie/infill/internal/tt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

type fixture struct {
	ctrl     *Controller
	doc      *infill.MemoryDocument
	clock    *infill.MockTimeProvider
	prompter *tt.ScriptedPrompter
	recorder *tt.RecordingSubscriber
}

type fixtureOption func(*Config)

func newFixture(t *testing.T, text string, gen infill.Generator, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		doc:      infill.NewMemoryDocument(text),
		clock:    infill.NewMockTimeProvider(epoch),
		prompter: tt.NewScriptedPrompter(),
		recorder: tt.NewRecordingSubscriber(),
	}
	cfg := Config{
		Settings:  infill.DefaultSettings(),
		Document:  f.doc,
		Generator: gen,
		Prompter:  f.prompter,
		Events:    events.NewRegistry().Subscribe(f.recorder),
		Time:      f.clock,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctrl, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)
	f.ctrl = ctrl
	return f
}

func withSettings(fn func(*infill.Settings)) fixtureOption {
	return func(c *Config) { fn(&c.Settings) }
}

func TestNew_RequiresCollaborators(t *testing.T) {
	doc := infill.NewMemoryDocument("")
	gen := tt.NewStaticGenerator(infill.Replacement("x"))
	prompter := tt.NewScriptedPrompter()

	_, err := New(Config{Generator: gen, Prompter: prompter})
	assert.Error(t, err)
	_, err = New(Config{Document: doc, Prompter: prompter})
	assert.Error(t, err)
	_, err = New(Config{Document: doc, Generator: gen})
	assert.Error(t, err)
}

func TestController_DebounceCoalescesBurst(t *testing.T) {
	f := newFixture(t, "nothing to see", tt.NewStaticGenerator(infill.Replacement("x")))

	f.ctrl.OnChange()
	assert.Equal(t, infill.StatePendingTrigger, f.ctrl.State())

	f.clock.Advance(100 * time.Millisecond)
	f.ctrl.OnChange()
	assert.Equal(t, 1, f.clock.Pending(), "second change must replace the first timer")

	f.clock.Advance(1999 * time.Millisecond)
	assert.Empty(t, f.recorder.Detections())

	f.clock.Advance(time.Millisecond)
	detections := f.recorder.Detections()
	require.Len(t, detections, 1)
	assert.Equal(t, epoch.Add(2100*time.Millisecond), detections[0].Timestamp)
	assert.False(t, detections[0].Explicit)
	assert.Nil(t, detections[0].Match)

	f.clock.Advance(10 * time.Second)
	assert.Len(t, f.recorder.Detections(), 1)
	assert.Equal(t, infill.StateIdle, f.ctrl.State())
}

func TestController_DetectionReadsCurrentContent(t *testing.T) {
	f := newFixture(t, "draft", tt.NewStaticGenerator(infill.Replacement("done")))

	f.ctrl.OnChange()
	f.doc.SetValue("draft @[finish it]")
	f.clock.Advance(2 * time.Second)
	f.ctrl.Wait()

	assert.Equal(t, "draft done", f.doc.GetValue())
}

func TestController_Scenario(t *testing.T) {
	model := tt.NewMockModel().AddReplacement("This is a one-line summary.")
	client := generator.NewWithModel(model)

	f := newFixture(t, "Summary: @[summarize the above]", client,
		withSettings(func(s *infill.Settings) { s.WindowSize = 100 }))

	f.ctrl.OnChange()
	f.clock.Advance(2 * time.Second)
	f.ctrl.Wait()

	assert.Equal(t, "Summary: This is a one-line summary.", f.doc.GetValue())
	assert.Equal(t, infill.Position{Line: 0, Ch: 36}, f.doc.GetCursor())

	triggers := f.prompter.Triggers()
	require.Len(t, triggers, 1)
	assert.Equal(t, "summarize the above", triggers[0].Payload)
	assert.Equal(t, []string{"This is a one-line summary."}, f.prompter.Candidates())

	generations := f.recorder.Generations()
	require.Len(t, generations, 1)
	assert.Equal(t, "Summary: @[summarize the above]", generations[0].Window.Text)

	assert.Equal(t, []infill.State{
		infill.StatePendingTrigger,
		infill.StateDetecting,
		infill.StateAwaitingConfirmation,
		infill.StateGenerating,
		infill.StateAwaitingUserDecision,
		infill.StateApplying,
		infill.StateIdle,
	}, f.recorder.Transitions())

	subs := f.recorder.Substitutions()
	require.Len(t, subs, 1)
	assert.True(t, subs[0].Positional)
	assert.NoError(t, subs[0].Err)

	// Every event of the cycle shares one id.
	id := generations[0].CycleID
	assert.NotEmpty(t, id)
	assert.Equal(t, id, subs[0].CycleID)
}

func TestController_Invoke(t *testing.T) {
	t.Run("skips debounce", func(t *testing.T) {
		f := newFixture(t, "A @[x] B", tt.NewStaticGenerator(infill.Replacement("X")))

		f.ctrl.OnChange()
		require.NoError(t, f.ctrl.Invoke())
		f.ctrl.Wait()

		assert.Equal(t, "A X B", f.doc.GetValue())
		assert.Equal(t, infill.Position{Line: 0, Ch: 3}, f.doc.GetCursor())
		assert.Equal(t, 0, f.clock.Pending(), "invoke cancels the pending timer")

		detections := f.recorder.Detections()
		require.Len(t, detections, 1)
		assert.True(t, detections[0].Explicit)
	})

	t.Run("no match", func(t *testing.T) {
		f := newFixture(t, "plain text", tt.NewStaticGenerator(infill.Replacement("X")))

		err := f.ctrl.Invoke()
		assert.ErrorIs(t, err, infill.ErrNoMatch)
		assert.Equal(t, infill.StateIdle, f.ctrl.State())
		assert.Empty(t, f.prompter.Triggers())
	})
}

func TestController_UserDeclines(t *testing.T) {
	t.Run("at trigger confirmation", func(t *testing.T) {
		gen := tt.NewStaticGenerator(infill.Replacement("X"))
		f := newFixture(t, "A @[x] B", gen)
		f.prompter.AnswerTrigger(false)

		require.NoError(t, f.ctrl.Invoke())
		f.ctrl.Wait()

		assert.Equal(t, "A @[x] B", f.doc.GetValue())
		assert.Empty(t, gen.Requests())
		assert.Equal(t, infill.StateIdle, f.ctrl.State())
	})

	t.Run("at replacement decision", func(t *testing.T) {
		gen := tt.NewStaticGenerator(infill.Replacement("X"))
		f := newFixture(t, "A @[x] B", gen)
		f.prompter.AnswerReplacement(false)

		require.NoError(t, f.ctrl.Invoke())
		f.ctrl.Wait()

		assert.Equal(t, "A @[x] B", f.doc.GetValue())
		assert.Len(t, gen.Requests(), 1)
		assert.Empty(t, f.recorder.Substitutions())
		assert.Equal(t, infill.StateIdle, f.ctrl.State())
	})
}

func TestController_FailureOfferedAsCandidate(t *testing.T) {
	failure := infill.Failure(infill.FailureEmptyResponse, generator.MessageEmpty)
	f := newFixture(t, "A @[x] B", tt.NewStaticGenerator(failure))

	require.NoError(t, f.ctrl.Invoke())
	f.ctrl.Wait()

	assert.Equal(t, []string{generator.MessageEmpty}, f.prompter.Candidates())
	assert.Equal(t, "A "+generator.MessageEmpty+" B", f.doc.GetValue())
}

func TestController_FailureReported(t *testing.T) {
	failure := infill.Failure(infill.FailureTransportError, generator.MessageTransport)
	f := newFixture(t, "A @[x] B", tt.NewStaticGenerator(failure),
		func(c *Config) { c.FailurePolicy = FailureReport })

	require.NoError(t, f.ctrl.Invoke())
	f.ctrl.Wait()

	assert.Empty(t, f.prompter.Candidates())
	require.Len(t, f.prompter.Failures(), 1)
	assert.Equal(t, infill.FailureTransportError, f.prompter.Failures()[0].Failure)
	assert.Equal(t, "A @[x] B", f.doc.GetValue())
}

func TestController_BusyWhileGenerating(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	gen := tt.GeneratorFunc(func(ctx context.Context, _ infill.GenerationRequest) infill.GenerationResult {
		close(started)
		<-release
		return infill.Replacement("X")
	})

	f := newFixture(t, "A @[x] B", gen)
	require.NoError(t, f.ctrl.Invoke())
	<-started

	assert.Equal(t, infill.StateGenerating, f.ctrl.State())
	assert.ErrorIs(t, f.ctrl.Invoke(), infill.ErrBusy)

	// Edits during generation neither schedule detection nor cancel the call.
	f.doc.SetValue("Prefix. A @[x] B")
	f.ctrl.OnChange()
	assert.Equal(t, 0, f.clock.Pending())
	assert.Equal(t, infill.StateGenerating, f.ctrl.State())

	close(release)
	f.ctrl.Wait()

	// The stale result is still offered and applied by literal search.
	assert.Equal(t, "Prefix. A X B", f.doc.GetValue())
	subs := f.recorder.Substitutions()
	require.Len(t, subs, 1)
	assert.False(t, subs[0].Positional)
	assert.Equal(t, infill.Position{Line: 0, Ch: 11}, subs[0].Cursor)
}

func TestController_MatchRemovedBeforeApply(t *testing.T) {
	release := make(chan struct{})
	gen := tt.GeneratorFunc(func(context.Context, infill.GenerationRequest) infill.GenerationResult {
		<-release
		return infill.Replacement("X")
	})

	f := newFixture(t, "A @[x] B", gen)
	require.NoError(t, f.ctrl.Invoke())
	f.doc.SetValue("rewritten")
	close(release)
	f.ctrl.Wait()

	assert.Equal(t, "rewritten", f.doc.GetValue())
	subs := f.recorder.Substitutions()
	require.Len(t, subs, 1)
	assert.ErrorIs(t, subs[0].Err, infill.ErrStaleMatch)
	assert.Equal(t, infill.StateIdle, f.ctrl.State())
}

func TestController_LineScope(t *testing.T) {
	text := "first @[one]\nsecond @[two]\nthird"
	f := newFixture(t, text, tt.NewStaticGenerator(infill.Replacement("2")),
		withSettings(func(s *infill.Settings) { s.TriggerScope = infill.ScopeLine }))
	f.doc.SetCursor(infill.Position{Line: 1})

	require.NoError(t, f.ctrl.Invoke())
	f.ctrl.Wait()

	assert.Equal(t, "first @[one]\nsecond 2\nthird", f.doc.GetValue())
	assert.Equal(t, infill.Position{Line: 1, Ch: 8}, f.doc.GetCursor())

	f.doc.SetCursor(infill.Position{Line: 2})
	assert.ErrorIs(t, f.ctrl.Invoke(), infill.ErrNoMatch)
}

func TestController_InvalidPatternFallsBackToDefault(t *testing.T) {
	f := newFixture(t, "A @[x] B", tt.NewStaticGenerator(infill.Replacement("X")),
		withSettings(func(s *infill.Settings) { s.TriggerPattern = `@\[(.*` }))

	errs := f.recorder.Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, infill.ErrorKindConfiguration, errs[0].Kind)
	assert.ErrorIs(t, errs[0].Err, infill.ErrInvalidPattern)

	require.NoError(t, f.ctrl.Invoke())
	f.ctrl.Wait()
	assert.Equal(t, "A X B", f.doc.GetValue())
}

func TestController_UpdateSettings(t *testing.T) {
	f := newFixture(t, "A {{x}} B", tt.NewStaticGenerator(infill.Replacement("X")))

	bad := f.ctrl.Settings()
	bad.TriggerPattern = `{{.*}}`
	assert.ErrorIs(t, f.ctrl.UpdateSettings(bad), infill.ErrInvalidPattern)

	good := f.ctrl.Settings()
	good.TriggerPattern = `\{\{(.*?)\}\}`
	good.DebounceMs = 500
	require.NoError(t, f.ctrl.UpdateSettings(good))

	f.ctrl.OnChange()
	f.clock.Advance(500 * time.Millisecond)
	f.ctrl.Wait()

	assert.Equal(t, "A X B", f.doc.GetValue())
}

func TestController_PrompterError(t *testing.T) {
	f := newFixture(t, "A @[x] B", tt.NewStaticGenerator(infill.Replacement("X")))
	f.prompter.FailWith(errors.New("terminal closed"))

	require.NoError(t, f.ctrl.Invoke())
	f.ctrl.Wait()

	assert.Equal(t, "A @[x] B", f.doc.GetValue())
	require.Len(t, f.recorder.Errors(), 1)
	assert.Equal(t, infill.StateIdle, f.ctrl.State())
}

func TestController_CloseCancelsPendingTimer(t *testing.T) {
	f := newFixture(t, "A @[x] B", tt.NewStaticGenerator(infill.Replacement("X")))

	f.ctrl.OnChange()
	f.ctrl.Close()
	f.clock.Advance(time.Minute)

	assert.Empty(t, f.recorder.Detections())
	assert.Equal(t, infill.StateIdle, f.ctrl.State())
	f.ctrl.OnChange()
	assert.Equal(t, infill.StateIdle, f.ctrl.State())
}
