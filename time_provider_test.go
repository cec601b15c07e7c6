package infill

import (
	"testing"
	"time"
)

func TestDefaultTimeProvider_Now(t *testing.T) {
	tp := NewDefaultTimeProvider()

	before := time.Now()
	result := tp.Now()
	after := time.Now()

	if result.Before(before) || result.After(after) {
		t.Errorf("Now() returned time outside expected range")
	}
}

func TestDefaultTimeProvider_AfterFuncStop(t *testing.T) {
	tp := NewDefaultTimeProvider()
	fired := make(chan struct{}, 1)

	timer := tp.AfterFunc(time.Hour, func() { fired <- struct{}{} })
	if !timer.Stop() {
		t.Fatal("Stop() = false on a pending timer")
	}
	if timer.Stop() {
		t.Error("Stop() = true on a stopped timer")
	}
	select {
	case <-fired:
		t.Error("stopped timer fired")
	default:
	}
}

func TestMockTimeProvider_Advance(t *testing.T) {
	start := time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)
	tp := NewMockTimeProvider(start)

	var order []string
	var firedAt []time.Time
	record := func(name string) func() {
		return func() {
			order = append(order, name)
			firedAt = append(firedAt, tp.Now())
		}
	}

	tp.AfterFunc(300*time.Millisecond, record("late"))
	tp.AfterFunc(100*time.Millisecond, record("early"))
	stopped := tp.AfterFunc(200*time.Millisecond, record("stopped"))
	stopped.Stop()

	if got := tp.Pending(); got != 2 {
		t.Fatalf("Pending() = %d, want 2", got)
	}

	tp.Advance(250 * time.Millisecond)
	if len(order) != 1 || order[0] != "early" {
		t.Fatalf("fired %v after 250ms, want [early]", order)
	}
	if want := start.Add(100 * time.Millisecond); !firedAt[0].Equal(want) {
		t.Errorf("early fired at %v, want %v", firedAt[0], want)
	}
	if want := start.Add(250 * time.Millisecond); !tp.Now().Equal(want) {
		t.Errorf("Now() = %v, want %v", tp.Now(), want)
	}

	tp.Advance(time.Second)
	if len(order) != 2 || order[1] != "late" {
		t.Fatalf("fired %v, want [early late]", order)
	}
	if tp.Pending() != 0 {
		t.Errorf("Pending() = %d after all timers fired", tp.Pending())
	}
}

func TestMockTimeProvider_TimerScheduledFromCallback(t *testing.T) {
	start := time.Date(2025, 2, 15, 12, 0, 0, 0, time.UTC)
	tp := NewMockTimeProvider(start)

	var fired []time.Time
	tp.AfterFunc(time.Second, func() {
		fired = append(fired, tp.Now())
		tp.AfterFunc(time.Second, func() { fired = append(fired, tp.Now()) })
	})

	tp.Advance(5 * time.Second)
	if len(fired) != 2 {
		t.Fatalf("fired %d times, want 2", len(fired))
	}
	if want := start.Add(2 * time.Second); !fired[1].Equal(want) {
		t.Errorf("second timer fired at %v, want %v", fired[1], want)
	}
}

func TestMockTimeProvider_SetTime(t *testing.T) {
	tp := NewMockTimeProvider(time.Time{})
	target := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	called := false
	tp.AfterFunc(time.Nanosecond, func() { called = true })

	tp.SetTime(target)
	if !tp.Now().Equal(target) {
		t.Errorf("Now() = %v, want %v", tp.Now(), target)
	}
	if called {
		t.Error("SetTime fired a timer")
	}
}
