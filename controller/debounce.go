package controller

import (
	"time"

	"github.com/rickchristie/infill"
)

// debouncer is a single-slot trailing-edge timer. Every method must be
// called with the controller lock held; the sequence number lets the fire
// callback recognize a timer that was superseded after it had already
// started running.
type debouncer struct {
	clock infill.TimeProvider
	delay time.Duration
	timer infill.Timer
	seq   uint64
}

func newDebouncer(clock infill.TimeProvider, delay time.Duration) *debouncer {
	return &debouncer{clock: clock, delay: delay}
}

// schedule cancels any pending timer and starts a new one. fire receives the
// sequence number of the timer that elapsed.
func (d *debouncer) schedule(fire func(seq uint64)) {
	d.stop()
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.delay, func() { fire(seq) })
}

// cancel stops the pending timer and invalidates any callback in flight.
func (d *debouncer) cancel() {
	d.stop()
	d.seq++
}

// current reports whether seq belongs to the most recent schedule call.
func (d *debouncer) current(seq uint64) bool {
	return d.timer != nil && seq == d.seq
}

// fired clears the slot after the current timer elapsed.
func (d *debouncer) fired() {
	d.timer = nil
}

func (d *debouncer) stop() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
