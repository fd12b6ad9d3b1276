// Package clock supplies the periodic tick sources that drive a
// timer.Engine.
//
// The engine never owns its clock. Whoever calls Start on the engine also
// starts a Source, forwards each received tick to Engine.Tick, and stops the
// Source in the same step that calls Abort or Reset.
//
// Two sources are provided:
//
//	Ticker: wraps time.Ticker for real one-second cadence.
//	Manual: ticks only when Advance is called; used by tests and by
//	        fast-forward runs.
package clock

import "time"

// Source delivers ticks on C until Stop is called.
type Source interface {
	C() <-chan time.Time
	Stop()
}

// Ticker is a Source backed by time.Ticker.
type Ticker struct {
	t *time.Ticker
}

// NewTicker returns a running Ticker. A non-positive interval means one
// second.
func NewTicker(interval time.Duration) *Ticker {
	if interval <= 0 {
		interval = time.Second
	}
	return &Ticker{t: time.NewTicker(interval)}
}

// C returns the tick channel.
func (t *Ticker) C() <-chan time.Time { return t.t.C }

// Stop stops the underlying ticker. No further ticks are delivered.
func (t *Ticker) Stop() { t.t.Stop() }

// Manual is a Source that ticks on demand. Not goroutine-safe for Advance;
// the receiving side may run in another goroutine.
type Manual struct {
	ch      chan time.Time
	now     time.Time
	stopped bool
}

// NewManual returns a Manual source able to buffer up to capacity ticks
// that have not been received yet.
func NewManual(start time.Time, capacity int) *Manual {
	if capacity < 1 {
		capacity = 1
	}
	return &Manual{ch: make(chan time.Time, capacity), now: start}
}

// C returns the tick channel.
func (m *Manual) C() <-chan time.Time { return m.ch }

// Advance queues n ticks one second apart and returns how many were queued.
// It stops early when the buffer is full or the source has been stopped.
func (m *Manual) Advance(n int) int {
	queued := 0
	for i := 0; i < n && !m.stopped; i++ {
		select {
		case m.ch <- m.now.Add(time.Second):
			m.now = m.now.Add(time.Second)
			queued++
		default:
			return queued
		}
	}
	return queued
}

// Now returns the time of the last queued tick.
func (m *Manual) Now() time.Time { return m.now }

// Stop prevents further ticks from being queued. Ticks already buffered
// remain readable.
func (m *Manual) Stop() { m.stopped = true }
