// Package clock provides an injectable time source.
//
// Runtime code takes a Clock instead of calling time.AfterFunc or
// time.NewTicker directly. Real() is the time package; Fake() only moves
// when a test calls Advance, so debounce and sync windows can be driven
// deterministically.
package clock

import "time"

// Clock is the subset of the time package used by timer-driven components.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
	// AfterFunc calls f once d has elapsed. Stop on the returned Timer
	// prevents the call if it has not started yet.
	AfterFunc(d time.Duration, f func()) *Timer
	NewTicker(d time.Duration) *Ticker
	Sleep(d time.Duration)
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stop func() bool
}

// Stop reports whether the call was prevented.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

// Ticker delivers ticks on C until stopped. C has capacity 1; late
// consumers lose ticks.
type Ticker struct {
	C    <-chan time.Time

	stop func()
}

func (t *Ticker) Stop() {
	if t == nil || t.stop == nil {
		return
	}
	t.stop()
}
