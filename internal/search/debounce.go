// Package search debounces search-box input and orders search responses.
//
// The Debouncer guarantees a single dispatch per burst of input. It does not
// look at responses: dropping a response that arrives after a newer query was
// issued is the caller's job, done with a Sequencer.
package search

import (
	"sync"
	"time"
)

// DefaultDelay is the quiet period after the last keystroke before a search is sent.
const DefaultDelay = 500 * time.Millisecond

// Debouncer schedules delayed search dispatches.
// It holds no per-channel state; the caller threads the current Handle
// through its own state and passes it back on the next input.
type Debouncer struct {
	clock    Clock
	delay    time.Duration
	dispatch func(text string)
}

// NewDebouncer creates a Debouncer that calls dispatch with the final text of
// each burst, delay after the burst's last input. A nil clock uses the system clock.
// dispatch runs on the clock's timer goroutine.
func NewDebouncer(delay time.Duration, clock Clock, dispatch func(text string)) *Debouncer {
	if clock == nil {
		clock = SystemClock()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{clock: clock, delay: delay, dispatch: dispatch}
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// OnInput records new search-box text.
//
// prev is the handle returned by the previous call (nil on the first). If it
// is still pending it is canceled and a new dispatch of text is scheduled.
// Input identical to prev's still-pending text is not a change and returns
// prev untouched. Empty text is scheduled like any other.
func (d *Debouncer) OnInput(text string, prev *Handle) *Handle {
	if prev != nil && prev.text == text && prev.Pending() {
		return prev
	}
	if prev != nil {
		prev.Cancel()
	}

	h := &Handle{text: text}
	h.mu.Lock()
	h.timer = d.clock.AfterFunc(d.delay, func() {
		if h.fire() {
			d.dispatch(text)
		}
	})
	h.mu.Unlock()
	return h
}

type handleState int

const (
	statePending handleState = iota
	stateFired
	stateCanceled
)

// Handle is one scheduled dispatch.
type Handle struct {
	text  string
	mu    sync.Mutex
	state handleState
	timer Timer
}

// Text returns the text this handle will dispatch.
func (h *Handle) Text() string {
	return h.text
}

// Pending reports whether the dispatch has neither fired nor been canceled.
func (h *Handle) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == statePending
}

// Cancel stops a pending dispatch. Reports whether it was still pending.
// After Cancel returns, the dispatch is guaranteed not to run, even if its
// timer already expired and the callback is waiting on the lock.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != statePending {
		return false
	}
	h.state = stateCanceled
	if h.timer != nil {
		h.timer.Stop()
	}
	return true
}

// fire transitions pending → fired. Reports whether the caller may dispatch.
func (h *Handle) fire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != statePending {
		return false
	}
	h.state = stateFired
	return true
}
