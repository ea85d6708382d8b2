package host

import (
	"sync"
	"time"

	"github.com/inkwell-dev/inkwell/pkg/widget"
)

// Broadcaster is the slice of the registry the emitter talks to.
// Satisfied by *widget.Registry.
type Broadcaster interface {
	BroadcastValue(initiator widget.Node, id widget.ObjectID, value any) error
}

// Emitter coalesces rapid input notifications into a single broadcast
// after a quiet period. This is a trailing-edge debounce, not a throttle:
// only the most recent value in the window is ever broadcast, and
// intermediate values are dropped.
//
// There is at most one pending timer per emitter; each Emit replaces any
// pending broadcast rather than accumulating timers.
type Emitter struct {
	target Broadcaster
	delay  time.Duration

	// dispatch hops the delayed broadcast back onto the session event
	// loop, since timer callbacks fire on their own goroutine. Nil means
	// call directly (tests, standalone hosts).
	dispatch func(func())

	mu    sync.Mutex
	timer *time.Timer
	gen   uint64
}

// NewEmitter creates an emitter with the given quiet period. A delay of
// zero broadcasts synchronously with no timer involved.
func NewEmitter(target Broadcaster, delay time.Duration, dispatch func(func())) *Emitter {
	return &Emitter{target: target, delay: delay, dispatch: dispatch}
}

// Emit schedules a broadcast of value for the node. With a zero delay the
// broadcast happens immediately on the caller's goroutine; otherwise any
// pending broadcast is cancelled and a new one is scheduled carrying this
// latest value.
func (e *Emitter) Emit(node widget.Node, id widget.ObjectID, value any) {
	e.mu.Lock()
	if e.delay == 0 {
		// An immediate broadcast supersedes any timer left over from an
		// earlier non-zero delay; the stale value must not land later.
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.gen++
		e.mu.Unlock()
		e.target.BroadcastValue(node, id, value)
		return
	}
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	gen := e.gen
	e.timer = time.AfterFunc(e.delay, func() {
		e.fire(gen, func() {
			e.target.BroadcastValue(node, id, value)
		})
	})
}

// SetDelay changes the quiet period for subsequent emissions. A pending
// broadcast keeps its original schedule.
func (e *Emitter) SetDelay(d time.Duration) {
	e.mu.Lock()
	e.delay = d
	e.mu.Unlock()
}

// Delay returns the current quiet period.
func (e *Emitter) Delay() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.delay
}

// Cancel drops any pending broadcast. Called when the host is permanently
// detached: a debounced broadcast must never fire against an entry whose
// members no longer include the host.
func (e *Emitter) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	// Invalidate a callback that already left AfterFunc but has not
	// claimed its generation yet.
	e.gen++
}

// Pending reports whether a broadcast is currently scheduled.
func (e *Emitter) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timer != nil
}

// fire runs the scheduled broadcast unless it was superseded or cancelled.
// The generation check happens on the delivery side of the dispatch hop: a
// Cancel that lands while the callback is queued on the loop must still win.
func (e *Emitter) fire(gen uint64, fn func()) {
	run := func() {
		e.mu.Lock()
		if gen != e.gen {
			e.mu.Unlock()
			return
		}
		e.timer = nil
		e.mu.Unlock()
		fn()
	}
	if e.dispatch != nil {
		e.dispatch(run)
		return
	}
	run()
}
