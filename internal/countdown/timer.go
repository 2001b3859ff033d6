package countdown

import (
	"errors"
	"sync"
	"time"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// DefaultInterval is the tick period of a countdown.
const DefaultInterval = time.Second

var (
	// ErrTimerActive is returned when a countdown is started while another one runs.
	ErrTimerActive = errors.New("countdown already active")
	// ErrInvalidDuration is returned for non-positive countdown durations.
	ErrInvalidDuration = errors.New("countdown duration must be positive")
)

// Timer runs one countdown at a time.
type Timer struct {
	// interval is the tick period.
	interval time.Duration
	// active is the running countdown, nil when idle.
	active *Handle
	// mu protects active.
	mu sync.Mutex
}

// Option configures a Timer.
type Option func(*Timer)

// WithInterval overrides the tick period.
func WithInterval(interval time.Duration) Option {
	return func(t *Timer) {
		if interval > 0 {
			t.interval = interval
		}
	}
}

// New creates an idle timer.
func New(opts ...Option) *Timer {
	t := &Timer{interval: DefaultInterval}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Handle identifies one started countdown.
type Handle struct {
	// total is the full countdown duration.
	total time.Duration
	// remaining is decremented on every tick.
	remaining time.Duration
	// finished is set once the countdown was cancelled or expired.
	finished bool
	// expired is set once onExpire ran.
	expired bool
	// stop ends the ticking goroutine.
	stop chan struct{}
	// done is closed when the ticking goroutine returns.
	done chan struct{}
	// mu serializes callbacks with Cancel.
	mu sync.Mutex
}

// State returns the countdown progress.
func (h *Handle) State() walk.CountdownState {
	h.mu.Lock()
	defer h.mu.Unlock()

	return walk.CountdownState{
		Remaining: h.remaining,
		Total:     h.total,
	}
}

// Expired reports whether the expiry callback ran.
func (h *Handle) Expired() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.expired
}

// Done is closed once the countdown goroutine has returned.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Active reports whether a countdown is running.
func (t *Timer) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.active != nil
}

// Start begins a countdown of total. onTick receives the remaining time after
// every tick, including the final zero; onExpire runs once when it reaches zero.
// Callbacks run on the timer goroutine and must not call Cancel.
func (t *Timer) Start(total time.Duration, onTick func(remaining time.Duration), onExpire func()) (*Handle, error) {
	if total <= 0 {
		return nil, ErrInvalidDuration
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active != nil {
		return nil, ErrTimerActive
	}

	h := &Handle{
		total:     total,
		remaining: total,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	t.active = h

	go t.run(h, onTick, onExpire)

	return h, nil
}

// Cancel stops the countdown. Once Cancel returns no callback of h runs
// anymore. It reports true when the countdown was stopped before expiry.
func (t *Timer) Cancel(h *Handle) bool {
	if h == nil {
		return false
	}

	h.mu.Lock()
	cancelled := !h.finished
	if cancelled {
		h.finished = true
		close(h.stop)
	}
	h.mu.Unlock()

	t.release(h)

	return cancelled
}

// release clears the active slot if it still holds h.
func (t *Timer) release(h *Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == h {
		t.active = nil
	}
}

// run ticks until expiry or cancellation.
func (t *Timer) run(h *Handle, onTick func(time.Duration), onExpire func()) {
	defer close(h.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			if t.tick(h, onTick, onExpire) {
				return
			}
		}
	}
}

// tick advances h by one interval and reports whether the countdown is over.
func (t *Timer) tick(h *Handle, onTick func(time.Duration), onExpire func()) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.finished {
		return true
	}

	h.remaining -= t.interval
	if h.remaining < 0 {
		h.remaining = 0
	}

	if onTick != nil {
		onTick(h.remaining)
	}

	if h.remaining > 0 {
		return false
	}

	h.finished = true
	h.expired = true

	// Free the slot before the callback so a follow-up countdown can start.
	t.release(h)

	if onExpire != nil {
		onExpire()
	}

	return true
}
