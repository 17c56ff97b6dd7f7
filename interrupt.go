package mapport

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Interrupt is a latching, interruptible timed wait. Signal wakes the
// current waiter and every future one until Reset clears the latch.
// Signals coalesce; there is no queue. A signal with no waiter present
// simply makes the next Sleep return immediately.
//
// The dispatcher shares one Interrupt between its control surface and its
// worker goroutine; all methods are safe for concurrent use.
type Interrupt struct {
	clk clock.Clock

	mu sync.Mutex
	ch chan struct{} // closed while signaled, replaced by Reset
}

// NewInterrupt creates an unsignaled Interrupt. A nil clock selects the
// real one.
func NewInterrupt(clk clock.Clock) *Interrupt {
	if clk == nil {
		clk = clock.New()
	}
	return &Interrupt{clk: clk, ch: make(chan struct{})}
}

// Sleep blocks for d or until Signal is called, whichever comes first.
// It reports whether the full duration elapsed; false means the wait was
// interrupted.
func (i *Interrupt) Sleep(d time.Duration) bool {
	i.mu.Lock()
	ch := i.ch
	i.mu.Unlock()

	t := i.clk.Timer(d)
	defer t.Stop()

	select {
	case <-ch:
		return false
	case <-t.C:
		return true
	}
}

// Signal wakes the current waiter, if any, and latches so later Sleep
// calls return immediately until Reset. Safe to call repeatedly.
func (i *Interrupt) Signal() {
	i.mu.Lock()
	defer i.mu.Unlock()
	select {
	case <-i.ch:
		// already signaled
	default:
		close(i.ch)
	}
}

// Reset clears the latch so subsequent Sleep calls block again. Calling
// Reset on an unsignaled Interrupt is a no-op.
func (i *Interrupt) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	select {
	case <-i.ch:
		i.ch = make(chan struct{})
	default:
	}
}

// Interrupted reports whether a signal is currently latched.
func (i *Interrupt) Interrupted() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	select {
	case <-i.ch:
		return true
	default:
		return false
	}
}
