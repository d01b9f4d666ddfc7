// Package clockx abstracts wall-clock reads and timer scheduling so that
// expiry, cooldown and background-duration logic can be driven by a fake
// clock in tests.
package clockx

import "time"

// Clock is the time source used by the session engine.
type Clock interface {
	// Now returns the current time in UTC.
	Now() time.Time

	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer

	// NewTicker delivers ticks on the returned Ticker every d.
	NewTicker(d time.Duration) Ticker
}

// Timer is a cancellable one-shot callback.
type Timer interface {
	// Stop prevents the timer from firing. It returns false if the timer
	// already fired or was stopped.
	Stop() bool
}

// Ticker is a cancellable recurring tick source.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock backed by package time.
type Real struct{}

// New returns the production clock.
func New() Clock { return Real{} }

func (Real) Now() time.Time { return time.Now().UTC() }

func (Real) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

func (Real) NewTicker(d time.Duration) Ticker { return &realTicker{t: time.NewTicker(d)} }

type realTicker struct {
	t *time.Ticker
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }
