package sink

import (
	"sync"

	"github.com/relabs-tech/rmc_logger/internal/gps"
)

// Call is one recorded sink invocation.
type Call struct {
	Kind   string // "fix" or "skip"
	Order  uint64
	Fix    gps.Fix
	Reason string // gps.Reason label, skips only
}

// Recorder keeps the exact sequence of calls it receives.
type Recorder struct {
	mu     sync.Mutex
	calls  []Call
	closes int

	// FailAt, when non-nil, makes the call for that order return the error.
	FailAt map[uint64]error
}

func (r *Recorder) WriteFix(order uint64, fix gps.Fix) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailAt[order]; err != nil {
		return err
	}
	r.calls = append(r.calls, Call{Kind: "fix", Order: order, Fix: fix})
	return nil
}

func (r *Recorder) Skip(order uint64, reason error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.FailAt[order]; err != nil {
		return err
	}
	r.calls = append(r.calls, Call{Kind: "skip", Order: order, Reason: gps.Reason(reason)})
	return nil
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
	return nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Closes reports how many times Close was called.
func (r *Recorder) Closes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closes
}
