// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package session

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/rmc_logger/internal/gps"
	"github.com/relabs-tech/rmc_logger/internal/monitoring"
	"github.com/relabs-tech/rmc_logger/internal/sink"
)

type capError struct{}

func (capError) Error() string  { return "fix cap reached" }
func (capError) Reason() string { return "cap_reached" }

// ErrCapReached is the skip reason for fixes whose turn comes after the
// session already wrote its capped number of fixes.
var ErrCapReached error = capError{}

// Sequencer commits task outcomes to a sink strictly in order index order.
//
// Each task calls Commit with its own order index; Commit blocks until every
// lower index has been committed, then performs the sink call, advances the
// expected index and wakes the other waiters, all under one lock.
type Sequencer struct {
	mu   sync.Mutex
	cond *sync.Cond

	sink    sink.Sink
	fixCap  int
	metrics *monitoring.Metrics

	next      uint64
	committed int
	skips     map[string]int
	err       error
	capped    chan struct{}
}

// NewSequencer returns a sequencer expecting order 0 first. fixCap is the
// number of written fixes after which CapReached fires; 0 disables the cap.
func NewSequencer(s sink.Sink, fixCap int) *Sequencer {
	q := &Sequencer{
		sink:   s,
		fixCap: fixCap,
		skips:  make(map[string]int),
		capped: make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Commit waits for order's turn and hands the outcome to the sink: a fix
// when reject is nil, a skip otherwise. Once the cap is reached, further
// fixes are committed as skips with ErrCapReached.
//
// A non-nil return means the session is over: the sink failed, the
// sequencer was aborted, or order was not the next expected index.
func (q *Sequencer) Commit(order uint64, fix gps.Fix, reject error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.err == nil && q.next < order {
		q.cond.Wait()
	}
	if q.err != nil {
		return q.err
	}
	if order != q.next {
		return q.fail(fmt.Errorf("order %d already committed (next is %d)", order, q.next))
	}

	if reject == nil && q.capReachedLocked() {
		reject = ErrCapReached
	}

	var err error
	reason := ""
	if reject != nil {
		reason = gps.Reason(reject)
		err = q.sink.Skip(order, reject)
	} else {
		err = q.sink.WriteFix(order, fix)
	}
	if err != nil {
		return q.fail(fmt.Errorf("commit %d: %w", order, err))
	}

	if reject != nil {
		q.skips[reason]++
		monitoring.Logf("session: skipped frame %d (%s): %v", order, reason, reject)
	} else {
		q.committed++
		if q.fixCap > 0 && q.committed == q.fixCap {
			close(q.capped)
		}
	}
	q.metrics.Committed(reason)

	q.next++
	q.cond.Broadcast()
	return nil
}

func (q *Sequencer) capReachedLocked() bool {
	return q.fixCap > 0 && q.committed >= q.fixCap
}

// fail records the first fatal error and releases every waiter.
func (q *Sequencer) fail(err error) error {
	if q.err == nil {
		q.err = err
	}
	q.cond.Broadcast()
	return q.err
}

// Abort ends the session: current and future Commit calls return err.
func (q *Sequencer) Abort(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fail(err)
}

// CapReached is closed when the fix cap is reached.
func (q *Sequencer) CapReached() <-chan struct{} { return q.capped }

// Next returns the order index expected next.
func (q *Sequencer) Next() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.next
}

// Committed returns how many fixes were written.
func (q *Sequencer) Committed() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.committed
}

// Skips returns skip counts by reason label.
func (q *Sequencer) Skips() map[string]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]int, len(q.skips))
	for k, v := range q.skips {
		out[k] = v
	}
	return out
}
