// Package opstatus tracks the lifecycle of each user-invokable operation:
// idle, then pending, then success or error, re-entering pending on the next
// invocation.
package opstatus

import (
	"fmt"
	"sync"
	"time"

	"github.com/egaotan/solana-gold/errs"
	"github.com/egaotan/solana-gold/gold"
)

type State string

const (
	Idle    State = "idle"
	Pending State = "pending"
	Success State = "success"
	Error   State = "error"
)

// Status is a tagged variant: Signature is set only on Success, Kind only on
// Error.
type Status struct {
	State     State     `json:"state"`
	Signature string    `json:"signature,omitempty"`
	Kind      errs.Kind `json:"kind,omitempty"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s Status) Terminal() bool {
	return s.State == Success || s.State == Error
}

type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// Tracker holds the status of one operation. Safe for concurrent use.
type Tracker struct {
	op       gold.Operation
	lock     sync.RWMutex
	status   Status
	onChange func(gold.Operation, Status)
	now      func() time.Time
}

func NewTracker(op gold.Operation) *Tracker {
	t := &Tracker{
		op:  op,
		now: time.Now,
	}
	t.status = Status{State: Idle, UpdatedAt: t.now()}
	return t
}

func (t *Tracker) Operation() gold.Operation {
	return t.op
}

func (t *Tracker) Status() Status {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.status
}

// Begin moves to pending from any state except pending.
func (t *Tracker) Begin() error {
	return t.transition(Status{State: Pending}, Idle, Success, Error)
}

func (t *Tracker) Succeed(signature string, message string) error {
	return t.transition(Status{State: Success, Signature: signature, Message: message}, Pending)
}

func (t *Tracker) Fail(kind errs.Kind, message string) error {
	return t.transition(Status{State: Error, Kind: kind, Message: message}, Pending)
}

func (t *Tracker) transition(next Status, from ...State) error {
	t.lock.Lock()
	current := t.status.State
	allowed := false
	for _, s := range from {
		if s == current {
			allowed = true
			break
		}
	}
	if !allowed {
		t.lock.Unlock()
		return &InvalidTransitionError{From: current, To: next.State}
	}
	next.UpdatedAt = t.now()
	t.status = next
	cb := t.onChange
	t.lock.Unlock()
	if cb != nil {
		cb(t.op, next)
	}
	return nil
}

// Board is the per-session set of trackers, one per operation.
type Board struct {
	trackers map[gold.Operation]*Tracker
}

func NewBoard(onChange func(gold.Operation, Status)) *Board {
	b := &Board{
		trackers: make(map[gold.Operation]*Tracker, len(gold.Operations)),
	}
	for _, op := range gold.Operations {
		t := NewTracker(op)
		t.onChange = onChange
		b.trackers[op] = t
	}
	return b
}

func (b *Board) Tracker(op gold.Operation) (*Tracker, bool) {
	t, ok := b.trackers[op]
	return t, ok
}

func (b *Board) Snapshot() map[gold.Operation]Status {
	out := make(map[gold.Operation]Status, len(b.trackers))
	for op, t := range b.trackers {
		out[op] = t.Status()
	}
	return out
}
