// Package mutation wraps write operations with pending state and success or
// failure hooks. A mutation runs its function exactly once per Mutate call;
// failures are reported, never retried.
package mutation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/roster/internal/logging"
)

// ErrPending is returned by Mutate on an exclusive mutation that is already
// running.
var ErrPending = errors.New("mutation already in progress")

// Status is the lifecycle stage of a mutation.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// State is a snapshot of the most recent call.
type State[In, Out any] struct {
	Status    Status
	Input     In
	Data      Out
	Err       error
	Pending   int // calls currently in flight
	UpdatedAt time.Time
}

// Options configure the hooks every call runs. Layer hooks fire before the
// per-call Callbacks.
type Options[In, Out any] struct {
	// Exclusive rejects Mutate with ErrPending while a call is in flight.
	Exclusive bool
	OnSuccess func(in In, out Out)
	OnError   func(in In, err error)
	Name      string
	Logger    *slog.Logger
}

// Callbacks are per-call hooks passed to Mutate.
type Callbacks[Out any] struct {
	OnSuccess func(out Out)
	OnError   func(err error)
}

// Mutation runs fn with tracked state.
type Mutation[In, Out any] struct {
	fn   func(ctx context.Context, in In) (Out, error)
	opts Options[In, Out]
	log  *slog.Logger

	mu      sync.Mutex
	state   State[In, Out]
	subs    map[int]func(State[In, Out])
	nextSub int
}

// New returns a Mutation around fn.
func New[In, Out any](fn func(ctx context.Context, in In) (Out, error), opts Options[In, Out]) *Mutation[In, Out] {
	name := opts.Name
	if name == "" {
		name = "mutation"
	}
	return &Mutation[In, Out]{
		fn:   fn,
		opts: opts,
		log:  logging.OrNop(opts.Logger).With("mutation", name),
		subs: make(map[int]func(State[In, Out])),
	}
}

// Mutate runs the function once and blocks until it returns. On success the
// layer OnSuccess runs, then cb.OnSuccess; on failure the layer OnError runs,
// then cb.OnError. Each fires at most once per call.
func (m *Mutation[In, Out]) Mutate(ctx context.Context, in In, cb Callbacks[Out]) (Out, error) {
	var zero Out

	m.mu.Lock()
	if m.opts.Exclusive && m.state.Pending > 0 {
		m.mu.Unlock()
		m.log.Debug("mutation rejected while pending")
		return zero, ErrPending
	}
	m.state.Pending++
	m.state.Status = StatusPending
	m.state.Input = in
	m.state.Err = nil
	snap, subs := m.state, m.subscribersLocked()
	m.mu.Unlock()
	m.publish(subs, snap)

	out, err := m.fn(ctx, in)

	m.mu.Lock()
	m.state.Pending--
	m.state.Input = in
	m.state.UpdatedAt = time.Now()
	if err != nil {
		m.state.Status = StatusError
		m.state.Err = err
		m.state.Data = zero
	} else {
		m.state.Status = StatusSuccess
		m.state.Err = nil
		m.state.Data = out
	}
	snap, subs = m.state, m.subscribersLocked()
	m.mu.Unlock()

	if err != nil {
		m.log.Warn("mutation failed", "error", err)
		if m.opts.OnError != nil {
			m.opts.OnError(in, err)
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
	} else {
		m.log.Debug("mutation succeeded")
		if m.opts.OnSuccess != nil {
			m.opts.OnSuccess(in, out)
		}
		if cb.OnSuccess != nil {
			cb.OnSuccess(out)
		}
	}
	m.publish(subs, snap)
	return out, err
}

// State returns a snapshot of the latest call.
func (m *Mutation[In, Out]) State() State[In, Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Pending reports whether any call is in flight.
func (m *Mutation[In, Out]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Pending > 0
}

// Reset clears the settled result. Calls in flight are unaffected.
func (m *Mutation[In, Out]) Reset() {
	m.mu.Lock()
	pending := m.state.Pending
	m.state = State[In, Out]{Pending: pending}
	if pending > 0 {
		m.state.Status = StatusPending
	}
	m.mu.Unlock()
}

// Subscribe registers fn for every state change. The returned func
// unsubscribes.
func (m *Mutation[In, Out]) Subscribe(fn func(State[In, Out])) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Mutation[In, Out]) subscribersLocked() []func(State[In, Out]) {
	out := make([]func(State[In, Out]), 0, len(m.subs))
	for _, fn := range m.subs {
		out = append(out, fn)
	}
	return out
}

func (m *Mutation[In, Out]) publish(subs []func(State[In, Out]), s State[In, Out]) {
	for _, fn := range subs {
		fn(s)
	}
}
