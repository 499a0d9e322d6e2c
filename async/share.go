package async

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/env"
	"github.com/tailored-agentic-units/async/observability"
	"github.com/tailored-agentic-units/async/stoptoken"
)

// resultKind tags which completion channel a sharedState settled on.
type resultKind int

const (
	resultPending resultKind = iota
	resultValue
	resultError
	resultStopped
)

// waiterEntry pairs a registered downstream receiver with the callback
// watching that receiver's own stop token, so that one consumer's
// cancellation can remove just its own node from the waiter list and
// complete it locally with SetStopped, without touching any other waiter
// or the underlying child.
type waiterEntry[T any] struct {
	receiver Receiver[T]
	cb       *stoptoken.Callback
}

// sharedState is the completion cache behind Split and EnsureStarted; it
// keeps no reference count. The underlying source is connected and started at most
// once; every waiter registered before completion is delivered the same
// outcome once it arrives, and every waiter that connects afterward (the
// tombstone path) is delivered immediately without touching the source
// again. An internal stop source is forwarded to the child in place of
// any one waiter's token — when the last interested waiter cancels before
// the child has settled, that source is tripped so the child is asked to
// stop too.
type sharedState[T any] struct {
	mu         sync.Mutex
	started    bool
	done       bool
	kind       resultKind
	value      T
	err        error
	waiters    []*waiterEntry[T]
	source     Sender[T]
	sourceOp   OperationState
	stopSource *stoptoken.Source
	observer   observability.Observer
	id         string
}

func newSharedState[T any](source Sender[T], cfg config.SplitConfig) *sharedState[T] {
	obs, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		obs = observability.NoOpObserver{}
	}
	return &sharedState[T]{source: source, observer: obs, id: uuid.NewString(), stopSource: stoptoken.New()}
}

// startWith starts the underlying source exactly once, connecting it with
// environment (with its stop token replaced by this shared state's
// internal one). Callers after the first are no-ops. If the internal
// source was already tripped by the time the first start arrives — every
// interested waiter cancelled before anyone triggered starting — the
// child is never connected at all; a stopped completion is synthesized
// directly.
func (s *sharedState[T]) startWith(environment env.Env) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	alreadyStopped := s.stopSource.IsStopped()
	s.mu.Unlock()

	if alreadyStopped {
		var zero T
		s.settle(resultStopped, zero, nil)
		return
	}

	childEnv := env.WithStopToken(environment, s.stopSource.Token())
	op := s.source.Connect(&sharedReceiver[T]{state: s, environment: childEnv})
	s.mu.Lock()
	s.sourceOp = op
	s.mu.Unlock()
	op.Start()
}

// register adds r as a waiter and arms a stop callback on r's own token:
// if r's token fires before the shared completion arrives, the callback
// removes r from the waiter list and completes it locally with
// SetStopped, leaving every other waiter untouched. It returns true (and
// registers nothing) if the shared state had already settled — the
// caller must then deliver the cached result itself via deliver.
func (s *sharedState[T]) register(r Receiver[T]) bool {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return true
	}
	entry := &waiterEntry[T]{receiver: r}
	s.waiters = append(s.waiters, entry)
	s.mu.Unlock()

	cb := r.Env().StopToken().Register(func() { s.cancelWaiter(entry) })

	s.mu.Lock()
	entry.cb = cb
	s.mu.Unlock()
	return false
}

// cancelWaiter is the stop callback body for one registered waiter. The
// done check and the list removal happen under the same lock settle uses
// to swap the waiter list to its tombstone (nil), so this and settle's
// walk are mutually exclusive over any one entry: whichever of the two
// observes the entry still present wins and delivers exactly one
// completion to it.
func (s *sharedState[T]) cancelWaiter(entry *waiterEntry[T]) {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	idx := -1
	for i, w := range s.waiters {
		if w == entry {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.waiters = append(s.waiters[:idx], s.waiters[idx+1:]...)
	remaining := len(s.waiters)
	s.mu.Unlock()

	entry.receiver.SetStopped()

	if remaining == 0 {
		// No consumer is interested in the result any more, whether the
		// child has started yet or not — ask it to stop.
		s.stopSource.RequestStop()
	}
}

func (s *sharedState[T]) deliver(r Receiver[T]) {
	s.mu.Lock()
	kind, value, err := s.kind, s.value, s.err
	s.mu.Unlock()
	switch kind {
	case resultValue:
		r.SetValue(value)
	case resultError:
		r.SetError(err)
	case resultStopped:
		r.SetStopped()
	}
}

func (s *sharedState[T]) settle(kind resultKind, value T, err error) {
	s.mu.Lock()
	s.done = true
	s.kind = kind
	s.value = value
	s.err = err
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, w := range waiters {
		if w.cb != nil {
			w.cb.Unregister()
		}
		switch kind {
		case resultValue:
			w.receiver.SetValue(value)
		case resultError:
			w.receiver.SetError(err)
		case resultStopped:
			w.receiver.SetStopped()
		}
	}
}

// sharedReceiver is the single receiver connected to the real source; it
// fans the one completion out to every registered waiter.
type sharedReceiver[T any] struct {
	state       *sharedState[T]
	environment env.Env
}

func (r *sharedReceiver[T]) SetValue(value T) { r.state.settle(resultValue, value, nil) }
func (r *sharedReceiver[T]) SetStopped()      { var zero T; r.state.settle(resultStopped, zero, nil) }
func (r *sharedReceiver[T]) Env() env.Env     { return r.environment }
func (r *sharedReceiver[T]) SetError(err error) {
	var zero T
	r.state.settle(resultError, zero, err)
}

// splitOperation is the operation state handed back by Split's Connect.
// Its Start either registers as a waiter (starting the shared source on
// the very first such Start, using this op's own receiver's Env) or, if
// the shared source already completed, delivers the cached result
// immediately.
type splitOperation[T any] struct {
	shared   *sharedState[T]
	receiver Receiver[T]
}

func (op *splitOperation[T]) Start() {
	if op.shared.register(op.receiver) {
		op.shared.deliver(op.receiver)
		return
	}
	op.shared.startWith(op.receiver.Env())
}

// splitSender is a reusable Sender produced by Split: Connect may be
// called any number of times, each producing an independent waiter over
// the same shared completion.
type splitSender[T any] struct {
	shared *sharedState[T]
}

func (s *splitSender[T]) Connect(r Receiver[T]) OperationState {
	return &splitOperation[T]{shared: s.shared, receiver: r}
}

// Split returns a sender that can be connected and started any number of
// times. The wrapped source is connected and started at most once, on
// whichever operation state's Start call is the first to run; every
// connection — including ones made after the source has already completed
// — observes the same value, error, or stopped outcome. A downstream
// consumer's own cancellation only removes that one consumer; it does not
// affect the others unless it happens to be the last one interested.
func Split[T any](source Sender[T], cfg config.SplitConfig) Sender[T] {
	return &splitSender[T]{shared: newSharedState(source, cfg)}
}

// ensureStartedOperation delivers the (possibly already-settled) shared
// result to a single receiver; it never triggers a fresh start, since
// EnsureStarted already did so at construction time.
type ensureStartedOperation[T any] struct {
	shared   *sharedState[T]
	receiver Receiver[T]
}

func (op *ensureStartedOperation[T]) Start() {
	if op.shared.register(op.receiver) {
		op.shared.deliver(op.receiver)
	}
	// Not yet settled: queued by register, which also arms this
	// receiver's own cancellation path; the eagerly-started child's
	// eventual settle call delivers the real result.
}

type ensureStartedSender[T any] struct {
	shared *sharedState[T]
}

func (s *ensureStartedSender[T]) Connect(r Receiver[T]) OperationState {
	return &ensureStartedOperation[T]{shared: s.shared, receiver: r}
}

// EnsureStarted eagerly connects and starts source using environment,
// before any downstream consumer has connected, and returns a sender
// representing that already-in-flight operation. This is meant to be
// connected at most once — use Split if the result needs to be observed
// by more than one consumer.
func EnsureStarted[T any](source Sender[T], environment env.Env, cfg config.SplitConfig) Sender[T] {
	shared := newSharedState(source, cfg)
	shared.startWith(environment)
	return &ensureStartedSender[T]{shared: shared}
}
