package async

import (
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/env"
	"github.com/tailored-agentic-units/async/observability"
	"github.com/tailored-agentic-units/async/stoptoken"
)

// whenAllAggregator is the fan-in state shared by every child of one
// when_all: a countdown of children still running, first-error precedence
// over a later or concurrent stop, and a stop source whose token is handed
// to every child so one failing sibling cancels the rest.
type whenAllAggregator struct {
	mu             sync.Mutex
	remaining      int
	total          int
	kind           resultKind
	firstErr       error
	firstErrIndex  int
	additionalErrs []error
	stopSource     *stoptoken.Source
	parentCallback *stoptoken.Callback
	finish         func()
	observer       observability.Observer
	id             string
}

func newWhenAllAggregator(n int, parentEnv env.Env, cfg config.WhenAllConfig) *whenAllAggregator {
	obs, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		obs = observability.NoOpObserver{}
	}
	agg := &whenAllAggregator{
		remaining:  n,
		total:      n,
		stopSource: stoptoken.New(),
		observer:   obs,
		id:         uuid.NewString(),
	}
	agg.parentCallback = parentEnv.StopToken().Register(agg.stopSource.RequestStop)
	return agg
}

// childEnv returns the environment every child of this when_all is
// connected with: the parent's environment, but with get_stop_token
// replaced by the aggregator's shared token so that any child's failure
// or cancellation is observable by its siblings.
func (a *whenAllAggregator) childEnv(parentEnv env.Env) env.Env {
	return env.WithStopToken(parentEnv, a.stopSource.Token())
}

// reportError records err as the (possibly first) error observed across
// the fan-in, requesting a stop the first time any child fails or is
// cancelled. An error that arrives after a child was already stopped is
// discarded: the fan-in completes stopped.
func (a *whenAllAggregator) reportError(index int, err error) {
	a.mu.Lock()
	switch a.kind {
	case resultPending:
		a.kind = resultError
		a.firstErr = err
		a.firstErrIndex = index
		a.stopSource.RequestStop()
	case resultError:
		a.additionalErrs = append(a.additionalErrs, err)
	}
	a.mu.Unlock()
}

func (a *whenAllAggregator) reportStopped() {
	a.mu.Lock()
	if a.kind == resultPending {
		a.kind = resultStopped
		a.stopSource.RequestStop()
	}
	a.mu.Unlock()
}

// childDone decrements the countdown and returns true exactly once, when
// the last child has completed and the aggregate result is ready.
func (a *whenAllAggregator) childDone() bool {
	a.mu.Lock()
	a.remaining--
	done := a.remaining == 0
	a.mu.Unlock()
	return done
}

func (a *whenAllAggregator) outcome() (resultKind, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.kind == resultError && len(a.additionalErrs) > 0 {
		return resultError, &WhenAllError{First: a.firstErr, Index: a.firstErrIndex, Total: a.total, Additional: a.additionalErrs}
	}
	if a.kind == resultError {
		return resultError, a.firstErr
	}
	return a.kind, nil
}

func (a *whenAllAggregator) cleanup() {
	if a.parentCallback != nil {
		a.parentCallback.Unregister()
	}
}

// Pair is the value type produced by WhenAll2.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Triple is the value type produced by WhenAll3.
type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

// WhenAll2 runs two senders concurrently (from the caller's point of view;
// nothing spawns goroutines here beyond what the children's own schedulers
// do) and completes with both values once both succeed. The first error
// or cancellation among the two wins, and requests the other to stop via
// a shared stop token; the parent does not complete until both children
// have finished.
func WhenAll2[A, B any](a Sender[A], b Sender[B], cfg config.WhenAllConfig) Sender[Pair[A, B]] {
	return SenderFunc[Pair[A, B]](func(r Receiver[Pair[A, B]]) OperationState {
		return &whenAll2State[A, B]{a: a, b: b, receiver: r, cfg: cfg}
	})
}

type whenAll2State[A, B any] struct {
	a        Sender[A]
	b        Sender[B]
	receiver Receiver[Pair[A, B]]
	cfg      config.WhenAllConfig
	agg      *whenAllAggregator
	valueA   A
	valueB   B
	opA, opB OperationState
}

func (s *whenAll2State[A, B]) Start() {
	s.agg = newWhenAllAggregator(2, s.receiver.Env(), s.cfg)
	childEnv := s.agg.childEnv(s.receiver.Env())

	s.opA = s.a.Connect(&whenAllChildReceiver[A]{
		environment: childEnv,
		agg:         s.agg,
		index:       0,
		onValue:     func(v A) { s.valueA = v },
		onDone:      s.tryFinish,
	})
	s.opB = s.b.Connect(&whenAllChildReceiver[B]{
		environment: childEnv,
		agg:         s.agg,
		index:       1,
		onValue:     func(v B) { s.valueB = v },
		onDone:      s.tryFinish,
	})
	s.opA.Start()
	s.opB.Start()
}

func (s *whenAll2State[A, B]) tryFinish() {
	if !s.agg.childDone() {
		return
	}
	s.agg.cleanup()
	kind, err := s.agg.outcome()
	switch kind {
	case resultError:
		s.receiver.SetError(err)
	case resultStopped:
		s.receiver.SetStopped()
	default:
		s.receiver.SetValue(Pair[A, B]{First: s.valueA, Second: s.valueB})
	}
}

// whenAllChildReceiver adapts one child of a when_all fan-in: a successful
// value is stashed via onValue, any outcome reports into agg, and onDone
// is invoked exactly once the child has fully completed.
type whenAllChildReceiver[T any] struct {
	environment env.Env
	agg         *whenAllAggregator
	index       int
	onValue     func(T)
	onDone      func()
}

func (c *whenAllChildReceiver[T]) SetValue(value T) {
	c.onValue(value)
	c.onDone()
}

func (c *whenAllChildReceiver[T]) SetError(err error) {
	c.agg.reportError(c.index, err)
	c.onDone()
}

func (c *whenAllChildReceiver[T]) SetStopped() {
	c.agg.reportStopped()
	c.onDone()
}

func (c *whenAllChildReceiver[T]) Env() env.Env { return c.environment }

// WhenAll3 is WhenAll2 generalized to three children.
func WhenAll3[A, B, C any](a Sender[A], b Sender[B], c Sender[C], cfg config.WhenAllConfig) Sender[Triple[A, B, C]] {
	return SenderFunc[Triple[A, B, C]](func(r Receiver[Triple[A, B, C]]) OperationState {
		return &whenAll3State[A, B, C]{a: a, b: b, c: c, receiver: r, cfg: cfg}
	})
}

type whenAll3State[A, B, C any] struct {
	a        Sender[A]
	b        Sender[B]
	c        Sender[C]
	receiver Receiver[Triple[A, B, C]]
	cfg      config.WhenAllConfig
	agg      *whenAllAggregator
	valueA   A
	valueB   B
	valueC   C
	opA, opB, opC OperationState
}

func (s *whenAll3State[A, B, C]) Start() {
	s.agg = newWhenAllAggregator(3, s.receiver.Env(), s.cfg)
	childEnv := s.agg.childEnv(s.receiver.Env())

	s.opA = s.a.Connect(&whenAllChildReceiver[A]{environment: childEnv, agg: s.agg, index: 0, onValue: func(v A) { s.valueA = v }, onDone: s.tryFinish})
	s.opB = s.b.Connect(&whenAllChildReceiver[B]{environment: childEnv, agg: s.agg, index: 1, onValue: func(v B) { s.valueB = v }, onDone: s.tryFinish})
	s.opC = s.c.Connect(&whenAllChildReceiver[C]{environment: childEnv, agg: s.agg, index: 2, onValue: func(v C) { s.valueC = v }, onDone: s.tryFinish})
	s.opA.Start()
	s.opB.Start()
	s.opC.Start()
}

func (s *whenAll3State[A, B, C]) tryFinish() {
	if !s.agg.childDone() {
		return
	}
	s.agg.cleanup()
	kind, err := s.agg.outcome()
	switch kind {
	case resultError:
		s.receiver.SetError(err)
	case resultStopped:
		s.receiver.SetStopped()
	default:
		s.receiver.SetValue(Triple[A, B, C]{First: s.valueA, Second: s.valueB, Third: s.valueC})
	}
}

// WhenAllSlice runs a homogeneous slice of senders and completes with
// their values in the same order, once all have succeeded. With zero
// senders it completes synchronously with an empty slice.
func WhenAllSlice[T any](children []Sender[T], cfg config.WhenAllConfig) Sender[[]T] {
	return SenderFunc[[]T](func(r Receiver[[]T]) OperationState {
		return &whenAllSliceState[T]{children: children, receiver: r, cfg: cfg}
	})
}

type whenAllSliceState[T any] struct {
	children []Sender[T]
	receiver Receiver[[]T]
	cfg      config.WhenAllConfig
	agg      *whenAllAggregator
	values   []T
	ops      []OperationState
}

func (s *whenAllSliceState[T]) Start() {
	if len(s.children) == 0 {
		s.receiver.SetValue(nil)
		return
	}

	s.agg = newWhenAllAggregator(len(s.children), s.receiver.Env(), s.cfg)
	childEnv := s.agg.childEnv(s.receiver.Env())
	s.values = make([]T, len(s.children))
	s.ops = make([]OperationState, len(s.children))

	for i, child := range s.children {
		idx := i
		s.ops[i] = child.Connect(&whenAllChildReceiver[T]{
			environment: childEnv,
			agg:         s.agg,
			index:       idx,
			onValue:     func(v T) { s.values[idx] = v },
			onDone:      s.tryFinish,
		})
	}
	for _, op := range s.ops {
		op.Start()
	}
}

func (s *whenAllSliceState[T]) tryFinish() {
	if !s.agg.childDone() {
		return
	}
	s.agg.cleanup()
	kind, err := s.agg.outcome()
	switch kind {
	case resultError:
		s.receiver.SetError(err)
	case resultStopped:
		s.receiver.SetStopped()
	default:
		s.receiver.SetValue(s.values)
	}
}

// AnySender type-erases a Sender[T] down to Sender[any], letting callers
// build a truly heterogeneous when_all without Go's lack of variadic
// generics getting in the way.
type AnySender struct {
	connect func(Receiver[any]) OperationState
}

// Erase wraps a typed sender as an AnySender.
func Erase[T any](s Sender[T]) AnySender {
	return AnySender{connect: func(r Receiver[any]) OperationState {
		return s.Connect(&eraseReceiver[T]{next: r})
	}}
}

type eraseReceiver[T any] struct {
	next Receiver[any]
}

func (e *eraseReceiver[T]) SetValue(value T)   { e.next.SetValue(any(value)) }
func (e *eraseReceiver[T]) SetError(err error) { e.next.SetError(err) }
func (e *eraseReceiver[T]) SetStopped()        { e.next.SetStopped() }
func (e *eraseReceiver[T]) Env() env.Env       { return e.next.Env() }

// WhenAllAny runs a heterogeneous, fully dynamic set of type-erased
// senders and completes with their values, in argument order, as []any.
// With zero senders it completes synchronously with an empty slice.
func WhenAllAny(cfg config.WhenAllConfig, children ...AnySender) Sender[[]any] {
	return SenderFunc[[]any](func(r Receiver[[]any]) OperationState {
		return &whenAllAnyState{children: children, receiver: r, cfg: cfg}
	})
}

type whenAllAnyState struct {
	children []AnySender
	receiver Receiver[[]any]
	cfg      config.WhenAllConfig
	agg      *whenAllAggregator
	values   []any
	ops      []OperationState
}

func (s *whenAllAnyState) Start() {
	if len(s.children) == 0 {
		s.receiver.SetValue(nil)
		return
	}

	s.agg = newWhenAllAggregator(len(s.children), s.receiver.Env(), s.cfg)
	childEnv := s.agg.childEnv(s.receiver.Env())
	s.values = make([]any, len(s.children))
	s.ops = make([]OperationState, len(s.children))

	for i, child := range s.children {
		idx := i
		s.ops[i] = child.connect(&whenAllChildReceiver[any]{
			environment: childEnv,
			agg:         s.agg,
			index:       idx,
			onValue:     func(v any) { s.values[idx] = v },
			onDone:      s.tryFinish,
		})
	}
	for _, op := range s.ops {
		op.Start()
	}
}

func (s *whenAllAnyState) tryFinish() {
	if !s.agg.childDone() {
		return
	}
	s.agg.cleanup()
	kind, err := s.agg.outcome()
	switch kind {
	case resultError:
		s.receiver.SetError(err)
	case resultStopped:
		s.receiver.SetStopped()
	default:
		s.receiver.SetValue(s.values)
	}
}

// WhenAllWithVariant runs a heterogeneous set of senders the same way
// WhenAllAny does, except every child's outcome is folded through
// IntoVariant first, so the parent always completes successfully with one
// Variant[any] per child describing which channel that child actually
// completed through.
func WhenAllWithVariant(cfg config.WhenAllConfig, children ...AnySender) Sender[[]Variant[any]] {
	wrapped := make([]Sender[Variant[any]], len(children))
	for i, c := range children {
		wrapped[i] = IntoVariant[any](anySenderAdapter{c})
	}
	return WhenAllSlice(wrapped, cfg)
}

// anySenderAdapter recovers a Sender[any] view of an AnySender, for
// adaptors (like IntoVariant) that are written against the typed
// Sender[T] interface.
type anySenderAdapter struct {
	s AnySender
}

func (a anySenderAdapter) Connect(r Receiver[any]) OperationState {
	return a.s.connect(r)
}

// TransferWhenAll runs WhenAllSlice and then hops the aggregate
// completion onto sched, the fused form of
// ScheduleFrom(sched, WhenAllSlice(children, cfg)).
func TransferWhenAll[T any](sched Scheduler, children []Sender[T], cfg config.WhenAllConfig) Sender[[]T] {
	return ScheduleFrom(sched, WhenAllSlice(children, cfg))
}
