package async

import "github.com/tailored-agentic-units/async/env"

// rewireChildEnv derives the environment visible to a let_value/let_error/
// let_stopped continuation. If the parent advertised a completion
// scheduler for channel, the continuation's get_scheduler reports that
// scheduler — this is what lets a continuation built inside let_value
// assume it is still running on the scheduler the predecessor promised to
// complete its value channel on. Otherwise the continuation's scheduler
// and domain queries are cleared; a continuation that needs a scheduler
// must ask for one explicitly rather than inherit a stale one.
func rewireChildEnv(parent env.Env, channel env.Channel) env.Env {
	if sched, ok := GetCompletionScheduler(parent, channel); ok {
		return WithScheduler(parent, sched)
	}
	e := UnsetScheduler(parent)
	return env.WithoutDomain(e)
}

// derivedReceiver forwards an Env that was rewired by rewireChildEnv while
// delegating all three completion channels to next.
type derivedReceiver[T any] struct {
	next Receiver[T]
	env  env.Env
}

func (d *derivedReceiver[T]) SetValue(value T)  { d.next.SetValue(value) }
func (d *derivedReceiver[T]) SetError(err error) { d.next.SetError(err) }
func (d *derivedReceiver[T]) SetStopped()        { d.next.SetStopped() }
func (d *derivedReceiver[T]) Env() env.Env       { return d.env }

// LetValue returns a sender that runs source and, on success, calls fn
// with the value to construct a continuation sender that is connected and
// started with a rewired environment (see rewireChildEnv). Error and
// cancellation from source pass through unchanged. A panic from fn is
// converted into a SetError completion.
func LetValue[T, U any](source Sender[T], fn func(T) Sender[U]) Sender[U] {
	return SenderFunc[U](func(r Receiver[U]) OperationState {
		return &letValueState[T, U]{source: source, fn: fn, receiver: r}
	})
}

type letValueState[T, U any] struct {
	source     Sender[T]
	fn         func(T) Sender[U]
	receiver   Receiver[U]
	sourceOp   OperationState
	childOp    OperationState
}

func (s *letValueState[T, U]) Start() {
	s.sourceOp = s.source.Connect(&letValueInner[T, U]{state: s})
	s.sourceOp.Start()
}

type letValueInner[T, U any] struct {
	state *letValueState[T, U]
}

func (i *letValueInner[T, U]) SetValue(value T) {
	s := i.state
	var child Sender[U]
	err := recoverAsError("let_value", func() { child = s.fn(value) })
	if err != nil {
		s.receiver.SetError(err)
		return
	}
	parentEnv := adviseCompletionScheduler(s.source, s.receiver.Env(), env.ChannelValue)
	childEnv := rewireChildEnv(parentEnv, env.ChannelValue)
	s.childOp = child.Connect(&derivedReceiver[U]{next: s.receiver, env: childEnv})
	s.childOp.Start()
}

func (i *letValueInner[T, U]) SetError(err error) { i.state.receiver.SetError(err) }
func (i *letValueInner[T, U]) SetStopped()        { i.state.receiver.SetStopped() }
func (i *letValueInner[T, U]) Env() env.Env       { return i.state.receiver.Env() }

// LetError returns a sender that runs source and, if it fails, calls fn
// with the error to construct a recovery continuation. Success and
// cancellation pass through unchanged.
func LetError[T any](source Sender[T], fn func(error) Sender[T]) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return &letErrorState[T]{source: source, fn: fn, receiver: r}
	})
}

type letErrorState[T any] struct {
	source   Sender[T]
	fn       func(error) Sender[T]
	receiver Receiver[T]
	sourceOp OperationState
	childOp  OperationState
}

func (s *letErrorState[T]) Start() {
	s.sourceOp = s.source.Connect(&letErrorInner[T]{state: s})
	s.sourceOp.Start()
}

type letErrorInner[T any] struct {
	state *letErrorState[T]
}

func (i *letErrorInner[T]) SetValue(value T) { i.state.receiver.SetValue(value) }
func (i *letErrorInner[T]) SetStopped()      { i.state.receiver.SetStopped() }
func (i *letErrorInner[T]) Env() env.Env     { return i.state.receiver.Env() }

func (i *letErrorInner[T]) SetError(err error) {
	s := i.state
	var child Sender[T]
	perr := recoverAsError("let_error", func() { child = s.fn(err) })
	if perr != nil {
		s.receiver.SetError(perr)
		return
	}
	childEnv := rewireChildEnv(s.receiver.Env(), env.ChannelError)
	s.childOp = child.Connect(&derivedReceiver[T]{next: s.receiver, env: childEnv})
	s.childOp.Start()
}

// LetStopped returns a sender that runs source and, if it is cancelled,
// calls fn to construct a recovery continuation. Success and error pass
// through unchanged.
func LetStopped[T any](source Sender[T], fn func() Sender[T]) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return &letStoppedState[T]{source: source, fn: fn, receiver: r}
	})
}

type letStoppedState[T any] struct {
	source   Sender[T]
	fn       func() Sender[T]
	receiver Receiver[T]
	sourceOp OperationState
	childOp  OperationState
}

func (s *letStoppedState[T]) Start() {
	s.sourceOp = s.source.Connect(&letStoppedInner[T]{state: s})
	s.sourceOp.Start()
}

type letStoppedInner[T any] struct {
	state *letStoppedState[T]
}

func (i *letStoppedInner[T]) SetValue(value T)   { i.state.receiver.SetValue(value) }
func (i *letStoppedInner[T]) SetError(err error) { i.state.receiver.SetError(err) }
func (i *letStoppedInner[T]) Env() env.Env       { return i.state.receiver.Env() }

func (i *letStoppedInner[T]) SetStopped() {
	s := i.state
	var child Sender[T]
	perr := recoverAsError("let_stopped", func() { child = s.fn() })
	if perr != nil {
		s.receiver.SetError(perr)
		return
	}
	childEnv := rewireChildEnv(s.receiver.Env(), env.ChannelStopped)
	s.childOp = child.Connect(&derivedReceiver[T]{next: s.receiver, env: childEnv})
	s.childOp.Start()
}
