package async

import "github.com/tailored-agentic-units/async/env"

// hopReceiver drives a scheduler's Schedule() sender and, once it
// completes, invokes a caller-supplied continuation. Used by
// ScheduleFrom's post-completion hop.
type hopReceiver struct {
	environment env.Env
	onValue     func()
	onError     func(error)
	onStopped   func()
}

func (h *hopReceiver) SetValue(struct{})  { h.onValue() }
func (h *hopReceiver) SetError(err error) { h.onError(err) }
func (h *hopReceiver) SetStopped()        { h.onStopped() }
func (h *hopReceiver) Env() env.Env       { return h.environment }

// StartOn returns a sender that first schedules onto sched, then connects
// and starts source — literally let_value(schedule(sched), [] { return
// source }), per spec.md §4.2. Building it on top of LetValue means a
// continuation built downstream of StartOn via LetValue inherits sched as
// its ambient scheduler the same way any other let_value continuation
// inherits its child's advertised completion scheduler.
func StartOn[T any](sched Scheduler, source Sender[T]) Sender[T] {
	return startOnSender[T]{
		sched: sched,
		inner: LetValue(sched.Schedule(), func(struct{}) Sender[T] { return source }),
	}
}

// startOnSender is a named Sender type so it can also implement
// CompletionSchedulerSender, advertising sched to a let_value built on top.
type startOnSender[T any] struct {
	sched Scheduler
	inner Sender[T]
}

func (s startOnSender[T]) Connect(r Receiver[T]) OperationState { return s.inner.Connect(r) }

func (s startOnSender[T]) CompletionScheduler() Scheduler { return s.sched }

// On is an alias for StartOn, matching the spec's naming for "run this
// sender on that scheduler".
func On[T any](sched Scheduler, source Sender[T]) Sender[T] {
	return StartOn(sched, source)
}

// ScheduleFrom returns a sender that starts source immediately and, once
// it completes, hops onto sched before delivering the completion
// downstream. If sched.Equal reports the receiver's current scheduler
// already matches sched, the hop is skipped. The returned sender
// advertises sched as its value-channel completion scheduler (via
// CompletionSchedulerSender), so a let_value continuation built on top of
// it inherits sched too.
func ScheduleFrom[T any](sched Scheduler, source Sender[T]) Sender[T] {
	return scheduleFromSender[T]{sched: sched, source: source}
}

// scheduleFromSender is a named Sender type (rather than a bare
// SenderFunc) purely so it can also implement CompletionSchedulerSender.
type scheduleFromSender[T any] struct {
	sched  Scheduler
	source Sender[T]
}

func (s scheduleFromSender[T]) Connect(r Receiver[T]) OperationState {
	return &scheduleFromState[T]{sched: s.sched, source: s.source, receiver: r}
}

func (s scheduleFromSender[T]) CompletionScheduler() Scheduler { return s.sched }

type scheduleFromState[T any] struct {
	sched    Scheduler
	source   Sender[T]
	receiver Receiver[T]
	innerOp  OperationState
	hopOp    OperationState
}

func (s *scheduleFromState[T]) Start() {
	inner := &scheduleFromReceiver[T]{state: s}
	s.innerOp = s.source.Connect(inner)
	s.innerOp.Start()
}

func (s *scheduleFromState[T]) hop(complete func()) {
	if current, ok := GetScheduler(s.receiver.Env()); ok && current.Equal(s.sched) {
		complete()
		return
	}
	hop := &hopReceiver{
		environment: s.receiver.Env(),
		onValue:     complete,
		onError:     s.receiver.SetError,
		onStopped:   s.receiver.SetStopped,
	}
	s.hopOp = s.sched.Schedule().Connect(hop)
	s.hopOp.Start()
}

type scheduleFromReceiver[T any] struct {
	state *scheduleFromState[T]
	value T
	err   error
}

func (r *scheduleFromReceiver[T]) SetValue(value T) {
	r.value = value
	r.state.hop(func() { r.state.receiver.SetValue(r.value) })
}

func (r *scheduleFromReceiver[T]) SetError(err error) {
	r.err = err
	r.state.hop(func() { r.state.receiver.SetError(r.err) })
}

func (r *scheduleFromReceiver[T]) SetStopped() {
	r.state.hop(r.state.receiver.SetStopped)
}

func (r *scheduleFromReceiver[T]) Env() env.Env { return r.state.receiver.Env() }

// ContinueOn is ScheduleFrom with its arguments reordered to read as a
// pipeline stage: source, then continue on sched.
func ContinueOn[T any](source Sender[T], sched Scheduler) Sender[T] {
	return ScheduleFrom(sched, source)
}

// TransferJust returns a sender that completes with value after hopping
// onto sched — the fused form of ScheduleFrom(sched, Just(value)).
func TransferJust[T any](sched Scheduler, value T) Sender[T] {
	return ScheduleFrom(sched, Just(value))
}
