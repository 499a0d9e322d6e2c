package async

import "github.com/tailored-agentic-units/async/env"

// uponErrorReceiver forwards value and stopped completions untouched and
// maps the error channel through fn into a recovery value.
type uponErrorReceiver[T any] struct {
	next Receiver[T]
	fn   func(error) T
}

func (r *uponErrorReceiver[T]) SetValue(value T) { r.next.SetValue(value) }
func (r *uponErrorReceiver[T]) SetStopped()      { r.next.SetStopped() }
func (r *uponErrorReceiver[T]) Env() env.Env     { return r.next.Env() }

func (r *uponErrorReceiver[T]) SetError(err error) {
	var recovered T
	perr := recoverAsError("upon_error", func() { recovered = r.fn(err) })
	if perr != nil {
		r.next.SetError(perr)
		return
	}
	r.next.SetValue(recovered)
}

// UponError returns a sender that runs source and, if it completes with an
// error, recovers by applying fn to produce a value instead. A successful
// completion or cancellation passes through unchanged.
func UponError[T any](source Sender[T], fn func(error) T) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return source.Connect(&uponErrorReceiver[T]{next: r, fn: fn})
	})
}

// uponStoppedReceiver forwards value and error completions untouched and
// maps cancellation into a value produced by fn.
type uponStoppedReceiver[T any] struct {
	next Receiver[T]
	fn   func() T
}

func (r *uponStoppedReceiver[T]) SetValue(value T)  { r.next.SetValue(value) }
func (r *uponStoppedReceiver[T]) SetError(err error) { r.next.SetError(err) }
func (r *uponStoppedReceiver[T]) Env() env.Env       { return r.next.Env() }

func (r *uponStoppedReceiver[T]) SetStopped() {
	var recovered T
	perr := recoverAsError("upon_stopped", func() { recovered = r.fn() })
	if perr != nil {
		r.next.SetError(perr)
		return
	}
	r.next.SetValue(recovered)
}

// UponStopped returns a sender that runs source and, if it is cancelled,
// recovers by calling fn to produce a value instead. A successful
// completion or error passes through unchanged.
func UponStopped[T any](source Sender[T], fn func() T) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return source.Connect(&uponStoppedReceiver[T]{next: r, fn: fn})
	})
}

// StoppedAsOptional returns a sender that turns cancellation of source into
// a successful completion carrying (zero, false), and success into
// (value, true). Errors pass through unchanged.
func StoppedAsOptional[T any](source Sender[T]) Sender[Optional[T]] {
	return SenderFunc[Optional[T]](func(r Receiver[Optional[T]]) OperationState {
		return source.Connect(&stoppedAsOptionalReceiver[T]{next: r})
	})
}

// Optional is a minimal present/absent wrapper, used where the spec's
// stopped_as_optional needs a value-or-nothing result type.
type Optional[T any] struct {
	Value   T
	Present bool
}

type stoppedAsOptionalReceiver[T any] struct {
	next Receiver[Optional[T]]
}

func (r *stoppedAsOptionalReceiver[T]) SetValue(value T) {
	r.next.SetValue(Optional[T]{Value: value, Present: true})
}
func (r *stoppedAsOptionalReceiver[T]) SetError(err error) { r.next.SetError(err) }
func (r *stoppedAsOptionalReceiver[T]) SetStopped()        { r.next.SetValue(Optional[T]{}) }
func (r *stoppedAsOptionalReceiver[T]) Env() env.Env       { return r.next.Env() }

// StoppedAsError returns a sender that turns cancellation of source into an
// error completion carrying err. Success and existing errors pass through
// unchanged.
func StoppedAsError[T any](source Sender[T], err error) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return source.Connect(&stoppedAsErrorReceiver[T]{next: r, err: err})
	})
}

type stoppedAsErrorReceiver[T any] struct {
	next Receiver[T]
	err  error
}

func (r *stoppedAsErrorReceiver[T]) SetValue(value T)   { r.next.SetValue(value) }
func (r *stoppedAsErrorReceiver[T]) SetError(err error) { r.next.SetError(err) }
func (r *stoppedAsErrorReceiver[T]) SetStopped()        { r.next.SetError(r.err) }
func (r *stoppedAsErrorReceiver[T]) Env() env.Env       { return r.next.Env() }
