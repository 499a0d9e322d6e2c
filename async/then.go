package async

import "github.com/tailored-agentic-units/async/env"

// thenReceiver forwards error and stopped completions untouched and maps
// the value channel through fn before forwarding to the next receiver.
type thenReceiver[T, U any] struct {
	next Receiver[U]
	fn   func(T) U
}

func (r *thenReceiver[T, U]) SetValue(value T) {
	var mapped U
	err := recoverAsError("then", func() { mapped = r.fn(value) })
	if err != nil {
		r.next.SetError(err)
		return
	}
	r.next.SetValue(mapped)
}

func (r *thenReceiver[T, U]) SetError(err error) { r.next.SetError(err) }
func (r *thenReceiver[T, U]) SetStopped()        { r.next.SetStopped() }
func (r *thenReceiver[T, U]) Env() env.Env       { return r.next.Env() }

// Then returns a sender that runs source, applies fn to its value on
// success, and forwards the result. Errors and cancellation pass through
// unchanged. A panic inside fn is converted into a SetError completion
// carrying a *PanicError.
func Then[T, U any](source Sender[T], fn func(T) U) Sender[U] {
	return SenderFunc[U](func(r Receiver[U]) OperationState {
		return source.Connect(&thenReceiver[T, U]{next: r, fn: fn})
	})
}
