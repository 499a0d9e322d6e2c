package async

import "github.com/tailored-agentic-units/async/env"

// justState is the operation state shared by Just, JustError, and
// JustStopped: start immediately completes the receiver with a fixed
// outcome, synchronously, on whichever goroutine calls Start.
type justState[T any] struct {
	receiver Receiver[T]
	complete func(Receiver[T])
}

func (s *justState[T]) Start() {
	s.complete(s.receiver)
}

// Just returns a sender that completes synchronously with value the
// moment it is started.
func Just[T any](value T) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return &justState[T]{receiver: r, complete: func(r Receiver[T]) { r.SetValue(value) }}
	})
}

// JustError returns a sender that completes synchronously with err the
// moment it is started. err must not be nil.
func JustError[T any](err error) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return &justState[T]{receiver: r, complete: func(r Receiver[T]) { r.SetError(err) }}
	})
}

// JustStopped returns a sender that completes synchronously via
// cancellation the moment it is started.
func JustStopped[T any]() Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return &justState[T]{receiver: r, complete: func(r Receiver[T]) { r.SetStopped() }}
	})
}

// baseReceiver is an embeddable Receiver implementation holding just an
// Env, useful for adaptors that build a leaf receiver without needing the
// full forwarding machinery of derivedReceiver.
type baseReceiver struct {
	environment env.Env
}

func (b *baseReceiver) Env() env.Env { return b.environment }
