package async

import "github.com/tailored-agentic-units/async/env"

// DetachedOptions configures StartDetached.
type DetachedOptions struct {
	// Env is the environment the detached operation state is connected
	// with. If unset, env.Empty() is used.
	Env env.Env

	// OnError, if set, receives an error completion instead of the
	// default fatal behavior.
	OnError func(error)
}

// StartDetached connects source with a receiver that discards success and
// cancellation and starts it immediately, without keeping the operation
// state reachable. This is the Go analogue of stdexec's start_detached: a
// fire-and-forget operation whose lifetime is not tied to any caller.
//
// If the detached operation completes with an error and no OnError was
// supplied, StartDetached panics on whichever goroutine the error arrives
// on — matching the library's "implementations should terminate" contract
// for unhandled detached errors.
func StartDetached[T any](source Sender[T], opts DetachedOptions) {
	next := &detachedValueReceiver[T]{
		environment: opts.Env,
		onError:     opts.OnError,
	}
	source.Connect(next).Start()
}

type detachedValueReceiver[T any] struct {
	environment env.Env
	onError     func(error)
}

func (r *detachedValueReceiver[T]) SetValue(T)   {}
func (r *detachedValueReceiver[T]) SetStopped()  {}
func (r *detachedValueReceiver[T]) Env() env.Env { return r.environment }

func (r *detachedValueReceiver[T]) SetError(err error) {
	if r.onError != nil {
		r.onError(err)
		return
	}
	panic(err)
}
