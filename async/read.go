package async

import (
	"github.com/tailored-agentic-units/async/env"
	"github.com/tailored-agentic-units/async/stoptoken"
)

// Read returns a sender that, when connected and started, runs query
// against the receiver's environment and completes with the result. This
// is how adaptors reach into the ambient environment (get_scheduler,
// get_stop_token, get_allocator, ...) as an ordinary sender instead of a
// special form — mirroring stdexec's read_env.
func Read[T any](query func(env.Env) T) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return OperationStateFunc(func() {
			var value T
			err := recoverAsError("read", func() { value = query(r.Env()) })
			if err != nil {
				r.SetError(err)
				return
			}
			r.SetValue(value)
		})
	})
}

// ReadScheduler is a convenience Read query returning the environment's
// current scheduler, paired with whether one was attached.
func ReadScheduler() Sender[Optional[Scheduler]] {
	return Read(func(e env.Env) Optional[Scheduler] {
		sched, ok := GetScheduler(e)
		return Optional[Scheduler]{Value: sched, Present: ok}
	})
}

// ReadStopToken is a convenience Read query returning the environment's
// stop token.
func ReadStopToken() Sender[stoptoken.Token] {
	return Read(func(e env.Env) stoptoken.Token { return e.StopToken() })
}
