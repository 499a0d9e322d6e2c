package async

import "github.com/tailored-agentic-units/async/env"

// Bulk returns a sender that, once source completes with a value, invokes
// fn once per index in [0, shape) before forwarding the original value
// downstream. Iteration runs sequentially on whichever goroutine completes
// source — Bulk does not introduce concurrency. Pairing it with a
// scheduler (via On or StartOn) moves the whole loop onto that scheduler;
// the indices still run one after another, not across goroutines. A
// panic from fn, or an error or cancellation from source, short-circuits
// the remaining indices.
func Bulk[T any](source Sender[T], shape int, fn func(index int, value T)) Sender[T] {
	return SenderFunc[T](func(r Receiver[T]) OperationState {
		return source.Connect(&bulkReceiver[T]{next: r, shape: shape, fn: fn})
	})
}

type bulkReceiver[T any] struct {
	next  Receiver[T]
	shape int
	fn    func(int, T)
}

func (r *bulkReceiver[T]) SetValue(value T) {
	for i := 0; i < r.shape; i++ {
		if r.next.Env().StopToken().IsStopped() {
			r.next.SetStopped()
			return
		}
		if err := recoverAsError("bulk", func() { r.fn(i, value) }); err != nil {
			r.next.SetError(err)
			return
		}
	}
	r.next.SetValue(value)
}

func (r *bulkReceiver[T]) SetError(err error) { r.next.SetError(err) }
func (r *bulkReceiver[T]) SetStopped()        { r.next.SetStopped() }
func (r *bulkReceiver[T]) Env() env.Env       { return r.next.Env() }
