// Package async implements the sender/receiver composition core: the
// Sender/Receiver/OperationState protocol, the run loop and sync_wait
// drivers, and every adaptor built on top of them (then, let_value,
// when_all, split, ensure_started, schedule_from, and friends).
//
// A Sender[T] describes an asynchronous operation that has not started
// yet. Connect pairs it with a Receiver[T] to produce an OperationState;
// nothing runs until Start is called on that state. Every operation state
// completes exactly once, through precisely one of the receiver's three
// channels: SetValue, SetError, or SetStopped.
package async

import (
	"context"

	"github.com/tailored-agentic-units/async/env"
)

// Receiver is the consumer half of one connected operation. Exactly one of
// SetValue, SetError, or SetStopped is called exactly once over the
// lifetime of the operation state that was connected with this receiver.
// Implementations must not block the caller indefinitely; long-running
// work belongs in a scheduled continuation, not inline in a completion
// callback.
type Receiver[T any] interface {
	// SetValue completes the operation successfully with value.
	SetValue(value T)

	// SetError completes the operation with err. err is never nil.
	SetError(err error)

	// SetStopped completes the operation via cancellation.
	SetStopped()

	// Env returns the environment visible to the operation this receiver
	// was connected to — its stop token, scheduler, domain, and any other
	// attached queries.
	Env() env.Env
}

// OperationState is the connected-but-not-yet-started (or already started)
// state of one operation. Start must be called at most once; calling it
// more than once is undefined by the protocol, and no operation state in
// this package detects it.
type OperationState interface {
	// Start begins the operation. The operation state's receiver is
	// completed, synchronously or asynchronously, exactly once.
	Start()
}

// Sender is a not-yet-started description of an asynchronous operation
// that completes with a value of type T. Connect may be called more than
// once on the same Sender to produce independent operation states, unless
// the concrete sender documents otherwise (split's shared sender is
// intentionally reusable this way; a plain Just sender is also safe to
// reconnect, but an adaptor wrapping a single-shot child is not).
type Sender[T any] interface {
	// Connect pairs this sender with receiver, producing an operation
	// state that has not started yet.
	Connect(receiver Receiver[T]) OperationState
}

// SenderFunc adapts a connect function into a Sender.
type SenderFunc[T any] func(receiver Receiver[T]) OperationState

// Connect implements Sender.
func (f SenderFunc[T]) Connect(receiver Receiver[T]) OperationState {
	return f(receiver)
}

// OperationStateFunc adapts a start function into an OperationState.
type OperationStateFunc func()

// Start implements OperationState.
func (f OperationStateFunc) Start() {
	f()
}

// Scheduler produces a Sender[struct{}] that completes once the caller has
// been scheduled onto this scheduler's execution context. Two schedulers
// are considered the "same" scheduler by Equal, which adaptors such as
// continue_on use to skip a hop when the caller is already running on the
// target scheduler.
type Scheduler interface {
	// Schedule returns a sender that completes with an empty value once
	// running on this scheduler.
	Schedule() Sender[struct{}]

	// Equal reports whether other refers to the same execution context as
	// this scheduler.
	Equal(other Scheduler) bool
}

// CompletionSchedulerSender is implemented by a sender that knows, ahead
// of completing, which scheduler it will call SetValue from — the
// canonical example is the sender a Scheduler's own Schedule returns, and
// anything built on top of it without changing the destination (such as
// schedule_from/continue_on's result). let_value consults this on its
// source sender to advertise get_completion_scheduler<Value> to the
// continuation it builds (rewireChildEnv in let.go), which is how a
// chain built from this library's own schedulers keeps "current
// scheduler" state flowing through a dynamic continuation even though
// Env itself is receiver-owned, not sender-owned, in this rendering. The
// method must be exported so Scheduler implementations in other packages
// can satisfy it.
type CompletionSchedulerSender interface {
	CompletionScheduler() Scheduler
}

// adviseCompletionScheduler attaches source's advertised value-channel
// completion scheduler, if it has one, onto parentEnv before a downstream
// adaptor derives a child environment from it.
func adviseCompletionScheduler(source any, parentEnv env.Env, channel env.Channel) env.Env {
	if adv, ok := source.(CompletionSchedulerSender); ok {
		return WithCompletionScheduler(parentEnv, channel, adv.CompletionScheduler())
	}
	return parentEnv
}

// ForwardProgressGuarantee classifies how eagerly a scheduler advances
// queued work relative to other work sharing it.
type ForwardProgressGuarantee int

const (
	// ForwardProgressConcurrent: no guarantee beyond eventual completion.
	ForwardProgressConcurrent ForwardProgressGuarantee = iota
	// ForwardProgressParallel: distinct agents make independent progress.
	ForwardProgressParallel
	// ForwardProgressWeaklyParallel: progress possible but not guaranteed
	// across a suspension point.
	ForwardProgressWeaklyParallel
)

// GetForwardProgressGuarantee reports the forward-progress guarantee a
// scheduler offers. It does not inspect its argument and always resolves
// to ForwardProgressParallel, for the RunLoop's scheduler as for every
// other; the function exists so callers can query the guarantee
// generically rather than assuming it.
func GetForwardProgressGuarantee(Scheduler) ForwardProgressGuarantee {
	return ForwardProgressParallel
}

// WithScheduler attaches sched as e's get_scheduler query, typed as a
// Scheduler. This wraps env.WithSchedulerValue so the env package itself
// never needs to know about the Scheduler interface.
func WithScheduler(e env.Env, sched Scheduler) env.Env {
	return env.WithSchedulerValue(e, sched)
}

// UnsetScheduler clears any scheduler attached to e.
func UnsetScheduler(e env.Env) env.Env {
	return env.WithoutScheduler(e)
}

// GetScheduler returns the Scheduler attached to e, if any.
func GetScheduler(e env.Env) (Scheduler, bool) {
	v, ok := e.SchedulerValue()
	if !ok {
		return nil, false
	}
	sched, ok := v.(Scheduler)
	return sched, ok
}

// WithCompletionScheduler attaches sched as the scheduler that channel c
// will complete on, for every sender built on top of the returned Env.
func WithCompletionScheduler(e env.Env, c env.Channel, sched Scheduler) env.Env {
	return env.WithCompletionSchedulerValue(e, c, sched)
}

// GetCompletionScheduler returns the completion scheduler advertised for
// channel c, if any.
func GetCompletionScheduler(e env.Env, c env.Channel) (Scheduler, bool) {
	v, ok := e.CompletionSchedulerValue(c)
	if !ok {
		return nil, false
	}
	sched, ok := v.(Scheduler)
	return sched, ok
}

// contextKey attaches a context.Context to an Env, so adaptors that need
// to pass one through to an external API (e.g. a worker-pool scheduler
// backed by a real goroutine) can recover it without threading it as a
// second parameter through every signature.
var contextKey = env.NewKey("async.context")

// WithContext attaches ctx to e.
func WithContext(e env.Env, ctx context.Context) env.Env {
	return e.With(contextKey, ctx)
}

// GetContext returns the context.Context attached to e, or
// context.Background() if none was attached.
func GetContext(e env.Env) context.Context {
	v, ok := e.Get(contextKey)
	if !ok || v == nil {
		return context.Background()
	}
	if ctx, ok := v.(context.Context); ok {
		return ctx
	}
	return context.Background()
}
