package async

import "github.com/tailored-agentic-units/async/env"

// VariantKind names which channel a Variant was produced from.
type VariantKind int

const (
	VariantValue VariantKind = iota
	VariantError
	VariantStopped
)

// Variant holds the outcome of a sender that has been folded through
// IntoVariant: exactly one of Value or Err is meaningful, selected by
// Kind. Go has no built-in sum type, so Variant stands in for stdexec's
// variant<tuple<Ts...>, tuple<exception_ptr>> completion signature.
type Variant[T any] struct {
	Kind  VariantKind
	Value T
	Err   error
}

// IntoVariant returns a sender that always completes successfully, with a
// Variant describing whichever channel source actually completed through.
// This turns error and cancellation into ordinary values, which is useful
// for collecting heterogeneous outcomes (e.g. across a when_all fan-in)
// without losing which channel fired.
func IntoVariant[T any](source Sender[T]) Sender[Variant[T]] {
	return SenderFunc[Variant[T]](func(r Receiver[Variant[T]]) OperationState {
		return source.Connect(&intoVariantReceiver[T]{next: r})
	})
}

type intoVariantReceiver[T any] struct {
	next Receiver[Variant[T]]
}

func (r *intoVariantReceiver[T]) SetValue(value T) {
	r.next.SetValue(Variant[T]{Kind: VariantValue, Value: value})
}

func (r *intoVariantReceiver[T]) SetError(err error) {
	r.next.SetValue(Variant[T]{Kind: VariantError, Err: err})
}

func (r *intoVariantReceiver[T]) SetStopped() {
	r.next.SetValue(Variant[T]{Kind: VariantStopped})
}

func (r *intoVariantReceiver[T]) Env() env.Env { return r.next.Env() }

// Unwrap recovers the original completion from v: it returns
// (value, nil, false) for VariantValue, (zero, err, false) for
// VariantError, and (zero, nil, true) for VariantStopped. Most callers pattern-match on Kind
// directly; Unwrap is a convenience for code that wants the three-way
// split as a single call.
func (v Variant[T]) Unwrap() (value T, err error, stopped bool) {
	switch v.Kind {
	case VariantValue:
		return v.Value, nil, false
	case VariantError:
		return value, v.Err, false
	default:
		return value, nil, true
	}
}
