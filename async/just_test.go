package async_test

import (
	"errors"
	"testing"

	"github.com/tailored-agentic-units/async/async"
	"github.com/tailored-agentic-units/async/env"
)

// channelReceiver reports its completion through a channel instead of a
// struct field, so a goroutine other than the test's own may safely
// deliver the result — unlike recordingReceiver, which calls t.Fatalf and
// so must only ever complete on the test goroutine.
type channelReceiver[T any] struct {
	environment env.Env
	done        chan completion[T]
}

type completion[T any] struct {
	value   T
	err     error
	stopped bool
}

func newChannelReceiver[T any](environment env.Env) *channelReceiver[T] {
	return &channelReceiver[T]{environment: environment, done: make(chan completion[T], 1)}
}

func (r *channelReceiver[T]) SetValue(value T)   { r.done <- completion[T]{value: value} }
func (r *channelReceiver[T]) SetError(err error) { r.done <- completion[T]{err: err} }
func (r *channelReceiver[T]) SetStopped()        { r.done <- completion[T]{stopped: true} }
func (r *channelReceiver[T]) Env() env.Env       { return r.environment }

// recordingReceiver captures exactly one completion and fails the test if
// it observes more than one.
type recordingReceiver[T any] struct {
	t           *testing.T
	environment env.Env
	completed   bool
	value       T
	err         error
	stopped     bool
}

func newRecordingReceiver[T any](t *testing.T) *recordingReceiver[T] {
	return &recordingReceiver[T]{t: t, environment: env.Empty()}
}

func (r *recordingReceiver[T]) SetValue(value T) {
	r.requireFirst()
	r.value = value
}

func (r *recordingReceiver[T]) SetError(err error) {
	r.requireFirst()
	r.err = err
}

func (r *recordingReceiver[T]) SetStopped() {
	r.requireFirst()
	r.stopped = true
}

func (r *recordingReceiver[T]) Env() env.Env { return r.environment }

func (r *recordingReceiver[T]) requireFirst() {
	if r.completed {
		r.t.Fatalf("receiver completed more than once")
	}
	r.completed = true
}

func TestJustCompletesSynchronouslyWithValue(t *testing.T) {
	r := newRecordingReceiver[int](t)
	op := async.Just(42).Connect(r)
	op.Start()

	if !r.completed || r.value != 42 {
		t.Fatalf("expected synchronous completion with 42, got completed=%v value=%v", r.completed, r.value)
	}
}

func TestJustErrorCompletesWithError(t *testing.T) {
	want := errors.New("boom")
	r := newRecordingReceiver[int](t)
	async.JustError[int](want).Connect(r).Start()

	if !errors.Is(r.err, want) {
		t.Fatalf("expected error %v, got %v", want, r.err)
	}
}

func TestJustStoppedCompletesViaCancellation(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.JustStopped[int]().Connect(r).Start()

	if !r.stopped {
		t.Fatalf("expected stopped completion")
	}
}
