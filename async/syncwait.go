package async

import (
	"context"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/env"
	"github.com/tailored-agentic-units/async/observability"
)

// SyncWait connects and starts source on a private RunLoop, blocks the
// calling goroutine until it completes, and returns the outcome.
//
//   - (value, true, nil)  — source completed successfully
//   - (zero, false, nil)  — source was cancelled
//   - (zero, false, err)  — source completed with err
//
// source sees the run loop's scheduler as its ambient get_scheduler
// query, so any child that needs "somewhere to run" (e.g. schedule_from
// with no scheduler chosen yet) has one available.
func SyncWait[T any](source Sender[T], cfg config.SyncWaitConfig) (value T, ok bool, err error) {
	obs, obsErr := observability.GetObserver(cfg.Observer)
	if obsErr != nil {
		obs = observability.NoOpObserver{}
	}
	id := uuid.NewString()
	obs.OnEvent(context.Background(), observability.Event{
		Type:   "syncwait.start",
		Level:  observability.LevelVerbose,
		Source: "async.syncwait",
		Data:   map[string]any{"sync_wait_id": id},
	})

	loop := NewRunLoop(config.RunLoopConfig{Observer: cfg.Observer})
	environment := WithScheduler(env.Empty(), loop.Scheduler())

	receiver := &syncWaitReceiver[T]{environment: environment, loop: loop}
	op := source.Connect(receiver)
	op.Start()
	loop.Run()

	obs.OnEvent(context.Background(), observability.Event{
		Type:   "syncwait.finish",
		Level:  observability.LevelVerbose,
		Source: "async.syncwait",
		Data:   map[string]any{"sync_wait_id": id, "kind": int(receiver.kind)},
	})

	switch receiver.kind {
	case resultValue:
		return receiver.value, true, nil
	case resultError:
		return value, false, receiver.err
	default:
		return value, false, nil
	}
}

type syncWaitReceiver[T any] struct {
	environment env.Env
	loop        *RunLoop
	kind        resultKind
	value       T
	err         error
}

func (r *syncWaitReceiver[T]) SetValue(value T) {
	r.kind = resultValue
	r.value = value
	r.loop.Finish()
}

func (r *syncWaitReceiver[T]) SetError(err error) {
	r.kind = resultError
	r.err = err
	r.loop.Finish()
}

func (r *syncWaitReceiver[T]) SetStopped() {
	r.kind = resultStopped
	r.loop.Finish()
}

func (r *syncWaitReceiver[T]) Env() env.Env { return r.environment }

// SyncWaitWithVariant is SyncWait composed with IntoVariant: its error
// result is nil once source's own run loop has drained, since
// IntoVariant has already folded error and cancellation into the value
// channel. It is useful for callers that want to pattern-match the
// outcome's Kind rather than branch on SyncWait's three-way return.
func SyncWaitWithVariant[T any](source Sender[T], cfg config.SyncWaitConfig) (Variant[T], error) {
	value, ok, err := SyncWait(IntoVariant(source), cfg)
	if !ok {
		return Variant[T]{}, err
	}
	return value, nil
}
