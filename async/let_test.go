package async_test

import (
	"testing"

	"github.com/tailored-agentic-units/async/async"
	"github.com/tailored-agentic-units/async/env"
)

func TestLetValueBuildsContinuation(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.LetValue(async.Just(3), func(v int) async.Sender[int] {
		return async.Just(v * v)
	}).Connect(r).Start()

	if r.value != 9 {
		t.Fatalf("expected continuation result 9, got %v", r.value)
	}
}

func TestLetValueSkipsFnOnError(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.LetValue(async.JustError[int](errTestSentinel), func(int) async.Sender[int] {
		t.Fatalf("fn must not run when source errors")
		return async.Just(0)
	}).Connect(r).Start()

	if r.err != errTestSentinel {
		t.Fatalf("expected error passthrough, got %v", r.err)
	}
}

func TestLetErrorRecoversWithContinuation(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.LetError(async.JustError[int](errTestSentinel), func(err error) async.Sender[int] {
		if err != errTestSentinel {
			t.Fatalf("unexpected error: %v", err)
		}
		return async.Just(11)
	}).Connect(r).Start()

	if r.err != nil || r.value != 11 {
		t.Fatalf("expected recovered value 11, got value=%v err=%v", r.value, r.err)
	}
}

func TestLetStoppedRecoversWithContinuation(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.LetStopped(async.JustStopped[int](), func() async.Sender[int] {
		return async.Just(22)
	}).Connect(r).Start()

	if r.stopped || r.value != 22 {
		t.Fatalf("expected recovered value 22, got value=%v stopped=%v", r.value, r.stopped)
	}
}

func TestLetValueRewiresSchedulerFromCompletionAdvertisement(t *testing.T) {
	sched := inlineScheduler{id: 100}

	r := newRecordingReceiver[async.Scheduler](t)
	r.environment = async.WithCompletionScheduler(r.environment, env.ChannelValue, sched)

	async.LetValue(async.Just(0), func(int) async.Sender[async.Scheduler] {
		return async.Read(func(e env.Env) async.Scheduler {
			sc, _ := async.GetScheduler(e)
			return sc
		})
	}).Connect(r).Start()

	got, ok := r.value.(inlineScheduler)
	if !ok || !got.Equal(sched) {
		t.Fatalf("expected continuation's scheduler to be rewired to the advertised one, got %v", r.value)
	}
}

func TestLetValueClearsSchedulerWhenNoneAdvertised(t *testing.T) {
	sched := inlineScheduler{id: 101}
	r := newRecordingReceiver[async.Scheduler](t)
	r.environment = async.WithScheduler(r.environment, sched)

	async.LetValue(async.Just(0), func(int) async.Sender[async.Scheduler] {
		return async.Read(func(e env.Env) async.Scheduler {
			sc, _ := async.GetScheduler(e)
			return sc
		})
	}).Connect(r).Start()

	if r.value != nil {
		t.Fatalf("expected scheduler to be cleared absent a completion-scheduler advertisement, got %v", r.value)
	}
}
