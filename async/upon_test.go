package async_test

import (
	"testing"

	"github.com/tailored-agentic-units/async/async"
)

func TestUponErrorRecovers(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.UponError(async.JustError[int](errTestSentinel), func(err error) int {
		if err != errTestSentinel {
			t.Fatalf("unexpected error passed to recovery: %v", err)
		}
		return 7
	}).Connect(r).Start()

	if r.err != nil || r.value != 7 {
		t.Fatalf("expected recovered value 7, got value=%v err=%v", r.value, r.err)
	}
}

func TestUponErrorLeavesSuccessAlone(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.UponError(async.Just(5), func(error) int {
		t.Fatalf("recovery must not run on success")
		return 0
	}).Connect(r).Start()

	if r.value != 5 {
		t.Fatalf("expected original value, got %v", r.value)
	}
}

func TestUponStoppedRecovers(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.UponStopped(async.JustStopped[int](), func() int { return 9 }).Connect(r).Start()

	if r.stopped || r.value != 9 {
		t.Fatalf("expected recovered value 9, got value=%v stopped=%v", r.value, r.stopped)
	}
}

func TestStoppedAsOptional(t *testing.T) {
	stoppedR := newRecordingReceiver[async.Optional[int]](t)
	async.StoppedAsOptional(async.JustStopped[int]()).Connect(stoppedR).Start()
	if stoppedR.value.Present {
		t.Fatalf("expected absent optional on cancellation")
	}

	valueR := newRecordingReceiver[async.Optional[int]](t)
	async.StoppedAsOptional(async.Just(3)).Connect(valueR).Start()
	if !valueR.value.Present || valueR.value.Value != 3 {
		t.Fatalf("expected present optional carrying 3, got %+v", valueR.value)
	}
}

func TestStoppedAsError(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.StoppedAsError[int](async.JustStopped[int](), errTestSentinel).Connect(r).Start()

	if r.err != errTestSentinel {
		t.Fatalf("expected sentinel error on cancellation, got %v", r.err)
	}
}
