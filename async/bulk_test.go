package async_test

import (
	"testing"

	"github.com/tailored-agentic-units/async/async"
)

func TestBulkInvokesFnPerIndex(t *testing.T) {
	var seen []int
	r := newRecordingReceiver[string](t)
	async.Bulk(async.Just("batch"), 4, func(i int, value string) {
		if value != "batch" {
			t.Fatalf("unexpected value %q", value)
		}
		seen = append(seen, i)
	}).Connect(r).Start()

	if r.value != "batch" {
		t.Fatalf("expected original value forwarded, got %q", r.value)
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 invocations, got %d: %v", len(seen), seen)
	}
	for i, v := range seen {
		if v != i {
			t.Fatalf("expected sequential indices, got %v", seen)
		}
	}
}

func TestBulkShortCircuitsOnPanic(t *testing.T) {
	calls := 0
	r := newRecordingReceiver[int](t)
	async.Bulk(async.Just(0), 5, func(i int, _ int) {
		calls++
		if i == 2 {
			panic("stop here")
		}
	}).Connect(r).Start()

	if calls != 3 {
		t.Fatalf("expected exactly 3 calls before panic halts iteration, got %d", calls)
	}
	if r.err == nil {
		t.Fatalf("expected panic to surface as an error")
	}
}

func TestBulkZeroShapeForwardsValueUntouched(t *testing.T) {
	r := newRecordingReceiver[int](t)
	async.Bulk(async.Just(99), 0, func(int, int) {
		t.Fatalf("fn must not run for a zero shape")
	}).Connect(r).Start()

	if r.value != 99 {
		t.Fatalf("expected value forwarded untouched, got %v", r.value)
	}
}
