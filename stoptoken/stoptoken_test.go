package stoptoken_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tailored-agentic-units/async/stoptoken"
)

func TestZeroTokenNeverStopped(t *testing.T) {
	var tok stoptoken.Token
	if tok.IsStopped() {
		t.Fatalf("zero Token reported stopped")
	}
	if tok.StopPossible() {
		t.Fatalf("zero Token reported StopPossible")
	}

	ran := false
	cb := tok.Register(func() { ran = true })
	if ran {
		t.Fatalf("zero Token ran callback on Register")
	}
	cb.Unregister()
}

func TestRegisterBeforeStopRunsOnRequestStop(t *testing.T) {
	src := stoptoken.New()
	tok := src.Token()

	var ran atomic.Bool
	tok.Register(func() { ran.Store(true) })

	if ran.Load() {
		t.Fatalf("callback ran before RequestStop")
	}

	src.RequestStop()

	if !ran.Load() {
		t.Fatalf("callback did not run after RequestStop")
	}
}

func TestRegisterAfterStopRunsSynchronously(t *testing.T) {
	src := stoptoken.New()
	src.RequestStop()

	tok := src.Token()
	ran := false
	tok.Register(func() { ran = true })

	if !ran {
		t.Fatalf("callback registered post-stop did not run synchronously")
	}
}

func TestRequestStopIdempotent(t *testing.T) {
	src := stoptoken.New()
	tok := src.Token()

	var count atomic.Int32
	tok.Register(func() { count.Add(1) })

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			src.RequestStop()
		}()
	}
	wg.Wait()

	if got := count.Load(); got != 1 {
		t.Fatalf("callback invoked %d times, want exactly 1", got)
	}
}

func TestUnregisterPreventsInvocation(t *testing.T) {
	src := stoptoken.New()
	tok := src.Token()

	ran := false
	cb := tok.Register(func() { ran = true })
	cb.Unregister()

	src.RequestStop()

	if ran {
		t.Fatalf("unregistered callback ran anyway")
	}
}

func TestMultipleCallbacksAllInvokedOnce(t *testing.T) {
	src := stoptoken.New()
	tok := src.Token()

	var counts [5]atomic.Int32
	for i := range counts {
		i := i
		tok.Register(func() { counts[i].Add(1) })
	}

	src.RequestStop()
	src.RequestStop()

	for i, c := range counts {
		if got := c.Load(); got != 1 {
			t.Errorf("callback %d invoked %d times, want 1", i, got)
		}
	}
}
