package async_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailored-agentic-units/async/async"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/env"
	"github.com/tailored-agentic-units/async/stoptoken"
)

func TestSplitStartsSourceExactlyOnce(t *testing.T) {
	starts := 0
	source := async.SenderFunc[int](func(r async.Receiver[int]) async.OperationState {
		return async.OperationStateFunc(func() {
			starts++
			r.SetValue(5)
		})
	})

	shared := async.Split(source, config.DefaultSplitConfig())

	r1 := newRecordingReceiver[int](t)
	r2 := newRecordingReceiver[int](t)
	shared.Connect(r1).Start()
	shared.Connect(r2).Start()

	if starts != 1 {
		t.Fatalf("expected the source to start exactly once, started %d times", starts)
	}
	if r1.value != 5 || r2.value != 5 {
		t.Fatalf("expected both waiters to observe the same value, got %v and %v", r1.value, r2.value)
	}
}

func TestSplitDeliversToLateConnector(t *testing.T) {
	source := async.Just(7)
	shared := async.Split[int](source, config.DefaultSplitConfig())

	first := newRecordingReceiver[int](t)
	shared.Connect(first).Start()

	late := newRecordingReceiver[int](t)
	shared.Connect(late).Start()

	if late.value != 7 {
		t.Fatalf("expected late connector to observe cached value 7, got %v", late.value)
	}
}

func TestEnsureStartedRunsImmediately(t *testing.T) {
	started := false
	source := async.SenderFunc[int](func(r async.Receiver[int]) async.OperationState {
		return async.OperationStateFunc(func() {
			started = true
			r.SetValue(3)
		})
	})

	eager := async.EnsureStarted[int](source, env.Empty(), config.DefaultSplitConfig())
	if !started {
		t.Fatalf("expected EnsureStarted to start the source immediately")
	}

	r := newRecordingReceiver[int](t)
	eager.Connect(r).Start()
	if r.value != 3 {
		t.Fatalf("expected value 3 from the already-started operation, got %v", r.value)
	}
}

// TestSplitConcurrentConnectStartsSourceExactlyOnce drives many goroutines
// connecting and starting the same Split sender at once, holding the real
// source's completion behind a channel until every goroutine has had a
// chance to register. It exercises the mutex-guarded waiter list under
// actual contention rather than sequential calls on one goroutine.
func TestSplitConcurrentConnectStartsSourceExactlyOnce(t *testing.T) {
	var starts int32
	release := make(chan struct{})
	source := async.SenderFunc[int](func(r async.Receiver[int]) async.OperationState {
		return async.OperationStateFunc(func() {
			atomic.AddInt32(&starts, 1)
			go func() {
				<-release
				r.SetValue(42)
			}()
		})
	})

	shared := async.Split(source, config.DefaultSplitConfig())

	const n = 25
	receivers := make([]*channelReceiver[int], n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		r := newChannelReceiver[int](env.Empty())
		receivers[i] = r
		go func() {
			defer wg.Done()
			shared.Connect(r).Start()
		}()
	}
	wg.Wait()
	close(release)

	for i, r := range receivers {
		select {
		case c := <-r.done:
			if c.value != 42 {
				t.Fatalf("waiter %d: expected 42, got %+v", i, c)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("waiter %d: timed out waiting for completion", i)
		}
	}

	if got := atomic.LoadInt32(&starts); got != 1 {
		t.Fatalf("expected the source to start exactly once under concurrent connect, started %d times", got)
	}
}

// TestSplitWaiterCancellationCompletesLocallyWithoutAffectingOthers drives
// one waiter whose own stop token fires before the shared source
// completes, and checks it is removed from the waiter list and completed
// with SetStopped without disturbing a second, patient waiter.
func TestSplitWaiterCancellationCompletesLocallyWithoutAffectingOthers(t *testing.T) {
	release := make(chan struct{})
	source := async.SenderFunc[int](func(r async.Receiver[int]) async.OperationState {
		return async.OperationStateFunc(func() {
			go func() {
				<-release
				r.SetValue(9)
			}()
		})
	})
	shared := async.Split(source, config.DefaultSplitConfig())

	stopSource := stoptoken.New()
	cancelled := newChannelReceiver[int](env.WithStopToken(env.Empty(), stopSource.Token()))
	patient := newChannelReceiver[int](env.Empty())

	shared.Connect(cancelled).Start()
	shared.Connect(patient).Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		stopSource.RequestStop()
	}()
	wg.Wait()

	select {
	case c := <-cancelled.done:
		if !c.stopped {
			t.Fatalf("expected cancelled waiter to complete via SetStopped, got %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for cancelled waiter's local stop")
	}

	close(release)

	select {
	case c := <-patient.done:
		if c.value != 9 {
			t.Fatalf("expected patient waiter to observe the real value 9, got %+v", c)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for patient waiter's real completion")
	}
}

func TestSplitPropagatesError(t *testing.T) {
	shared := async.Split[int](async.JustError[int](errTestSentinel), config.DefaultSplitConfig())

	r1 := newRecordingReceiver[int](t)
	r2 := newRecordingReceiver[int](t)
	shared.Connect(r1).Start()
	shared.Connect(r2).Start()

	if r1.err != errTestSentinel || r2.err != errTestSentinel {
		t.Fatalf("expected both waiters to observe the sentinel error, got %v and %v", r1.err, r2.err)
	}
}
