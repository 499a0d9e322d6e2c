// Package pool implements a worker-pool async.Scheduler: a fixed number
// of goroutines drain a shared task queue, each task running to
// completion on whichever worker dequeues it. Unlike the cooperative,
// single-threaded RunLoop in the core async package, this scheduler runs
// tasks on several worker goroutines at once, which is what lets
// on/start_on actually parallelize CPU-bound continuations.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/async/async"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/observability"
)

type taskOutcome int

const (
	outcomeValue taskOutcome = iota
	outcomeStopped
	outcomeErrored
)

type task struct {
	receiver async.Receiver[struct{}]
}

// Scheduler is a fixed-size worker pool implementing async.Scheduler.
type Scheduler struct {
	id      string
	name    string
	workers int

	queue   *taskQueue[task]
	metrics *metrics
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New starts a worker pool scheduler and returns it already running;
// Shutdown must be called to release its goroutines.
func New(ctx context.Context, name string, cfg config.WorkerPoolConfig) *Scheduler {
	_, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		cfg.Observer = "noop"
	}

	poolCtx, cancel := context.WithCancel(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	s := &Scheduler{
		id:      uuid.NewString(),
		name:    name,
		workers: workers,
		queue:   newTaskQueue[task](poolCtx, cfg.QueueCapacity),
		metrics: newMetrics(),
		logger:  slog.Default(),
		ctx:     poolCtx,
		cancel:  cancel,
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.runWorker(i)
	}

	return s
}

func (s *Scheduler) runWorker(index int) {
	defer s.wg.Done()
	for {
		t, err := s.queue.Receive(s.ctx)
		if err != nil {
			return
		}
		s.runTask(t)
	}
}

func (s *Scheduler) runTask(t task) {
	if t.receiver.Env().StopToken().IsStopped() {
		s.metrics.recordCompleted(outcomeStopped)
		t.receiver.SetStopped()
		return
	}
	s.metrics.recordCompleted(outcomeValue)
	t.receiver.SetValue(struct{}{})
}

// Schedule implements async.Scheduler: connecting and starting the
// returned sender enqueues the receiver's completion as a task; a worker
// picks it up as soon as one is free. The returned sender also implements
// async.CompletionSchedulerSender, advertising this pool as the
// value-channel completion scheduler so let_value-built continuations
// downstream of a schedule hop inherit it.
func (s *Scheduler) Schedule() async.Sender[struct{}] {
	return poolScheduleSender{sched: s}
}

type poolScheduleSender struct {
	sched *Scheduler
}

func (s poolScheduleSender) Connect(r async.Receiver[struct{}]) async.OperationState {
	return async.OperationStateFunc(func() {
		s.sched.metrics.recordScheduled()
		if err := s.sched.queue.Send(s.sched.ctx, task{receiver: r}); err != nil {
			r.SetStopped()
		}
	})
}

func (s poolScheduleSender) CompletionScheduler() async.Scheduler { return s.sched }

// Equal reports whether other is backed by this same worker pool.
func (s *Scheduler) Equal(other async.Scheduler) bool {
	o, ok := other.(*Scheduler)
	return ok && o.id == s.id
}

// Metrics returns a point-in-time snapshot of task counters.
func (s *Scheduler) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot(s.workers)
}

// Shutdown stops accepting new tasks, cancels in-flight Receive calls, and
// waits up to timeout for every worker goroutine to exit.
func (s *Scheduler) Shutdown(timeout time.Duration) error {
	s.cancel()
	s.queue.Close()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("pool: shutdown of %q timed out after %s", s.name, timeout)
	}
}
