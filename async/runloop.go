package async

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/observability"
)

// RunLoop is a single-threaded, FIFO cooperative task queue: a minimal
// scheduler with just enough behavior to drive sync_wait and to act as
// the default delegatee scheduler for any code that needs "somewhere to
// run" but has not been handed a real scheduler. Tasks are dequeued and
// executed one at a time by whichever goroutine calls Run.
type RunLoop struct {
	mu       sync.Mutex
	cond     *sync.Cond
	tasks    []*runLoopTask
	finished bool
	observer observability.Observer
	id       string
}

type runLoopTask struct {
	receiver Receiver[struct{}]
}

// NewRunLoop constructs a RunLoop from cfg.
func NewRunLoop(cfg config.RunLoopConfig) *RunLoop {
	obs, err := observability.GetObserver(cfg.Observer)
	if err != nil {
		obs = observability.NoOpObserver{}
	}
	rl := &RunLoop{observer: obs, id: uuid.NewString()}
	if cfg.QueueCapacityHint > 0 {
		rl.tasks = make([]*runLoopTask, 0, cfg.QueueCapacityHint)
	}
	rl.cond = sync.NewCond(&rl.mu)
	return rl
}

// Scheduler returns the Scheduler backed by this run loop. Every
// completion it schedules is executed by a Run call on this same loop.
func (rl *RunLoop) Scheduler() Scheduler {
	return runLoopScheduler{loop: rl}
}

// runLoopScheduleSender is the Sender runLoopScheduler.Schedule returns.
// It is a named type, rather than a bare SenderFunc, so it can also
// implement CompletionSchedulerSender and advertise itself as the
// value-channel completion scheduler per spec.md §4.2's "Key rule".
type runLoopScheduleSender struct {
	sched runLoopScheduler
}

func (s runLoopScheduleSender) Connect(r Receiver[struct{}]) OperationState {
	return OperationStateFunc(func() {
		s.sched.loop.enqueue(&runLoopTask{receiver: r})
	})
}

func (s runLoopScheduleSender) CompletionScheduler() Scheduler { return s.sched }

func (rl *RunLoop) emit(eventType observability.EventType, data map[string]any) {
	attrs := map[string]any{"run_loop_id": rl.id}
	for k, v := range data {
		attrs[k] = v
	}
	rl.observer.OnEvent(context.Background(), observability.Event{
		Type:   eventType,
		Level:  observability.LevelVerbose,
		Source: "async.runloop",
		Data:   attrs,
	})
}

// enqueue appends task to the queue and wakes one waiting Run goroutine.
func (rl *RunLoop) enqueue(task *runLoopTask) {
	rl.mu.Lock()
	rl.tasks = append(rl.tasks, task)
	rl.mu.Unlock()
	rl.cond.Signal()
	rl.emit("runloop.task.enqueued", nil)
}

// Run dequeues and executes tasks, one at a time, until Finish is called
// and the queue is empty. A task whose receiver's stop token has already
// been tripped by the time it is dequeued completes via SetStopped
// instead of SetValue — RunLoop never starts a task's "useful work" after
// cancellation has been requested.
func (rl *RunLoop) Run() {
	for {
		rl.mu.Lock()
		for len(rl.tasks) == 0 && !rl.finished {
			rl.cond.Wait()
		}
		if len(rl.tasks) == 0 && rl.finished {
			rl.mu.Unlock()
			return
		}
		task := rl.tasks[0]
		rl.tasks = rl.tasks[1:]
		rl.mu.Unlock()

		rl.emit("runloop.task.dequeued", nil)
		if task.receiver.Env().StopToken().IsStopped() {
			task.receiver.SetStopped()
			continue
		}
		task.receiver.SetValue(struct{}{})
	}
}

// Finish marks the loop as done accepting new work once drained; Run
// returns once the queue empties after Finish has been called. Finish is
// idempotent and safe to call from any goroutine, including from inside a
// task running on this same loop.
func (rl *RunLoop) Finish() {
	rl.mu.Lock()
	rl.finished = true
	rl.mu.Unlock()
	rl.cond.Broadcast()
}

// runLoopScheduler is the Scheduler view of a RunLoop.
type runLoopScheduler struct {
	loop *RunLoop
}

func (s runLoopScheduler) Schedule() Sender[struct{}] {
	return runLoopScheduleSender{sched: s}
}

func (s runLoopScheduler) Equal(other Scheduler) bool {
	o, ok := other.(runLoopScheduler)
	return ok && o.loop == s.loop
}
