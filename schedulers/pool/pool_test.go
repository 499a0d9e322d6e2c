package pool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/async/async"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/env"
	"github.com/tailored-agentic-units/async/schedulers/pool"
)

type blockingReceiver struct {
	environment env.Env
	done        chan struct{}
}

func (r *blockingReceiver) SetValue(struct{}) { close(r.done) }
func (r *blockingReceiver) SetStopped()       { close(r.done) }
func (r *blockingReceiver) SetError(error)    { close(r.done) }
func (r *blockingReceiver) Env() env.Env      { return r.environment }

func TestPoolSchedulesAndRunsTasks(t *testing.T) {
	cfg := config.DefaultWorkerPoolConfig()
	cfg.Workers = 2
	sched := pool.New(context.Background(), "test-pool", cfg)
	defer sched.Shutdown(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		r := &blockingReceiver{environment: env.Empty(), done: make(chan struct{})}
		op := sched.Schedule().Connect(r)
		go func() {
			defer wg.Done()
			op.Start()
			<-r.done
		}()
	}
	wg.Wait()

	snap := sched.Metrics()
	if snap.TasksCompleted != 10 {
		t.Fatalf("expected 10 completed tasks, got %+v", snap)
	}
}

func TestPoolEqualComparesIdentity(t *testing.T) {
	a := pool.New(context.Background(), "a", config.DefaultWorkerPoolConfig())
	defer a.Shutdown(time.Second)
	b := pool.New(context.Background(), "b", config.DefaultWorkerPoolConfig())
	defer b.Shutdown(time.Second)

	if !a.Equal(a) {
		t.Fatalf("expected pool to equal itself")
	}
	if a.Equal(b) {
		t.Fatalf("expected distinct pools to compare unequal")
	}
	var _ async.Scheduler = a
}

func TestPoolShutdownStopsAcceptingWork(t *testing.T) {
	sched := pool.New(context.Background(), "shutdown-test", config.DefaultWorkerPoolConfig())
	if err := sched.Shutdown(time.Second); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}

	r := &blockingReceiver{environment: env.Empty(), done: make(chan struct{})}
	sched.Schedule().Connect(r).Start()

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatalf("expected a task submitted after shutdown to complete (stopped) promptly")
	}
}
