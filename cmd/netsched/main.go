// Command netsched demonstrates a Scheduler backed by a real network round
// trip: scheduling hops through a Connect RPC call instead of a local
// goroutine or queue. It exists to exercise connectrpc.com/connect and
// google.golang.org/protobuf against the async composition core, not as
// part of that core itself — see SPEC_FULL.md's domain-stack notes for why
// a network scheduler is a demo, not a CORE module.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/tailored-agentic-units/async/async"
	"github.com/tailored-agentic-units/async/config"
	"github.com/tailored-agentic-units/async/env"
)

// scheduleProcedure is the Connect procedure path for the demo scheduling
// RPC. There is no .proto file behind it — the request and response
// shapes are wrapperspb.StringValue, which is enough to prove the wire
// round trip without generating service stubs.
const scheduleProcedure = "/netsched.v1.SchedulerService/Schedule"

// netScheduler is an async.Scheduler whose Schedule sender completes only
// after a Connect RPC to a remote (here, loopback) server acknowledges the
// hop.
type netScheduler struct {
	id     string
	client *connect.Client[wrapperspb.StringValue, wrapperspb.StringValue]
}

func newNetScheduler(id string, httpClient *http.Client, baseURL string) *netScheduler {
	return &netScheduler{
		id:     id,
		client: connect.NewClient[wrapperspb.StringValue, wrapperspb.StringValue](httpClient, baseURL+scheduleProcedure),
	}
}

// Schedule's returned sender also implements async.CompletionSchedulerSender
// so a let_value continuation built downstream of a hop through this
// scheduler (for example via ContinueOn or StartOn) still sees it as the
// ambient scheduler.
func (s *netScheduler) Schedule() async.Sender[struct{}] {
	return netSchedScheduleSender{sched: s}
}

type netSchedScheduleSender struct {
	sched *netScheduler
}

func (s netSchedScheduleSender) Connect(r async.Receiver[struct{}]) async.OperationState {
	return async.OperationStateFunc(func() {
		ctx := async.GetContext(r.Env())
		_, err := s.sched.client.CallUnary(ctx, connect.NewRequest(wrapperspb.String(s.sched.id)))
		if err != nil {
			r.SetError(fmt.Errorf("netsched: schedule RPC failed: %w", err))
			return
		}
		r.SetValue(struct{}{})
	})
}

func (s netSchedScheduleSender) CompletionScheduler() async.Scheduler { return s.sched }

func (s *netScheduler) Equal(other async.Scheduler) bool {
	o, ok := other.(*netScheduler)
	return ok && o.id == s.id
}

func newScheduleServer() *httptest.Server {
	handler := connect.NewUnaryHandler(
		scheduleProcedure,
		func(ctx context.Context, req *connect.Request[wrapperspb.StringValue]) (*connect.Response[wrapperspb.StringValue], error) {
			return connect.NewResponse(wrapperspb.String("ack:" + req.Msg.GetValue())), nil
		},
	)
	mux := http.NewServeMux()
	mux.Handle(scheduleProcedure, handler)
	return httptest.NewServer(mux)
}

func main() {
	server := newScheduleServer()
	defer server.Close()

	sched := newNetScheduler("demo-scheduler", server.Client(), server.URL)

	environment := async.WithContext(env.Empty(), context.Background())
	environment = async.WithScheduler(environment, sched)

	pipeline := async.ContinueOn(async.Just(21), sched)
	pipeline = async.Then(pipeline, func(v int) int { return v * 2 })

	op := pipeline.Connect(&printingReceiver{environment: environment})
	op.Start()

	result, ok, err := async.SyncWait(async.StartOn(sched, async.Just("scheduled-via-rpc")), config.DefaultSyncWaitConfig())
	if err != nil {
		log.Fatalf("sync_wait failed: %v", err)
	}
	if !ok {
		log.Fatal("sync_wait reported cancellation")
	}
	fmt.Println(result)

	time.Sleep(10 * time.Millisecond)
}

type printingReceiver struct {
	environment env.Env
}

func (p *printingReceiver) SetValue(value int) { fmt.Printf("result: %d\n", value) }
func (p *printingReceiver) SetError(err error) { fmt.Printf("error: %v\n", err) }
func (p *printingReceiver) SetStopped()        { fmt.Println("stopped") }
func (p *printingReceiver) Env() env.Env       { return p.environment }
