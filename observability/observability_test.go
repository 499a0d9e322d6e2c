package observability_test

import (
	"context"
	"testing"

	"github.com/tailored-agentic-units/async/observability"
)

type recordingObserver struct {
	events []observability.Event
}

func (r *recordingObserver) OnEvent(_ context.Context, e observability.Event) {
	r.events = append(r.events, e)
}

func TestMultiObserverFansOutAndSkipsNil(t *testing.T) {
	a := &recordingObserver{}
	b := &recordingObserver{}

	multi := observability.NewMultiObserver(a, nil, b)
	multi.OnEvent(context.Background(), observability.Event{Type: "test.event"})

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("expected both observers to receive one event, got a=%d b=%d", len(a.events), len(b.events))
	}
}

func TestNoOpObserverDiscards(t *testing.T) {
	observability.NoOpObserver{}.OnEvent(context.Background(), observability.Event{Type: "ignored"})
}

func TestRegistryDefaults(t *testing.T) {
	if _, err := observability.GetObserver("noop"); err != nil {
		t.Fatalf("noop observer should be pre-registered: %v", err)
	}
	if _, err := observability.GetObserver("slog"); err != nil {
		t.Fatalf("slog observer should be pre-registered: %v", err)
	}
	if _, err := observability.GetObserver("does-not-exist"); err == nil {
		t.Fatalf("expected error for unknown observer")
	}
}

func TestRegisterObserverOverrides(t *testing.T) {
	observability.RegisterObserver("custom-test", &recordingObserver{})
	custom := &recordingObserver{}
	observability.RegisterObserver("custom-test", custom)

	got, err := observability.GetObserver("custom-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got.OnEvent(context.Background(), observability.Event{Type: "x"})
	if len(custom.events) != 1 {
		t.Fatalf("expected registered observer to receive event")
	}
}

func TestLevelSlogMapping(t *testing.T) {
	cases := map[observability.Level]string{
		observability.LevelVerbose: "DEBUG",
		observability.LevelInfo:    "INFO",
		observability.LevelWarning: "WARN",
		observability.LevelError:   "ERROR",
	}
	for level, want := range cases {
		if got := level.SlogLevel().String(); got != want {
			t.Errorf("Level(%d).SlogLevel() = %s, want %s", level, got, want)
		}
	}
}
