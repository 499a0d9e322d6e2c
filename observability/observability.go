// Package observability provides the event-based tracing substrate of the
// async composition core; the run loop and sync_wait emit events through
// it. Levels mirror OpenTelemetry SeverityNumber ranges so a
// SlogObserver needs no translation table to feed an OTel collector.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is an event severity aligned to OTel SeverityNumber ranges.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// SlogLevel maps a Level onto the corresponding slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names one kind of event. Emitters name their events with
// dot-namespaced strings ("runloop.task.enqueued").
type EventType string

// Event is one observability record. Data carries event-specific attributes;
// keys are flattened to slog attributes by SlogObserver.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string
	Data      map[string]any
}

// Observer receives events emitted by the core. Implementations must be
// safe for concurrent use — operation states from independent goroutines
// may emit concurrently.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// NoOpObserver discards every event at zero cost. It is the default used
// wherever an operation state is constructed without an explicit observer.
type NoOpObserver struct{}

// OnEvent implements Observer.
func (NoOpObserver) OnEvent(context.Context, Event) {}

// SlogObserver emits events through a *slog.Logger. The event type becomes
// the log message; Data keys become attributes alongside a "source" attribute.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver wraps logger as an Observer.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

// OnEvent implements Observer.
func (o *SlogObserver) OnEvent(ctx context.Context, event Event) {
	attrs := make([]slog.Attr, 0, len(event.Data)+1)
	attrs = append(attrs, slog.String("source", event.Source))
	for k, v := range event.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	o.logger.LogAttrs(ctx, event.Level.SlogLevel(), string(event.Type), attrs...)
}

// MultiObserver fans one event out to several observers, skipping nils.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver builds a MultiObserver over the given non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	kept := make([]Observer, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}
	return &MultiObserver{observers: kept}
}

// OnEvent implements Observer.
func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, o := range m.observers {
		o.OnEvent(ctx, event)
	}
}
