package audit

import (
	"log/slog"
	"sync"
	"time"
)

// EventType classifies run events for filtering and routing.
type EventType string

const (
	EventStageEnter  EventType = "stage_enter"
	EventStageMerged EventType = "stage_merged"
	EventTransition  EventType = "transition"
	EventRunComplete EventType = "run_complete"
	EventRunAborted  EventType = "run_aborted"
)

// Event is a single observation from an engine run.
type Event struct {
	Type        EventType
	Stage       StageID
	Next        StageID
	Nodes       int
	Elapsed     time.Duration
	Explanation string
	Err         error
}

// Observer receives events during a run. Single-method design (like
// http.Handler) so adding new event types never breaks existing
// observers.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

func (f ObserverFunc) OnEvent(e Event) { f(e) }

// MultiObserver fans out events to multiple observers.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(e Event) {
	for _, obs := range m {
		obs.OnEvent(e)
	}
}

// LogObserver writes run events as structured slog lines.
type LogObserver struct {
	Logger *slog.Logger
}

func (o *LogObserver) OnEvent(e Event) {
	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attrs := []slog.Attr{
		slog.String("event", string(e.Type)),
		slog.String("stage", string(e.Stage)),
	}
	if e.Next != "" {
		attrs = append(attrs, slog.String("next", string(e.Next)))
	}
	if e.Nodes > 0 {
		attrs = append(attrs, slog.Int("nodes", e.Nodes))
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, slog.Duration("elapsed", e.Elapsed))
	}
	if e.Explanation != "" {
		attrs = append(attrs, slog.String("why", e.Explanation))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}

	level := slog.LevelInfo
	if e.Err != nil {
		level = slog.LevelWarn
	}
	logger.LogAttrs(nil, level, "run", attrs...)
}

// TraceCollector accumulates run events in memory for post-run
// assertions. Safe for concurrent use.
type TraceCollector struct {
	mu     sync.Mutex
	events []Event
}

func (t *TraceCollector) OnEvent(e Event) {
	t.mu.Lock()
	t.events = append(t.events, e)
	t.mu.Unlock()
}

// Events returns a copy of all collected events.
func (t *TraceCollector) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

// Reset clears collected events.
func (t *TraceCollector) Reset() {
	t.mu.Lock()
	t.events = nil
	t.mu.Unlock()
}

// EventsOfType returns only events matching the given type.
func (t *TraceCollector) EventsOfType(typ EventType) []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Event
	for _, e := range t.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// emit safely notifies a possibly-nil observer.
func emit(obs Observer, e Event) {
	if obs != nil {
		obs.OnEvent(e)
	}
}
