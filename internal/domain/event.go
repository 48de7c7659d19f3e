package domain

import (
	"context"
	"time"
)

// EventKind classifies messages published while a download runs
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventLog      EventKind = "log"
	EventStage    EventKind = "stage"
	EventAttempt  EventKind = "attempt"
	EventFinished EventKind = "finished"
)

// Event is a message from the orchestration to its observers
type Event struct {
	DownloadID string         `json:"download_id"`
	Kind       EventKind      `json:"kind"`
	Time       time.Time      `json:"time"`
	Stage      Stage          `json:"stage,omitempty"`
	Progress   *ProgressEvent `json:"progress,omitempty"`
	Line       string         `json:"line,omitempty"`
	Outcome    AttemptOutcome `json:"outcome,omitempty"`
	Status     DownloadStatus `json:"status,omitempty"`
	Message    string         `json:"message,omitempty"`
}

// EventSink receives events. Implementations must not block for long.
type EventSink interface {
	Publish(Event)
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(Event)

// Publish calls f(e)
func (f SinkFunc) Publish(e Event) { f(e) }

// DiscardSink drops every event
var DiscardSink EventSink = SinkFunc(func(Event) {})

// MultiSink fans an event out to several sinks in order
type MultiSink []EventSink

// Publish forwards e to every sink
func (m MultiSink) Publish(e Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(e)
		}
	}
}

// Runner executes one RunSpec and classifies its outcome
type Runner interface {
	Run(ctx context.Context, spec RunSpec, sink EventSink) AttemptResult
}
