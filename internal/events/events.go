// Package events publishes what happened during a pipeline run.
// Emitting is fire-and-forget: a sink never fails the caller.
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Type string

const (
	RunCompleted      Type = "run.completed"
	SourceFailed      Type = "source.failed"
	TrendChanged      Type = "trend.changed"
	AnalysisAbsent    Type = "analysis.absent"
	PersistenceFailed Type = "persistence.failed"
	TickSkipped       Type = "tick.skipped"
)

type Event struct {
	Type     Type           `json:"type"`
	At       time.Time      `json:"at"`
	RouteKey string         `json:"route_key,omitempty"`
	RunID    string         `json:"run_id,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// New stamps an event with the current time.
func New(t Type, routeKey, runID string, data map[string]any) Event {
	return Event{Type: t, At: time.Now().UTC(), RouteKey: routeKey, RunID: runID, Data: data}
}

type Sink interface {
	Emit(ctx context.Context, event Event)
}

// LogSink writes events as structured log lines.
type LogSink struct {
	Logger *logrus.Logger
}

func (s LogSink) Emit(_ context.Context, event Event) {
	fields := logrus.Fields{
		"event":  event.Type,
		"route":  event.RouteKey,
		"run_id": event.RunID,
	}
	for k, v := range event.Data {
		fields[k] = v
	}

	entry := s.Logger.WithFields(fields)
	switch event.Type {
	case PersistenceFailed:
		entry.Error("Pipeline event")
	case SourceFailed, AnalysisAbsent, TickSkipped:
		entry.Warn("Pipeline event")
	default:
		entry.Info("Pipeline event")
	}
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, event Event) {
	for _, s := range m {
		s.Emit(ctx, event)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, Event) {}
