// Package telemetry defines the telemetry event model and the
// step-instrumentation generator used by launch orchestration.
package telemetry

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event is a single extension telemetry event.
type Event struct {
	ExtensionID      string             `json:"extensionId"`
	ExtensionVersion string             `json:"extensionVersion"`
	AppInsightsKey   string             `json:"appInsightsKey"`
	EventName        string             `json:"eventName"`
	Properties       map[string]string  `json:"properties,omitempty"`
	Measures         map[string]float64 `json:"measures,omitempty"`
}

// Sink receives telemetry events. Transport is a collaborator concern;
// the bridge only forwards.
type Sink interface {
	SendExtensionTelemetry(e Event) error
}

// Generator reports launch step names for one launch session. Each launch
// call owns its own generator, so concurrent launches never interleave
// step streams.
type Generator struct {
	sessionID string
	eventName string
	sink      Sink
	log       *slog.Logger
}

// NewGenerator creates a generator with a fresh session ID.
func NewGenerator(eventName string, sink Sink, log *slog.Logger) *Generator {
	return &Generator{
		sessionID: uuid.New().String(),
		eventName: eventName,
		sink:      sink,
		log:       log,
	}
}

// SessionID returns the generator's session ID.
func (g *Generator) SessionID() string {
	return g.sessionID
}

// Step reports a step name. Sink failures are logged, never propagated:
// instrumentation must not affect launch outcomes.
func (g *Generator) Step(name string) {
	e := Event{
		EventName: g.eventName,
		Properties: map[string]string{
			"step":    name,
			"session": g.sessionID,
		},
	}
	if err := g.sink.SendExtensionTelemetry(e); err != nil {
		g.log.Warn("failed to report step", "step", name, "error", err)
	}
}

// CapturingSink records events in memory. For tests.
type CapturingSink struct {
	mu     sync.Mutex
	events []Event
}

// NewCapturingSink creates an empty CapturingSink.
func NewCapturingSink() *CapturingSink {
	return &CapturingSink{}
}

// SendExtensionTelemetry records the event.
func (s *CapturingSink) SendExtensionTelemetry(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of the recorded events.
func (s *CapturingSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// StepNames returns the "step" property of each recorded event, in order.
func (s *CapturingSink) StepNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, e := range s.events {
		if step, ok := e.Properties["step"]; ok {
			names = append(names, step)
		}
	}
	return names
}

// NoopSink discards all events.
type NoopSink struct{}

// SendExtensionTelemetry discards the event.
func (NoopSink) SendExtensionTelemetry(Event) error { return nil }

var _ Sink = (*CapturingSink)(nil)
var _ Sink = NoopSink{}
