package events

import "sync"

// Kind identifies an event emitted by the engines.
type Kind string

const (
	// KindDelta carries an incremental text fragment during streaming.
	KindDelta Kind = "chat-stream-delta"
	// KindStreamDone signals that an assistant message has been committed.
	KindStreamDone Kind = "chat-stream-done"
	// KindReportReady signals a finished writer consistency report.
	KindReportReady Kind = "writer-consistency-report-ready"
)

// Event is a notification to an external listener. Only the fields relevant
// to the kind are populated.
type Event struct {
	Kind     Kind   `json:"kind"`
	ChatID   string `json:"chatId,omitempty"`
	BranchID string `json:"branchId,omitempty"`
	// Text fragment for KindDelta.
	Delta string `json:"delta,omitempty"`
	// Assistant message id for KindStreamDone.
	MessageID string `json:"messageId,omitempty"`
	// Report id for KindReportReady.
	ReportID  string `json:"reportId,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// Sink is a destination for events. Implementations can publish to a message
// bus, a terminal, or capture events for tests.
type Sink interface {
	Publish(event Event) error
}

// NullSink discards all events.
type NullSink struct{}

func (NullSink) Publish(Event) error { return nil }

var _ Sink = NullSink{}

// Collector is a Sink that records events in memory, for tests.
type Collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *Collector) Publish(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

// Events returns a copy of the recorded events in publication order.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

var _ Sink = (*Collector)(nil)
