package core

// EventType discriminates the progress events a workflow run emits.
type EventType string

const (
	// EventToolCall reports a tool invocation that is about to run.
	EventToolCall EventType = "tool_call"

	// EventComplete carries the final response text and the updated
	// memory snapshot for the turn. Emitted exactly once per turn.
	EventComplete EventType = "complete"

	// EventInterrupt signals the workflow suspended awaiting input.
	EventInterrupt EventType = "interrupt"

	// EventEnd signals the session reached its terminal state.
	EventEnd EventType = "end"
)

// Event is a single progress event observed during a turn.
type Event struct {
	Type EventType

	// Tool fields, set for EventToolCall.
	Tool    string
	Preview string

	// Completion fields, set for EventComplete and EventInterrupt.
	MessageID string
	Text      string
	Memory    *Memory
}

// EventSink receives progress events in strict chronological order.
// Emit must not block for long; slow consumers should buffer.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e Event) { f(e) }

// NopSink discards all events.
var NopSink EventSink = EventSinkFunc(func(Event) {})
