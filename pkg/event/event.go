// Package event implements the process-wide, in-process publish/
// subscribe event bus and telemetry aggregation of §4.5.
package event

import "time"

// Kind identifies the category of an Event (§3).
type Kind string

const (
	KindAgentStarted          Kind = "agent_started"
	KindAgentStopped          Kind = "agent_stopped"
	KindMessageSent           Kind = "message_sent"
	KindMessageReceived       Kind = "message_received"
	KindToolCalled            Kind = "tool_called"
	KindToolCompleted         Kind = "tool_completed"
	KindStepCompleted         Kind = "step_completed"
	KindErrorRaised           Kind = "error_raised"
	KindSessionStateChanged   Kind = "session_state_changed"
	KindWorkflowStepStarted   Kind = "workflow_step_started"
	KindWorkflowStepCompleted Kind = "workflow_step_completed"
)

// Event is the tagged union of everything the runtime publishes.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	AgentID   string
	Metadata  map[string]any

	// seq is assigned by the Bus at publish time, unique per
	// (AgentID) stream, letting a slow subscriber detect it has missed
	// events (§4.5 "back-pressure").
	seq uint64
}

// Seq returns the publish-order sequence number the bus assigned this
// event within its originating agent's stream.
func (e Event) Seq() uint64 { return e.seq }

// New builds an Event with the current timestamp.
func New(kind Kind, agentID string, metadata map[string]any) Event {
	return Event{Kind: kind, Timestamp: time.Now(), AgentID: agentID, Metadata: metadata}
}
