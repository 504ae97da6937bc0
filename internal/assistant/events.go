package assistant

import "context"

// Run lifecycle tags as emitted by the provider stream. The server treats
// them as opaque strings for the audit trail; only the ones below trigger
// transitions.
const (
	EventRunCreated        = "thread.run.created"
	EventRunQueued         = "thread.run.queued"
	EventRunInProgress     = "thread.run.in_progress"
	EventRunRequiresAction = "thread.run.requires_action"
	EventRunCompleted      = "thread.run.completed"
	EventRunFailed         = "thread.run.failed"
	EventRunCancelled      = "thread.run.cancelled"
	EventRunExpired        = "thread.run.expired"
	EventMessageCreated    = "thread.message.created"
	EventMessageDelta      = "thread.message.delta"
	EventMessageCompleted  = "thread.message.completed"
	EventDone              = "done"
)

// ToolCall is one function invocation requested by a requires_action event.
// Ephemeral; never persisted.
type ToolCall struct {
	ID       string       `json:"id"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is one tool result submitted back to resume a run.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// RunEvent is a provider stream event normalized at the client boundary.
type RunEvent struct {
	Event     string
	RunID     string
	Delta     string     // text fragment, message delta events only
	FinalText string     // definitive text, message completed events only
	ToolCalls []ToolCall // requires_action events only
}

// EventSink consumes run events in arrival order. A non-nil error stops the
// stream and is surfaced to the run's caller.
type EventSink interface {
	OnEvent(ctx context.Context, ev RunEvent) error
}
