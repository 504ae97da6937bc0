package assistant

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/SW-HP/hp-server/internal/conversation"
)

var (
	ErrRunCancelled      = errors.New("run cancelled by provider")
	ErrToolDepthExceeded = errors.New("tool round-trip limit exceeded")
)

// maxToolRoundTrips bounds nested resume depth so a misbehaving provider
// cannot recurse forever.
const maxToolRoundTrips = 5

// Router routes one run attempt's event stream into the conversation store
// and drives tool dispatch. A Router observes exactly one stream scope: every
// tool-output resubmission attaches a fresh Router at depth+1.
type Router struct {
	convs    *conversation.Repo
	tools    *Dispatcher
	provider Provider
	threadID string
	depth    int
}

func NewRouter(convs *conversation.Repo, tools *Dispatcher, provider Provider, threadID string) *Router {
	return &Router{
		convs:    convs,
		tools:    tools,
		provider: provider,
		threadID: threadID,
	}
}

func (r *Router) child() *Router {
	next := NewRouter(r.convs, r.tools, r.provider, r.threadID)
	next.depth = r.depth + 1
	return next
}

// OnEvent applies one lifecycle event. The event tag is always recorded as
// the thread's run_state first, regardless of tag: that is the audit trail.
func (r *Router) OnEvent(ctx context.Context, ev RunEvent) error {
	if err := r.convs.SetRunState(ctx, r.threadID, ev.Event); err != nil {
		log.Printf("[Router] run_state update failed thread_id=%s event=%s err=%v", r.threadID, ev.Event, err)
	}

	switch ev.Event {
	case EventRunCreated:
		if err := r.convs.SetRunID(ctx, r.threadID, ev.RunID); err != nil {
			log.Printf("[Router] run_id update failed thread_id=%s err=%v", r.threadID, err)
		}
		// empty placeholder, filled incrementally by deltas
		if _, err := r.convs.AppendMessage(ctx, r.threadID, conversation.SenderAssistant, ""); err != nil {
			return fmt.Errorf("insert assistant message: %w", err)
		}

	case EventMessageDelta:
		r.convs.ExtendLatestAssistantMessage(ctx, r.threadID, ev.Delta)

	case EventRunRequiresAction:
		return r.handleRequiresAction(ctx, ev)

	case EventRunCancelled:
		return ErrRunCancelled

	case EventMessageCompleted:
		r.convs.FinalizeLatestAssistantMessage(ctx, r.threadID, ev.FinalText)
	}
	return nil
}

// handleRequiresAction dispatches every requested tool call and submits the
// outputs as one batch. All-or-nothing: a failure on any call aborts the
// batch so the provider never sees a partial submission.
func (r *Router) handleRequiresAction(ctx context.Context, ev RunEvent) error {
	if r.depth >= maxToolRoundTrips {
		return fmt.Errorf("%w: depth %d", ErrToolDepthExceeded, r.depth)
	}

	outputs := make([]ToolOutput, 0, len(ev.ToolCalls))
	for _, tc := range ev.ToolCalls {
		log.Printf("[Router] tool call thread_id=%s name=%s tool_call_id=%s", r.threadID, tc.Function.Name, tc.ID)
		out, err := r.tools.Dispatch(ctx, tc.Function.Name, tc.Function.Arguments, r.threadID)
		if err != nil {
			return err
		}
		outputs = append(outputs, ToolOutput{ToolCallID: tc.ID, Output: out})
	}

	// resume with a fresh router; the nested stream is drained before this
	// call returns
	return r.provider.SubmitToolOutputs(ctx, r.threadID, ev.RunID, outputs, r.child())
}
