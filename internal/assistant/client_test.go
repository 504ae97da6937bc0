package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

type collectSink struct {
	events []RunEvent
}

func (s *collectSink) OnEvent(_ context.Context, ev RunEvent) error {
	s.events = append(s.events, ev)
	return nil
}

const runStreamBody = `event: thread.run.created
data: {"id": "run_1", "status": "queued"}

event: thread.message.delta
data: {"delta": {"content": [{"index": 0, "type": "text", "text": {"value": "안"}}, {"index": 1, "type": "text", "text": {"value": "녕"}}]}}

event: thread.run.requires_action
data: {"id": "run_1", "required_action": {"type": "submit_tool_outputs", "submit_tool_outputs": {"tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_user_train_program", "arguments": "{}"}}]}}}

event: thread.message.completed
data: {"content": [{"type": "text", "text": {"value": "안녕하세요"}}]}

event: done
data: [DONE]

`

func TestClientStreamRunParsesEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/threads/thread_1/runs" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("OpenAI-Beta") != "assistants=v2" {
			t.Errorf("missing assistants v2 header")
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("missing bearer token")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(runStreamBody))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	sink := &collectSink{}
	if err := c.StreamRun(context.Background(), "thread_1", "asst_1", "지시사항", sink); err != nil {
		t.Fatalf("stream run: %v", err)
	}

	// the done terminator is consumed, never delivered
	if len(sink.events) != 4 {
		t.Fatalf("expected 4 events, got %d: %+v", len(sink.events), sink.events)
	}

	if ev := sink.events[0]; ev.Event != EventRunCreated || ev.RunID != "run_1" {
		t.Fatalf("unexpected first event: %+v", ev)
	}
	if ev := sink.events[1]; ev.Event != EventMessageDelta || ev.Delta != "안녕" {
		t.Fatalf("delta parts must concatenate: %+v", ev)
	}
	ra := sink.events[2]
	if ra.Event != EventRunRequiresAction || len(ra.ToolCalls) != 1 {
		t.Fatalf("unexpected requires_action: %+v", ra)
	}
	if tc := ra.ToolCalls[0]; tc.ID != "call_1" || tc.Function.Name != "get_user_train_program" {
		t.Fatalf("unexpected tool call: %+v", tc)
	}
	if ev := sink.events[3]; ev.Event != EventMessageCompleted || ev.FinalText != "안녕하세요" {
		t.Fatalf("unexpected completed event: %+v", ev)
	}
}

func TestClientStreamRunErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "No thread found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	err := c.StreamRun(context.Background(), "thread_missing", "asst_1", "", &collectSink{})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestClientCreateThread(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/threads" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id": "thread_abc", "object": "thread"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	id, err := c.CreateThread(context.Background())
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	if id != "thread_abc" {
		t.Fatalf("unexpected thread id %q", id)
	}
}

func TestClientSubmitToolOutputsPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: done\ndata: [DONE]\n\n"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-test")
	outputs := []ToolOutput{{ToolCallID: "call_1", Output: `{"status":"success"}`}}
	if err := c.SubmitToolOutputs(context.Background(), "thread_1", "run_1", outputs, &collectSink{}); err != nil {
		t.Fatalf("submit tool outputs: %v", err)
	}
	if gotPath != "/threads/thread_1/runs/run_1/submit_tool_outputs" {
		t.Fatalf("unexpected path %q", gotPath)
	}
}
