package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Provider is the external assistant boundary: thread management plus
// streaming run execution. StreamRun and SubmitToolOutputs block until the
// provider stream is drained, feeding every event to the sink in order.
type Provider interface {
	CreateThread(ctx context.Context) (string, error)
	DeleteThread(ctx context.Context, threadID string) error
	CreateMessage(ctx context.Context, threadID, role, content string) error
	StreamRun(ctx context.Context, threadID, assistantID, instructions string, sink EventSink) error
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput, sink EventSink) error
}

const defaultRequestTimeout = 30 * time.Second

// Client talks to the OpenAI Assistants v2 REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// no client-level timeout: streaming requests are bounded by the
		// request context, short calls by requestCtx below
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is an error response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("assistant API error (status %d): %s", e.StatusCode, e.Message)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	return req, nil
}

func (c *Client) handleError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = fmt.Sprintf("status %d", resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func requestCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultRequestTimeout)
}

func (c *Client) CreateThread(ctx context.Context) (string, error) {
	cctx, cancel := requestCtx(ctx)
	defer cancel()

	req, err := c.newRequest(cctx, http.MethodPost, "/threads", struct{}{})
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.handleError(resp)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("create thread: decode: %w", err)
	}
	log.Printf("[Assistant] CreateThread completed thread_id=%s", out.ID)
	return out.ID, nil
}

func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	cctx, cancel := requestCtx(ctx)
	defer cancel()

	req, err := c.newRequest(cctx, http.MethodDelete, "/threads/"+threadID, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete thread: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleError(resp)
	}
	log.Printf("[Assistant] DeleteThread completed thread_id=%s", threadID)
	return nil
}

func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string) error {
	cctx, cancel := requestCtx(ctx)
	defer cancel()

	body := map[string]string{"role": role, "content": content}
	req, err := c.newRequest(cctx, http.MethodPost, "/threads/"+threadID+"/messages", body)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleError(resp)
	}
	return nil
}

func (c *Client) StreamRun(ctx context.Context, threadID, assistantID, instructions string, sink EventSink) error {
	body := map[string]any{
		"assistant_id": assistantID,
		"stream":       true,
	}
	if instructions != "" {
		body["instructions"] = instructions
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/threads/"+threadID+"/runs", body)
	if err != nil {
		return err
	}
	return c.consumeStream(ctx, req, sink)
}

func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput, sink EventSink) error {
	body := map[string]any{
		"tool_outputs": outputs,
		"stream":       true,
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", body)
	if err != nil {
		return err
	}
	return c.consumeStream(ctx, req, sink)
}

// consumeStream drains one SSE response, normalizing each event and feeding
// it to the sink. Sink errors abort the stream and propagate.
func (c *Client) consumeStream(ctx context.Context, req *http.Request, sink EventSink) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("run stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.handleError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	buf := make([]byte, 0, 64*1024)
	sc.Buffer(buf, 2*1024*1024)

	var eventName string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if eventName == EventDone || data == "[DONE]" {
				// stream terminator, not a lifecycle event; the last real
				// tag stays authoritative for run_state
				return nil
			}
			ev, err := parseEvent(eventName, []byte(data))
			if err != nil {
				return fmt.Errorf("run stream: %w", err)
			}
			if err := sink.OnEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("run stream: %w", err)
	}
	return nil
}

// parseEvent maps one raw SSE payload to a normalized RunEvent.
func parseEvent(eventName string, data []byte) (RunEvent, error) {
	ev := RunEvent{Event: eventName}

	switch {
	case strings.HasPrefix(eventName, "thread.run."):
		var run struct {
			ID             string `json:"id"`
			RequiredAction *struct {
				SubmitToolOutputs struct {
					ToolCalls []ToolCall `json:"tool_calls"`
				} `json:"submit_tool_outputs"`
			} `json:"required_action"`
		}
		if err := json.Unmarshal(data, &run); err != nil {
			return ev, fmt.Errorf("decode %s: %w", eventName, err)
		}
		ev.RunID = run.ID
		if run.RequiredAction != nil {
			ev.ToolCalls = run.RequiredAction.SubmitToolOutputs.ToolCalls
		}

	case eventName == EventMessageDelta:
		var msg struct {
			Delta struct {
				Content []struct {
					Text struct {
						Value string `json:"value"`
					} `json:"text"`
				} `json:"content"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return ev, fmt.Errorf("decode %s: %w", eventName, err)
		}
		var b strings.Builder
		for _, part := range msg.Delta.Content {
			b.WriteString(part.Text.Value)
		}
		ev.Delta = b.String()

	case eventName == EventMessageCompleted:
		var msg struct {
			Content []struct {
				Text struct {
					Value string `json:"value"`
				} `json:"text"`
			} `json:"content"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return ev, fmt.Errorf("decode %s: %w", eventName, err)
		}
		if len(msg.Content) > 0 {
			ev.FinalText = msg.Content[0].Text.Value
		}
	}
	return ev, nil
}
