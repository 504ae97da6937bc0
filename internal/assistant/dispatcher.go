package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/SW-HP/hp-server/internal/conversation"
	"github.com/SW-HP/hp-server/internal/program"
)

var ErrUnsupportedTool = errors.New("unsupported tool")

// ToolFunc executes one named capability on behalf of a thread. The returned
// value is normalized to text before submission.
type ToolFunc func(ctx context.Context, threadID string, args map[string]any) (any, error)

// Dispatcher maps tool-call names to internal capabilities.
type Dispatcher struct {
	mu    sync.RWMutex
	funcs map[string]ToolFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{funcs: make(map[string]ToolFunc)}
}

func (d *Dispatcher) Register(name string, f ToolFunc) {
	name = strings.TrimSpace(name)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.funcs[name] = f
}

// Dispatch decodes the JSON arguments (blank means empty), invokes the named
// tool, and normalizes the result to the textual wire form.
func (d *Dispatcher) Dispatch(ctx context.Context, name, rawArgs, threadID string) (string, error) {
	d.mu.RLock()
	f, ok := d.funcs[name]
	d.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedTool, name)
	}

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			return "", fmt.Errorf("tool %s: bad arguments: %w", name, err)
		}
	}

	result, err := f(ctx, threadID, args)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	return normalizeResult(result), nil
}

// normalizeResult turns a tool result into the textual output the provider
// expects: strings pass through, everything else is compact JSON. HTML
// escaping is off so Korean text survives readable.
func normalizeResult(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// envelope is the uniform tool-result shape consumed by the assistant.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func successEnvelope(data any) envelope {
	return envelope{Status: "success", Data: data}
}

func failedEnvelope(msg string) envelope {
	return envelope{Status: "failed", Message: msg}
}

// NewBuiltinDispatcher wires the two training-program tools over the stores.
func NewBuiltinDispatcher(convs *conversation.Repo, programs *program.Repo) *Dispatcher {
	d := NewDispatcher()

	d.Register("get_user_train_program", func(ctx context.Context, threadID string, _ map[string]any) (any, error) {
		th, err := convs.GetThread(ctx, threadID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return failedEnvelope("사용자를 찾을 수 없습니다."), nil
			}
			return failedEnvelope("데이터베이스 오류가 발생했습니다."), nil
		}
		doc, err := programs.Latest(ctx, th.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return successEnvelope([]any{}), nil
			}
			return failedEnvelope("데이터베이스 오류가 발생했습니다."), nil
		}
		return successEnvelope(doc), nil
	})

	d.Register("save_user_train_program", func(ctx context.Context, threadID string, args map[string]any) (any, error) {
		th, err := convs.GetThread(ctx, threadID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return failedEnvelope("사용자를 찾을 수 없습니다."), nil
			}
			return failedEnvelope("데이터베이스 오류가 발생했습니다."), nil
		}

		// arguments are the document fields themselves
		raw, err := json.Marshal(args)
		if err != nil {
			return failedEnvelope("프로그램 형식이 올바르지 않습니다."), nil
		}
		doc, err := program.ParseDocument(string(raw))
		if err != nil {
			return failedEnvelope("프로그램 형식이 올바르지 않습니다."), nil
		}
		if err := programs.Replace(ctx, th.UserID, doc); err != nil {
			return failedEnvelope("프로그램 저장에 실패했습니다."), nil
		}
		return envelope{Status: "success", Message: "훈련 프로그램을 저장했습니다."}, nil
	})

	return d
}
