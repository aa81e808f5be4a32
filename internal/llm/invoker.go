// Package llm implements the LLM invoker: a single chat-completion call
// against an Ollama-style backend, in both blocking and
// line-delimited-streaming modes.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/artificer-ai/artificer/internal/models"
	"github.com/artificer-ai/artificer/internal/telemetry"
)

// StreamSender receives stream_chunk text as it arrives. Implementations
// must be non-blocking; internal/events.EventSender satisfies this.
type StreamSender interface {
	StreamChunk(content string)
}

// stdoutSender is used when a caller has no event sender, so streamed
// content still lands somewhere visible.
type stdoutSender struct{}

func (stdoutSender) StreamChunk(content string) { fmt.Print(content) }

// Invoker issues chat-completion calls against a single backend URL.
type Invoker struct {
	client  *http.Client
	baseURL string
}

// New builds an Invoker against baseURL with the given request timeout
// (120s when zero).
func New(baseURL string, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Invoker{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// chatRequest is the wire body POSTed to the backend.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []wireMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Tools    []openai.Tool   `json:"tools,omitempty"`
}

type wireMessage struct {
	Role      string            `json:"role"`
	Content   string            `json:"content,omitempty"`
	ToolCalls []wireToolCall    `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type,omitempty"`
	Function wireFunctionCall `json:"function"`
}

type wireFunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type chatResponseFrame struct {
	Message *wireMessage `json:"message"`
	Done    bool         `json:"done"`
}

func toWireMessages(msgs []models.Message) []wireMessage {
	out := make([]wireMessage, 0, len(msgs))
	for _, m := range msgs {
		wm := wireMessage{Role: m.Role, Content: m.Content}
		if len(m.ToolCalls) > 0 {
			wm.ToolCalls = make([]wireToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				args := tc.Function.Arguments
				if len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				wm.ToolCalls[i] = wireToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: wireFunctionCall{
						Name:      tc.Function.Name,
						Arguments: args,
					},
				}
			}
		}
		out = append(out, wm)
	}
	return out
}

// Complete issues one chat-completion call. When streaming is true, the
// response is consumed as line-delimited frames and stream_chunk events
// (or stdout, absent a sender) are emitted as content arrives; when false,
// a single blocking JSON reply is awaited. Both return an assembled
// models.ResponseMessage.
func (inv *Invoker) Complete(ctx context.Context, model string, messages []models.Message, tools []openai.Tool, streaming bool, sender StreamSender) (result models.ResponseMessage, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "llm.Complete",
		oteltrace.WithAttributes(
			attribute.String("llm.model", model),
			attribute.Bool("llm.streaming", streaming),
			attribute.Int("llm.message_count", len(messages)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	req := chatRequest{
		Model:    model,
		Messages: toWireMessages(messages),
		Stream:   streaming,
		Tools:    tools,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return models.ResponseMessage{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, inv.baseURL, bytes.NewReader(body))
	if err != nil {
		return models.ResponseMessage{}, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := inv.client.Do(httpReq)
	if err != nil {
		return models.ResponseMessage{}, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return models.ResponseMessage{}, fmt.Errorf("llm: backend status %d: %s", resp.StatusCode, strings.TrimSpace(string(errBody)))
	}

	if !streaming {
		return inv.completeBlocking(resp.Body)
	}
	if sender == nil {
		sender = stdoutSender{}
	}
	return inv.completeStreaming(ctx, resp.Body, sender)
}

func (inv *Invoker) completeBlocking(body io.Reader) (models.ResponseMessage, error) {
	var frame chatResponseFrame
	if err := json.NewDecoder(body).Decode(&frame); err != nil {
		return models.ResponseMessage{}, fmt.Errorf("llm: decode response: %w", err)
	}
	if frame.Message == nil {
		return models.ResponseMessage{}, fmt.Errorf("llm: response had no message")
	}
	return fromWireMessage(*frame.Message), nil
}

// completeStreaming parses newline-delimited {message, done} frames,
// handling a trailing frame with no terminating newline.
func (inv *Invoker) completeStreaming(ctx context.Context, body io.Reader, sender StreamSender) (models.ResponseMessage, error) {
	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1<<20)

	var (
		fullContent strings.Builder
		lastRole    = "assistant"
		lastTools   []models.ToolCall
	)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return models.ResponseMessage{}, ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var frame chatResponseFrame
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return models.ResponseMessage{}, fmt.Errorf("llm: malformed stream frame: %w", err)
		}
		if frame.Message != nil {
			if frame.Message.Role != "" {
				lastRole = frame.Message.Role
			}
			if frame.Message.Content != "" {
				fullContent.WriteString(frame.Message.Content)
				sender.StreamChunk(frame.Message.Content)
			}
			if len(frame.Message.ToolCalls) > 0 {
				lastTools = fromWireToolCalls(frame.Message.ToolCalls)
			}
		}
		if frame.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return models.ResponseMessage{}, fmt.Errorf("llm: read stream: %w", err)
	}

	content := fullContent.String()
	return models.ResponseMessage{
		Role:      lastRole,
		Content:   content,
		ToolCalls: lastTools,
	}, nil
}

func fromWireToolCalls(wtcs []wireToolCall) []models.ToolCall {
	out := make([]models.ToolCall, 0, len(wtcs))
	for _, tc := range wtcs {
		out = append(out, models.ToolCall{
			ID: tc.ID,
			Function: models.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}

func fromWireMessage(m wireMessage) models.ResponseMessage {
	return models.ResponseMessage{
		Role:      m.Role,
		Content:   m.Content,
		ToolCalls: fromWireToolCalls(m.ToolCalls),
	}
}
