package completion

import (
	"context"

	"github.com/hupe1980/agentsquad/core"
)

// Service sends conversation turns to a remote completion service.
type Service interface {
	// SendMessage performs one request/response round trip.
	SendMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error)

	// StreamMessage opens a streamed response. The caller must Close the
	// returned Stream.
	StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*Stream, error)
}

// Request is the JSON body posted to both endpoints.
type Request struct {
	Messages []core.Message    `json:"messages"`
	Tools    []core.ToolSchema `json:"tools,omitempty"`
}

// Response is the JSON body returned by the non-streaming endpoint.
type Response struct {
	Message core.Message `json:"message"`
}

// ServiceFunc adapts a plain function to the non-streaming half of Service.
// StreamMessage wraps the single response into a one-shot stream.
type ServiceFunc func(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error)

// SendMessage implements Service.
func (f ServiceFunc) SendMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error) {
	return f(ctx, messages, tools)
}

// StreamMessage implements Service by emitting the complete message as
// content and tool call events followed by a finish event.
func (f ServiceFunc) StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*Stream, error) {
	msg, err := f(ctx, messages, tools)
	if err != nil {
		return nil, err
	}
	return MessageStream(ctx, msg), nil
}

// MessageStream replays a complete assistant message as a stream.
func MessageStream(ctx context.Context, msg core.Message) *Stream {
	return NewStream(ctx, func(ctx context.Context, emit func(core.StreamEvent) bool) error {
		if msg.Content != "" {
			if !emit(core.StreamEvent{Type: core.StreamEventContent, Delta: msg.Content, Content: msg.Content}) {
				return ctx.Err()
			}
		}

		calls := make([]core.ToolCall, 0, len(msg.ToolCalls))
		for _, c := range msg.ToolCalls {
			call := c.Clone()
			calls = append(calls, call)
			snapshot := append([]core.ToolCall(nil), calls...)
			if !emit(core.StreamEvent{Type: core.StreamEventToolCall, ToolCall: &call, ToolCalls: snapshot}) {
				return ctx.Err()
			}
		}

		reason := "stop"
		if len(calls) > 0 {
			reason = "tool_calls"
		}

		if !emit(core.StreamEvent{Type: core.StreamEventFinish, Content: msg.Content, ToolCalls: calls, FinishReason: reason}) {
			return ctx.Err()
		}
		return nil
	})
}
