package core

import "github.com/google/uuid"

// StreamEventType discriminates the variants of StreamEvent.
type StreamEventType string

const (
	// StreamEventContent carries a text delta.
	StreamEventContent StreamEventType = "content"
	// StreamEventToolCall carries a (partial) tool call delta.
	StreamEventToolCall StreamEventType = "tool_call"
	// StreamEventFinish terminates a stream successfully.
	StreamEventFinish StreamEventType = "finish"
	// StreamEventError reports a frame-level or stream-level failure.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one decoded unit of a streamed completion. Events are
// transient and never stored in the conversation log. Which fields are set
// depends on Type:
//
//	content:   Delta, Content (accumulated so far)
//	tool_call: ToolCall (this delta), ToolCalls (all calls seen, first-seen order)
//	finish:    Content, ToolCalls, FinishReason
//	error:     Err, Fatal
type StreamEvent struct {
	Type         StreamEventType
	Delta        string
	Content      string
	ToolCall     *ToolCall
	ToolCalls    []ToolCall
	FinishReason string
	Err          error
	// Fatal is true when the error terminated the stream (explicit error
	// frame) and false for a single malformed frame.
	Fatal bool
}

// IsTerminal reports whether no further events follow this one.
func (e StreamEvent) IsTerminal() bool {
	return e.Type == StreamEventFinish || (e.Type == StreamEventError && e.Fatal)
}

// Message converts a finish event into the assistant message it represents.
func (e StreamEvent) Message() Message {
	var calls []ToolCall
	if len(e.ToolCalls) > 0 {
		calls = make([]ToolCall, len(e.ToolCalls))
		for i, c := range e.ToolCalls {
			calls[i] = c.Clone()
		}
	}
	return NewAssistantMessage(e.Content, calls...)
}

// NewID generates a new unique identifier for conversations and requests.
func NewID() string { return uuid.NewString() }
