package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Role identifies the author of a Message.
type Role string

const (
	// RoleUser marks messages typed by the end user.
	RoleUser Role = "user"
	// RoleSystem marks the instruction message derived from the current agent.
	RoleSystem Role = "system"
	// RoleAssistant marks messages produced by the completion service.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool result messages.
	RoleTool Role = "tool"
)

// Message is a single entry of the conversation log. Once appended to a log it
// must be treated as immutable.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // Set on tool results only
	Name       string     `json:"name,omitempty"`         // Tool name on tool results
}

// HasToolCalls reports whether the message requests at least one tool call.
// A nil and an empty list are treated identically.
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// Clone returns a copy whose ToolCalls slice does not alias the receiver's.
func (m Message) Clone() Message {
	if m.ToolCalls != nil {
		calls := make([]ToolCall, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			calls[i] = c.Clone()
		}
		m.ToolCalls = calls
	}
	return m
}

// NewUserMessage creates a user-authored text message.
func NewUserMessage(text string) Message { return Message{Role: RoleUser, Content: text} }

// NewSystemMessage creates a system instruction message.
func NewSystemMessage(text string) Message { return Message{Role: RoleSystem, Content: text} }

// NewAssistantMessage creates an assistant message with optional tool calls.
func NewAssistantMessage(text string, calls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: calls}
}

// NewToolResultMessage records the outcome of a tool call. If err is non-nil the
// content is a JSON object {"error": "..."} so the remote service can react to
// the failure on its next turn.
func NewToolResultMessage(call ToolCall, result any, err error) Message {
	return Message{
		Role:       RoleTool,
		Content:    SerializeResult(result, err),
		ToolCallID: call.ID,
		Name:       call.Name,
	}
}

// SerializeResult renders a tool result as message content. Strings are used
// verbatim, everything else is JSON encoded.
func SerializeResult(result any, err error) string {
	if err != nil {
		b, _ := json.Marshal(map[string]string{"error": err.Error()})
		return string(b)
	}

	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case json.RawMessage:
		return string(v)
	}

	b, mErr := json.Marshal(result)
	if mErr != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(b)
}

// ToolCall is a request from the remote service to invoke a named tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// NewToolCall builds a ToolCall from vendor fields where arguments arrive as
// a string. Valid JSON is kept as is, anything else is stored as a JSON
// string.
func NewToolCall(id, name, arguments string) ToolCall {
	call := ToolCall{ID: id, Name: name}

	trimmed := bytes.TrimSpace([]byte(arguments))
	switch {
	case len(trimmed) == 0:
	case json.Valid(trimmed):
		call.Arguments = json.RawMessage(trimmed)
	default:
		call.Arguments, _ = json.Marshal(arguments)
	}

	return call
}

// ArgumentsString returns the arguments as JSON object text, unwrapping a
// JSON encoded string. An empty payload yields "{}".
func (c ToolCall) ArgumentsString() string {
	raw := bytes.TrimSpace(c.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "{}"
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s == "" {
				return "{}"
			}
			return s
		}
	}

	return string(raw)
}

// UnmarshalJSON accepts both the flat {id, name, arguments} shape and the
// OpenAI style {id, type, function: {name, arguments}} shape.
func (c *ToolCall) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID        string          `json:"id"`
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
		Function  *struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		} `json:"function"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	c.ID, c.Name, c.Arguments = wire.ID, wire.Name, wire.Arguments
	if wire.Function != nil {
		if c.Name == "" {
			c.Name = wire.Function.Name
		}
		if len(c.Arguments) == 0 {
			c.Arguments = wire.Function.Arguments
		}
	}

	return nil
}

// Clone returns a deep copy of the call.
func (c ToolCall) Clone() ToolCall {
	if c.Arguments != nil {
		c.Arguments = append(json.RawMessage(nil), c.Arguments...)
	}
	return c
}

// DecodeArguments parses the argument payload into a map. Both a JSON object
// and a JSON string holding an encoded object are accepted; an absent or null
// payload yields an empty map.
func (c ToolCall) DecodeArguments() (map[string]any, error) {
	raw := bytes.TrimSpace(c.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if encoded == "" {
			return map[string]any{}, nil
		}
		raw = []byte(encoded)
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}

// ToolSchema declaratively exposes a callable tool to the remote service.
type ToolSchema struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual tool. Parameters is a JSON Schema
// object.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// NewToolSchema builds a function-typed ToolSchema.
func NewToolSchema(name, description string, parameters map[string]any) ToolSchema {
	return ToolSchema{
		Type: "function",
		Function: FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  parameters,
		},
	}
}
