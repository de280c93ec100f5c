package testutil

import (
	"encoding/json"

	"github.com/hupe1980/agentsquad/core"
)

// Frame encodes v as one "data: " frame terminated by a blank line.
func Frame(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return "data: " + string(b) + "\n\n"
}

// ContentFrame builds a content delta frame.
func ContentFrame(text string) string {
	return Frame(map[string]any{"type": "content", "content": text})
}

// ToolCallFrame builds a tool call delta frame. Valid JSON arguments are
// embedded as an object, anything else as a string.
func ToolCallFrame(id, name, arguments string) string {
	call := map[string]any{"id": id}
	if name != "" {
		call["name"] = name
	}
	switch {
	case arguments == "":
	case json.Valid([]byte(arguments)):
		call["arguments"] = json.RawMessage(arguments)
	default:
		call["arguments"] = arguments
	}
	return Frame(map[string]any{"type": "tool_call", "tool_call": call})
}

// FinishFrame builds a finish frame without explicit final values.
func FinishFrame() string {
	return Frame(map[string]any{"type": "finish"})
}

// FinalFrame builds a finish frame carrying explicit final content and calls.
func FinalFrame(content string, calls ...core.ToolCall) string {
	f := map[string]any{"type": "finish", "final_content": content}
	if len(calls) > 0 {
		f["final_tool_calls"] = calls
	}
	return Frame(f)
}

// ErrorFrame builds an explicit error frame.
func ErrorFrame(msg string) string {
	return Frame(map[string]any{"error": msg})
}

// Call builds a tool call with JSON object arguments.
func Call(id, name, arguments string) core.ToolCall {
	return core.NewToolCall(id, name, arguments)
}
