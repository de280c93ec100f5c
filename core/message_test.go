package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_HasToolCalls(t *testing.T) {
	if NewAssistantMessage("done").HasToolCalls() {
		t.Fatalf("nil tool calls must not count")
	}

	empty := Message{Role: RoleAssistant, ToolCalls: []ToolCall{}}
	if empty.HasToolCalls() {
		t.Fatalf("empty tool call list must not count")
	}

	withCall := NewAssistantMessage("", ToolCall{ID: "t1", Name: "lookup"})
	if !withCall.HasToolCalls() {
		t.Fatalf("expected tool calls")
	}
}

func TestMessage_CloneDoesNotAlias(t *testing.T) {
	orig := NewAssistantMessage("", ToolCall{ID: "t1", Name: "a", Arguments: json.RawMessage(`{"x":1}`)})
	cp := orig.Clone()
	cp.ToolCalls[0].Name = "b"
	cp.ToolCalls[0].Arguments[2] = 'y'

	assert.Equal(t, "a", orig.ToolCalls[0].Name)
	assert.JSONEq(t, `{"x":1}`, string(orig.ToolCalls[0].Arguments))
}

func TestToolCall_DecodeArguments(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{name: "object", raw: `{"id":"billing"}`, want: map[string]any{"id": "billing"}},
		{name: "encoded string", raw: `"{\"id\":\"billing\"}"`, want: map[string]any{"id": "billing"}},
		{name: "empty", raw: ``, want: map[string]any{}},
		{name: "null", raw: `null`, want: map[string]any{}},
		{name: "empty string", raw: `""`, want: map[string]any{}},
		{name: "array", raw: `[1,2]`, wantErr: true},
		{name: "garbage", raw: `{"id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToolCall{ID: "t1", Name: "x", Arguments: json.RawMessage(tt.raw)}.DecodeArguments()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidArguments)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewToolResultMessage(t *testing.T) {
	call := ToolCall{ID: "call-1", Name: "weather"}

	ok := NewToolResultMessage(call, map[string]any{"temp": 21}, nil)
	assert.Equal(t, RoleTool, ok.Role)
	assert.Equal(t, "call-1", ok.ToolCallID)
	assert.Equal(t, "weather", ok.Name)
	assert.JSONEq(t, `{"temp":21}`, ok.Content)

	text := NewToolResultMessage(call, "sunny", nil)
	assert.Equal(t, "sunny", text.Content)

	failed := NewToolResultMessage(call, nil, errors.New("boom"))
	assert.JSONEq(t, `{"error":"boom"}`, failed.Content)
}

func TestMessage_JSONShape(t *testing.T) {
	b, err := json.Marshal(NewUserMessage("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hi"}`, string(b))

	var m Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"assistant","content":"","tool_calls":[{"id":"t1","name":"lookup","arguments":{"q":"x"}}]}`), &m))
	require.True(t, m.HasToolCalls())
	assert.Equal(t, "lookup", m.ToolCalls[0].Name)
}

func TestStreamEvent_Message(t *testing.T) {
	ev := StreamEvent{
		Type:      StreamEventFinish,
		Content:   "Hello",
		ToolCalls: []ToolCall{{ID: "t1", Name: "lookup"}},
	}
	assert.True(t, ev.IsTerminal())

	msg := ev.Message()
	assert.Equal(t, RoleAssistant, msg.Role)
	assert.Equal(t, "Hello", msg.Content)
	assert.Len(t, msg.ToolCalls, 1)

	assert.False(t, StreamEvent{Type: StreamEventError}.IsTerminal())
	assert.True(t, StreamEvent{Type: StreamEventError, Fatal: true}.IsTerminal())
}

func TestErrors_Unwrap(t *testing.T) {
	var err error = &ServiceError{StatusCode: 502, Message: "bad gateway"}
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, "service error 502: bad gateway", err.Error())

	err = &StreamError{Message: "quota"}
	assert.ErrorIs(t, err, ErrStream)
	assert.ErrorIs(t, ErrStreamEndedWithoutFinish, ErrStream)
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || a == b {
		t.Fatalf("expected unique non-empty ids, got %q and %q", a, b)
	}
}

func TestToolCall_UnmarshalShapes(t *testing.T) {
	var flat ToolCall
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","name":"lookup","arguments":{"q":"x"}}`), &flat))
	assert.Equal(t, "t1", flat.ID)
	assert.Equal(t, "lookup", flat.Name)
	assert.JSONEq(t, `{"q":"x"}`, string(flat.Arguments))

	var nested ToolCall
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t2","type":"function","function":{"name":"lookup","arguments":"{\"q\":\"y\"}"}}`), &nested))
	assert.Equal(t, "lookup", nested.Name)

	args, err := nested.DecodeArguments()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"q": "y"}, args)
}

func TestNewToolCall(t *testing.T) {
	obj := NewToolCall("t1", "a", `{"k":1}`)
	assert.JSONEq(t, `{"k":1}`, string(obj.Arguments))
	assert.Equal(t, `{"k":1}`, obj.ArgumentsString())

	partial := NewToolCall("t2", "a", `{"k":`)
	assert.Equal(t, `"{\"k\":"`, string(partial.Arguments))
	assert.Equal(t, `{"k":`, partial.ArgumentsString())

	empty := NewToolCall("t3", "a", "")
	assert.Nil(t, empty.Arguments)
	assert.Equal(t, "{}", empty.ArgumentsString())
}
