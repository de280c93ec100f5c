package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsquad/core"
)

func newToolContext(callID string, transfer core.TransferFunc) *core.ToolContext {
	return core.NewToolContext(context.Background(), callID, "agent", func(o *core.ToolContextOptions) {
		o.Transfer = transfer
	})
}

// -------------------- FunctionTool Tests --------------------

func TestFunctionTool_Success(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}

	sumTool, err := NewFunctionTool("sum", "Add numbers", params, func(_ *core.ToolContext, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
	require.NoError(t, err)

	result, err := sumTool.Call(newToolContext("fc1", nil), map[string]any{"a": 2.0, "b": 3.0})
	assert.NoError(t, err)
	assert.Equal(t, 5.0, result)
	assert.Equal(t, "sum", sumTool.Name())
	assert.Equal(t, params, sumTool.Parameters())
}

func TestFunctionTool_ValidationError(t *testing.T) {
	params := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
		},
		"required": []any{"a"},
	}
	tTool := MustFunctionTool("test", "Test", params, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		t.Fatal("function must not run on invalid arguments")
		return nil, nil
	})

	_, err := tTool.Call(newToolContext("fc2", nil), map[string]any{})
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestFunctionTool_ExecutionError(t *testing.T) {
	boom := errors.New("boom")
	execTool := MustFunctionTool("fail", "Fails", nil, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, boom
	})

	_, err := execTool.Call(newToolContext("fc3", nil), map[string]any{})

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.ErrorIs(t, err, boom)
}

func TestFunctionTool_ForwardsToolError(t *testing.T) {
	custom := NewToolError("quota", "limit reached", "QUOTA")
	quotaTool := MustFunctionTool("quota", "Quota", nil, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, custom
	})

	_, err := quotaTool.Call(newToolContext("fc4", nil), nil)
	assert.Same(t, custom, err)
}

func TestNewFunctionTool_InvalidSchema(t *testing.T) {
	_, err := NewFunctionTool("bad", "Bad", map[string]any{"type": 42}, func(_ *core.ToolContext, _ map[string]any) (any, error) {
		return nil, nil
	})
	assert.Error(t, err)
}

type greetArgs struct {
	Name string `json:"name" description:"Who to greet"`
}

func TestTypedTool(t *testing.T) {
	greet, err := NewTypedTool("greet", "Greets a person", func(tc *core.ToolContext, in greetArgs) (any, error) {
		tc.SetState("greeted", in.Name)
		return "hello " + in.Name, nil
	})
	require.NoError(t, err)

	props := greet.Parameters()["properties"].(map[string]any)
	assert.Contains(t, props, "name")

	tc := newToolContext("fc5", nil)
	res, err := greet.Call(tc, map[string]any{"name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "hello Ada", res)

	v, ok := tc.GetState("greeted")
	assert.True(t, ok)
	assert.Equal(t, "Ada", v)

	_, err = greet.Call(tc, map[string]any{"name": 7})
	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidation, toolErr.Code)
}

// -------------------- Transfer Tool Tests --------------------

func TestTransferToAgentTool(t *testing.T) {
	tr := NewTransferToAgentTool()
	assert.True(t, IsTransfer(tr))
	assert.Equal(t, []string{"id"}, tr.Parameters()["required"])

	var requested string
	tc := newToolContext("fc6", func(id string) error {
		requested = id
		return nil
	})

	res, err := tr.Call(tc, map[string]any{"id": "billing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"transferred": true, "agent": "billing"}, res)
	assert.Equal(t, "billing", requested)
	require.NotNil(t, tc.Actions().TransferToAgent)
	assert.Equal(t, "billing", *tc.Actions().TransferToAgent)
}

func TestTransferToAgentTool_UnknownAgent(t *testing.T) {
	tc := newToolContext("fc7", func(id string) error {
		return core.ErrUnknownAgent
	})

	_, err := NewTransferToAgentTool().Call(tc, map[string]any{"id": "ghost"})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnknownAgent)
	assert.Nil(t, tc.Actions().TransferToAgent)
}

func TestTransferToAgentTool_BadArguments(t *testing.T) {
	tr := NewTransferToAgentTool()
	tc := newToolContext("fc8", func(string) error { return nil })

	for _, args := range []map[string]any{{}, {"id": ""}, {"id": 3}} {
		_, err := tr.Call(tc, args)
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, CodeValidation, toolErr.Code)
	}
}

// -------------------- Helpers --------------------

func TestFindAndSchema(t *testing.T) {
	a := MustFunctionTool("a", "A", nil, func(*core.ToolContext, map[string]any) (any, error) { return nil, nil })
	tools := []Tool{a, NewTransferToAgentTool()}

	found, ok := Find(tools, "transfer_to_agent")
	assert.True(t, ok)
	assert.True(t, IsTransfer(found))

	_, ok = Find(tools, "missing")
	assert.False(t, ok)

	s := Schema(a)
	assert.Equal(t, "function", s.Type)
	assert.Equal(t, "a", s.Function.Name)
}

func TestToolErrorFormatting(t *testing.T) {
	err := NewToolError("demo", "something failed", "E123")
	assert.Contains(t, err.Error(), "E123")
	assert.Contains(t, err.Error(), "demo")
}
