package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/internal/util"
)

// FunctionTool exposes a plain Go function as a Tool.
//
// Arguments are validated against the declared JSON schema before the
// function runs. Failures are normalized to *ToolError:
//
//	VALIDATION_ERROR  -> arguments do not satisfy the schema
//	EXECUTION_ERROR   -> the function returned a plain error
//	(a *ToolError returned by the function is forwarded unchanged)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	resolved    *jsonschema.Resolved
	fn          func(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from an explicit schema. It returns
// an error if the schema cannot be compiled.
//
// Example:
//
//	lookup, err := tool.NewFunctionTool(
//	  "lookup_order",
//	  "Look up an order by its number",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "order": map[string]any{"type": "string"},
//	    },
//	    "required": []string{"order"},
//	  },
//	  func(tc *core.ToolContext, args map[string]any) (any, error) {
//	    return orders.Get(args["order"].(string))
//	  },
//	)
func NewFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) (*FunctionTool, error) {
	if parameters == nil {
		parameters = map[string]any{"type": "object", "properties": map[string]any{}}
	}

	resolved, err := util.CompileSchema(parameters)
	if err != nil {
		return nil, fmt.Errorf("compile schema for tool %q: %w", name, err)
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  parameters,
		resolved:    resolved,
		fn:          fn,
	}, nil
}

// MustFunctionTool is like NewFunctionTool but panics on an invalid schema.
func MustFunctionTool(
	name, description string,
	parameters map[string]any,
	fn func(toolCtx *core.ToolContext, args map[string]any) (any, error),
) *FunctionTool {
	t, err := NewFunctionTool(name, description, parameters, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTypedTool derives the schema from T and decodes the arguments into T
// before calling fn.
//
//	type weatherArgs struct {
//	  City string `json:"city" description:"City name"`
//	}
//
//	weather, err := tool.NewTypedTool("get_weather", "Current weather for a city",
//	  func(tc *core.ToolContext, in weatherArgs) (any, error) { ... })
func NewTypedTool[T any](
	name, description string,
	fn func(toolCtx *core.ToolContext, args T) (any, error),
) (*FunctionTool, error) {
	schema, resolved, err := util.SchemaFor[T]()
	if err != nil {
		return nil, fmt.Errorf("reflect schema for tool %q: %w", name, err)
	}

	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  schema,
		resolved:    resolved,
		fn: func(toolCtx *core.ToolContext, args map[string]any) (any, error) {
			in, err := util.DecodeArguments[T](args)
			if err != nil {
				return nil, &ToolError{Tool: name, Message: err.Error(), Code: CodeValidation, Err: err}
			}
			return fn(toolCtx, in)
		},
	}, nil
}

// Name returns the tool name.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Call validates args then invokes the wrapped function.
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "tool_call_id", toolCtx.ToolCallID())

	if err := util.ValidateParameters(t.name, t.resolved, args); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
			Err:     err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			logger.Error("tool.call.error", "tool", t.name, "code", toolErr.Code, "error", toolErr.Message)
			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			Err:     err,
		}
	}

	logger.Debug("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
