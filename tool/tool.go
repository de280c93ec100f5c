// Package tool implements the capabilities agents expose to the completion
// service: named functions with a JSON schema, validated arguments and
// uniform error reporting, plus the reserved transfer_to_agent hand-off tool.
package tool

import (
	"fmt"

	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/internal/util"
)

// Tool is a named capability an agent declares. The conversation executor
// resolves tools by Name, validates nothing itself and calls Call with the
// decoded arguments of a tool call.
//
// Implementations should:
//   - use a unique snake_case name per agent
//   - describe when the tool is useful, the model reads Description
//   - return errors instead of panicking
type Tool interface {
	// Name returns the identifier the completion service uses in tool calls.
	Name() string

	// Description returns a human readable summary shown to the model.
	Description() string

	// Parameters returns the JSON schema of the accepted arguments.
	Parameters() map[string]any

	// Call executes the tool. The returned value is serialized into the tool
	// result message; a returned error becomes a failure result.
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Error codes used by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodePanic      = "PANIC"
)

// ValidationError represents parameter validation errors.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	Err     error  `json:"-"`
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap exposes the underlying cause.
func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Schema converts t into the wire schema sent to the completion service.
func Schema(t Tool) core.ToolSchema {
	return core.NewToolSchema(t.Name(), t.Description(), t.Parameters())
}

// Find returns the tool named name from tools.
func Find(tools []Tool, name string) (Tool, bool) {
	for _, t := range tools {
		if t != nil && t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
