package tool

import (
	"fmt"

	"github.com/hupe1980/agentsquad/core"
)

// TransferToAgentName is the reserved name of the hand-off tool every agent
// exposes in addition to its own tools.
const TransferToAgentName = "transfer_to_agent"

// transferToAgentTool hands the conversation to another registered agent.
type transferToAgentTool struct{}

// NewTransferToAgentTool constructs the transfer tool instance.
func NewTransferToAgentTool() Tool { return transferToAgentTool{} }

// IsTransfer reports whether t is the reserved transfer tool.
func IsTransfer(t Tool) bool { return t != nil && t.Name() == TransferToAgentName }

func (transferToAgentTool) Name() string { return TransferToAgentName }

func (transferToAgentTool) Description() string {
	return "Transfer the conversation to another agent by id. Use when another agent is better suited to answer."
}

func (transferToAgentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string", "description": "Id of the target agent"},
		},
		"required": []string{"id"},
	}
}

func (transferToAgentTool) Call(tc *core.ToolContext, args map[string]any) (any, error) {
	raw, ok := args["id"]
	if !ok {
		return nil, NewToolError(TransferToAgentName, "missing required field 'id'", CodeValidation)
	}

	id, ok := raw.(string)
	if !ok || id == "" {
		return nil, NewToolError(TransferToAgentName, "field 'id' must be a non-empty string", CodeValidation)
	}

	if err := tc.TransferToAgent(id); err != nil {
		return nil, &ToolError{
			Tool:    TransferToAgentName,
			Message: fmt.Sprintf("cannot transfer to agent %q: %v", id, err),
			Code:    CodeNotFound,
			Err:     err,
		}
	}

	return map[string]any{"transferred": true, "agent": id}, nil
}
