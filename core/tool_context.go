package core

import (
	"context"
	"errors"

	"github.com/hupe1980/agentsquad/logging"
)

// TransferFunc resolves a hand-off target. It returns an error when the agent
// id is not registered.
type TransferFunc func(agentID string) error

// ToolActions records orchestration signals raised by a tool during a call.
type ToolActions struct {
	TransferToAgent *string `json:"transfer_to_agent,omitempty"`
}

// ToolContextOptions configures a ToolContext.
type ToolContextOptions struct {
	Viewer   *Viewer
	Logger   logging.Logger
	Transfer TransferFunc
}

// ToolContext provides a constrained surface for tool implementations invoked
// on behalf of an agent. It exposes the viewer scratch space and the hand-off
// capability, and records the actions a tool requested so the executor can
// apply them after the call returns.
type ToolContext struct {
	ctx        context.Context
	toolCallID string
	agentID    string
	viewer     *Viewer
	logger     logging.Logger
	transfer   TransferFunc
	actions    ToolActions
}

// NewToolContext constructs a tool context bound to ctx for a single tool call.
func NewToolContext(ctx context.Context, toolCallID, agentID string, optFns ...func(o *ToolContextOptions)) *ToolContext {
	opts := ToolContextOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Viewer == nil {
		opts.Viewer = NewViewer()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &ToolContext{
		ctx:        ctx,
		toolCallID: toolCallID,
		agentID:    agentID,
		viewer:     opts.Viewer,
		logger:     opts.Logger,
		transfer:   opts.Transfer,
	}
}

// Context returns the context associated with the tool invocation.
func (tc *ToolContext) Context() context.Context { return tc.ctx }

// ToolCallID returns the id of the originating tool call.
func (tc *ToolContext) ToolCallID() string { return tc.toolCallID }

// AgentID returns the id of the agent the tool is executed for.
func (tc *ToolContext) AgentID() string { return tc.agentID }

// Logger returns the logger associated with the tool invocation.
func (tc *ToolContext) Logger() logging.Logger { return tc.logger }

// GetState reads a value from the viewer scratch space.
func (tc *ToolContext) GetState(k string) (any, bool) { return tc.viewer.Get(k) }

// SetState writes a value to the viewer scratch space.
func (tc *ToolContext) SetState(k string, v any) { tc.viewer.Set(k, v) }

// Viewer returns the viewer scratch space.
func (tc *ToolContext) Viewer() *Viewer { return tc.viewer }

// Actions returns the actions accumulated during the call.
func (tc *ToolContext) Actions() *ToolActions { return &tc.actions }

// TransferToAgent requests a hand-off to the agent registered under id. The
// request is only recorded when the target resolves.
func (tc *ToolContext) TransferToAgent(id string) error {
	if tc.transfer == nil {
		return errors.New("agent transfer not available in this context")
	}

	if err := tc.transfer(id); err != nil {
		tc.logger.Warn("tool.transfer.rejected", "from_agent", tc.agentID, "to_agent", id, "tool_call_id", tc.toolCallID, "error", err.Error())
		return err
	}

	tc.actions.TransferToAgent = &id
	tc.logger.Info("tool.transfer.request", "from_agent", tc.agentID, "to_agent", id, "tool_call_id", tc.toolCallID)

	return nil
}
