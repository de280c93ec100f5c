package conversation

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/agentsquad/agent"
	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/logging"
	"github.com/hupe1980/agentsquad/tool"
)

// Result is the outcome of one tool batch.
type Result struct {
	// Messages holds one tool result per call, in call order.
	Messages []core.Message
	// Agent is the agent in charge after the batch. It equals the input
	// agent unless a transfer succeeded.
	Agent agent.Agent
}

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	Logger logging.Logger
}

// Executor dispatches the tool calls of one assistant turn.
type Executor struct {
	logger   logging.Logger
	transfer tool.Tool
}

// toolCallLogger is implemented by loggers with a dedicated tool call helper.
type toolCallLogger interface {
	LogToolCall(agentID, tool string, dur time.Duration, err error)
}

// NewExecutor creates an Executor.
func NewExecutor(optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Executor{
		logger:   opts.Logger,
		transfer: tool.NewTransferToAgentTool(),
	}
}

// ExecuteTools runs calls one after another on behalf of current. Every call
// yields exactly one result message carrying the call id; failures (unknown
// tool, bad arguments, tool errors, panics, unknown transfer targets) are
// reported as results and never abort the batch.
func (e *Executor) ExecuteTools(ctx context.Context, calls []core.ToolCall, current agent.Agent) Result {
	res := Result{
		Messages: make([]core.Message, 0, len(calls)),
		Agent:    current,
	}

	for _, call := range calls {
		var (
			result any
			err    error
			next   agent.Agent
		)

		start := time.Now()

		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("tool call %s not executed: %w", call.ID, ctxErr)
		} else {
			result, next, err = e.executeOne(ctx, call, res.Agent)
		}

		e.logExecuted(res.Agent.ID(), call, time.Since(start), err)

		if next != nil {
			e.logger.Info("conversation.agent.transferred", "from", res.Agent.ID(), "to", next.ID(), "tool_call_id", call.ID)
			res.Agent = next
		}

		res.Messages = append(res.Messages, core.NewToolResultMessage(call, result, err))
	}

	return res
}

// executeOne resolves and invokes a single call. next is non-nil only for a
// successful transfer.
func (e *Executor) executeOne(ctx context.Context, call core.ToolCall, current agent.Agent) (result any, next agent.Agent, err error) {
	impl, err := e.resolve(call.Name, current)
	if err != nil {
		return nil, nil, err
	}

	args, err := call.DecodeArguments()
	if err != nil {
		return nil, nil, &tool.ToolError{
			Tool:    call.Name,
			Message: err.Error(),
			Code:    tool.CodeValidation,
			Err:     err,
		}
	}

	var target agent.Agent

	viewer := core.NewViewer()
	if c := current.Context(); c != nil {
		viewer = c.Viewer()
	}

	tc := core.NewToolContext(ctx, call.ID, current.ID(), func(o *core.ToolContextOptions) {
		o.Viewer = viewer
		o.Logger = e.logger
		o.Transfer = func(id string) error {
			a, err := current.TransferToAgent(id)
			if err != nil {
				return err
			}
			target = a
			return nil
		}
	})

	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &tool.ToolError{
					Tool:    call.Name,
					Message: fmt.Sprintf("panic: %v", r),
					Code:    tool.CodePanic,
				}
				e.logger.Error("conversation.tool.panic", "agent", current.ID(), "tool", call.Name, "recover", r, "stack", string(debug.Stack()))
			}
		}()
		result, err = impl.Call(tc, args)
	}()

	if err == nil && tc.Actions().TransferToAgent != nil && target != nil {
		next = target
	}

	return result, next, err
}

// resolve looks name up in the tools current declares plus the transfer tool.
func (e *Executor) resolve(name string, current agent.Agent) (tool.Tool, error) {
	if name == tool.TransferToAgentName {
		return e.transfer, nil
	}

	inst, err := current.Instructions()
	if err != nil {
		return nil, &tool.ToolError{
			Tool:    name,
			Message: fmt.Sprintf("resolve tools of agent %s: %v", current.ID(), err),
			Code:    tool.CodeExecution,
			Err:     err,
		}
	}

	if t, ok := tool.Find(inst.Tools, name); ok {
		return t, nil
	}

	return nil, &tool.ToolError{
		Tool:    name,
		Message: fmt.Sprintf("agent %s has no tool named %q", current.ID(), name),
		Code:    tool.CodeNotFound,
		Err:     core.ErrUnknownTool,
	}
}

func (e *Executor) logExecuted(agentID string, call core.ToolCall, dur time.Duration, err error) {
	if l, ok := e.logger.(toolCallLogger); ok {
		l.LogToolCall(agentID, call.Name, dur, err)
	}

	e.logger.Debug(
		"conversation.tool.executed",
		"agent", agentID,
		"tool", call.Name,
		"tool_call_id", call.ID,
		"duration_ms", dur.Milliseconds(),
		"error", err != nil,
	)
}
