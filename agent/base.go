package agent

import (
	"fmt"
	"slices"
	"sync"

	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/internal/util"
	"github.com/hupe1980/agentsquad/tool"
)

// Options configures a BaseAgent.
type Options struct {
	// Task is an opaque descriptor of what the agent works on. It is made
	// available to instruction templates as {{.task}}.
	Task any

	// Description is a one line summary shown in triage rosters.
	Description string

	// Instruction is the system instruction. Text containing {{ }} markers is
	// rendered against the viewer state of the current turn.
	Instruction Instruction

	// Tools are the agent specific tools. The transfer tool is added by the
	// conversation manager and must not be listed here.
	Tools []tool.Tool
}

// BaseAgent is the generic agent variant. Embed *BaseAgent in a custom type
// and override Instructions to specialise it.
type BaseAgent struct {
	id          string
	task        any
	description string
	instruction Instruction
	tools       []tool.Tool

	mu  sync.RWMutex
	ctx *Context
}

var _ Agent = (*BaseAgent)(nil)

// NewAgent constructs a BaseAgent. Without an explicit instruction the agent
// describes itself as a base agent.
func NewAgent(id string, optFns ...func(o *Options)) *BaseAgent {
	opts := Options{
		Description: fmt.Sprintf("Agent %s", id),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Instruction.IsZero() {
		opts.Instruction = NewInstructionFromText(fmt.Sprintf("The agent with id %s is a base agent.", id))
	}

	return &BaseAgent{
		id:          id,
		task:        opts.Task,
		description: opts.Description,
		instruction: opts.Instruction,
		tools:       slices.Clone(opts.Tools),
	}
}

// ID returns the agent id.
func (b *BaseAgent) ID() string { return b.id }

// Task returns the opaque task descriptor.
func (b *BaseAgent) Task() any { return b.task }

// Description returns the agent's one line summary.
func (b *BaseAgent) Description() string { return b.description }

// Tools returns a copy of the agent specific tools.
func (b *BaseAgent) Tools() []tool.Tool { return slices.Clone(b.tools) }

// Bind attaches the agent to c.
func (b *BaseAgent) Bind(c *Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ctx = c
}

// Context returns the bound Context or nil.
func (b *BaseAgent) Context() *Context {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// Instructions resolves and renders the instruction and returns it with the
// agent specific tools.
func (b *BaseAgent) Instructions() (Instructions, error) {
	text, err := b.RenderInstruction(b.instruction)
	if err != nil {
		return Instructions{}, err
	}

	return Instructions{Instruction: text, Tools: b.Tools()}, nil
}

// RenderInstruction resolves inst against the bound Context and renders
// template markers with the viewer state. The keys "agent" and "task" are
// always available to templates.
func (b *BaseAgent) RenderInstruction(inst Instruction) (string, error) {
	c := b.Context()

	text, err := inst.Resolve(c)
	if err != nil {
		return "", fmt.Errorf("resolve instruction for agent %s: %w", b.id, err)
	}

	state := map[string]any{}
	if c != nil {
		state = c.Viewer().Snapshot()
		if state == nil {
			state = map[string]any{}
		}
	}
	if _, ok := state["agent"]; !ok {
		state["agent"] = b.id
	}
	if _, ok := state["task"]; !ok && b.task != nil {
		state["task"] = b.task
	}

	rendered, err := util.RenderTemplate(text, state)
	if err != nil {
		return "", fmt.Errorf("render instruction for agent %s: %w", b.id, err)
	}

	return rendered, nil
}

// ToolSchemas converts tools into wire schemas in the given order.
func (b *BaseAgent) ToolSchemas(tools []tool.Tool) []core.ToolSchema {
	schemas := make([]core.ToolSchema, 0, len(tools))
	for _, t := range tools {
		if t == nil {
			continue
		}
		schemas = append(schemas, tool.Schema(t))
	}
	return schemas
}

// TransferToAgent looks id up in the bound Context.
func (b *BaseAgent) TransferToAgent(id string) (Agent, error) {
	c := b.Context()
	if c == nil {
		return nil, fmt.Errorf("%w: %s (agent %s is not bound to a context)", core.ErrUnknownAgent, id, b.id)
	}

	target, ok := c.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownAgent, id)
	}

	return target, nil
}
