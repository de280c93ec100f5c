package agent

import (
	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/tool"
)

// Instructions is the per-request contribution of an agent: the text used as
// system message and the tools declared in addition to the transfer tool.
type Instructions struct {
	Instruction string
	Tools       []tool.Tool
}

// Agent is the capability set every agent variant provides. The conversation
// manager only ever talks to agents through this interface.
type Agent interface {
	// ID returns the unique identifier used for registration and transfer.
	ID() string

	// Description returns a one line summary used by triage rosters.
	Description() string

	// Instructions returns the instruction and tools for the next request.
	Instructions() (Instructions, error)

	// ToolSchemas converts tools into wire schemas, preserving order.
	ToolSchemas(tools []tool.Tool) []core.ToolSchema

	// TransferToAgent returns the agent registered under id in the bound
	// Context. It fails with core.ErrUnknownAgent if no such agent exists.
	TransferToAgent(id string) (Agent, error)

	// Bind attaches the agent to a shared Context.
	Bind(c *Context)

	// Context returns the bound Context or nil.
	Context() *Context
}
