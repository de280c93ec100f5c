package agent

import (
	"fmt"
	"strings"
)

// TriageID is the id of the agent created by NewTriageAgent.
const TriageID = "triage"

// TriageAgent routes the conversation to one of a roster of specialist
// agents. It declares no tools of its own; routing happens through the
// transfer tool every agent exposes.
type TriageAgent struct {
	*BaseAgent
	roster      []Agent
	instruction Instruction
}

var _ Agent = (*TriageAgent)(nil)

// NewTriageAgent creates a triage agent bound to c. The roster is described
// to the model after the given instruction so it can pick a transfer target.
// The triage agent itself is not registered in c.
func NewTriageAgent(c *Context, roster []Agent, instruction string) *TriageAgent {
	base := NewAgent(TriageID, func(o *Options) {
		o.Description = "Routes the conversation to the most suitable agent."
	})
	base.Bind(c)

	return &TriageAgent{
		BaseAgent:   base,
		roster:      append([]Agent(nil), roster...),
		instruction: NewInstructionFromText(instruction),
	}
}

// Roster returns the agents the triage agent can route to.
func (t *TriageAgent) Roster() []Agent { return append([]Agent(nil), t.roster...) }

// Instructions returns the triage instruction followed by the roster.
func (t *TriageAgent) Instructions() (Instructions, error) {
	text, err := t.RenderInstruction(t.instruction)
	if err != nil {
		return Instructions{}, err
	}

	var sb strings.Builder
	sb.WriteString(text)
	if len(t.roster) > 0 {
		if text != "" {
			sb.WriteString("\n\n")
		}
		sb.WriteString("Available agents (transfer with transfer_to_agent using the id):\n")
		for _, a := range t.roster {
			fmt.Fprintf(&sb, "- %s: %s\n", a.ID(), a.Description())
		}
	}

	return Instructions{Instruction: strings.TrimRight(sb.String(), "\n")}, nil
}
