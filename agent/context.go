package agent

import (
	"fmt"
	"sync"

	"github.com/hupe1980/agentsquad/core"
)

// Context is the state shared by all agents of one conversation: a registry
// of agents keyed by id and the viewer scratch space that is reset at the
// start of every user turn.
type Context struct {
	mu     sync.RWMutex
	agents map[string]Agent
	order  []string
	viewer *core.Viewer
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{
		agents: make(map[string]Agent),
		viewer: core.NewViewer(),
	}
}

// Register adds agents to the registry in the given order and binds each of
// them to c. Ids must be non-empty and unique.
func (c *Context) Register(agents ...Agent) error {
	c.mu.Lock()
	for _, a := range agents {
		if a == nil {
			c.mu.Unlock()
			return fmt.Errorf("register agent: nil agent")
		}

		id := a.ID()
		if id == "" {
			c.mu.Unlock()
			return fmt.Errorf("register agent: empty id")
		}
		if _, exists := c.agents[id]; exists {
			c.mu.Unlock()
			return fmt.Errorf("%w: %s", core.ErrDuplicateAgent, id)
		}

		c.agents[id] = a
		c.order = append(c.order, id)
	}
	c.mu.Unlock()

	for _, a := range agents {
		a.Bind(c)
	}

	return nil
}

// Lookup returns the agent registered under id.
func (c *Context) Lookup(id string) (Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	a, ok := c.agents[id]
	return a, ok
}

// Agents returns the registered agents in registration order.
func (c *Context) Agents() []Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Agent, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.agents[id])
	}
	return out
}

// Viewer returns the scratch space of the current user turn.
func (c *Context) Viewer() *core.Viewer { return c.viewer }

// ResetViewer discards all scratch state.
func (c *Context) ResetViewer() { c.viewer.Reset() }
