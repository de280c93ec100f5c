package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/agentsquad/agent"
	"github.com/hupe1980/agentsquad/completion"
	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/logging"
	"github.com/hupe1980/agentsquad/tool"
)

// ManagerOptions configures a Manager.
type ManagerOptions struct {
	// Logger receives loop events. A *logging.SquadLogger is scoped to the
	// conversation id.
	Logger logging.Logger

	// MaxTurns bounds the number of completion requests per processed
	// message. Zero means unlimited.
	MaxTurns int

	// Executor dispatches tool calls. Defaults to an Executor sharing Logger.
	Executor *Executor
}

// completionLogger is implemented by loggers with a dedicated completion helper.
type completionLogger interface {
	LogCompletion(agentID string, streamed bool, toolCalls int, dur time.Duration, err error)
}

// Manager drives one conversation. It is safe for concurrent use, but
// Process* calls are serialized: one Manager never runs two loops at once.
type Manager struct {
	id       string
	service  completion.Service
	agents   *agent.Context
	executor *Executor
	logger   logging.Logger
	maxTurns int
	transfer tool.Tool

	run sync.Mutex // serializes loops

	mu       sync.RWMutex
	messages []core.Message
	current  agent.Agent
}

// NewManager creates a Manager starting with initial in charge. initial is
// bound to agents if it is not bound yet.
func NewManager(service completion.Service, agents *agent.Context, initial agent.Agent, optFns ...func(o *ManagerOptions)) (*Manager, error) {
	if service == nil {
		return nil, errors.New("conversation: completion service is required")
	}
	if agents == nil {
		return nil, errors.New("conversation: agent context is required")
	}
	if initial == nil {
		return nil, errors.New("conversation: initial agent is required")
	}

	opts := ManagerOptions{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.MaxTurns < 0 {
		opts.MaxTurns = 0
	}

	id := core.NewID()

	logger := opts.Logger
	if sl, ok := logger.(*logging.SquadLogger); ok {
		logger = sl.WithComponent("conversation").WithConversation(id)
	}

	executor := opts.Executor
	if executor == nil {
		executor = NewExecutor(func(o *ExecutorOptions) { o.Logger = logger })
	}

	if initial.Context() == nil {
		initial.Bind(agents)
	}

	return &Manager{
		id:       id,
		service:  service,
		agents:   agents,
		executor: executor,
		logger:   logger,
		maxTurns: opts.MaxTurns,
		transfer: tool.NewTransferToAgentTool(),
		current:  initial,
	}, nil
}

// ID returns the conversation id.
func (m *Manager) ID() string { return m.id }

// CurrentAgent returns the agent in charge.
func (m *Manager) CurrentAgent() agent.Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Messages returns a copy of the conversation log.
func (m *Manager) Messages() []core.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Message, len(m.messages))
	for i, msg := range m.messages {
		out[i] = msg.Clone()
	}
	return out
}

// ProcessMessage appends text as a user message, resets the viewer and runs
// the loop until the service answers without tool calls. It returns the
// content of that final answer.
func (m *Manager) ProcessMessage(ctx context.Context, text string) (string, error) {
	m.run.Lock()
	defer m.run.Unlock()

	m.begin(text)

	msg, err := m.loop(ctx, nil)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// ProcessMessageStream is ProcessMessage with every turn streamed. h
// observes the events of every turn; the finish event of a turn becomes its
// assistant message. Fatal stream errors and streams ending without a
// finish event abort the loop.
func (m *Manager) ProcessMessageStream(ctx context.Context, text string, h completion.Handlers) (string, error) {
	m.run.Lock()
	defer m.run.Unlock()

	m.begin(text)

	msg, err := m.loop(ctx, &h)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

// ProcessConversation runs the loop on the current log without adding a
// user message and returns the terminal assistant message.
func (m *Manager) ProcessConversation(ctx context.Context) (core.Message, error) {
	m.run.Lock()
	defer m.run.Unlock()

	return m.loop(ctx, nil)
}

// EnrichMessages builds the next request: the current agent's instruction as
// system message in front of a copy of the log, and its tool schemas
// followed by the transfer tool. The log is not modified.
func (m *Manager) EnrichMessages() (completion.Request, error) {
	m.mu.RLock()
	current := m.current
	log := make([]core.Message, len(m.messages))
	for i, msg := range m.messages {
		log[i] = msg.Clone()
	}
	m.mu.RUnlock()

	inst, err := current.Instructions()
	if err != nil {
		return completion.Request{}, fmt.Errorf("instructions of agent %s: %w", current.ID(), err)
	}

	messages := make([]core.Message, 0, len(log)+1)
	if inst.Instruction != "" {
		messages = append(messages, core.NewSystemMessage(inst.Instruction))
	}
	messages = append(messages, log...)

	tools := make([]tool.Tool, 0, len(inst.Tools)+1)
	for _, t := range inst.Tools {
		if t != nil && !tool.IsTransfer(t) {
			tools = append(tools, t)
		}
	}
	tools = append(tools, m.transfer)

	return completion.Request{
		Messages: messages,
		Tools:    current.ToolSchemas(tools),
	}, nil
}

func (m *Manager) begin(text string) {
	m.append(core.NewUserMessage(text))
	m.agents.ResetViewer()
}

func (m *Manager) append(msgs ...core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msgs...)
}

// loop runs the state machine. A nil h selects non-streamed completions.
func (m *Manager) loop(ctx context.Context, h *completion.Handlers) (core.Message, error) {
	limiter := core.NewTurnLimiter(m.maxTurns)

	for turn := 1; ; turn++ {
		if err := ctx.Err(); err != nil {
			return core.Message{}, m.fail(turn, err)
		}

		if err := limiter.Next(); err != nil {
			return core.Message{}, m.fail(turn, err)
		}

		current := m.CurrentAgent()
		m.mu.RLock()
		logged := len(m.messages)
		m.mu.RUnlock()

		m.logger.Debug("conversation.turn.start", "turn", turn, "agent", current.ID(), "messages", logged)

		// AWAIT_RESPONSE
		req, err := m.EnrichMessages()
		if err != nil {
			return core.Message{}, m.fail(turn, err)
		}

		resp, err := m.complete(ctx, current, req, h)
		if err != nil {
			return core.Message{}, m.fail(turn, err)
		}

		m.append(resp)

		// CHECK_TOOLS
		if !resp.HasToolCalls() {
			m.logger.Info("conversation.finished", "turns", turn, "agent", current.ID())
			return resp.Clone(), nil
		}

		// EXECUTE_TOOLS
		res := m.executor.ExecuteTools(ctx, resp.ToolCalls, current)

		m.mu.Lock()
		m.messages = append(m.messages, res.Messages...)
		m.current = res.Agent
		m.mu.Unlock()
	}
}

func (m *Manager) complete(ctx context.Context, current agent.Agent, req completion.Request, h *completion.Handlers) (core.Message, error) {
	start := time.Now()

	var (
		msg core.Message
		err error
	)

	if h == nil {
		msg, err = m.service.SendMessage(ctx, req.Messages, req.Tools)
		if err == nil && msg.Role == "" {
			msg.Role = core.RoleAssistant
		}
	} else {
		var s *completion.Stream
		s, err = m.service.StreamMessage(ctx, req.Messages, req.Tools)
		if err == nil {
			var finish *completion.Finish
			finish, err = completion.Dispatch(ctx, s, *h)
			if err == nil {
				msg = finish.Message()
			}
		}
	}

	dur := time.Since(start)

	if l, ok := m.logger.(completionLogger); ok {
		l.LogCompletion(current.ID(), h != nil, len(msg.ToolCalls), dur, err)
	}

	m.logger.Debug(
		"conversation.completion",
		"agent", current.ID(),
		"streamed", h != nil,
		"duration_ms", dur.Milliseconds(),
		"tool_calls", len(msg.ToolCalls),
		"error", err != nil,
	)

	return msg, err
}

func (m *Manager) fail(turn int, err error) error {
	m.logger.Error("conversation.error", "turn", turn, "error", err.Error())
	return err
}
