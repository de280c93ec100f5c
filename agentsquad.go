// Package agentsquad provides a high-level façade over the conversation
// manager, the agent registry and the completion service. Most applications
// interact with this package by:
//  1. Building agents with agent.NewAgent and their tools
//  2. Creating a Squad via New() with those agents and an API token
//  3. Sending user messages with Send or SendStream
//
// A Squad owns exactly one conversation. Create one Squad per user session;
// Send calls on the same Squad are serialized.
package agentsquad

import (
	"context"
	"errors"
	"net/http"

	"github.com/hupe1980/agentsquad/agent"
	"github.com/hupe1980/agentsquad/completion"
	"github.com/hupe1980/agentsquad/conversation"
	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/logging"
)

// ErrNoAgents is returned by New when no agent was configured.
var ErrNoAgents = errors.New("agentsquad: at least one agent is required")

// Options configures a Squad.
type Options struct {
	// Agents are registered in order. Without a triage instruction the first
	// agent starts the conversation.
	Agents []agent.Agent

	// TriageInstruction enables a triage agent that starts every
	// conversation and routes it to one of Agents.
	TriageInstruction string

	// APIToken is sent as x-api-token to the completion service.
	APIToken string

	// APIURL is the base URL of the completion service.
	APIURL string

	// HTTPClient is used by the default completion client.
	HTTPClient *http.Client

	// Service replaces the HTTP completion client, e.g. with an OpenAI or
	// Anthropic backed service. APIToken, APIURL and HTTPClient are ignored
	// when set.
	Service completion.Service

	// MaxTurns bounds completion requests per message. Zero means unlimited.
	MaxTurns int

	// Logger defaults to a no-op logger.
	Logger logging.Logger
}

// Squad is a conversation with a team of agents.
type Squad struct {
	agents  *agent.Context
	manager *conversation.Manager
}

// New creates a Squad.
func New(optFns ...func(o *Options)) (*Squad, error) {
	opts := Options{
		APIURL: completion.DefaultBaseURL,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(opts.Agents) == 0 {
		return nil, ErrNoAgents
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	agents := agent.NewContext()
	if err := agents.Register(opts.Agents...); err != nil {
		return nil, err
	}

	service := opts.Service
	if service == nil {
		service = completion.NewClient(func(o *completion.ClientOptions) {
			o.BaseURL = opts.APIURL
			o.APIToken = opts.APIToken
			o.HTTPClient = opts.HTTPClient
			o.Logger = opts.Logger
		})
	}

	var initial agent.Agent = opts.Agents[0]
	if opts.TriageInstruction != "" {
		initial = agent.NewTriageAgent(agents, agents.Agents(), opts.TriageInstruction)
	}

	manager, err := conversation.NewManager(service, agents, initial, func(o *conversation.ManagerOptions) {
		o.Logger = opts.Logger
		o.MaxTurns = opts.MaxTurns
	})
	if err != nil {
		return nil, err
	}

	return &Squad{agents: agents, manager: manager}, nil
}

// Send processes a user message and returns the final answer.
func (s *Squad) Send(ctx context.Context, text string) (string, error) {
	return s.manager.ProcessMessage(ctx, text)
}

// SendStream processes a user message with streamed completions. h observes
// the events of every turn.
func (s *Squad) SendStream(ctx context.Context, text string, h completion.Handlers) (string, error) {
	return s.manager.ProcessMessageStream(ctx, text, h)
}

// CurrentAgent returns the agent in charge of the conversation.
func (s *Squad) CurrentAgent() agent.Agent { return s.manager.CurrentAgent() }

// Messages returns a copy of the conversation log.
func (s *Squad) Messages() []core.Message { return s.manager.Messages() }

// ConversationID returns the id of the conversation.
func (s *Squad) ConversationID() string { return s.manager.ID() }

// Agents returns the agent registry.
func (s *Squad) Agents() *agent.Context { return s.agents }
