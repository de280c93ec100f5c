package agentsquad

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentsquad/agent"
	"github.com/hupe1980/agentsquad/completion"
	"github.com/hupe1980/agentsquad/core"
	"github.com/hupe1980/agentsquad/internal/testutil"
	"github.com/hupe1980/agentsquad/tool"
)

type mockTransportFunc func(*http.Request) (*http.Response, error)

func (f mockTransportFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func TestNew_RequiresAgents(t *testing.T) {
	_, err := New()
	assert.ErrorIs(t, err, ErrNoAgents)
}

func TestNew_DuplicateAgents(t *testing.T) {
	_, err := New(func(o *Options) {
		o.Agents = []agent.Agent{agent.NewAgent("a"), agent.NewAgent("a")}
	})
	assert.ErrorIs(t, err, core.ErrDuplicateAgent)
}

func TestSquad_FirstAgentStarts(t *testing.T) {
	svc := testutil.NewScriptedService(core.NewAssistantMessage("hello there"))

	s, err := New(func(o *Options) {
		o.Agents = []agent.Agent{agent.NewAgent("first"), agent.NewAgent("second")}
		o.Service = svc
	})
	require.NoError(t, err)

	out, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Equal(t, "first", s.CurrentAgent().ID())
	assert.NotEmpty(t, s.ConversationID())
	assert.Len(t, s.Messages(), 2)
	assert.Len(t, s.Agents().Agents(), 2)
}

func TestSquad_TriageRoutes(t *testing.T) {
	weather := agent.NewAgent("weather", func(o *agent.Options) {
		o.Description = "Weather forecasts"
		o.Tools = []tool.Tool{tool.MustFunctionTool("forecast", "Forecast for a city", map[string]any{
			"type":       "object",
			"properties": map[string]any{"city": map[string]any{"type": "string"}},
			"required":   []string{"city"},
		}, func(_ *core.ToolContext, args map[string]any) (any, error) {
			return map[string]any{"city": args["city"], "sky": "sunny"}, nil
		})}
	})

	svc := testutil.NewScriptedService(
		core.NewAssistantMessage("", testutil.Call("t1", tool.TransferToAgentName, `{"id":"weather"}`)),
		core.NewAssistantMessage("", testutil.Call("t2", "forecast", `{"city":"Berlin"}`)),
		core.NewAssistantMessage("Sunny in Berlin."),
	)

	s, err := New(func(o *Options) {
		o.Agents = []agent.Agent{weather}
		o.TriageInstruction = "Route weather questions."
		o.Service = svc
	})
	require.NoError(t, err)
	assert.Equal(t, agent.TriageID, s.CurrentAgent().ID())

	out, err := s.Send(context.Background(), "weather in Berlin?")
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Berlin.", out)
	assert.Equal(t, "weather", s.CurrentAgent().ID())

	log := s.Messages()
	require.Len(t, log, 6)
	assert.JSONEq(t, `{"city":"Berlin","sky":"sunny"}`, log[4].Content)
}

func TestSquad_WithMockService(t *testing.T) {
	svc := new(testutil.MockService)
	svc.On("SendMessage", mock.Anything, mock.MatchedBy(func(msgs []core.Message) bool {
		return len(msgs) == 2 && msgs[0].Role == core.RoleSystem && msgs[1].Content == "ping"
	}), mock.Anything).Return(core.NewAssistantMessage("pong"), nil).Once()

	s, err := New(func(o *Options) {
		o.Agents = []agent.Agent{agent.NewAgent("a")}
		o.Service = svc
	})
	require.NoError(t, err)

	out, err := s.Send(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
	svc.AssertExpectations(t)
}

func TestSquad_DefaultHTTPClient(t *testing.T) {
	var (
		gotToken string
		gotPath  string
		gotBody  completion.Request
	)

	httpClient := &http.Client{Transport: mockTransportFunc(func(req *http.Request) (*http.Response, error) {
		gotToken = req.Header.Get(completion.TokenHeader)
		gotPath = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		require.NoError(t, json.Unmarshal(b, &gotBody))

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"message":{"role":"assistant","content":"served"}}`)),
		}, nil
	})}

	s, err := New(func(o *Options) {
		o.Agents = []agent.Agent{agent.NewAgent("a")}
		o.APIToken = "secret"
		o.APIURL = "https://squad.test/api/"
		o.HTTPClient = httpClient
	})
	require.NoError(t, err)

	out, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "served", out)
	assert.Equal(t, "secret", gotToken)
	assert.Equal(t, "/api/message", gotPath)
	require.Len(t, gotBody.Messages, 2)
	require.Len(t, gotBody.Tools, 1)
	assert.Equal(t, tool.TransferToAgentName, gotBody.Tools[0].Function.Name)
}

func TestSquad_SendStream(t *testing.T) {
	svc := testutil.NewScriptedService().ReplyFrames(
		testutil.ContentFrame("str"),
		testutil.ContentFrame("eamed"),
		testutil.FinalFrame("streamed"),
	)

	s, err := New(func(o *Options) {
		o.Agents = []agent.Agent{agent.NewAgent("a")}
		o.Service = svc
	})
	require.NoError(t, err)

	var deltas []string
	out, err := s.SendStream(context.Background(), "go", completion.Handlers{
		OnContent: func(delta, _ string) { deltas = append(deltas, delta) },
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed", out)
	assert.Equal(t, []string{"str", "eamed"}, deltas)
}
