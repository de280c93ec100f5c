// Package openai provides a completion.Service backed by the OpenAI Chat
// Completions API (including streaming and tool calling). It converts the
// squad conversation log into the SDK's message format and back.
package openai

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/openai/openai-go"

	"github.com/hupe1980/agentsquad/completion"
	"github.com/hupe1980/agentsquad/core"
)

// Options configure the OpenAI service adapter.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Service implements completion.Service on top of the OpenAI SDK.
type Service struct {
	client *openai.Client
	opts   Options
}

var _ completion.Service = (*Service)(nil)

// NewService creates a Service using the official client configured from
// the environment (OPENAI_API_KEY).
func NewService(optFns ...func(o *Options)) *Service {
	client := openai.NewClient()
	return NewServiceFromClient(&client, optFns...)
}

// NewServiceFromClient creates a Service from an existing client.
func NewServiceFromClient(client *openai.Client, optFns ...func(o *Options)) *Service {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Service{client: client, opts: opts}
}

// SendMessage performs a non-streaming chat completion.
func (s *Service) SendMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error) {
	resp, err := s.client.Chat.Completions.New(ctx, s.buildParams(messages, tools))
	if err != nil {
		return core.Message{}, fmt.Errorf("send message: %w: openai: %w", core.ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return core.Message{}, fmt.Errorf("send message: %w: openai returned no choices", core.ErrTransport)
	}

	ch0 := resp.Choices[0]

	calls := make([]core.ToolCall, 0, len(ch0.Message.ToolCalls))
	for _, tc := range ch0.Message.ToolCalls {
		calls = append(calls, core.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments))
	}

	return core.NewAssistantMessage(ch0.Message.Content, calls...), nil
}

// StreamMessage performs a streaming chat completion. Tool call deltas are
// aggregated by index; the finish event carries the aggregated calls.
func (s *Service) StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*completion.Stream, error) {
	params := s.buildParams(messages, tools)

	return completion.NewStream(ctx, func(ctx context.Context, emit func(core.StreamEvent) bool) error {
		stream := s.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		agg := newCallAggregator()

		var (
			content strings.Builder
			reason  string
		)

		for stream.Next() {
			ck := stream.Current()
			for _, ch := range ck.Choices {
				if ch.Delta.Content != "" {
					content.WriteString(ch.Delta.Content)
					if !emit(core.StreamEvent{Type: core.StreamEventContent, Delta: ch.Delta.Content, Content: content.String()}) {
						return ctx.Err()
					}
				}

				for _, tc := range ch.Delta.ToolCalls {
					call := agg.add(tc.Index, tc.ID, tc.Function.Name, tc.Function.Arguments)
					if !emit(core.StreamEvent{Type: core.StreamEventToolCall, ToolCall: &call, ToolCalls: agg.calls()}) {
						return ctx.Err()
					}
				}

				if ch.FinishReason != "" {
					reason = ch.FinishReason
				}
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream message: %w: openai: %w", core.ErrTransport, err)
		}

		if reason == "" {
			return core.ErrStreamEndedWithoutFinish
		}

		emit(core.StreamEvent{
			Type:         core.StreamEventFinish,
			Content:      content.String(),
			ToolCalls:    agg.calls(),
			FinishReason: reason,
		})

		return nil
	}), nil
}

// buildParams assembles the OpenAI request parameters including tool definitions.
func (s *Service) buildParams(messages []core.Message, tools []core.ToolSchema) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Messages:            buildMessages(messages),
		Model:               s.opts.Model,
		Temperature:         openai.Float(s.opts.Temperature),
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
	}
	if len(tools) == 0 {
		return params
	}

	params.Tools = make([]openai.ChatCompletionToolParam, len(tools))
	for i, tdef := range tools {
		params.Tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Function.Name,
				Description: openai.String(tdef.Function.Description),
				Parameters:  tdef.Function.Parameters,
			},
		}
	}

	return params
}

// buildMessages converts the conversation log into OpenAI chat messages.
func buildMessages(messages []core.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case core.RoleAssistant:
			if !m.HasToolCalls() {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := &openai.ChatCompletionAssistantMessageParam{
				Role:      "assistant",
				ToolCalls: toolCallParams(m.ToolCalls),
			}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: assistant})
		case core.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func toolCallParams(calls []core.ToolCall) []openai.ChatCompletionMessageToolCallParam {
	params := make([]openai.ChatCompletionMessageToolCallParam, len(calls))
	for i, c := range calls {
		params[i] = openai.ChatCompletionMessageToolCallParam{
			ID:   c.ID,
			Type: "function",
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      c.Name,
				Arguments: c.ArgumentsString(),
			},
		}
	}
	return params
}

// callAggregator merges partial tool call deltas (id, name, arguments)
// keyed by the chunk index.
type callAggregator struct {
	byIndex map[int64]*aggCall
}

type aggCall struct {
	id, name string
	args     strings.Builder
}

func newCallAggregator() *callAggregator {
	return &callAggregator{byIndex: map[int64]*aggCall{}}
}

func (a *callAggregator) add(index int64, id, name, args string) core.ToolCall {
	ac, ok := a.byIndex[index]
	if !ok {
		ac = &aggCall{}
		a.byIndex[index] = ac
	}
	if id != "" {
		ac.id = id
	}
	if name != "" {
		ac.name = name
	}
	ac.args.WriteString(args)

	return core.NewToolCall(ac.id, ac.name, ac.args.String())
}

func (a *callAggregator) calls() []core.ToolCall {
	indexes := make([]int64, 0, len(a.byIndex))
	for i := range a.byIndex {
		indexes = append(indexes, i)
	}
	slices.Sort(indexes)

	out := make([]core.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		ac := a.byIndex[i]
		out = append(out, core.NewToolCall(ac.id, ac.name, ac.args.String()))
	}
	return out
}
