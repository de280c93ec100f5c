// Package anthropic provides a completion.Service backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/hupe1980/agentsquad/completion"
	"github.com/hupe1980/agentsquad/core"
)

// Options configures the Anthropic service adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Service implements completion.Service on top of the Anthropic SDK.
type Service struct {
	client *anthropic.Client
	opts   Options
}

var _ completion.Service = (*Service)(nil)

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// NewService creates a Service using the official client.
func NewService(optFns ...func(o *Options)) *Service {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Service{client: &client, opts: opts}
}

// NewServiceFromClient creates a Service from an existing client.
func NewServiceFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Service {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Service{client: client, opts: opts}
}

// SendMessage performs a non-streaming Messages API call.
func (s *Service) SendMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (core.Message, error) {
	resp, err := s.client.Messages.New(ctx, s.buildParams(messages, tools))
	if err != nil {
		return core.Message{}, fmt.Errorf("send message: %w: anthropic: %w", core.ErrTransport, err)
	}

	return toMessage(resp), nil
}

// StreamMessage performs a streaming Messages API call. Text deltas are
// emitted as content events; a tool call event is emitted once a tool_use
// block is complete.
func (s *Service) StreamMessage(ctx context.Context, messages []core.Message, tools []core.ToolSchema) (*completion.Stream, error) {
	params := s.buildParams(messages, tools)

	return completion.NewStream(ctx, func(ctx context.Context, emit func(core.StreamEvent) bool) error {
		stream := s.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		message := anthropic.Message{}

		var (
			content strings.Builder
			calls   []core.ToolCall
		)

		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				return fmt.Errorf("%w: accumulate anthropic event: %w", core.ErrStream, err)
			}

			switch ev := event.AsAny().(type) {
			case anthropic.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
					content.WriteString(delta.Text)
					if !emit(core.StreamEvent{Type: core.StreamEventContent, Delta: delta.Text, Content: content.String()}) {
						return ctx.Err()
					}
				}
			case anthropic.ContentBlockStopEvent:
				idx := int(ev.Index)
				if idx < 0 || idx >= len(message.Content) || message.Content[idx].Type != "tool_use" {
					continue
				}

				call := toolCall(message.Content[idx].AsToolUse())
				calls = append(calls, call)
				if !emit(core.StreamEvent{Type: core.StreamEventToolCall, ToolCall: &call, ToolCalls: append([]core.ToolCall(nil), calls...)}) {
					return ctx.Err()
				}
			}
		}

		if err := stream.Err(); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("stream message: %w: anthropic: %w", core.ErrTransport, err)
		}

		if message.StopReason == "" {
			return core.ErrStreamEndedWithoutFinish
		}

		final := toMessage(&message)
		emit(core.StreamEvent{
			Type:         core.StreamEventFinish,
			Content:      final.Content,
			ToolCalls:    final.ToolCalls,
			FinishReason: finishReason(&message),
		})

		return nil
	}), nil
}

func (s *Service) buildParams(messages []core.Message, tools []core.ToolSchema) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       s.opts.Model,
		Messages:    buildMessages(messages),
		MaxTokens:   s.opts.MaxTokens,
		Temperature: anthropic.Float(s.opts.Temperature),
	}

	if system := extractSystem(messages); len(system) > 0 {
		params.System = system
	}

	if len(tools) > 0 {
		params.Tools = buildTools(tools)
	}

	return params
}

// buildMessages converts the conversation log into Anthropic messages.
// Anthropic expects tool results as tool_result blocks of a user turn, so
// consecutive user and tool messages are merged into one user message.
func buildMessages(messages []core.Message) []anthropic.MessageParam {
	var (
		out     []anthropic.MessageParam
		pending []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(pending) > 0 {
			out = append(out, anthropic.NewUserMessage(pending...))
			pending = nil
		}
	}

	for _, m := range messages {
		switch m.Role {
		case core.RoleSystem:
			continue
		case core.RoleTool:
			pending = append(pending, anthropic.NewToolResultBlock(m.ToolCallID, m.Content, isErrorResult(m.Content)))
		case core.RoleAssistant:
			flush()

			var blocks []anthropic.ContentBlockParamUnion
			if m.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(m.Content))
			}
			for _, c := range m.ToolCalls {
				input, err := c.DecodeArguments()
				if err != nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(c.ID, input, c.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		default:
			if m.Content != "" {
				pending = append(pending, anthropic.NewTextBlock(m.Content))
			}
		}
	}
	flush()

	return out
}

// extractSystem collects system messages as system text blocks.
func extractSystem(messages []core.Message) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, m := range messages {
		if m.Role == core.RoleSystem && m.Content != "" {
			blocks = append(blocks, anthropic.TextBlockParam{Text: m.Content})
		}
	}
	return blocks
}

// buildTools converts tool schemas to the Anthropic tool format.
func buildTools(tools []core.ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))

	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{
			Type: constant.Object("object"),
		}

		if params := t.Function.Parameters; params != nil {
			if properties, ok := params["properties"]; ok {
				inputSchema.Properties = properties
			}
			inputSchema.Required = requiredFields(params["required"])
		}

		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Function.Name)
		if out[i].OfTool != nil && t.Function.Description != "" {
			out[i].OfTool.Description = anthropic.String(t.Function.Description)
		}
	}

	return out
}

func requiredFields(v any) []string {
	switch req := v.(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// toMessage converts an Anthropic response into an assistant message.
func toMessage(resp *anthropic.Message) core.Message {
	var (
		text  strings.Builder
		calls []core.ToolCall
	)

	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.AsText().Text)
		case "tool_use":
			calls = append(calls, toolCall(block.AsToolUse()))
		}
	}

	return core.NewAssistantMessage(text.String(), calls...)
}

func toolCall(block anthropic.ToolUseBlock) core.ToolCall {
	args := ""
	if block.Input != nil {
		if b, err := json.Marshal(block.Input); err == nil {
			args = string(b)
		}
	}
	return core.NewToolCall(block.ID, block.Name, args)
}

func finishReason(resp *anthropic.Message) string {
	return string(resp.StopReason)
}

// isErrorResult reports whether content is a serialized tool failure.
func isErrorResult(content string) bool {
	var v map[string]any
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return false
	}
	_, ok := v["error"]
	return ok && len(v) == 1
}
